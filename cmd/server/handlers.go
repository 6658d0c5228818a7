package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mkrishnan/resumatch"
	"github.com/mkrishnan/resumatch/ingest"
)

type handler struct {
	// svc is nil when initialization failed at startup; every endpoint
	// then reports the pipeline as not ready.
	svc resumatch.Service
}

func newHandler(svc resumatch.Service) *handler {
	return &handler{svc: svc}
}

// ready rejects the request with 503 when the service never initialized.
func (h *handler) ready(w http.ResponseWriter) bool {
	if h.svc == nil {
		writeError(w, http.StatusServiceUnavailable, resumatch.ErrPipelineNotReady.Error())
		return false
	}
	return true
}

// POST /search
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Query      string `json:"query"`
		SearchType string `json:"searchType,omitempty"`
		TopK       int    `json:"topK,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.TopK < 0 || req.TopK > 100 {
		req.TopK = 0 // use default
	}

	resp, err := h.svc.Search(ctx, req.Query, req.SearchType, req.TopK)
	if err != nil {
		writeServiceError(w, err, "search failed")
		slog.Error("search error", "query", req.Query, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /chat
func (h *handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req resumatch.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.TopK < 0 || req.TopK > 100 {
		req.TopK = 0
	}

	resp, err := h.svc.Chat(ctx, req)
	if err != nil {
		writeServiceError(w, err, "chat failed")
		slog.Error("chat error", "conversation_id", req.ConversationID, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /conversations/{id}
func (h *handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id := r.PathValue("id")

	messages, err := h.svc.History(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to load conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversationId": id,
		"messages":       messages,
		"messageCount":   len(messages),
	})
}

// DELETE /conversations/{id}
func (h *handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id := r.PathValue("id")

	if err := h.svc.DeleteConversation(r.Context(), id); err != nil {
		writeServiceError(w, err, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /ingest
// Accepts a multipart file upload, or JSON with a path (file or directory).
func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	// Try multipart upload first
	if err := r.ParseMultipartForm(100 << 20); err == nil { // 100MB max
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			// Sanitise filename to prevent path traversal.
			safeName := filepath.Base(header.Filename)

			tmpPath := filepath.Join(os.TempDir(), safeName)
			dst, err := os.Create(tmpPath)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp file", "error", err)
				return
			}
			if _, err := io.Copy(dst, file); err != nil {
				dst.Close()
				writeError(w, http.StatusInternalServerError, "failed to save file")
				slog.Error("saving uploaded file", "error", err)
				return
			}
			dst.Close()
			defer os.Remove(tmpPath)

			res, err := h.svc.Ingest(ctx, tmpPath)
			if err != nil {
				writeServiceError(w, err, "ingestion failed")
				slog.Error("ingest error", "file", safeName, "error", err)
				return
			}
			writeJSON(w, http.StatusOK, res)
			return
		}
	}

	// Try JSON body with path
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'path'")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	absPath, err := filepath.Abs(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(absPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, "path must exist")
		return
	}

	if info.IsDir() {
		results, err := h.svc.IngestDir(ctx, absPath)
		if err != nil {
			writeServiceError(w, err, "ingestion failed")
			slog.Error("ingest dir error", "path", absPath, "error", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
		return
	}

	res, err := h.svc.Ingest(ctx, absPath)
	if err != nil {
		writeServiceError(w, err, "ingestion failed")
		slog.Error("ingest error", "path", absPath, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /resumes
func (h *handler) handleListResumes(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	resumes, err := h.svc.ListResumes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list resumes")
		slog.Error("list resumes error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"resumes": resumes,
		"count":   len(resumes),
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.svc == nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

// writeServiceError maps service sentinel errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, resumatch.ErrInvalidQuery),
		errors.Is(err, resumatch.ErrInvalidMessage),
		errors.Is(err, ingest.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, resumatch.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, resumatch.ErrPipelineNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
