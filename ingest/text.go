package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextParser handles plain text (.txt) resumes.
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt"} }

func (p *TextParser) Parse(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
