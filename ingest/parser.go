// Package ingest turns resume files into indexed documents: parse the
// file's text, extract contact details, embed the content, and write both
// to the store.
package ingest

import "context"

// Parser extracts the plain text of a resume file in one format.
type Parser interface {
	Parse(ctx context.Context, path string) (string, error)
	SupportedFormats() []string
}
