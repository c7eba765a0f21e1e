package storage

import (
	"context"

	"vcar-client/internal/domain"
)

// DocumentStore persists rendered documents and reads local files the user
// hands to the client (signature images).
type DocumentStore interface {
	// SaveDocument writes doc and returns the path it was written to.
	// Existing files are never overwritten.
	SaveDocument(ctx context.Context, doc *domain.RenderedDocument) (string, error)

	// ReadSignatureImage reads an image file for upload.
	ReadSignatureImage(ctx context.Context, path string) ([]byte, error)

	// FileExists checks if a file exists in the download directory and
	// returns its size.
	FileExists(ctx context.Context, name string) (exists bool, size int64, err error)
}
