package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vcar-client/internal/domain"
	"vcar-client/internal/logger"
)

// MaxSignatureImageBytes caps signature images read for upload.
const MaxSignatureImageBytes = 5 << 20

// maxSuffix bounds the "-N" suffix search in SaveDocument.
const maxSuffix = 1000

// LocalStore implements DocumentStore on the local filesystem.
type LocalStore struct {
	downloadDir string
}

// NewLocalStore creates the download directory if needed.
func NewLocalStore(downloadDir string) (*LocalStore, error) {
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	return &LocalStore{downloadDir: downloadDir}, nil
}

// SaveDocument writes doc under its filename, adding -1, -2, ... before the
// extension when the name is taken.
func (s *LocalStore) SaveDocument(ctx context.Context, doc *domain.RenderedDocument) (string, error) {
	name := filepath.Base(doc.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("invalid document filename %q", doc.Filename)
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxSuffix; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := name
		if i > 0 {
			candidate = stem + "-" + strconv.Itoa(i) + ext
		}
		fullPath := filepath.Join(s.downloadDir, candidate)

		// O_EXCL makes the existence check and the create one step.
		file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create file: %w", err)
		}

		_, werr := file.Write(doc.Data)
		cerr := file.Close()
		if werr != nil || cerr != nil {
			_ = os.Remove(fullPath)
			return "", fmt.Errorf("failed to write file: %w", errors.Join(werr, cerr))
		}
		logger.Info("Document saved", "path", fullPath, "bytes", len(doc.Data))
		return fullPath, nil
	}
	return "", fmt.Errorf("no free filename for %s in %s", name, s.downloadDir)
}

// ReadSignatureImage reads an image file, rejecting anything that is not an
// image or is larger than MaxSignatureImageBytes.
func (s *LocalStore) ReadSignatureImage(ctx context.Context, path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open file: %v", domain.ErrSignatureUpload, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxSignatureImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file: %v", domain.ErrSignatureUpload, err)
	}
	if len(data) > MaxSignatureImageBytes {
		return nil, fmt.Errorf("%w: image larger than %d bytes", domain.ErrSignatureUpload, MaxSignatureImageBytes)
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: %s is %s, not an image", domain.ErrSignatureUpload, filepath.Base(path), ct)
	}
	return data, nil
}

// FileExists checks if a file exists in the download directory
func (s *LocalStore) FileExists(ctx context.Context, name string) (bool, int64, error) {
	info, err := os.Stat(filepath.Join(s.downloadDir, filepath.Base(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, info.Size(), nil
}

// Dir returns the download directory.
func (s *LocalStore) Dir() string {
	return s.downloadDir
}
