package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	errors "github.com/frahmantamala/expense-approval/internal"
)

type Bucket string

const (
	BucketQuotes   Bucket = "quotes"
	BucketReceipts Bucket = "receipts"
)

const DefaultMaxUploadBytes int64 = 10 << 20

var allowedExtensions = map[Bucket][]string{
	BucketQuotes:   {".pdf", ".jpg", ".jpeg", ".png", ".doc", ".docx"},
	BucketReceipts: {".pdf", ".jpg", ".jpeg", ".png"},
}

// Descriptor is what callers persist after an upload.
type Descriptor struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type Store interface {
	Upload(ctx context.Context, bucket Bucket, filename string, body io.Reader, size int64, contentType string) (*Descriptor, error)
}

// CheckFile validates bucket, extension and size before any bytes move.
func CheckFile(bucket Bucket, filename string, size, maxBytes int64) error {
	allowed, ok := allowedExtensions[bucket]
	if !ok {
		return errors.NewValidationError(fmt.Sprintf("unknown bucket %q", bucket), errors.ErrCodeInvalidFile)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return errors.NewValidationFieldError("file", "file has no extension", errors.ErrCodeInvalidFile)
	}

	permitted := false
	for _, a := range allowed {
		if a == ext {
			permitted = true
			break
		}
	}
	if !permitted {
		return errors.NewValidationFieldError("file",
			fmt.Sprintf("extension %s is not allowed for %s", ext, bucket), errors.ErrCodeInvalidFile)
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if size <= 0 {
		return errors.NewValidationFieldError("file", "file is empty", errors.ErrCodeInvalidFile)
	}
	if size > maxBytes {
		return errors.NewValidationFieldError("file",
			fmt.Sprintf("file exceeds %d bytes", maxBytes), errors.ErrCodeInvalidFile)
	}
	return nil
}
