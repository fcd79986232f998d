package filestore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an operation references a path that no longer
// exists, most importantly a MoveFile whose source was already moved by a
// concurrent invocation.
var ErrNotFound = errors.New("filestore: path not found")

// Entry describes one item of a folder listing.
type Entry struct {
	Name         string
	Path         string
	IsFolder     bool
	LastModified time.Time
}

// Store is the remote file store capability the pipeline runs against.
// Paths are absolute, slash-separated and case-sensitive ("/input/file.csv").
type Store interface {
	// ListFolder returns the direct children of path.
	ListFolder(ctx context.Context, path string) ([]Entry, error)

	// GetDownloadLink returns a short-lived URL for fetching the file content.
	GetDownloadLink(ctx context.Context, path string) (string, error)

	// UploadBuffer writes data to path, overwriting an existing file.
	UploadBuffer(ctx context.Context, path string, data []byte, contentType string) error

	// MoveFile relocates a file. A missing source yields ErrNotFound.
	MoveFile(ctx context.Context, fromPath, toPath string) error
}
