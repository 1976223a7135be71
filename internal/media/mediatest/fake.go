// Package mediatest provides an in-memory media uploader for service tests.
package mediatest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/circlemart/circlemart-backend/internal/media"
)

// ErrUploadFailed is returned once FailAfter uploads have succeeded.
var ErrUploadFailed = errors.New("upload failed")

// Uploader records uploads and deletes.
type Uploader struct {
	mu        sync.Mutex
	seq       int
	FailAfter int
	Uploaded  []string
	Deleted   []string
}

// New returns an uploader that never fails.
func New() *Uploader {
	return &Uploader{FailAfter: -1}
}

func (u *Uploader) Upload(_ context.Context, data []byte, folder string) (*media.Asset, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.FailAfter >= 0 && len(u.Uploaded) >= u.FailAfter {
		return nil, ErrUploadFailed
	}
	u.seq++
	id := fmt.Sprintf("%s/%d", folder, u.seq)
	u.Uploaded = append(u.Uploaded, id)
	return &media.Asset{PublicID: id, URL: "https://cdn.test/" + id, Width: len(data), Height: 1}, nil
}

func (u *Uploader) Delete(_ context.Context, publicID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Deleted = append(u.Deleted, publicID)
	return nil
}

// WasDeleted reports whether publicID was removed.
func (u *Uploader) WasDeleted(publicID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, id := range u.Deleted {
		if id == publicID {
			return true
		}
	}
	return false
}
