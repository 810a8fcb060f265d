// Package storage keeps listing image binaries on the local disk.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iliyamo/kinder-market/internal/service"
)

// ErrTooLarge is returned when an upload exceeds the size limit.  It is a
// validation error so callers report it as bad input.
var ErrTooLarge error = &service.ValidationError{Field: "image", Message: "image too large"}

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// Local stores each upload as <Root>/<owner id>/<uuid><ext>.  References
// are slash separated paths relative to Root.
type Local struct {
	Root     string
	MaxBytes int64
}

var _ service.ImageStore = (*Local)(nil)

// NewLocal returns a Local rooted at root, creating the directory.
func NewLocal(root string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create media root")
	}
	return &Local{Root: root, MaxBytes: maxBytes}, nil
}

// Save writes the upload and returns its reference.  A partially written
// file is removed on failure.
func (l *Local) Save(_ context.Context, img service.ImageUpload, dest service.ImageDescriptor) (string, error) {
	ext := strings.ToLower(filepath.Ext(img.Filename))
	if !allowedExt[ext] {
		return "", &service.ValidationError{Field: "image", Message: fmt.Sprintf("unsupported image type %q", ext)}
	}
	ref := path.Join(fmt.Sprint(dest.ListingOwnerID), uuid.NewString()+ext)
	full := filepath.Join(l.Root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errors.Wrap(err, "create image dir")
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create image file")
	}

	src := img.Content
	if l.MaxBytes > 0 {
		src = io.LimitReader(img.Content, l.MaxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && l.MaxBytes > 0 && n > l.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return "", errors.Wrap(err, "write image")
	}
	return ref, nil
}

// Delete removes the binary behind ref.  A missing file is not an error.
func (l *Local) Delete(_ context.Context, ref string) error {
	full, err := l.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove image")
	}
	return nil
}

// resolve maps ref below Root and rejects references escaping it.
func (l *Local) resolve(ref string) (string, error) {
	clean := path.Clean("/" + ref)
	if clean == "/" || strings.Contains(ref, "..") {
		return "", errors.Errorf("invalid image ref %q", ref)
	}
	return filepath.Join(l.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
