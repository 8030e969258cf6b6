// Package upload reads multipart file parts and writes them under the public
// uploads directory.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nomadhub1/nomadhub/internal/slug"
)

// PublicPrefix is the URL path stored files are served under
const PublicPrefix = "/uploads/"

// MaxMemory bounds the in-memory part of multipart parsing; larger parts spill to disk
const MaxMemory = 8 << 20

// File describes an uploaded part before it is stored
type File struct {
	MimeType string
	Size     int64
	Filename string
	// Open returns a fresh reader over the content
	Open func() (io.ReadCloser, error)
}

// Handler stores uploaded files under Dir
type Handler struct {
	Dir string
	log *zap.Logger
}

// New creates an upload handler writing to dir
func New(dir string, log *zap.Logger) *Handler {
	return &Handler{Dir: dir, log: log.Named("upload")}
}

// FromRequest returns the file sent in field, or nil when the field is absent or empty
func (h *Handler) FromRequest(r *http.Request, field string) (*File, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(MaxMemory); err != nil {
			if errors.Is(err, http.ErrNotMultipart) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}
	}

	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	f.Close()

	if header.Filename == "" && header.Size == 0 {
		return nil, nil
	}

	return &File{
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Filename: header.Filename,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}, nil
}

// Store writes the file as <uuid>-<name> and returns its public path
func (h *Handler) Store(ctx context.Context, f *File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := uuid.NewString() + "-" + SanitizeFilename(f.Filename)
	dst, err := os.OpenFile(filepath.Join(h.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}

	src, err := f.Open()
	if err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	h.log.Info("stored upload", zap.String("file", name), zap.Int64("size", f.Size))
	return PublicPrefix + name, nil
}

// Remove deletes a file previously returned by Store. Paths outside the
// uploads prefix are rejected.
func (h *Handler) Remove(ctx context.Context, publicPath string) error {
	name := strings.TrimPrefix(publicPath, PublicPrefix)
	if name == publicPath || name == "" || name != filepath.Base(name) {
		return fmt.Errorf("not an upload path: %q", publicPath)
	}
	if err := os.Remove(filepath.Join(h.Dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove upload: %w", err)
	}
	h.log.Info("removed upload", zap.String("file", name))
	return nil
}

// SanitizeFilename keeps a readable, path-free name: slugged stem plus a lowercased extension
func SanitizeFilename(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := slug.Generate(strings.TrimSuffix(base, filepath.Ext(base)))

	if ext == "." || slug.Generate(ext) != strings.TrimPrefix(ext, ".") {
		ext = ""
	}
	if stem == "" {
		stem = "upload"
	}
	if len(stem) > 80 {
		stem = strings.TrimRight(stem[:80], "-")
	}
	return stem + ext
}
