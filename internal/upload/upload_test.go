package upload

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func multipartRequest(t *testing.T, field, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("title", "Visa Guide"); err != nil {
		t.Fatal(err)
	}
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/articles", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFromRequest(t *testing.T) {
	h := New(t.TempDir(), zaptest.NewLogger(t))
	req := multipartRequest(t, "image", "Beach Photo.PNG", "image/png", []byte("png-bytes"))

	f, err := h.FromRequest(req, "image")
	if err != nil {
		t.Fatal(err)
	}
	if f == nil {
		t.Fatal("expected a file")
	}
	if f.MimeType != "image/png" || f.Size != int64(len("png-bytes")) || f.Filename != "Beach Photo.PNG" {
		t.Errorf("unexpected file descriptor: %+v", f)
	}

	missing, err := h.FromRequest(req, "author_avatar")
	if err != nil || missing != nil {
		t.Errorf("absent field = (%v, %v), want (nil, nil)", missing, err)
	}
}

func TestFromRequest_NotMultipart(t *testing.T) {
	h := New(t.TempDir(), zaptest.NewLogger(t))
	req := httptest.NewRequest(http.MethodPost, "/articles", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	f, err := h.FromRequest(req, "image")
	if err != nil || f != nil {
		t.Errorf("FromRequest = (%v, %v), want (nil, nil)", f, err)
	}
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	h := New(dir, zaptest.NewLogger(t))
	f := &File{
		MimeType: "image/jpeg",
		Size:     4,
		Filename: "../../etc/My Photo.JPG",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("jpeg")), nil
		},
	}

	path, err := h.Store(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(path, PublicPrefix) || !strings.HasSuffix(path, "-my-photo.jpg") {
		t.Errorf("public path = %q", path)
	}

	name := strings.TrimPrefix(path, PublicPrefix)
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "jpeg" {
		t.Errorf("stored content = %q", data)
	}
}

func TestStore_UniqueNames(t *testing.T) {
	h := New(t.TempDir(), zaptest.NewLogger(t))
	newFile := func() *File {
		return &File{Filename: "a.png", Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("x")), nil
		}}
	}

	first, err := h.Store(context.Background(), newFile())
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.Store(context.Background(), newFile())
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Errorf("expected distinct names, got %q twice", first)
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	h := New(dir, zaptest.NewLogger(t))
	ctx := context.Background()
	path, err := h.Store(ctx, &File{Filename: "a.png", Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("x")), nil
	}})
	if err != nil {
		t.Fatal(err)
	}

	if err := h.Remove(ctx, path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, strings.TrimPrefix(path, PublicPrefix))); !os.IsNotExist(err) {
		t.Errorf("file still present after Remove: %v", err)
	}
	if err := h.Remove(ctx, path); err != nil {
		t.Errorf("removing a missing upload = %v, want nil", err)
	}
}

func TestRemove_RejectsOtherPaths(t *testing.T) {
	h := New(t.TempDir(), zaptest.NewLogger(t))

	for _, path := range []string{"", "/uploads/", "/etc/passwd", "/uploads/../config.env", "/uploads/a/b.png", "https://example.com/a.png"} {
		if err := h.Remove(context.Background(), path); err == nil {
			t.Errorf("Remove(%q) = nil, want error", path)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"Beach Photo.PNG", "beach-photo.png"},
		{"../../secret.webp", "secret.webp"},
		{`C:\Users\me\Café.gif`, "cafe.gif"},
		{"", "upload"},
		{"....", "upload"},
		{"weird.p#g", "weird"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
