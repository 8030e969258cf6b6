package server

import (
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// staticDirs are the public/ subdirectories served as-is
var staticDirs = []string{"css", "js", "images", "uploads"}

// cacheableExt get a week-long immutable cache header
var cacheableExt = map[string]bool{
	".css": true, ".js": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true, ".ico": true,
}

func (s *Server) mountStatic(r chi.Router) {
	for _, dir := range staticDirs {
		root := filepath.Join(s.config.StaticDir, dir)
		if dir == "uploads" {
			root = s.config.UploadDir
		}
		prefix := "/" + dir + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, cacheControl(http.FileServer(noListing{http.Dir(root)}))))
	}
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(s.config.StaticDir, "favicon.ico"))
	})
}

func cacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cacheableExt[strings.ToLower(filepath.Ext(r.URL.Path))] {
			w.Header().Set("Cache-Control", "public, max-age=604800, immutable")
		}
		next.ServeHTTP(w, r)
	})
}

// noListing hides directory indexes
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if stat.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

