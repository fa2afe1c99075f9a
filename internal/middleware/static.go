package middleware

import (
	"net/http"
	"os"
	"path/filepath"
)

const horseSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 200"><rect width="200" height="200" fill="#f0ead6"/><path d="M140 55l-12 18c-8-6-19-9-30-7-20 4-34 22-32 42l4 32h14l-3-28c-1-12 7-23 19-25 13-2 25 7 27 20l5 33h14l-6-38c-1-8-5-15-10-20l16-19z" fill="#8b6f47"/><text x="100" y="178" text-anchor="middle" font-family="Arial" font-size="14" fill="#6b5d45">HORSE</text></svg>`

// StaticFileServer serves horse photos, falling back to a placeholder image
// when the file is missing.
func StaticFileServer(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean(r.URL.Path))

		if _, err := os.Stat(path); err == nil {
			w.Header().Set("Cache-Control", "public, max-age=2592000")
			http.ServeFile(w, r, path)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write([]byte(horseSVG))
	})
}
