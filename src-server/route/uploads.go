package route

import (
	"net/http"
	"strings"

	"eventfair/src-server/utils"
)

// Serve saved images from the upload directory. Directory listings are not
// exposed.
func Uploads(muxer *http.ServeMux, as *utils.AppState) {
	files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(as.Blobs.Dir())))
	handle(muxer, "GET /uploads/{file}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("file")
		if name == "" || strings.HasPrefix(name, ".") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}
