package route

import (
	"net/http"

	"eventfair/src-server/utils"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// All routes of the server behind panic recovery.
func NewMux(as *utils.AppState) http.Handler {
	muxer := http.NewServeMux()
	muxer.Handle("GET /metrics", promhttp.Handler())
	Ping(muxer, as)
	Catalog(muxer, as)
	Registration(muxer, as)
	Admin(muxer, as)
	Uploads(muxer, as)
	return RecoveryMiddleware(muxer)
}
