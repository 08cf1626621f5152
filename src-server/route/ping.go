package route

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"eventfair/src-server/utils"
)

type Pong struct {
	Uptime          string `json:"uptime"`
	GoVersion       string `json:"goVersion"`
	Memory          string `json:"memory"`
	CacheEntries    int    `json:"cacheEntries"`
	DatabaseLatency string `json:"databaseLatency"`
}

// Health probe with a few process stats.
func Ping(muxer *http.ServeMux, as *utils.AppState) {
	handle(muxer, "GET /api/ping", func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		memUsage := float64(m.Sys) / 1024 / 1024

		startTimer := time.Now()
		if err := as.BunDB.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}

		writeJSON(w, http.StatusOK, Pong{
			Uptime:          as.GetUptime().Round(time.Second).String(),
			GoVersion:       runtime.Version(),
			Memory:          fmt.Sprintf("%.2fMB", memUsage),
			CacheEntries:    as.Cache.Len(),
			DatabaseLatency: fmt.Sprintf("%dµs", time.Since(startTimer).Microseconds()),
		})
	})
}
