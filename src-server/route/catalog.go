package route

import (
	"net/http"
	"strconv"

	"eventfair/src-server/utils"
)

// Public, cached reads of categories and events.
func Catalog(muxer *http.ServeMux, as *utils.AppState) {
	handle(muxer, "GET /api/categories", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, as.Service.ListCategories(r.Context()))
	})

	// ?page=1&limit=3, both optional
	handle(muxer, "GET /api/categories/page", func(w http.ResponseWriter, r *http.Request) {
		page, err := intQuery(r, "page", 1)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid page")
			return
		}
		limit, err := intQuery(r, "limit", as.Config.GetPageSize())
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		writeResult(w, as.Service.GetPage(r.Context(), page, limit))
	})

	handle(muxer, "GET /api/categories/{categoryId}/events", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, as.Service.GetCategoryEvents(r.Context(), r.PathValue("categoryId")))
	})

	handle(muxer, "GET /api/events/{eventId}", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, as.Service.GetEvent(r.Context(), r.PathValue("eventId")))
	})
}

func intQuery(r *http.Request, name string, fallback int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
