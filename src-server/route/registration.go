package route

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"eventfair/src-server/ical"
	"eventfair/src-server/utils"
)

// Registration of the authenticated user.
func Registration(muxer *http.ServeMux, as *utils.AppState) {
	handle(muxer, "GET /api/events/{eventId}/registration", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			identity, _ := identityFrom(r)
			writeResult(w, as.Service.IsRegistered(r.Context(), identity.UserID, r.PathValue("eventId")))
		},
	))

	handle(muxer, "POST /api/events/{eventId}/registration", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			identity, _ := identityFrom(r)
			writeResult(w, as.Service.Register(r.Context(), identity.UserID, r.PathValue("eventId")))
		},
	))

	handle(muxer, "DELETE /api/events/{eventId}/registration", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			identity, _ := identityFrom(r)
			writeResult(w, as.Service.Unregister(r.Context(), identity.UserID, r.PathValue("eventId")))
		},
	))

	handle(muxer, "GET /api/me/registrations", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			identity, _ := identityFrom(r)
			writeResult(w, as.Service.ListRegistrationsForUser(r.Context(), identity.UserID))
		},
	))

	// the registered events as an iCalendar feed
	handle(muxer, "GET /api/me/registrations.ics", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			identity, _ := identityFrom(r)
			result := as.Service.ListRegistrationsForUser(r.Context(), identity.UserID)
			if !result.Success {
				writeResult(w, result)
				return
			}

			calendar := ical.NewCalendar("Registered events")
			for _, registrationModel := range result.Data {
				eventModel := registrationModel.Event
				if eventModel == nil {
					continue
				}
				url := ""
				if base := as.Config.GetPublicBaseURL(); base != "" {
					url = strings.TrimSuffix(base, "/") + "/api/events/" + eventModel.ID
				}
				calendar.AddEvent(ical.Event{
					ID:          eventModel.ID,
					Summary:     eventModel.Title,
					Start:       eventModel.StartDate,
					End:         eventModel.EndDate,
					Location:    eventModel.Location,
					Description: eventModel.Description,
					URL:         url,
					RRule:       eventModel.Recurrence,
					CreatedAt:   eventModel.CreatedAt,
					UpdatedAt:   eventModel.UpdatedAt,
				})
			}
			output, err := calendar.ToIcal()
			if err != nil {
				slog.Error("can't serialize registrations calendar", "user", identity.UserID, "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to export registrations")
				return
			}

			w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="registrations.ics"`)
			w.WriteHeader(http.StatusOK)
			if _, err := io.WriteString(w, output); err != nil {
				slog.Warn("can't write to response", "where", "route/registration.go", "error", err)
			}
		},
	))
}
