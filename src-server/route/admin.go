package route

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"eventfair/src-server/blob"
	"eventfair/src-server/service"
	"eventfair/src-server/utils"
)

const (
	maxFormMemory = 8 << 20
	maxImageSize  = 5 << 20
)

// Category and event management, ADMIN only. Writes take multipart or
// urlencoded forms.
func Admin(muxer *http.ServeMux, as *utils.AppState) {
	handle(muxer, "POST /api/admin/categories", AdminMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			form, err := readForm(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeResult(w, as.Service.CreateCategory(r.Context(), service.CreateCategoryInput{
				Title:       form.line("title"),
				Description: form.text("description"),
				Image:       form.image,
			}))
		},
	))

	handle(muxer, "PUT /api/admin/categories/{categoryId}", AdminMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			form, err := readForm(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeResult(w, as.Service.UpdateCategory(r.Context(), r.PathValue("categoryId"), service.UpdateCategoryInput{
				Title:       form.line("title"),
				Description: form.text("description"),
				Image:       form.image,
			}))
		},
	))

	handle(muxer, "DELETE /api/admin/categories/{categoryId}", AdminMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			writeResult(w, as.Service.DeleteCategory(r.Context(), r.PathValue("categoryId")))
		},
	))

	handle(muxer, "POST /api/admin/events", AdminMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			form, err := readForm(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			startDate, endDate, err := form.dates(as)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeResult(w, as.Service.CreateEvent(r.Context(), service.CreateEventInput{
				CategoryID:  form.line("categoryId"),
				Title:       form.line("title"),
				StartDate:   startDate,
				EndDate:     endDate,
				Location:    form.line("location"),
				Description: form.text("description"),
				Terms:       form.text("termsAndConditions"),
				Recurrence:  form.line("recurrence"),
				Image:       form.image,
			}))
		},
	))

	handle(muxer, "PUT /api/admin/events/{eventId}", AdminMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			form, err := readForm(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			startDate, endDate, err := form.dates(as)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeResult(w, as.Service.UpdateEvent(r.Context(), r.PathValue("eventId"), service.UpdateEventInput{
				Title:       form.line("title"),
				StartDate:   startDate,
				EndDate:     endDate,
				Location:    form.line("location"),
				Description: form.text("description"),
				Terms:       form.text("termsAndConditions"),
				Recurrence:  form.line("recurrence"),
				Image:       form.image,
			}))
		},
	))

	handle(muxer, "DELETE /api/admin/events/{eventId}", AdminMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			writeResult(w, as.Service.DeleteEvent(r.Context(), r.PathValue("eventId")))
		},
	))

	handle(muxer, "GET /api/admin/events/{eventId}/registrations", AdminMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			writeResult(w, as.Service.ListRegistrationsForEvent(r.Context(), r.PathValue("eventId")))
		},
	))
}

type adminForm struct {
	r     *http.Request
	image *blob.Upload // nil when no file was sent
}

func readForm(r *http.Request) (*adminForm, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, errors.New("Invalid form")
	}

	f := &adminForm{r: r}
	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return f, nil
	case err != nil:
		return nil, errors.New("Invalid image")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	switch {
	case err != nil:
		return nil, errors.New("Invalid image")
	case len(data) > maxImageSize:
		return nil, errors.New("Image is too large")
	}
	f.image = &blob.Upload{Filename: header.Filename, Data: data}
	return f, nil
}

// Single-line field with whitespace collapsed.
func (f *adminForm) line(name string) string {
	return utils.CleanupString(f.r.FormValue(name))
}

// Multi-line field.
func (f *adminForm) text(name string) string {
	return utils.CleanupText(f.r.FormValue(name))
}

// Parse startDate and endDate. A blank start is left zero for the service to
// reject; a blank end means none.
func (f *adminForm) dates(as *utils.AppState) (time.Time, *time.Time, error) {
	now := time.Now()
	var startDate time.Time
	if value := strings.TrimSpace(f.r.FormValue("startDate")); value != "" {
		parsed, err := utils.ParseDate(value, as.Config.GetLocation(), as.When, now)
		if err != nil {
			return time.Time{}, nil, errors.New("Invalid start date")
		}
		startDate = parsed
	}

	var endDate *time.Time
	if value := strings.TrimSpace(f.r.FormValue("endDate")); value != "" {
		parsed, err := utils.ParseDate(value, as.Config.GetLocation(), as.When, now)
		if err != nil {
			return time.Time{}, nil, errors.New("Invalid end date")
		}
		endDate = &parsed
	}
	return startDate, endDate, nil
}
