package route

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"eventfair/src-server/jwt"
	"eventfair/src-server/model"
	"eventfair/src-server/service"
	"eventfair/src-server/utils"

	"github.com/google/uuid"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type server struct {
	t       *testing.T
	handler http.Handler
	user    string
	admin   string
}

func newServer(t *testing.T) *server {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("UPLOAD_DIR", t.TempDir())

	config, err := utils.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	rawDB, err := sql.Open(sqliteshim.ShimName, model.DSN(uuid.NewString(), "mode=memory", "cache=shared"))
	if err != nil {
		t.Fatal(err)
	}
	as, err := utils.NewAppStateFromDB(config, rawDB)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(as.GracefulShutdown)

	return &server{
		t:       t,
		handler: NewMux(as),
		user:    token(t, jwt.Payload{UserID: "u1", Name: "Linh", Email: "linh@example.com"}),
		admin:   token(t, jwt.Payload{UserID: "a1", Name: "Admin", Email: "admin@example.com", Role: "ADMIN"}),
	}
}

func token(t *testing.T, payload jwt.Payload) string {
	t.Helper()
	signed, err := jwt.Encode(payload, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func (s *server) do(method string, target string, bearer string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *server) form(method string, target string, bearer string, values url.Values) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(method, target, bearer, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var body envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("can't decode %q: %v", rec.Body.String(), err)
	}
	if data != nil && body.Success {
		if err := json.Unmarshal(body.Data, data); err != nil {
			t.Fatalf("can't decode data %s: %v", body.Data, err)
		}
	}
	return body
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, want, rec.Body.String())
	}
}

// Create a category through a multipart form with an image, then an event in
// it through an urlencoded form.
func (s *server) seed() (categoryID string, eventID string, image string) {
	t := s.t
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", "  Tech \t Talks ")
	mw.WriteField("description", "All things tech")
	part, err := mw.CreateFormFile("image", "cover.PNG")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("not really a png"))
	mw.Close()

	rec := s.do(http.MethodPost, "/api/admin/categories", s.admin, &buf, mw.FormDataContentType())
	expectStatus(t, rec, http.StatusOK)
	var category struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Image string `json:"image"`
	}
	decode(t, rec, &category)
	if category.Title != "Tech Talks" {
		t.Errorf("title = %q, want whitespace collapsed", category.Title)
	}
	if !strings.HasPrefix(category.Image, "/uploads/") || !strings.HasSuffix(category.Image, ".png") {
		t.Errorf("image = %q", category.Image)
	}

	rec = s.form(http.MethodPost, "/api/admin/events", s.admin, url.Values{
		"categoryId":         {category.ID},
		"title":              {"AI Summit"},
		"startDate":          {"2026-03-27T10:00:00Z"},
		"endDate":            {"2026-03-27T12:00:00Z"},
		"location":           {"Hall B"},
		"termsAndConditions": {"No recording"},
	})
	expectStatus(t, rec, http.StatusOK)
	var event struct {
		ID string `json:"id"`
	}
	decode(t, rec, &event)
	return category.ID, event.ID, category.Image
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t)
	_, eventID, _ := s.seed()
	target := "/api/events/" + eventID + "/registration"

	rec := s.do(http.MethodPost, target, "", nil, "")
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = s.do(http.MethodPost, target, "not-a-token", nil, "")
	expectStatus(t, rec, http.StatusUnauthorized)

	// case: a token signed with another secret
	forged, err := jwt.Encode(jwt.Payload{UserID: "u1", Role: "ADMIN"}, "other-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	rec = s.do(http.MethodGet, "/api/admin/events/"+eventID+"/registrations", forged, nil, "")
	expectStatus(t, rec, http.StatusUnauthorized)

	// case: users are not admins
	rec = s.do(http.MethodDelete, "/api/admin/events/"+eventID, s.user, nil, "")
	expectStatus(t, rec, http.StatusForbidden)

	// case: the session cookie works like a bearer token
	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.AddCookie(&http.Cookie{Name: SessionTokenCookieName, Value: s.user})
	cookieRec := httptest.NewRecorder()
	s.handler.ServeHTTP(cookieRec, req)
	expectStatus(t, cookieRec, http.StatusOK)
}

func TestCatalog(t *testing.T) {
	s := newServer(t)
	categoryID, eventID, image := s.seed()

	rec := s.do(http.MethodGet, "/api/categories", "", nil, "")
	expectStatus(t, rec, http.StatusOK)
	var categories []struct {
		ID string `json:"id"`
	}
	decode(t, rec, &categories)
	if len(categories) != 1 || categories[0].ID != categoryID {
		t.Errorf("categories = %+v", categories)
	}

	rec = s.do(http.MethodGet, "/api/categories/page?page=1&limit=2", "", nil, "")
	expectStatus(t, rec, http.StatusOK)
	var page struct {
		Items []struct {
			Events []struct {
				ID string `json:"id"`
			} `json:"events"`
		} `json:"items"`
		HasMore bool `json:"hasMore"`
	}
	decode(t, rec, &page)
	if len(page.Items) != 1 || page.HasMore || len(page.Items[0].Events) != 1 {
		t.Errorf("page = %+v", page)
	}

	rec = s.do(http.MethodGet, "/api/categories/"+categoryID+"/events", "", nil, "")
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(http.MethodGet, "/api/events/"+eventID, "", nil, "")
	expectStatus(t, rec, http.StatusOK)
	var event struct {
		Title    string `json:"title"`
		Terms    string `json:"termsAndConditions"`
		Category struct {
			ID string `json:"id"`
		} `json:"category"`
	}
	decode(t, rec, &event)
	if event.Title != "AI Summit" || event.Terms != "No recording" || event.Category.ID != categoryID {
		t.Errorf("event = %+v", event)
	}

	// the uploaded image is served back
	rec = s.do(http.MethodGet, image, "", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "not really a png" {
		t.Errorf("image body = %q", rec.Body.String())
	}

	for target, want := range map[string]int{
		"/api/events/nope":                   http.StatusNotFound,
		"/api/categories/nope/events":        http.StatusNotFound,
		"/api/categories/page?page=abc":      http.StatusBadRequest,
		"/api/categories/page?page=0":        http.StatusBadRequest,
		"/api/categories/page?page=1&limit=": http.StatusOK,
		"/uploads/.hidden":                   http.StatusNotFound,
	} {
		if rec := s.do(http.MethodGet, target, "", nil, ""); rec.Code != want {
			t.Errorf("GET %s = %d, want %d", target, rec.Code, want)
		}
	}
}

func TestRegistrationFlow(t *testing.T) {
	s := newServer(t)
	_, eventID, _ := s.seed()
	target := "/api/events/" + eventID + "/registration"

	isRegistered := func() bool {
		t.Helper()
		rec := s.do(http.MethodGet, target, s.user, nil, "")
		expectStatus(t, rec, http.StatusOK)
		var registered bool
		decode(t, rec, &registered)
		return registered
	}

	if isRegistered() {
		t.Fatal("registered before registering")
	}
	for i := 0; i < 2; i++ {
		expectStatus(t, s.do(http.MethodPost, target, s.user, nil, ""), http.StatusOK)
	}
	if !isRegistered() {
		t.Fatal("not registered after registering")
	}

	rec := s.do(http.MethodGet, "/api/me/registrations", s.user, nil, "")
	expectStatus(t, rec, http.StatusOK)
	var registrations []struct {
		EventID string `json:"eventId"`
		Event   struct {
			Title string `json:"title"`
		} `json:"event"`
	}
	decode(t, rec, &registrations)
	if len(registrations) != 1 || registrations[0].EventID != eventID || registrations[0].Event.Title != "AI Summit" {
		t.Errorf("registrations = %+v", registrations)
	}

	rec = s.do(http.MethodGet, "/api/me/registrations.ics", s.user, nil, "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	for _, line := range []string{"SUMMARY:AI Summit\r\n", "DTSTART:20260327T100000Z\r\n", "LOCATION:Hall B\r\n"} {
		if !strings.Contains(rec.Body.String(), line) {
			t.Errorf("calendar is missing %q:\n%s", line, rec.Body.String())
		}
	}

	rec = s.do(http.MethodGet, "/api/admin/events/"+eventID+"/registrations", s.admin, nil, "")
	expectStatus(t, rec, http.StatusOK)
	var roster []service.RosterEntry
	decode(t, rec, &roster)
	if len(roster) != 1 || roster[0].User.ID != "u1" || roster[0].User.Email != "linh@example.com" {
		t.Errorf("roster = %+v", roster)
	}

	for i := 0; i < 2; i++ {
		expectStatus(t, s.do(http.MethodDelete, target, s.user, nil, ""), http.StatusOK)
	}
	if isRegistered() {
		t.Error("still registered after unregistering")
	}

	rec = s.do(http.MethodPost, "/api/events/nope/registration", s.user, nil, "")
	expectStatus(t, rec, http.StatusNotFound)
	if body := decode(t, rec, nil); body.Error != "Event not found" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestAdminWrites(t *testing.T) {
	s := newServer(t)
	categoryID, eventID, _ := s.seed()

	rec := s.form(http.MethodPost, "/api/admin/events", s.admin, url.Values{
		"categoryId": {categoryID},
		"startDate":  {"2026-03-27T10:00:00Z"},
	})
	expectStatus(t, rec, http.StatusBadRequest)
	if body := decode(t, rec, nil); body.Error != "Title is required" {
		t.Errorf("error = %q", body.Error)
	}

	rec = s.form(http.MethodPost, "/api/admin/events", s.admin, url.Values{
		"categoryId": {categoryID},
		"title":      {"Career fair"},
		"startDate":  {"qwerty"},
	})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.form(http.MethodPut, "/api/admin/events/"+eventID, s.admin, url.Values{
		"title":      {"AI Summit 2026"},
		"startDate":  {"2026-03-28T10:00:00Z"},
		"recurrence": {"FREQ=WEEKLY;COUNT=2"},
	})
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(http.MethodGet, "/api/events/"+eventID, "", nil, "")
	var event struct {
		Title      string `json:"title"`
		Recurrence string `json:"recurrence"`
	}
	decode(t, rec, &event)
	if event.Title != "AI Summit 2026" || event.Recurrence != "FREQ=WEEKLY;COUNT=2" {
		t.Errorf("event after update = %+v", event)
	}

	rec = s.form(http.MethodPut, "/api/admin/categories/"+categoryID, s.admin, url.Values{"title": {"Tech"}})
	expectStatus(t, rec, http.StatusOK)

	expectStatus(t, s.do(http.MethodDelete, "/api/admin/events/"+eventID, s.admin, nil, ""), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, "/api/events/"+eventID, "", nil, ""), http.StatusNotFound)

	expectStatus(t, s.do(http.MethodDelete, "/api/admin/categories/"+categoryID, s.admin, nil, ""), http.StatusOK)
	expectStatus(t, s.do(http.MethodDelete, "/api/admin/categories/"+categoryID, s.admin, nil, ""), http.StatusNotFound)
}

func TestPing(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodGet, "/api/ping", "", nil, "")
	expectStatus(t, rec, http.StatusOK)
	var pong Pong
	if err := json.Unmarshal(rec.Body.Bytes(), &pong); err != nil {
		t.Fatal(err)
	}
	if pong.GoVersion == "" || pong.Uptime == "" {
		t.Errorf("pong = %+v", pong)
	}

	rec = s.do(http.MethodGet, "/metrics", "", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "eventfair_http_request_duration_seconds") {
		t.Error("request durations are not exported")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	expectStatus(t, rec, http.StatusInternalServerError)
}
