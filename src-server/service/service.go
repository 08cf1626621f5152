// The `service` package holds the operations of the fair: the registration
// state machine, the paginated category reader and the admin writes, each
// returning a Result instead of an error.
//
// Reads go through the cache; every write commits to the store first and
// then invalidates the tags of the data it changed before returning.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventfair/src-server/blob"
	"eventfair/src-server/cache"
	"eventfair/src-server/model"

	"github.com/go-playground/validator/v10"
	"github.com/uptrace/bun"
)

// Registration outcomes reported to the observer.
const (
	OUTCOME_CREATED      = "created"
	OUTCOME_EXISTING     = "existing"
	OUTCOME_CONFLICT     = "conflict"
	OUTCOME_UNREGISTERED = "unregistered"
	OUTCOME_FAILED       = "failed"
)

type Service struct {
	db       *bun.DB
	cache    cache.Cache
	blobs    blob.Store
	validate *validator.Validate
	now      func() time.Time
	observe  func(outcome string)

	getEvent              func(context.Context, string) (*model.Event, error)
	getCategoryEvents     func(context.Context, string) (*CategoryEvents, error)
	listCategories        func(context.Context, struct{}) ([]*model.Category, error)
	getPage               func(context.Context, pageRequest) (*Page, error)
	isRegistered          func(context.Context, registrationKey) (bool, error)
	listUserRegistrations func(context.Context, string) ([]*model.Registration, error)
}

type Option func(*Service)

// Clock used for created_at/updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Called once per Register/Unregister with one of the OUTCOME_* values.
func WithRegistrationObserver(observe func(outcome string)) Option {
	return func(s *Service) {
		s.observe = observe
	}
}

func New(db *bun.DB, c cache.Cache, blobs blob.Store, opts ...Option) *Service {
	s := &Service{
		db:       db,
		cache:    c,
		blobs:    blobs,
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
		observe:  func(string) {},
	}
	for _, opt := range opts {
		opt(s)
	}

	// IDs are quoted so an ID containing the separator can't collide

	s.getEvent = cache.Wrap(c,
		func(eventID string) string { return fmt.Sprintf("event:%q", eventID) },
		func(eventID string) []string { return []string{cache.EventTag(eventID)} },
		s.readEvent,
	)
	s.getCategoryEvents = cache.Wrap(c,
		func(categoryID string) string { return fmt.Sprintf("category-events:%q", categoryID) },
		func(categoryID string) []string {
			return []string{cache.EventCategoriesTag, cache.CategoryEventsTag(categoryID)}
		},
		s.readCategoryEvents,
	)
	s.listCategories = cache.Wrap(c,
		func(struct{}) string { return "event-categories-list" },
		func(struct{}) []string { return []string{cache.EventCategoriesTag} },
		func(ctx context.Context, _ struct{}) ([]*model.Category, error) { return s.readCategories(ctx) },
	)
	s.getPage = cache.Wrap(c,
		func(req pageRequest) string { return req.key() },
		func(pageRequest) []string { return []string{cache.EventCategoriesTag} },
		s.readPage,
	)
	s.isRegistered = cache.Wrap(c,
		func(key registrationKey) string { return key.cacheKey() },
		func(key registrationKey) []string { return []string{cache.RegistrationTag(key.UserID, key.EventID)} },
		s.readIsRegistered,
	)
	s.listUserRegistrations = cache.Wrap(c,
		func(userID string) string { return fmt.Sprintf("user-registrations:%q", userID) },
		func(userID string) []string { return []string{cache.UserRegistrationsTag(userID)} },
		s.readUserRegistrations,
	)

	return s
}

// Upsert the reference copy of an authenticated user.
func (s *Service) UpsertUser(ctx context.Context, user *model.User) Result[Empty] {
	if user == nil || user.ID == "" {
		return fail[Empty]("upsertUser", "Failed to save user", &ValidationError{Field: "User", Rule: "required"})
	}
	if err := user.Upsert(ctx, s.db); err != nil {
		return fail[Empty]("upsertUser", "Failed to save user", err)
	}
	return ok(Empty{})
}

// Save an optional image; a failed upload is treated as no image.
func (s *Service) saveImage(ctx context.Context, op string, upload *blob.Upload) string {
	if upload.Empty() || s.blobs == nil {
		return ""
	}
	url, err := s.blobs.SaveFile(ctx, upload)
	if err != nil {
		slog.Warn("can't save image, continuing without it", "op", op, "error", err)
		return ""
	}
	return url
}
