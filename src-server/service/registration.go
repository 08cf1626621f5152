package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventfair/src-server/cache"
	"eventfair/src-server/model"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type registrationKey struct {
	UserID  string
	EventID string
}

func (k registrationKey) check() error {
	switch {
	case k.UserID == "":
		return &ValidationError{Field: "User", Rule: "required"}
	case k.EventID == "":
		return &ValidationError{Field: "Event", Rule: "required"}
	}
	return nil
}

// Public fields of a registered user, as shown in an event's roster.
type RosterUser struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Image    string    `json:"image,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

type RosterEntry struct {
	RegistrationID string     `json:"registrationId"`
	RegisteredAt   time.Time  `json:"registeredAt"`
	User           RosterUser `json:"user"`
}

// Register the user for the event. Registering twice, or racing another
// Register for the same pair, is a success that leaves exactly one row. The
// user must have been stored with UpsertUser first.
func (s *Service) Register(ctx context.Context, userID string, eventID string) Result[Empty] {
	const op, message = "registerForEvent", "Failed to register for event"
	key := registrationKey{UserID: userID, EventID: eventID}
	if err := key.check(); err != nil {
		return fail[Empty](op, message, err)
	}

	if _, err := s.findEvent(ctx, eventID); err != nil {
		s.observe(OUTCOME_FAILED)
		return fail[Empty](op, message, err)
	}
	if err := s.findUser(ctx, userID); err != nil {
		s.observe(OUTCOME_FAILED)
		return fail[Empty](op, message, err)
	}

	exists, err := s.db.NewSelect().
		Model((*model.Registration)(nil)).
		Where("user_id = ?", userID).
		Where("event_id = ?", eventID).
		Exists(ctx)
	if err != nil {
		s.observe(OUTCOME_FAILED)
		return fail[Empty](op, message, err)
	}
	if exists {
		s.observe(OUTCOME_EXISTING)
		return ok(Empty{})
	}

	registrationModel := &model.Registration{
		ID:        uuid.NewString(),
		UserID:    userID,
		EventID:   eventID,
		CreatedAt: s.now(),
	}
	outcome := OUTCOME_CREATED
	if _, err := s.db.NewInsert().
		Model(registrationModel).
		Exec(ctx); err != nil {
		switch {
		case isUniqueViolation(err):
			slog.Debug("registration already created concurrently", "user_id", userID, "event_id", eventID)
			outcome = OUTCOME_CONFLICT
		case isForeignKeyViolation(err):
			// the event or the user was deleted since the lookups above
			s.observe(OUTCOME_FAILED)
			if _, err := s.findEvent(ctx, eventID); err != nil {
				return fail[Empty](op, message, err)
			}
			return fail[Empty](op, message, &NotFoundError{Entity: "User"})
		default:
			s.observe(OUTCOME_FAILED)
			return fail[Empty](op, message, err)
		}
	}

	s.cache.Invalidate(ctx, key.tags()...)
	s.observe(outcome)
	return ok(Empty{})
}

// Remove the user's registration. Removing an absent one is a success.
func (s *Service) Unregister(ctx context.Context, userID string, eventID string) Result[Empty] {
	const op, message = "unregisterFromEvent", "Failed to unregister from event"
	key := registrationKey{UserID: userID, EventID: eventID}
	if err := key.check(); err != nil {
		return fail[Empty](op, message, err)
	}

	if _, err := s.db.NewDelete().
		Model((*model.Registration)(nil)).
		Where("user_id = ?", userID).
		Where("event_id = ?", eventID).
		Exec(ctx); err != nil {
		s.observe(OUTCOME_FAILED)
		return fail[Empty](op, message, err)
	}

	s.cache.Invalidate(ctx, key.tags()...)
	s.observe(OUTCOME_UNREGISTERED)
	return ok(Empty{})
}

func (s *Service) IsRegistered(ctx context.Context, userID string, eventID string) Result[bool] {
	const op, message = "checkRegistrationStatus", "Failed to check registration"
	key := registrationKey{UserID: userID, EventID: eventID}
	if err := key.check(); err != nil {
		return fail[bool](op, message, err)
	}
	registered, err := s.isRegistered(ctx, key)
	if err != nil {
		return fail[bool](op, message, err)
	}
	return ok(registered)
}

// The user's registrations with their events, newest first.
func (s *Service) ListRegistrationsForUser(ctx context.Context, userID string) Result[[]*model.Registration] {
	const op, message = "getUserRegistrations", "Failed to fetch user registrations"
	if userID == "" {
		return fail[[]*model.Registration](op, message, &ValidationError{Field: "User", Rule: "required"})
	}
	registrations, err := s.listUserRegistrations(ctx, userID)
	if err != nil {
		return fail[[]*model.Registration](op, message, err)
	}
	return ok(registrations)
}

// The event's roster, newest first. Read straight from the store.
func (s *Service) ListRegistrationsForEvent(ctx context.Context, eventID string) Result[[]*RosterEntry] {
	const op, message = "getEventRegistrations", "Failed to fetch event registrations"
	if eventID == "" {
		return fail[[]*RosterEntry](op, message, &ValidationError{Field: "Event", Rule: "required"})
	}
	if _, err := s.findEvent(ctx, eventID); err != nil {
		return fail[[]*RosterEntry](op, message, err)
	}

	registrations := make([]*model.Registration, 0)
	if err := s.db.NewSelect().
		Model(&registrations).
		Relation("User").
		Where("?TableAlias.event_id = ?", eventID).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id ASC").
		Scan(ctx); err != nil {
		return fail[[]*RosterEntry](op, message, err)
	}

	roster := make([]*RosterEntry, 0, len(registrations))
	for _, registrationModel := range registrations {
		entry := &RosterEntry{
			RegistrationID: registrationModel.ID,
			RegisteredAt:   registrationModel.CreatedAt,
			User:           RosterUser{ID: registrationModel.UserID},
		}
		if registrationModel.User != nil {
			entry.User.Name = registrationModel.User.Name
			entry.User.Email = registrationModel.User.Email
			entry.User.Image = registrationModel.User.Image
			entry.User.JoinedAt = registrationModel.User.CreatedAt
		}
		roster = append(roster, entry)
	}
	return ok(roster)
}

func (s *Service) findUser(ctx context.Context, userID string) error {
	exists, err := s.db.NewSelect().
		Model((*model.User)(nil)).
		Where("id = ?", userID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("findUser: %w", err)
	}
	if !exists {
		return &NotFoundError{Entity: "User"}
	}
	return nil
}

func (k registrationKey) cacheKey() string {
	return fmt.Sprintf("registration:%q:%q", k.UserID, k.EventID)
}

func (k registrationKey) tags() []string {
	return []string{
		cache.UserRegistrationsTag(k.UserID),
		cache.RegistrationTag(k.UserID, k.EventID),
	}
}

func (s *Service) readIsRegistered(ctx context.Context, key registrationKey) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*model.Registration)(nil)).
		Where("user_id = ?", key.UserID).
		Where("event_id = ?", key.EventID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("readIsRegistered: %w", err)
	}
	return exists, nil
}

func (s *Service) readUserRegistrations(ctx context.Context, userID string) ([]*model.Registration, error) {
	registrations := make([]*model.Registration, 0)
	if err := s.db.NewSelect().
		Model(&registrations).
		Relation("Event").
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("readUserRegistrations: %w", err)
	}
	return registrations, nil
}

// Registrations of the given events; none when eventIDs is empty.
func (s *Service) registrationsOf(ctx context.Context, eventIDs []string) ([]*model.Registration, error) {
	registrations := make([]*model.Registration, 0)
	if len(eventIDs) == 0 {
		return registrations, nil
	}
	if err := s.db.NewSelect().
		Model(&registrations).
		Where("event_id IN (?)", bun.In(eventIDs)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("registrationsOf: %w", err)
	}
	return registrations, nil
}

func registrationTags(registrations []*model.Registration) []string {
	tags := make([]string, 0, len(registrations)*2)
	for _, registrationModel := range registrations {
		tags = append(tags, registrationKey{
			UserID:  registrationModel.UserID,
			EventID: registrationModel.EventID,
		}.tags()...)
	}
	return tags
}
