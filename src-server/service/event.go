package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventfair/src-server/cache"
	"eventfair/src-server/model"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// The event with its category.
func (s *Service) GetEvent(ctx context.Context, eventID string) Result[*model.Event] {
	if eventID == "" {
		return fail[*model.Event]("getEvent", "Failed to fetch event", &ValidationError{Field: "Event", Rule: "required"})
	}
	eventModel, err := s.getEvent(ctx, eventID)
	if err != nil {
		return fail[*model.Event]("getEvent", "Failed to fetch event", err)
	}
	return ok(eventModel)
}

func (s *Service) CreateEvent(ctx context.Context, input CreateEventInput) Result[*model.Event] {
	const op, message = "createEvent", "Failed to create event"
	trimmed(&input.CategoryID, &input.Title, &input.Location, &input.Description, &input.Terms, &input.Recurrence)
	if err := s.check(&input); err != nil {
		return fail[*model.Event](op, message, err)
	}

	eventModel := &model.Event{
		ID:          uuid.NewString(),
		CategoryID:  input.CategoryID,
		Title:       input.Title,
		Slug:        eventSlug(input.Title),
		StartDate:   input.StartDate.UTC(),
		EndDate:     utcPtr(input.EndDate),
		Location:    input.Location,
		Description: input.Description,
		Terms:       input.Terms,
		Recurrence:  input.Recurrence,
		CreatedAt:   s.now(),
	}
	if err := checkEvent(eventModel); err != nil {
		return fail[*model.Event](op, message, err)
	}
	if _, err := s.findCategory(ctx, input.CategoryID); err != nil {
		return fail[*model.Event](op, message, err)
	}

	eventModel.Image = s.saveImage(ctx, op, input.Image)
	if err := eventModel.Upsert(ctx, s.db); err != nil {
		return fail[*model.Event](op, message, err)
	}

	s.cache.Invalidate(ctx,
		cache.CategoryEventsTag(eventModel.CategoryID),
		cache.EventCategoriesTag,
	)
	return ok(eventModel)
}

// Update the mutable fields of an event. Its category never changes.
func (s *Service) UpdateEvent(ctx context.Context, eventID string, input UpdateEventInput) Result[*model.Event] {
	const op, message = "updateEvent", "Failed to update event"
	trimmed(&input.Title, &input.Location, &input.Description, &input.Terms, &input.Recurrence)
	if err := s.check(&input); err != nil {
		return fail[*model.Event](op, message, err)
	}

	eventModel, err := s.findEvent(ctx, eventID)
	if err != nil {
		return fail[*model.Event](op, message, err)
	}
	// registrations embed their event
	registrations, err := s.registrationsOf(ctx, []string{eventID})
	if err != nil {
		return fail[*model.Event](op, message, err)
	}

	eventModel.Title = input.Title
	eventModel.StartDate = input.StartDate.UTC()
	eventModel.EndDate = utcPtr(input.EndDate)
	eventModel.Location = input.Location
	eventModel.Description = input.Description
	eventModel.Terms = input.Terms
	eventModel.Recurrence = input.Recurrence
	eventModel.UpdatedAt = s.now()
	if err := checkEvent(eventModel); err != nil {
		return fail[*model.Event](op, message, err)
	}
	if image := s.saveImage(ctx, op, input.Image); image != "" {
		eventModel.Image = image
	}
	if err := eventModel.Upsert(ctx, s.db); err != nil {
		return fail[*model.Event](op, message, err)
	}

	tags := []string{
		cache.CategoryEventsTag(eventModel.CategoryID),
		cache.EventCategoriesTag,
		cache.EventTag(eventID),
	}
	for _, registrationModel := range registrations {
		tags = append(tags, cache.UserRegistrationsTag(registrationModel.UserID))
	}
	s.cache.Invalidate(ctx, tags...)
	return ok(eventModel)
}

// Delete the event with its registrations.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) Result[Empty] {
	const op, message = "deleteEvent", "Failed to delete event"
	eventModel, err := s.findEvent(ctx, eventID)
	if err != nil {
		return fail[Empty](op, message, err)
	}
	registrations, err := s.registrationsOf(ctx, []string{eventID})
	if err != nil {
		return fail[Empty](op, message, err)
	}

	_, deleteErr := s.db.NewDelete().
		Model((*model.Event)(nil)).
		Where("id = ?", eventID).
		Exec(context.WithValue(ctx, model.EventIDCtxKey, eventID))

	tags := []string{
		cache.CategoryEventsTag(eventModel.CategoryID),
		cache.EventCategoriesTag,
		cache.EventTag(eventID),
	}
	tags = append(tags, registrationTags(registrations)...)
	s.cache.Invalidate(ctx, tags...)

	if deleteErr != nil {
		return fail[Empty](op, message, deleteErr)
	}
	return ok(Empty{})
}

func (s *Service) findEvent(ctx context.Context, eventID string) (*model.Event, error) {
	eventModel := new(model.Event)
	if err := s.db.NewSelect().
		Model(eventModel).
		Where("id = ?", eventID).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "Event"}
		}
		return nil, fmt.Errorf("findEvent: %w", err)
	}
	return eventModel, nil
}

func (s *Service) readEvent(ctx context.Context, eventID string) (*model.Event, error) {
	eventModel := new(model.Event)
	if err := s.db.NewSelect().
		Model(eventModel).
		Relation("Category").
		Where("?TableAlias.id = ?", eventID).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "Event"}
		}
		return nil, fmt.Errorf("readEvent: %w", err)
	}
	return eventModel, nil
}

// Date order and recurrence, as ValidationErrors.
func checkEvent(eventModel *model.Event) error {
	if err := checkDates(eventModel.StartDate, eventModel.EndDate); err != nil {
		return err
	}
	if _, err := eventModel.RRule(); err != nil {
		return &ValidationError{Field: "Recurrence", Rule: "rrule"}
	}
	return nil
}

// Slug of the title plus a random disambiguator, unique across events.
func eventSlug(title string) string {
	disambiguator := uuid.NewString()[:8]
	if s := slug.Make(title); s != "" {
		return s + "-" + disambiguator
	}
	return disambiguator
}
