package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/xyedo/rrule"
)

type EventIDCtxKeyType string

const EventIDCtxKey EventIDCtxKeyType = "event-id"

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string     `bun:"id,pk" json:"id"`                          // required
	CategoryID  string     `bun:"category_id,notnull" json:"categoryId"`    // required, immutable
	Title       string     `bun:"title,notnull" json:"title"`               // required
	Slug        string     `bun:"slug,notnull,unique" json:"slug"`          // required
	StartDate   time.Time  `bun:"start_date,notnull" json:"startDate"`      // required
	EndDate     *time.Time `bun:"end_date" json:"endDate,omitempty"`
	Location    string     `bun:"location" json:"location,omitempty"`
	Description string     `bun:"description" json:"description,omitempty"`
	Terms       string     `bun:"terms" json:"termsAndConditions,omitempty"`
	Recurrence  string     `bun:"recurrence" json:"recurrence,omitempty"` // RFC5545 RRULE value
	Image       string     `bun:"image" json:"image,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`

	Category *Category `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
}

var _ bun.AfterDeleteHook = (*Event)(nil)

// Cleanup registrations of the deleted events.
func (e *Event) AfterDelete(ctx context.Context, query *bun.DeleteQuery) error {
	if query.DB() == nil {
		return fmt.Errorf("(*Event).AfterDelete: db is nil")
	}

	switch eventID := ctx.Value(EventIDCtxKey).(type) {
	case string:
		if eventID == "" {
			return fmt.Errorf("(*Event).AfterDelete: event id is blank")
		}

		// rm related registrations
		if _, err := query.DB().NewDelete().
			Model((*Registration)(nil)).
			Where("event_id = ?", eventID).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Event).AfterDelete: can't delete registrations: %w", err)
		}
	case []string:
		if len(eventID) == 0 {
			return fmt.Errorf("(*Event).AfterDelete: event id is empty")
		}

		// rm related registrations
		if _, err := query.DB().NewDelete().
			Model((*Registration)(nil)).
			Where("event_id IN (?)", bun.In(eventID)).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Event).AfterDelete: can't delete registrations: %w", err)
		}
	case nil:
		return fmt.Errorf("(*Event).AfterDelete: event id is nil")
	default:
		return fmt.Errorf("(*Event).AfterDelete: wrong event id type | type=%T", eventID)
	}

	return nil
}

// Parse the recurrence rule anchored at the start date. Returns nil, nil when
// the event doesn't recur.
func (e *Event) RRule() (*rrule.RRule, error) {
	if e.Recurrence == "" {
		return nil, nil
	}
	rule, err := rrule.StrToRRule(fmt.Sprintf(
		"DTSTART:%s\nRRULE:%s",
		e.StartDate.UTC().Format("20060102T150405Z"),
		strings.TrimPrefix(e.Recurrence, "RRULE:"),
	))
	if err != nil {
		return nil, fmt.Errorf("(*Event).RRule: %w", err)
	}
	return rule, nil
}

// The first start date at or after `after`; zero when the event doesn't recur
// or has no more occurrences.
func (e *Event) NextOccurrence(after time.Time) time.Time {
	rule, err := e.RRule()
	if err != nil || rule == nil {
		return time.Time{}
	}
	return rule.After(after, true)
}

// Insert or update the event. CategoryID, Slug and CreatedAt are kept on update.
func (e *Event) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("(*Event).Upsert: event id is blank")
	case e.CategoryID == "":
		return fmt.Errorf("(*Event).Upsert: category id is blank")
	case e.Title == "":
		return fmt.Errorf("(*Event).Upsert: title is blank")
	case e.Slug == "":
		return fmt.Errorf("(*Event).Upsert: slug is blank")
	case e.StartDate.IsZero():
		return fmt.Errorf("(*Event).Upsert: start date is blank")
	case e.EndDate != nil && e.EndDate.Before(e.StartDate):
		return fmt.Errorf("(*Event).Upsert: start date must be before end date")
	}
	if _, err := e.RRule(); err != nil {
		return fmt.Errorf("(*Event).Upsert: invalid recurrence: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	if _, err := db.NewInsert().
		Model(e).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("start_date = EXCLUDED.start_date").
		Set("end_date = EXCLUDED.end_date").
		Set("location = EXCLUDED.location").
		Set("description = EXCLUDED.description").
		Set("terms = EXCLUDED.terms").
		Set("recurrence = EXCLUDED.recurrence").
		Set("image = EXCLUDED.image").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Event).Upsert: %w", err)
	}

	return nil
}
