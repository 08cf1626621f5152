package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type CategoryIDCtxKeyType string

const CategoryIDCtxKey CategoryIDCtxKeyType = "category-id"

// A category groups the events of one track of the fair.
type Category struct {
	bun.BaseModel `bun:"table:categories"`

	ID          string    `bun:"id,pk" json:"id"`             // required
	Title       string    `bun:"title,notnull" json:"title"` // required
	Slug        string    `bun:"slug,notnull" json:"slug"`   // required
	Description string    `bun:"description" json:"description,omitempty"`
	Image       string    `bun:"image" json:"image,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`

	Events []*Event `bun:"rel:has-many,join:id=category_id" json:"events"`
}

var _ bun.AfterDeleteHook = (*Category)(nil)

// Cleanup the events of the deleted categories, which in turn cleanup their
// registrations through (*Event).AfterDelete.
func (c *Category) AfterDelete(ctx context.Context, query *bun.DeleteQuery) error {
	if query.DB() == nil {
		return fmt.Errorf("(*Category).AfterDelete: db is nil")
	}

	var categoryIDs []string
	switch categoryID := ctx.Value(CategoryIDCtxKey).(type) {
	case string:
		if categoryID == "" {
			return fmt.Errorf("(*Category).AfterDelete: category id is blank")
		}
		categoryIDs = []string{categoryID}
	case []string:
		if len(categoryID) == 0 {
			return fmt.Errorf("(*Category).AfterDelete: category id is empty")
		}
		categoryIDs = categoryID
	case nil:
		return fmt.Errorf("(*Category).AfterDelete: category id is nil")
	default:
		return fmt.Errorf("(*Category).AfterDelete: wrong category id type | type=%T", categoryID)
	}

	eventIDs := make([]string, 0)
	if err := query.DB().NewSelect().
		Model((*Event)(nil)).
		Column("id").
		Where("category_id IN (?)", bun.In(categoryIDs)).
		Scan(ctx, &eventIDs); err != nil {
		return fmt.Errorf("(*Category).AfterDelete: can't get event ids: %w", err)
	}
	if len(eventIDs) == 0 {
		return nil
	}

	// rm related events
	if _, err := query.DB().NewDelete().
		Model((*Event)(nil)).
		Where("id IN (?)", bun.In(eventIDs)).
		Exec(context.WithValue(ctx, EventIDCtxKey, eventIDs)); err != nil {
		return fmt.Errorf("(*Category).AfterDelete: can't delete events: %w", err)
	}

	return nil
}

// Insert or update the category. CreatedAt and Slug are kept on update.
func (c *Category) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case c.ID == "":
		return fmt.Errorf("(*Category).Upsert: category id is blank")
	case c.Title == "":
		return fmt.Errorf("(*Category).Upsert: title is blank")
	case c.Slug == "":
		return fmt.Errorf("(*Category).Upsert: slug is blank")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	if _, err := db.NewInsert().
		Model(c).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set("image = EXCLUDED.image").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Category).Upsert: %w", err)
	}

	return nil
}
