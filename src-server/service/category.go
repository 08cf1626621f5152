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
	"github.com/uptrace/bun"
)

// A category with its events, ordered by start date.
type CategoryEvents struct {
	Category *model.Category `json:"category"`
	Events   []*model.Event  `json:"events"`
}

// All categories, newest first, each with its events.
func (s *Service) ListCategories(ctx context.Context) Result[[]*model.Category] {
	categories, err := s.listCategories(ctx, struct{}{})
	if err != nil {
		return fail[[]*model.Category]("getEventCategories", "Failed to fetch categories", err)
	}
	return ok(categories)
}

func (s *Service) GetCategoryEvents(ctx context.Context, categoryID string) Result[*CategoryEvents] {
	if categoryID == "" {
		return fail[*CategoryEvents]("getCategoryEvents", "Failed to fetch events", &ValidationError{Field: "Category", Rule: "required"})
	}
	categoryEvents, err := s.getCategoryEvents(ctx, categoryID)
	if err != nil {
		return fail[*CategoryEvents]("getCategoryEvents", "Failed to fetch events", err)
	}
	return ok(categoryEvents)
}

func (s *Service) CreateCategory(ctx context.Context, input CreateCategoryInput) Result[*model.Category] {
	const op, message = "createCategory", "Failed to create category"
	trimmed(&input.Title, &input.Description)
	if err := s.check(&input); err != nil {
		return fail[*model.Category](op, message, err)
	}

	categoryModel := &model.Category{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Slug:        categorySlug(input.Title),
		Description: input.Description,
		Image:       s.saveImage(ctx, op, input.Image),
		CreatedAt:   s.now(),
	}
	if err := categoryModel.Upsert(ctx, s.db); err != nil {
		return fail[*model.Category](op, message, err)
	}

	s.cache.Invalidate(ctx, cache.EventCategoriesTag)
	return ok(categoryModel)
}

func (s *Service) UpdateCategory(ctx context.Context, categoryID string, input UpdateCategoryInput) Result[*model.Category] {
	const op, message = "updateCategory", "Failed to update category"
	trimmed(&input.Title, &input.Description)
	if err := s.check(&input); err != nil {
		return fail[*model.Category](op, message, err)
	}

	categoryModel, err := s.findCategory(ctx, categoryID)
	if err != nil {
		return fail[*model.Category](op, message, err)
	}
	// events embed their category
	eventIDs, err := s.categoryEventIDs(ctx, categoryID)
	if err != nil {
		return fail[*model.Category](op, message, err)
	}

	categoryModel.Title = input.Title
	categoryModel.Description = input.Description
	if image := s.saveImage(ctx, op, input.Image); image != "" {
		categoryModel.Image = image
	}
	if err := categoryModel.Upsert(ctx, s.db); err != nil {
		return fail[*model.Category](op, message, err)
	}

	tags := []string{cache.EventCategoriesTag}
	for _, eventID := range eventIDs {
		tags = append(tags, cache.EventTag(eventID))
	}
	s.cache.Invalidate(ctx, tags...)
	return ok(categoryModel)
}

// Delete the category with its events and their registrations.
func (s *Service) DeleteCategory(ctx context.Context, categoryID string) Result[Empty] {
	const op, message = "deleteCategory", "Failed to delete category"
	if _, err := s.findCategory(ctx, categoryID); err != nil {
		return fail[Empty](op, message, err)
	}

	eventIDs, err := s.categoryEventIDs(ctx, categoryID)
	if err != nil {
		return fail[Empty](op, message, err)
	}
	registrations, err := s.registrationsOf(ctx, eventIDs)
	if err != nil {
		return fail[Empty](op, message, err)
	}

	_, deleteErr := s.db.NewDelete().
		Model((*model.Category)(nil)).
		Where("id = ?", categoryID).
		Exec(context.WithValue(ctx, model.CategoryIDCtxKey, categoryID))

	// a failed cascade may have removed part of the children
	tags := []string{cache.EventCategoriesTag, cache.CategoryEventsTag(categoryID)}
	for _, eventID := range eventIDs {
		tags = append(tags, cache.EventTag(eventID))
	}
	tags = append(tags, registrationTags(registrations)...)
	s.cache.Invalidate(ctx, tags...)

	if deleteErr != nil {
		return fail[Empty](op, message, deleteErr)
	}
	return ok(Empty{})
}

func (s *Service) findCategory(ctx context.Context, categoryID string) (*model.Category, error) {
	categoryModel := new(model.Category)
	if err := s.db.NewSelect().
		Model(categoryModel).
		Where("id = ?", categoryID).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "Category"}
		}
		return nil, fmt.Errorf("findCategory: %w", err)
	}
	return categoryModel, nil
}

func (s *Service) categoryEventIDs(ctx context.Context, categoryID string) ([]string, error) {
	eventIDs := make([]string, 0)
	if err := s.db.NewSelect().
		Model((*model.Event)(nil)).
		Column("id").
		Where("category_id = ?", categoryID).
		Scan(ctx, &eventIDs); err != nil {
		return nil, fmt.Errorf("categoryEventIDs: %w", err)
	}
	return eventIDs, nil
}

func (s *Service) readCategories(ctx context.Context) ([]*model.Category, error) {
	categories := make([]*model.Category, 0)
	if err := s.db.NewSelect().
		Model(&categories).
		Relation("Events", orderEvents).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("readCategories: %w", err)
	}
	return categories, nil
}

func (s *Service) readCategoryEvents(ctx context.Context, categoryID string) (*CategoryEvents, error) {
	categoryModel, err := s.findCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	events := make([]*model.Event, 0)
	if err := orderEvents(s.db.NewSelect().
		Model(&events).
		Where("category_id = ?", categoryID)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("readCategoryEvents: %w", err)
	}

	return &CategoryEvents{Category: categoryModel, Events: events}, nil
}

func orderEvents(query *bun.SelectQuery) *bun.SelectQuery {
	return query.OrderExpr("?TableAlias.start_date ASC, ?TableAlias.id ASC")
}

// Slug of the title; titles without any sluggable rune get a random one.
func categorySlug(title string) string {
	if s := slug.Make(title); s != "" {
		return s
	}
	return uuid.NewString()[:8]
}
