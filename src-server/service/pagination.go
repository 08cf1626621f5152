package service

import (
	"context"
	"fmt"

	"eventfair/src-server/model"
)

// One page of categories with their events.
type Page struct {
	Items   []*model.Category `json:"items"`
	HasMore bool              `json:"hasMore"`
}

type pageRequest struct {
	Number int
	Size   int
}

func (r pageRequest) key() string {
	return fmt.Sprintf("event-categories-page:%d:%d", r.Number, r.Size)
}

// Page `page` (from 1) of `pageSize` categories, newest first. HasMore is
// exact: one extra row is fetched instead of counting.
func (s *Service) GetPage(ctx context.Context, page int, pageSize int) Result[*Page] {
	const op, message = "getPaginatedEventCategories", "Failed to fetch paginated categories"
	switch {
	case page < 1:
		return fail[*Page](op, message, &ValidationError{Field: "Page", Rule: "min=1"})
	case pageSize < 1:
		return fail[*Page](op, message, &ValidationError{Field: "Page size", Rule: "min=1"})
	}

	result, err := s.getPage(ctx, pageRequest{Number: page, Size: pageSize})
	if err != nil {
		return fail[*Page](op, message, err)
	}
	return ok(result)
}

func (s *Service) readPage(ctx context.Context, req pageRequest) (*Page, error) {
	categories := make([]*model.Category, 0, req.Size+1)
	if err := s.db.NewSelect().
		Model(&categories).
		Relation("Events", orderEvents).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id ASC").
		Limit(req.Size + 1).
		Offset((req.Number - 1) * req.Size).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("readPage: %w", err)
	}

	hasMore := len(categories) > req.Size
	if hasMore {
		categories = categories[:req.Size]
	}
	return &Page{Items: categories, HasMore: hasMore}, nil
}
