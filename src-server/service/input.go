package service

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"eventfair/src-server/blob"

	"github.com/go-playground/validator/v10"
)

type CreateCategoryInput struct {
	Title       string `validate:"required" label:"Title"`
	Description string
	Image       *blob.Upload
}

// Image is only replaced when a non-empty upload is given.
type UpdateCategoryInput struct {
	Title       string `validate:"required" label:"Title"`
	Description string
	Image       *blob.Upload
}

type CreateEventInput struct {
	CategoryID  string    `validate:"required" label:"Category"`
	Title       string    `validate:"required" label:"Title"`
	StartDate   time.Time `validate:"required" label:"Start date"`
	EndDate     *time.Time
	Location    string
	Description string
	Terms       string
	Recurrence  string // RFC5545 RRULE value, e.g. FREQ=WEEKLY;COUNT=4
	Image       *blob.Upload
}

// A nil EndDate clears the stored end date. Image is only replaced when a
// non-empty upload is given.
type UpdateEventInput struct {
	Title       string    `validate:"required" label:"Title"`
	StartDate   time.Time `validate:"required" label:"Start date"`
	EndDate     *time.Time
	Location    string
	Description string
	Terms       string
	Recurrence  string
	Image       *blob.Upload
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		if label := field.Tag.Get("label"); label != "" {
			return label
		}
		return field.Name
	})
	return validate
}

// Validate input against its struct tags, reporting the first failing field.
func (s *Service) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &ValidationError{Field: fieldErrs[0].Field(), Rule: fieldErrs[0].Tag()}
	}
	return err
}

func checkDates(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return &ValidationError{Field: "End date", Rule: "gtefield"}
	}
	return nil
}

func trimmed(fields ...*string) {
	for _, field := range fields {
		*field = strings.TrimSpace(*field)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
