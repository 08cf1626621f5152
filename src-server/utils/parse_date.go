package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04", // <input type="datetime-local">
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse a form date: one of dateLayouts in loc, or natural language such as
// "next friday 10am" relative to now.
func ParseDate(input string, loc *time.Location, parser *when.Parser, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("ParseDate: date is blank")
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, input, loc); err == nil {
			return parsed, nil
		}
	}

	if parser == nil {
		return time.Time{}, fmt.Errorf("ParseDate: can't parse %q", input)
	}
	result, err := parser.Parse(input, now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %w", err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("ParseDate: can't parse %q", input)
	}
	return result.Time, nil
}
