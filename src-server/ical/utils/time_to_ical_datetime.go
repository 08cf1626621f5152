package utils

import (
	"fmt"
	"strings"
	"time"
)

// Convert a time to a string in iCalendar format: YYYYMMDD for a UTC midnight,
// YYYYMMDDTHHMMSSZ otherwise.
func TimeToIcalDatetime(time_ time.Time) (string, error) {
	if time_.IsZero() {
		return "", fmt.Errorf("time is zero")
	}
	time_ = time_.UTC()
	hour, min, sec := time_.Clock()
	if hour == 0 && min == 0 && sec == 0 {
		return time_.Format("20060102"), nil
	}
	return time_.Format("20060102T150405Z"), nil
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

// Escape a TEXT property value.
func EscapeText(text string) string {
	return textEscaper.Replace(text)
}
