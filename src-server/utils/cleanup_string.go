package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// strips spaces, collapses inner whitespace, normalizes to NFC
func CleanupString(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return norm.NFC.String(s)
}

// same as CleanupString but keeps line breaks, for descriptions and terms
func CleanupText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return norm.NFC.String(strings.TrimSpace(strings.Join(lines, "\n")))
}
