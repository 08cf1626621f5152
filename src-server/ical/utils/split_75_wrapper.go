package utils

import (
	"unicode/utf8"
)

// Transform a normal writer into a writer of iCalendar content lines: each
// call writes one line terminated by CRLF, folded so no physical line exceeds
// 75 octets. Continuation lines start with a single space and runes are never
// split. Example:
//
//	var sb strings.Builder
//	writer := Split75wrapper(sb.WriteString)
//	writer("DESCRIPTION:" + strings.Repeat("x", 80))
//
// Output:
//
//	"DESCRIPTION:xxx...x\r\n xxxxxxxxxxxxxxxxx\r\n"
func Split75wrapper(writer func(string) (int, error)) func(string) (int, error) {
	return func(str string) (int, error) {
		written := 0
		limit := 75
		for len(str) > limit {
			cut := limit
			for cut > 0 && !utf8.RuneStart(str[cut]) {
				cut--
			}
			n, err := writer(str[:cut] + "\r\n ")
			written += n
			if err != nil {
				return written, err
			}
			str = str[cut:]
			// the leading space counts toward the next line
			limit = 74
		}
		n, err := writer(str + "\r\n")
		written += n
		return written, err
	}
}
