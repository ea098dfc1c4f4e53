package domain

import "strings"

// NormalizeOrderID is the single identity function for order ids: surrounding
// whitespace is trimmed, inner whitespace runs collapse to one space, and the
// result is upper-cased. Every comparison of order ids goes through it.
func NormalizeOrderID(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(strings.Join(fields, " "))
}
