package util

import "strings"

// SanitizeText strips invalid UTF-8 and NUL bytes so the value is safe
// for Postgres text columns and graph properties.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// NormalizeSpace collapses all runs of whitespace (including newlines)
// into single spaces and trims the result.
func NormalizeSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// FoldKey lowercases and space-normalizes a name for use as a
// case-insensitive lookup key.
func FoldKey(value string) string {
	return strings.ToLower(NormalizeSpace(value))
}
