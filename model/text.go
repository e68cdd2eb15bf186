package model

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxNameLength   = 100
	MaxAnswerLength = 500
)

// CleanText trims surrounding space and normalizes to NFC so equal-looking
// names and answers compare equal.
func CleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// CheckText validates an already cleaned string against a length limit.
// It returns an empty reason when the value is acceptable.
func CheckText(s string, max int) (reason string) {
	switch {
	case s == "":
		return "must not be empty"
	case utf8.RuneCountInString(s) > max:
		return "too long"
	}
	return ""
}
