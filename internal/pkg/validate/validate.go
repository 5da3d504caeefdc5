package validate

import "strings"

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// UserID accepts any non-blank opaque identifier.
func UserID(value string) bool {
	return Required(value)
}

// DistinctPair reports whether both ids are present and differ.
func DistinctPair(a, b string) bool {
	return Required(a) && Required(b) && a != b
}
