// Package strings holds small string helpers shared by modules and repos
package strings

import std "strings"

// IfEmpty returns def when in has no elements
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// MustString returns s or panics naming the missing value
func MustString(s string, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix normalizes a mount path like /analysis to a single leading slash and no trailing one.
// The bare root is rejected
func MustPrefix(s string) string {
	s = "/" + std.Trim(std.TrimSpace(s), " /")
	if s == "/" {
		panic("root path is required")
	}
	return s
}

// SQLNull maps a blank string to a NULL query argument
func SQLNull(s string) any {
	if std.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// SQLNullInt maps zero to a NULL query argument
func SQLNullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
