package common

import (
	"strconv"
	"strings"
)

// ParsePositiveInt parses positive integers with fallback.
func ParsePositiveInt(value string, fallback int) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback, false
	}
	return parsed, true
}

// ListLimit reads ?limit= bounded by MaxListLimit.
func ListLimit(raw string) int {
	limit, _ := ParsePositiveInt(raw, DefaultListLimit)
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
