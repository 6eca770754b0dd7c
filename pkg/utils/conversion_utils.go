package utils

import (
	"fmt"
	"strconv"
)

// StrToInt64 converts a string to an int64.
func StrToInt64(s string) (int64, error) {
	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse '%s' as int64: %w", s, err)
	}
	return num, nil
}

// OptionalInt64 parses s when non-empty. Empty input yields nil without error.
func OptionalInt64(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := StrToInt64(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
