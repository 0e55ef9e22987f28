package helper

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidID = errors.New("invalid ID")

// ParseID parses a positive integer record id from a path parameter.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
