package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrItemRefRequired indicates no item reference was provided.
var ErrItemRefRequired = errors.New("item reference required")

// ParseItemRef parses a single item reference.
//
// Accepted forms are a positive store ID ("3") or the same prefixed with
// '#' ("#3"). Placeholders have no store ID and cannot be referenced.
func ParseItemRef(arg string) (int64, error) {
	digits := strings.TrimPrefix(arg, "#")
	if !isAllDigits(digits) {
		return 0, fmt.Errorf("invalid item reference: %s", arg)
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid item reference: %s", arg)
	}
	return id, nil
}

// ParseItemRefs parses one or more item references, rejecting duplicates.
func ParseItemRefs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, ErrItemRefRequired
	}
	seen := make(map[int64]bool, len(args))
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := ParseItemRef(arg)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate item reference: %s", arg)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
