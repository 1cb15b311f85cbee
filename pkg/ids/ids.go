// Package ids expands user supplied record identifiers into the ordered list
// of IDs a batch operates on.
package ids

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidArgument indicates an unusable identifier specification.
var ErrInvalidArgument = errors.New("invalid argument")

// Expand returns the identifiers a command targets.
//
// A non-empty explicit list is returned unchanged, duplicates included.
// Otherwise bounds must hold exactly two values START,END (inclusive) with
// START <= END.
func Expand(explicit []uint32, bounds []uint32) ([]uint32, error) {
	if len(explicit) > 0 {
		out := make([]uint32, len(explicit))
		copy(out, explicit)
		return out, nil
	}

	switch {
	case len(bounds) == 0:
		return nil, fmt.Errorf("%w: no ids or range given", ErrInvalidArgument)
	case len(bounds) != 2:
		return nil, fmt.Errorf("%w: range requires 2 numerical values <START,END> inclusive (got %d)",
			ErrInvalidArgument, len(bounds))
	}

	start, end := bounds[0], bounds[1]
	if start > end {
		return nil, fmt.Errorf("%w: range start %d is greater than end %d", ErrInvalidArgument, start, end)
	}

	out := make([]uint32, 0, int(end-start)+1)
	for i := uint64(start); i <= uint64(end); i++ {
		out = append(out, uint32(i))
	}
	return out, nil
}

// ParseList parses tokens such as "1,2" "3" into identifiers.
// Empty segments are ignored; zero and non-numeric values are rejected.
func ParseList(tokens []string) ([]uint32, error) {
	var out []uint32
	for _, tok := range tokens {
		for _, part := range strings.Split(tok, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a valid id", ErrInvalidArgument, part)
			}
			if v == 0 {
				return nil, fmt.Errorf("%w: ids must be positive", ErrInvalidArgument)
			}
			out = append(out, uint32(v))
		}
	}
	return out, nil
}

// Strings formats identifiers for URL substitution.
func Strings(list []uint32) []string {
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = strconv.FormatUint(uint64(v), 10)
	}
	return out
}
