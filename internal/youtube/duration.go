package youtube

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDuration converts an ISO 8601 duration of the PTxHxMxS form to
// total seconds. "PT4M13S" -> 253.
func ParseDuration(duration string) (int, error) {
	if !strings.HasPrefix(duration, "PT") {
		return 0, fmt.Errorf("invalid duration format: %s", duration)
	}
	rest := strings.TrimPrefix(duration, "PT")

	var hours, minutes, seconds int

	if idx := strings.Index(rest, "H"); idx != -1 {
		h, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid hours in %q: %w", duration, err)
		}
		hours = h
		rest = rest[idx+1:]
	}

	if idx := strings.Index(rest, "M"); idx != -1 {
		m, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid minutes in %q: %w", duration, err)
		}
		minutes = m
		rest = rest[idx+1:]
	}

	if idx := strings.Index(rest, "S"); idx != -1 {
		s, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid seconds in %q: %w", duration, err)
		}
		seconds = s
	}

	return hours*3600 + minutes*60 + seconds, nil
}
