// Package validation provides input validation helpers.
package validation

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidDuration is returned for any input that does not match the
// duration grammar: one or more digits followed by exactly one unit character.
var ErrInvalidDuration = errors.New("invalid duration: expected digits followed by s, m, h or d")

// Seconds per unit character.
var durationUnits = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
}

// ParseDuration converts a human duration string ("10s", "5m", "1h", "2d",
// case-insensitive) to seconds. Parsing is strict: no surrounding whitespace
// and no characters after the unit are accepted.
func ParseDuration(text string) (int64, error) {
	if len(text) < 2 {
		return 0, ErrInvalidDuration
	}

	unit := strings.ToLower(text)[len(text)-1]
	multiplier, ok := durationUnits[unit]
	if !ok {
		return 0, ErrInvalidDuration
	}

	digits := text[:len(text)-1]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, ErrInvalidDuration
		}
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, ErrInvalidDuration
	}

	return value * multiplier, nil
}
