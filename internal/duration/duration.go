package duration

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidFormat = errors.New("invalid duration format, use e.g. 30m, 1h, 2d, 1w")

var units = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// formatOrder lists units from largest to smallest for Format.
var formatOrder = []byte{'w', 'd', 'h', 'm', 's'}

// Parse converts a compact duration such as "2d" or "1W" into a delay.
// The input must be a run of ASCII digits followed by exactly one unit.
func Parse(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return 0, ErrInvalidFormat
	}

	unit, ok := units[toLower(text[len(text)-1])]
	if !ok {
		return 0, ErrInvalidFormat
	}

	digits := text[:len(text)-1]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, ErrInvalidFormat
		}
	}

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || value <= 0 {
		return 0, ErrInvalidFormat
	}
	if value > int64(math.MaxInt64/unit) {
		return 0, ErrInvalidFormat
	}
	return time.Duration(value) * unit, nil
}

// Format renders d using the largest unit that divides it exactly.
func Format(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	for _, suffix := range formatOrder {
		unit := units[suffix]
		if d%unit == 0 {
			return strconv.FormatInt(int64(d/unit), 10) + string(suffix)
		}
	}
	return d.String()
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
