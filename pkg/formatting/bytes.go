// Package formatting provides human-readable formatting and parsing utilities
// for byte sizes and fixed-precision decimals.
package formatting

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

var bytesPattern = regexp.MustCompile(`^(\d+\.?\d*)\s*([A-Za-z]*)$`)

// FormatBytes renders a byte count using base-1024 units, e.g. "1.5 KB".
func FormatBytes(n int64, precision int) string {
	if n <= 0 {
		return "0 B"
	}

	i := min(int(math.Floor(math.Log(float64(n))/math.Log(1024))), len(units)-1)
	size := float64(n) / math.Pow(1024, float64(i))

	return strconv.FormatFloat(size, 'f', max(precision, 0), 64) + " " + units[i]
}

// ParseBytes parses a size such as "10MB" or "512 kb" into a byte count.
// A bare number is treated as bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	matches := bytesPattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size number: %w", err)
	}

	unit := strings.ToUpper(matches[2])
	if unit == "" {
		return int64(value), nil
	}

	idx := slices.Index(units, unit)
	if idx == -1 {
		return 0, fmt.Errorf("unknown byte size unit: %q", unit)
	}

	return int64(value * math.Pow(1024, float64(idx))), nil
}
