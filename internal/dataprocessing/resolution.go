package dataprocessing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// keeps 1D-scaled widths inside time.Duration
const maxResolutionCount = 100000

var resolutionPattern = regexp.MustCompile(`^(\d+)(s|t|min|h|d)$`)

var resolutionUnits = map[string]time.Duration{
	"s":   time.Second,
	"t":   time.Minute,
	"min": time.Minute,
	"h":   time.Hour,
	"d":   24 * time.Hour,
}

// ParseResolution reads a bucket width such as "30S", "5Min", "5T", "1H" or "1D".
// Units are case-insensitive and the count must be positive.
func ParseResolution(s string) (time.Duration, error) {
	m := resolutionPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 || n > maxResolutionCount {
		return 0, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	return time.Duration(n) * resolutionUnits[m[2]], nil
}

// bucketStart floors t to a multiple of width since the Unix epoch, in UTC
func bucketStart(t time.Time, width time.Duration) time.Time {
	ns := t.UnixNano()
	w := int64(width)
	mod := ns % w
	if mod < 0 {
		mod += w
	}
	return time.Unix(0, ns-mod).UTC()
}
