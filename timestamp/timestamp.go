package timestamp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Layout of the canonical capture timestamp embedded in file names.
const Layout = "2006_01_02_15_04_05"

var ErrMalformedTimestamp = errors.New("malformed timestamp")

// A timestamp, optionally followed by a numeric disambiguator and a free text tag,
// e.g. GC01_2019_05_04_10_15_30_01_left.jpg.
var captureRe = regexp.MustCompile(`(\d{4}_[0-1]\d_[0-3]\d_[0-2]\d_[0-5]\d_[0-5]\d)(_\d+)?(_\w+)?`)

// Extract returns the canonical timestamp found in name.
// The second value is false if name is not a timestamped capture.
func Extract(name string) (string, bool) {
	m := captureRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Parse converts a canonical timestamp into a time in UTC.
func Parse(ts string) (time.Time, error) {
	t, err := time.Parse(Layout, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedTimestamp, ts, err)
	}
	return t, nil
}

// YearMonth truncates a canonical timestamp to its YYYY_MM prefix.
func YearMonth(ts string) string {
	parts := strings.SplitN(ts, "_", 3)
	if len(parts) < 2 {
		return ts
	}
	return parts[0] + "_" + parts[1]
}

// InRange reports whether ts falls within the inclusive [start, end] bounds.
// Empty bounds are open. The comparison is done on the year-month truncation
// of ts against the raw bound strings, so a start bound carrying a day
// (2019_05_04) excludes the whole of 2019_05 while an end bound carrying a
// day includes the whole month.
func InRange(ts, start, end string) bool {
	date := YearMonth(ts)
	if start != "" && date < start {
		return false
	}
	if end != "" && date > end {
		return false
	}
	return true
}
