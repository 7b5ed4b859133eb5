package bundle

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedGranularity = errors.New("unsupported granularity")

// Granularity is the time unit at which captures are grouped into one bundle.
type Granularity int

const (
	Year Granularity = iota
	Month
	Day
	Hour
	Minute
	Second
)

var granularityNames = [...]string{"year", "month", "day", "hour", "minute", "second"}

func (g Granularity) String() string {
	if !g.valid() {
		return fmt.Sprintf("granularity(%d)", int(g))
	}
	return granularityNames[g]
}

func (g Granularity) valid() bool {
	return g >= Year && g <= Second
}

// ParseGranularity accepts the lower or upper case unit name.
// "root" and "none" are reserved and rejected like any unknown value.
func ParseGranularity(s string) (Granularity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range granularityNames {
		if n == name {
			return Granularity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedGranularity, s)
}

// UnmarshalText lets kong and encoding/json decode a granularity name.
func (g *Granularity) UnmarshalText(text []byte) error {
	parsed, err := ParseGranularity(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func (g Granularity) MarshalText() ([]byte, error) {
	if !g.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedGranularity, int(g))
	}
	return []byte(g.String()), nil
}
