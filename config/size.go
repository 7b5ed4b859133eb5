package config

import (
	"fmt"

	"github.com/docker/go-units"
)

// SizeArgument is a byte size written the human way ("2GB", "512kb").
type SizeArgument struct {
	Size int64 `arg:"" help:"size in bytes"`
}

func (s *SizeArgument) UnmarshalText(text []byte) error {
	size, err := units.FromHumanSize(string(text))
	if err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("size must not be negative: %s", text)
	}
	s.Size = size
	return nil
}

func (s SizeArgument) String() string {
	return units.HumanSize(float64(s.Size))
}
