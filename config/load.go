package config

import (
	"encoding/json"
	"os"
)

func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	err = json.Unmarshal(raw, &cfg)
	return &cfg, err
}
