package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Load builds the effective configuration: defaults, overlaid with the JSON
// config file when it exists, overlaid with environment variables (a .env
// file next to the binary is read first). A missing config file is fine; a
// malformed one is an error.
func Load(path string) (*Config, error) {
	godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("APPRAISER_STORE_DB"); v != "" {
		cfg.StoreDBPath = v
	}
	if v := os.Getenv("APPRAISER_REFERENCE_DB"); v != "" {
		cfg.ReferenceDBPath = v
	}
	if v := os.Getenv("APPRAISER_REGIONS"); v != "" {
		regions, err := parseRegionList(v)
		if err != nil {
			return nil, err
		}
		cfg.Regions = regions
	}
	return cfg, nil
}

func parseRegionList(s string) ([]int32, error) {
	var regions []int32
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var id int32
		if _, err := fmt.Sscanf(part, "%d", &id); err != nil {
			return nil, fmt.Errorf("APPRAISER_REGIONS entry %q: %w", part, err)
		}
		regions = append(regions, id)
	}
	return regions, nil
}

// Save writes the configuration back out as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
