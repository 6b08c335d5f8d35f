package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadFile reads a flat YAML document of KEY: value pairs. Keys use the same
// names as the environment variables and are upper-cased on load.
//
//	SOURCE_URL: https://forums.example.com/news
//	POLL_INTERVAL: 5m
//	RETENTION_LIMIT: 100
func ReadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(map[string]string, len(doc))
	for k, v := range doc {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("config file %s: key %s must be a scalar", path, k)
		case nil:
			continue
		}
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}
