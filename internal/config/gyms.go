package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadGyms reads the JSON roster mapping gym name to gym id, the input of a
// sync-all run.
func LoadGyms(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gyms config %s: %w", path, err)
	}
	var gyms map[string]string
	if err := json.Unmarshal(data, &gyms); err != nil {
		return nil, fmt.Errorf("parsing gyms config %s: %w", path, err)
	}
	if len(gyms) == 0 {
		return nil, fmt.Errorf("gyms config %s is empty", path)
	}
	return gyms, nil
}
