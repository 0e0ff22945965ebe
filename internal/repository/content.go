package repository

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed assets/*.json
var assets embed.FS

func loadAsset(name string, out any) error {
	data, err := assets.ReadFile("assets/" + name)
	if err != nil {
		return fmt.Errorf("read asset %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}
