package thing

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeConfig decodes raw thing configuration into target. Fields missing from raw
// keep the values target already holds, so callers pre-fill defaults.
func DecodeConfig(raw map[string]any, target any) error {
	if len(raw) == 0 {
		return nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("thing: encode config: %w", err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("thing: decode config: %w", err)
	}
	return nil
}
