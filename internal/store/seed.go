package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/pizza-api/internal/model"
)

// LoadSeedFile reads initial pizza records from a YAML file.
//
// The file holds a list of records:
//
//	- id: 1
//	  name: Classic Italian
//	  isGlutenFree: false
//
// IDs must be positive and unique.
func LoadSeedFile(path string) ([]model.Pizza, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	return ParseSeed(data)
}

// ParseSeed decodes and validates YAML seed data.
func ParseSeed(data []byte) ([]model.Pizza, error) {
	var pizzas []model.Pizza
	if err := yaml.Unmarshal(data, &pizzas); err != nil {
		return nil, fmt.Errorf("decoding seed data: %w", err)
	}

	if len(pizzas) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrInvalidSeed)
	}

	seen := make(map[int]bool, len(pizzas))
	for _, p := range pizzas {
		if p.ID <= 0 {
			return nil, fmt.Errorf("%w: id %d must be positive", ErrInvalidSeed, p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, p.ID)
		}
		seen[p.ID] = true
	}

	return pizzas, nil
}
