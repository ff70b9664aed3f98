package storage

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/harrylevesque/nutritrack/internal/models"
)

//go:embed foods.yaml
var seedFoodsYAML []byte

// SeedFoods returns the built-in food catalogue.
func SeedFoods() ([]*models.Food, error) {
	var doc struct {
		Foods []*models.Food `yaml:"foods"`
	}
	if err := yaml.Unmarshal(seedFoodsYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse seed foods: %w", err)
	}
	for _, f := range doc.Foods {
		f.IsVerified = true
		f.Source = models.SourceSystem
	}
	return doc.Foods, nil
}

// Seed inserts the built-in catalogue when the foods table is empty. It
// returns the number of foods inserted.
func (s *Store) Seed(ctx context.Context) (int, error) {
	count, err := s.CountFoods(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	foods, err := SeedFoods()
	if err != nil {
		return 0, err
	}
	if err := s.BulkCreateFoods(ctx, foods); err != nil {
		return 0, fmt.Errorf("seed foods: %w", err)
	}
	return len(foods), nil
}
