package cost

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrInvalidPrice = errors.New("price must not be negative")

// LocalPricing is a user-maintained price table that overrides the
// built-in one, keyed by model and then by "<quality>-<size>".
type LocalPricing struct {
	UpdatedAt time.Time                     `json:"updated_at"`
	Source    string                        `json:"source"`
	Image     map[string]map[string]float64 `json:"image"`
}

// LoadPricing reads the override file. A missing file yields nil, nil.
func LoadPricing(path string) (*LocalPricing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pricing overrides: %w", err)
	}

	var pricing LocalPricing
	if err := json.Unmarshal(data, &pricing); err != nil {
		return nil, fmt.Errorf("failed to parse pricing overrides: %w", err)
	}

	return &pricing, nil
}

func SavePricing(path string, pricing *LocalPricing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create pricing directory: %w", err)
	}

	data, err := json.MarshalIndent(pricing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pricing: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write pricing overrides: %w", err)
	}

	return nil
}

// SetPrice stores one override price and persists the table.
func SetPrice(path, model, size, quality string, price float64) error {
	if price < 0 {
		return ErrInvalidPrice
	}

	pricing, err := LoadPricing(path)
	if err != nil {
		return err
	}

	if pricing == nil {
		pricing = &LocalPricing{}
	}
	if pricing.Image == nil {
		pricing.Image = make(map[string]map[string]float64)
	}
	if pricing.Image[model] == nil {
		pricing.Image[model] = make(map[string]float64)
	}

	pricing.Image[model][buildPriceKey(size, quality)] = price
	pricing.UpdatedAt = time.Now()
	pricing.Source = "manual"

	return SavePricing(path, pricing)
}

func DeletePricing(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete pricing overrides: %w", err)
	}
	return nil
}

// Lookup is safe on a nil table.
func (p *LocalPricing) Lookup(model, size, quality string) (float64, bool) {
	if p == nil {
		return 0, false
	}

	modelPricing, ok := p.Image[model]
	if !ok {
		return 0, false
	}

	if price, ok := modelPricing[buildPriceKey(size, quality)]; ok {
		return price, true
	}
	// Per-model flat price, used for providers that do not price by size.
	price, ok := modelPricing["*"]
	return price, ok
}

func buildPriceKey(size, quality string) string {
	if size == "" && quality == "" {
		return "*"
	}
	size = strings.ReplaceAll(size, "x", "-")
	if quality == "" {
		return size
	}
	return quality + "-" + size
}

// ParsePricingKey splits "medium-1024-1024" into quality and size.
func ParsePricingKey(key string) (quality, size string) {
	if key == "*" {
		return "", ""
	}
	parts := strings.Split(key, "-")
	switch len(parts) {
	case 3:
		return parts[0], parts[1] + "x" + parts[2]
	case 2:
		return "", parts[0] + "x" + parts[1]
	}
	return "", ""
}
