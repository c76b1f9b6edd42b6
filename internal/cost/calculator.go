package cost

import (
	"fmt"

	"github.com/ruizrica/spriteforge/pkg/models"
)

const (
	CurrencyUSD = "USD"
)

type CostInfo struct {
	PerImage float64
	Total    float64
	Currency string
}

// SizeClass identifies the pricing tier of one generated image.
type SizeClass struct {
	Provider models.ProviderType
	Model    string
	Size     string
	Quality  string
}

func (s SizeClass) String() string {
	if s.Quality == "" {
		return fmt.Sprintf("%s/%s", s.Model, s.Size)
	}
	return fmt.Sprintf("%s/%s/%s", s.Model, s.Size, s.Quality)
}

type Calculator struct {
	overrides *LocalPricing
}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// WithOverrides makes locally configured prices take precedence over the
// built-in tables.
func (c *Calculator) WithOverrides(p *LocalPricing) *Calculator {
	c.overrides = p
	return c
}

func (c *Calculator) Calculate(provider models.ProviderType, model, size, quality string, count int) *CostInfo {
	perImage := c.PerImage(SizeClass{Provider: provider, Model: model, Size: size, Quality: quality})

	return &CostInfo{
		PerImage: perImage,
		Total:    perImage * float64(count),
		Currency: CurrencyUSD,
	}
}

func (c *Calculator) PerImage(sc SizeClass) float64 {
	if price, ok := c.overrides.Lookup(sc.Model, sc.Size, sc.Quality); ok {
		return price
	}

	switch sc.Provider {
	case models.ProviderOpenAI:
		return c.calculateOpenAI(sc.Model, sc.Size, sc.Quality)
	case models.ProviderGemini:
		return c.calculateGemini(sc.Model)
	default:
		return 0
	}
}

func (c *Calculator) calculateOpenAI(model, size, quality string) float64 {
	price, ok := GetOpenAIPrice(model, size, quality)
	if ok {
		return price
	}

	// Default fallback prices
	switch model {
	case "gpt-image-1":
		return 0.042 // medium quality default
	default:
		return 0
	}
}

func (c *Calculator) calculateGemini(model string) float64 {
	if price, ok := GetGeminiPrice(model); ok {
		return price
	}
	return geminiPricing["gemini-2.5-flash-image"]
}
