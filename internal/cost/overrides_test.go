package cost

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPricing_Missing(t *testing.T) {
	p, err := LoadPricing(filepath.Join(t.TempDir(), "pricing.json"))
	if err != nil {
		t.Fatalf("LoadPricing() error = %v", err)
	}
	if p != nil {
		t.Errorf("LoadPricing() = %+v, want nil", p)
	}
}

func TestLoadPricing_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPricing(path); err == nil {
		t.Error("LoadPricing() error = nil, want parse error")
	}
}

func TestSetPrice_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pricing.json")

	if err := SetPrice(path, "gpt-image-1", "1024x1024", "low", 0.01); err != nil {
		t.Fatalf("SetPrice() error = %v", err)
	}
	if err := SetPrice(path, "gemini-2.5-flash-image", "", "", 0.03); err != nil {
		t.Fatalf("SetPrice() error = %v", err)
	}

	p, err := LoadPricing(path)
	if err != nil {
		t.Fatalf("LoadPricing() error = %v", err)
	}
	if p.Source != "manual" {
		t.Errorf("Source = %q, want manual", p.Source)
	}

	if got, ok := p.Lookup("gpt-image-1", "1024x1024", "low"); !ok || !floatEquals(got, 0.01) {
		t.Errorf("Lookup(gpt-image-1) = %v, %v", got, ok)
	}
	if got, ok := p.Lookup("gemini-2.5-flash-image", "1024x1024", ""); !ok || !floatEquals(got, 0.03) {
		t.Errorf("Lookup(gemini) = %v, %v", got, ok)
	}
	if _, ok := p.Lookup("gpt-image-1", "1024x1024", "high"); ok {
		t.Error("Lookup() found a price that was never set")
	}
}

func TestSetPrice_Negative(t *testing.T) {
	err := SetPrice(filepath.Join(t.TempDir(), "p.json"), "gpt-image-1", "1024x1024", "low", -1)
	if !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("SetPrice() error = %v, want %v", err, ErrInvalidPrice)
	}
}

func TestDeletePricing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	if err := DeletePricing(path); err != nil {
		t.Errorf("DeletePricing() on missing file error = %v", err)
	}
	if err := SetPrice(path, "gpt-image-1", "auto", "auto", 0.04); err != nil {
		t.Fatal(err)
	}
	if err := DeletePricing(path); err != nil {
		t.Fatalf("DeletePricing() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("pricing file still exists")
	}
}

func TestLocalPricing_LookupNil(t *testing.T) {
	var p *LocalPricing
	if _, ok := p.Lookup("gpt-image-1", "1024x1024", "low"); ok {
		t.Error("Lookup() on nil table should miss")
	}
}

func TestParsePricingKey(t *testing.T) {
	tests := []struct {
		key         string
		wantQuality string
		wantSize    string
	}{
		{"low-1024-1024", "low", "1024x1024"},
		{"1024-1024", "", "1024x1024"},
		{"*", "", ""},
		{"garbage", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			q, s := ParsePricingKey(tt.key)
			if q != tt.wantQuality || s != tt.wantSize {
				t.Errorf("ParsePricingKey(%q) = %q, %q; want %q, %q", tt.key, q, s, tt.wantQuality, tt.wantSize)
			}
		})
	}
}
