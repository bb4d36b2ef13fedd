package utils

import (
	"testing"

	"whatrack/config"
	"whatrack/models"
)

func TestPricePerMessageCents(t *testing.T) {
	config.AppConfig.Pricing = config.PricingConfig{
		Marketing:      0.95,
		Utility:        0.45,
		Authentication: 0.40,
	}

	tests := []struct {
		name     string
		category string
		want     int64
	}{
		{"marketing", models.TemplateCategoryMarketing, 95},
		{"utility", models.TemplateCategoryUtility, 45},
		{"authentication", models.TemplateCategoryAuthentication, 40},
		{"unknown category falls back to marketing", "SOMETHING_NEW", 95},
		{"empty category falls back to marketing", "", 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PricePerMessageCents(tt.category); got != tt.want {
				t.Fatalf("PricePerMessageCents(%q) = %d, want %d", tt.category, got, tt.want)
			}
		})
	}
}

func TestPricePerMessageCentsRounding(t *testing.T) {
	config.AppConfig.Pricing = config.PricingConfig{Utility: 0.4449}
	if got := PricePerMessageCents(models.TemplateCategoryUtility); got != 44 {
		t.Fatalf("want 44 cents, got %d", got)
	}

	config.AppConfig.Pricing = config.PricingConfig{Utility: 0.445}
	if got := PricePerMessageCents(models.TemplateCategoryUtility); got != 45 {
		t.Fatalf("want 45 cents, got %d", got)
	}
}

func TestPricePerMessageCentsNeverNegative(t *testing.T) {
	config.AppConfig.Pricing = config.PricingConfig{Marketing: -1.5}
	if got := PricePerMessageCents(models.TemplateCategoryMarketing); got != 0 {
		t.Fatalf("negative configured price must clamp to 0, got %d", got)
	}
}
