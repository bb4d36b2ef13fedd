package utils

import (
	"math"

	"whatrack/config"
	"whatrack/models"
)

// PricePerMessageCents resolves the per-message price in integer cents for a
// template category. Prices come from configuration (currency units) with
// static fallbacks; unknown or empty categories are billed at the marketing
// rate. Always returns a value >= 0.
func PricePerMessageCents(category string) int64 {
	pricing := config.AppConfig.Pricing

	var price float64
	switch category {
	case models.TemplateCategoryUtility:
		price = pricing.Utility
	case models.TemplateCategoryAuthentication:
		price = pricing.Authentication
	case models.TemplateCategoryMarketing:
		price = pricing.Marketing
	default:
		price = pricing.Marketing
	}

	cents := int64(math.Round(price * 100))
	if cents < 0 {
		return 0
	}
	return cents
}
