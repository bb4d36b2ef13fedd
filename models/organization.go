package models

import (
	"gorm.io/gorm"
)

// Organization is the tenant boundary: every campaign, template, connection
// and credit ledger belongs to exactly one organization.
type Organization struct {
	gorm.Model
	Name  string `gorm:"not null" json:"name"`
	Email string `gorm:"not null;uniqueIndex" json:"email"`

	// Billing alerts
	LowBalanceThresholdCents int64  `gorm:"default:0" json:"low_balance_threshold_cents"`
	AlertEmail               string `json:"alert_email"`

	// Stripe customer reference for credit purchases
	StripeCustomerID string `json:"stripe_customer_id,omitempty"`

	TokenVersion int  `gorm:"default:1" json:"-"`
	IsActive     bool `gorm:"default:true" json:"is_active"`

	// Relations
	Connections []WhatsAppConnection `gorm:"foreignKey:OrganizationID" json:"connections,omitempty"`
	Templates   []WhatsAppTemplate   `gorm:"foreignKey:OrganizationID" json:"templates,omitempty"`
	Campaigns   []Campaign           `gorm:"foreignKey:OrganizationID" json:"campaigns,omitempty"`
}

// WhatsAppConnection holds a Meta Cloud API credential for an organization.
// The campaign processor refuses to run without an active one.
type WhatsAppConnection struct {
	gorm.Model
	OrganizationID uint `gorm:"not null;index" json:"organization_id"`

	PhoneNumberID string `gorm:"not null" json:"phone_number_id"`
	WABAID        string `gorm:"not null" json:"waba_id"`
	AccessToken   string `gorm:"not null" json:"-"`
	DisplayPhone  string `json:"display_phone"`

	Status   string `gorm:"default:'connected'" json:"status"` // connected, disconnected
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Relations
	Organization Organization `json:"-"`
}
