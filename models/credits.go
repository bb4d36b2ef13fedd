package models

import "gorm.io/gorm"

// Credit transaction types. Amount sign must match the type: PURCHASE
// entries are positive, CAMPAIGN_USE entries negative.
const (
	CreditTransactionPurchase    = "PURCHASE"
	CreditTransactionCampaignUse = "CAMPAIGN_USE"
)

// CampaignCredits is the per-organization prepaid balance, in integer cents.
// One row per organization, lazily created on first access. The balance is
// never allowed to go negative; debits are guarded by a conditional update.
type CampaignCredits struct {
	gorm.Model
	OrganizationID uint  `gorm:"not null;uniqueIndex" json:"organization_id"`
	BalanceCents   int64 `gorm:"not null;default:0" json:"balance_cents"`

	// Relations
	Organization Organization                `json:"-"`
	Transactions []CampaignCreditTransaction `gorm:"foreignKey:CreditsID" json:"transactions,omitempty"`
}

// CampaignCreditTransaction is one append-only ledger entry. Rows are never
// updated or deleted after creation.
type CampaignCreditTransaction struct {
	gorm.Model
	CreditsID uint `gorm:"not null;index" json:"credits_id"`

	Type        string `gorm:"not null" json:"type"`         // PURCHASE, CAMPAIGN_USE
	AmountCents int64  `gorm:"not null" json:"amount_cents"` // signed
	Description string `json:"description"`

	// Optional references
	PaymentID  *string `gorm:"index" json:"payment_id,omitempty"` // Stripe payment intent id
	CampaignID *uint   `gorm:"index" json:"campaign_id,omitempty"`

	// Relations
	Credits  CampaignCredits `json:"-"`
	Campaign *Campaign       `json:"-"`
}

// TransactionPage is the shape returned by the ledger's paginated reads.
type TransactionPage struct {
	Items    []CampaignCreditTransaction `json:"items"`
	Total    int64                       `json:"total"`
	Page     int                         `json:"page"`
	PageSize int                         `json:"page_size"`
}
