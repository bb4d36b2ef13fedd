package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign statuses. Transitions are monotonic: DRAFT/SCHEDULED →
// PROCESSING → COMPLETED|FAILED, with CANCELLED reachable from any
// non-terminal state.
const (
	CampaignStatusDraft      = "DRAFT"
	CampaignStatusScheduled  = "SCHEDULED"
	CampaignStatusProcessing = "PROCESSING"
	CampaignStatusCompleted  = "COMPLETED"
	CampaignStatusFailed     = "FAILED"
	CampaignStatusCancelled  = "CANCELLED"
)

// Recipient statuses. The processor only moves PENDING → SENT|FAILED;
// DELIVERED and READ come from the delivery-status webhook feed.
const (
	RecipientStatusPending   = "PENDING"
	RecipientStatusSent      = "SENT"
	RecipientStatusDelivered = "DELIVERED"
	RecipientStatusRead      = "READ"
	RecipientStatusFailed    = "FAILED"
)

// Campaign represents a bulk template send to a fixed recipient list.
type Campaign struct {
	gorm.Model
	OrganizationID uint `gorm:"not null;index" json:"organization_id"`
	TemplateID     uint `gorm:"not null;index" json:"template_id"`

	Name   string `gorm:"not null" json:"name"`
	Status string `gorm:"default:'DRAFT';index" json:"status"`

	// Scheduling
	ScheduledAt *time.Time `json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Cost accounting, integer cents. EstimatedCost is fixed at creation,
	// ActualCost reconciled at completion.
	TotalRecipients    int   `gorm:"not null;default:0" json:"total_recipients"`
	EstimatedCostCents int64 `gorm:"not null;default:0" json:"estimated_cost_cents"`
	ActualCostCents    int64 `gorm:"not null;default:0" json:"actual_cost_cents"`

	// Statistics (re-aggregated from recipient rows after every batch)
	SentCount      int `gorm:"default:0" json:"sent_count"`
	DeliveredCount int `gorm:"default:0" json:"delivered_count"`
	ReadCount      int `gorm:"default:0" json:"read_count"`
	FailedCount    int `gorm:"default:0" json:"failed_count"`

	// Relations
	Organization Organization        `json:"-"`
	Template     WhatsAppTemplate    `json:"template,omitempty"`
	Recipients   []CampaignRecipient `gorm:"foreignKey:CampaignID" json:"recipients,omitempty"`
}

// IsTerminal reports whether no further status transition is allowed.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignStatusCompleted ||
		c.Status == CampaignStatusFailed ||
		c.Status == CampaignStatusCancelled
}

// CampaignRecipient is one phone-number target inside a campaign, created in
// bulk with the campaign and never deleted while the campaign exists.
type CampaignRecipient struct {
	gorm.Model
	CampaignID uint `gorm:"not null;index:idx_recipients_campaign_status" json:"campaign_id"`

	Phone     string           `gorm:"not null" json:"phone"`
	Variables OrderedVariables `gorm:"type:jsonb;serializer:json" json:"variables,omitempty"`

	Status    string `gorm:"default:'PENDING';index:idx_recipients_campaign_status" json:"status"`
	MessageID string `json:"message_id,omitempty"`

	SentAt      *time.Time `json:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	ReadAt      *time.Time `json:"read_at"`
	FailedAt    *time.Time `json:"failed_at"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Relations
	Campaign Campaign `json:"-"`
}
