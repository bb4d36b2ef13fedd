package models

import "gorm.io/gorm"

// Template categories as Meta reports them. Pricing is per category.
const (
	TemplateCategoryMarketing      = "MARKETING"
	TemplateCategoryUtility        = "UTILITY"
	TemplateCategoryAuthentication = "AUTHENTICATION"
)

// TemplateParameter is one parameter inside a template component, in the
// Cloud API wire shape ({"type":"text","text":"Ana"}).
type TemplateParameter struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TemplateComponent mirrors one entry of a template's "components" array.
type TemplateComponent struct {
	Type       string              `json:"type"` // header, body, footer, buttons
	Text       string              `json:"text,omitempty"`
	Format     string              `json:"format,omitempty"`
	Parameters []TemplateParameter `json:"parameters,omitempty"`
}

// WhatsAppTemplate is a pre-approved message template synced from the
// Graph API. Campaigns reference templates read-only.
type WhatsAppTemplate struct {
	gorm.Model
	OrganizationID uint `gorm:"not null;index:idx_templates_org_name" json:"organization_id"`

	Name     string `gorm:"not null;index:idx_templates_org_name" json:"name"`
	Language string `gorm:"not null;default:'pt_BR'" json:"language"`
	Category string `gorm:"not null" json:"category"` // MARKETING, UTILITY, AUTHENTICATION
	Status   string `gorm:"default:'APPROVED'" json:"status"`

	// Static component structure as approved by Meta
	Components []TemplateComponent `gorm:"type:jsonb;serializer:json" json:"components"`

	// Meta's template id, kept for sync upserts
	MetaTemplateID string `gorm:"index" json:"meta_template_id,omitempty"`

	// Relations
	Organization Organization `json:"-"`
}
