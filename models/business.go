package models

import (
	"time"

	"gorm.io/gorm"
)

// Business is the tenant. Every touchpoint, conversion and journey row
// is scoped by BusinessID; callers authenticate with the API key (or a
// JWT minted from it) and never see another tenant's data.
type Business struct {
	gorm.Model
	Name     string `gorm:"not null" json:"name"`
	APIKey   string `gorm:"not null;uniqueIndex" json:"-"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
	Timezone string `gorm:"default:'UTC'" json:"timezone"`
}

// Contact is a lead/customer moving through the lifecycle.
type Contact struct {
	gorm.Model
	BusinessID uint `gorm:"not null;index" json:"business_id"`

	ExternalID string `gorm:"index" json:"external_id"` // caller's own identifier, e.g. CRM id
	Email      string `gorm:"index" json:"email"`
	Name       string `json:"name"`

	// Stamped on every recorded touchpoint; the auto-advancement
	// heuristic uses it as the engagement recency signal.
	LastEngagedAt *time.Time `json:"last_engaged_at"`

	Touchpoints []Touchpoint `gorm:"foreignKey:ContactID" json:"touchpoints,omitempty"`
	Conversions []Conversion `gorm:"foreignKey:ContactID" json:"conversions,omitempty"`
}
