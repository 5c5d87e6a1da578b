package models

import (
	"time"

	"gorm.io/gorm"
)

// Marketing channels form a closed set; anything else is rejected at
// the boundary, never coerced.
const (
	ChannelEmail    = "email"
	ChannelSocial   = "social"
	ChannelPaid     = "paid"
	ChannelReferral = "referral"
	ChannelOrganic  = "organic"
	ChannelDirect   = "direct"
)

// Channels lists every valid channel in a stable order.
var Channels = []string{
	ChannelEmail,
	ChannelSocial,
	ChannelPaid,
	ChannelReferral,
	ChannelOrganic,
	ChannelDirect,
}

// DefaultChannelCost is the per-conversion unit cost assumed for ROI
// reporting. Fixed table, not configurable.
var DefaultChannelCost = map[string]float64{
	ChannelEmail:    0.05,
	ChannelSocial:   0.10,
	ChannelPaid:     2.00,
	ChannelReferral: 0.02,
	ChannelOrganic:  0.00,
	ChannelDirect:   0.01,
}

// IsValidChannel reports whether ch is a member of the channel set.
func IsValidChannel(ch string) bool {
	for _, c := range Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Touchpoint is a single channel-level interaction with a contact.
// Rows are append-only and never revised.
type Touchpoint struct {
	gorm.Model
	BusinessID uint `gorm:"not null;index:idx_touchpoints_business_contact;index:idx_touchpoints_business_time" json:"business_id"`
	ContactID  uint `gorm:"not null;index:idx_touchpoints_business_contact" json:"contact_id"`

	Channel    string    `gorm:"not null;index" json:"channel"`
	CampaignID string    `json:"campaign_id"`
	OccurredAt time.Time `gorm:"not null;index:idx_touchpoints_business_time" json:"occurred_at"`
	Value      float64   `gorm:"default:0" json:"value"`

	// Opaque bag the engine stores but never inspects.
	Metadata map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`
}

// RecordTouchpoint appends an interaction for a contact, stamps the
// contact's engagement time and links the touchpoint to the contact's
// open journey stage, if there is one. Recording never fails for an
// unknown contact: the contact row is upserted, so high-volume
// ingestion does not depend on contacts being registered first. Only
// an unknown channel is rejected.
func RecordTouchpoint(db *gorm.DB, businessID, contactID uint, channel, campaignID string, value float64, metadata map[string]interface{}) (*Touchpoint, error) {
	if !IsValidChannel(channel) {
		return nil, ErrInvalidChannel
	}

	now := time.Now().UTC()
	tp := Touchpoint{
		BusinessID: businessID,
		ContactID:  contactID,
		Channel:    channel,
		CampaignID: campaignID,
		OccurredAt: now,
		Value:      value,
		Metadata:   metadata,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		contact := Contact{Model: gorm.Model{ID: contactID}, BusinessID: businessID}
		if err := tx.Where("id = ? AND business_id = ?", contactID, businessID).FirstOrCreate(&contact).Error; err != nil {
			return err
		}
		if err := tx.Create(&tp).Error; err != nil {
			return err
		}
		if err := tx.Model(&contact).Update("last_engaged_at", now).Error; err != nil {
			return err
		}

		// Attach to the open stage row so a stage's touchpoints can be
		// read back without a time-range scan.
		var open JourneyStage
		if err := tx.Where("business_id = ? AND contact_id = ? AND exited_at IS NULL", businessID, contactID).
			First(&open).Error; err == nil {
			open.TouchpointIDs = append(open.TouchpointIDs, tp.ID)
			if err := tx.Model(&open).Update("touchpoint_ids", open.TouchpointIDs).Error; err != nil {
				return err
			}
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

// ListTouchpoints returns a contact's touchpoints ascending by
// occurrence time, ties broken by insertion order.
func ListTouchpoints(db *gorm.DB, businessID, contactID uint) ([]Touchpoint, error) {
	var tps []Touchpoint
	err := db.Where("business_id = ? AND contact_id = ?", businessID, contactID).
		Order("occurred_at ASC, id ASC").
		Find(&tps).Error
	return tps, err
}

// ListTouchpointsSince returns a business's touchpoints after the
// cutoff, ascending by occurrence time.
func ListTouchpointsSince(db *gorm.DB, businessID uint, cutoff time.Time) ([]Touchpoint, error) {
	var tps []Touchpoint
	err := db.Where("business_id = ? AND occurred_at >= ?", businessID, cutoff).
		Order("occurred_at ASC, id ASC").
		Find(&tps).Error
	return tps, err
}
