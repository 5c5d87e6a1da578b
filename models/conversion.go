package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// Conversion is a realized-revenue event. The attribution split across
// all five models is computed from the touchpoints that exist at write
// time and frozen into the row; later touchpoints never change it.
type Conversion struct {
	gorm.Model
	BusinessID uint `gorm:"not null;index:idx_conversions_business_time" json:"business_id"`
	ContactID  uint `gorm:"not null;index" json:"contact_id"`

	Amount         float64   `gorm:"not null" json:"amount"`
	ConvertedAt    time.Time `gorm:"not null;index:idx_conversions_business_time" json:"converted_at"`
	ConversionType string    `gorm:"default:'purchase'" json:"conversion_type"`
	Currency       string    `gorm:"default:'USD'" json:"currency"`
	Source         string    `gorm:"default:'api'" json:"source"`

	// model -> channel -> credited revenue, frozen at insert.
	Attributions map[string]map[string]float64 `gorm:"type:jsonb;serializer:json" json:"attributions"`

	Metadata map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`
}

// RecordConversion writes a conversion for a contact with its frozen
// attribution split. The touchpoint read and the insert run in one
// transaction, so attribution always reflects exactly the touchpoints
// that existed at the moment of conversion. Fails with ErrNoTouchpoints
// if the contact has no prior interactions; nothing is written then.
func RecordConversion(db *gorm.DB, businessID, contactID uint, revenue float64, conversionType string, metadata map[string]interface{}) (*Conversion, error) {
	if revenue <= 0 || math.IsNaN(revenue) || math.IsInf(revenue, 0) {
		return nil, ErrInvalidRevenue
	}
	if conversionType == "" {
		conversionType = "purchase"
	}

	var conv Conversion
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Contact{}).Where("id = ? AND business_id = ?", contactID, businessID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrContactNotFound
		}

		tps, err := ListTouchpoints(tx, businessID, contactID)
		if err != nil {
			return err
		}
		if len(tps) == 0 {
			return ErrNoTouchpoints
		}

		conv = Conversion{
			BusinessID:     businessID,
			ContactID:      contactID,
			Amount:         revenue,
			ConvertedAt:    time.Now().UTC(),
			ConversionType: conversionType,
			Currency:       "USD",
			Source:         "api",
			Attributions:   CalculateAttributions(tps, revenue),
			Metadata:       metadata,
		}
		return tx.Create(&conv).Error
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// RoundedAttributions returns the frozen split with every credit
// rounded to 2 decimal places, for the API boundary. The stored row
// keeps full precision.
func (c *Conversion) RoundedAttributions() map[string]map[string]float64 {
	rounded := make(map[string]map[string]float64, len(c.Attributions))
	for model, channels := range c.Attributions {
		rounded[model] = make(map[string]float64, len(channels))
		for channel, credit := range channels {
			rounded[model][channel] = round2(credit)
		}
	}
	return rounded
}

// ListConversionsSince returns a business's conversions after the
// cutoff, ascending by conversion time.
func ListConversionsSince(db *gorm.DB, businessID uint, cutoff time.Time) ([]Conversion, error) {
	var convs []Conversion
	err := db.Where("business_id = ? AND converted_at >= ?", businessID, cutoff).
		Order("converted_at ASC, id ASC").
		Find(&convs).Error
	return convs, err
}
