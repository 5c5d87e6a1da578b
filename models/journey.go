package models

import (
	"time"

	"gorm.io/gorm"
)

// Lifecycle stages form a closed set. Linear progression is the
// conventional path but any stage may be entered from any other.
const (
	StageAwareness     = "awareness"
	StageConsideration = "consideration"
	StageDecision      = "decision"
	StageRetention     = "retention"
	StageAdvocacy      = "advocacy"

	// StageNone is the from-stage sentinel for a contact's first entry.
	StageNone = "none"
)

// Stages lists the lifecycle stages in canonical funnel order.
var Stages = []string{
	StageAwareness,
	StageConsideration,
	StageDecision,
	StageRetention,
	StageAdvocacy,
}

// stageOrder ranks stages for forward-movement checks. StageNone ranks
// below everything so a first entry counts as forward.
var stageOrder = map[string]int{
	StageNone:          0,
	StageAwareness:     1,
	StageConsideration: 2,
	StageDecision:      3,
	StageRetention:     4,
	StageAdvocacy:      5,
}

// IsValidStage reports whether stage is a member of the stage set.
// StageNone is a sentinel, not an enterable stage.
func IsValidStage(stage string) bool {
	for _, s := range Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// IsForwardTransition reports whether moving from -> to advances the
// canonical funnel order. Skipping stages still counts as forward.
func IsForwardTransition(from, to string) bool {
	return stageOrder[to] > stageOrder[from]
}

// NextStage returns the stage following s in canonical order, or ""
// for advocacy (nothing beyond it) and unknown stages.
func NextStage(s string) string {
	for i, stage := range Stages {
		if stage == s && i+1 < len(Stages) {
			return Stages[i+1]
		}
	}
	return ""
}

// JourneyStage records a contact occupying a lifecycle stage. The row
// with a NULL ExitedAt is the contact's current stage; at most one
// such row exists per contact at any time.
type JourneyStage struct {
	gorm.Model
	BusinessID uint `gorm:"not null;index:idx_journey_stages_business_contact" json:"business_id"`
	ContactID  uint `gorm:"not null;index:idx_journey_stages_business_contact" json:"contact_id"`

	Stage     string     `gorm:"not null;index" json:"stage"`
	EnteredAt time.Time  `gorm:"not null" json:"entered_at"`
	ExitedAt  *time.Time `gorm:"index" json:"exited_at"`

	// Touchpoints recorded while this stage was open.
	TouchpointIDs []uint `gorm:"type:jsonb;serializer:json" json:"touchpoint_ids"`

	Metadata map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`
}

// JourneyTransition is the append-only log of stage moves, the source
// of truth for funnel and drop-off analysis. Never mutated or deleted.
type JourneyTransition struct {
	gorm.Model
	BusinessID uint `gorm:"not null;index:idx_journey_transitions_business_time" json:"business_id"`
	ContactID  uint `gorm:"not null;index" json:"contact_id"`

	FromStage      string    `gorm:"not null" json:"from_stage"`
	ToStage        string    `gorm:"not null;index" json:"to_stage"`
	TransitionedAt time.Time `gorm:"not null;index:idx_journey_transitions_business_time" json:"transitioned_at"`
	TriggeredBy    string    `gorm:"default:'api'" json:"triggered_by"`
}

// GetCurrentStage returns the contact's open stage row, or nil if the
// contact has not entered any stage.
func GetCurrentStage(db *gorm.DB, businessID, contactID uint) (*JourneyStage, error) {
	var stage JourneyStage
	err := db.Where("business_id = ? AND contact_id = ? AND exited_at IS NULL", businessID, contactID).
		First(&stage).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// TrackStage moves a contact into a stage. Idempotent: if the contact
// is already in the stage, the existing row is returned unchanged and
// no transition is logged. Otherwise the open row (if any) is closed,
// a transition is appended and a fresh open row inserted, all within
// one transaction. Concurrent calls for the same contact are
// serialized by a per-contact lock, so two writers can never leave two
// open rows behind.
func TrackStage(db *gorm.DB, businessID, contactID uint, stage, triggeredBy string, metadata map[string]interface{}) (*JourneyStage, error) {
	unlock := contactLocks.Lock(contactKey(businessID, contactID))
	defer unlock()
	return trackStageLocked(db, businessID, contactID, stage, triggeredBy, metadata)
}

// trackStageLocked is TrackStage without the lock acquisition. The
// caller must hold the contact's lock.
func trackStageLocked(db *gorm.DB, businessID, contactID uint, stage, triggeredBy string, metadata map[string]interface{}) (*JourneyStage, error) {
	if !IsValidStage(stage) {
		return nil, ErrInvalidStage
	}
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	var result *JourneyStage
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Contact{}).Where("id = ? AND business_id = ?", contactID, businessID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrContactNotFound
		}

		current, err := GetCurrentStage(tx, businessID, contactID)
		if err != nil {
			return err
		}
		if current != nil && current.Stage == stage {
			result = current
			return nil
		}

		now := time.Now().UTC()
		fromStage := StageNone
		if current != nil {
			fromStage = current.Stage
			if err := tx.Model(current).Update("exited_at", now).Error; err != nil {
				return err
			}
		}

		transition := JourneyTransition{
			BusinessID:     businessID,
			ContactID:      contactID,
			FromStage:      fromStage,
			ToStage:        stage,
			TransitionedAt: now,
			TriggeredBy:    triggeredBy,
		}
		if err := tx.Create(&transition).Error; err != nil {
			return err
		}

		next := JourneyStage{
			BusinessID:    businessID,
			ContactID:     contactID,
			Stage:         stage,
			EnteredAt:     now,
			TouchpointIDs: []uint{},
			Metadata:      metadata,
		}
		if err := tx.Create(&next).Error; err != nil {
			return err
		}
		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetJourneyHistory returns a contact's transitions ascending by time.
func GetJourneyHistory(db *gorm.DB, businessID, contactID uint) ([]JourneyTransition, error) {
	var transitions []JourneyTransition
	err := db.Where("business_id = ? AND contact_id = ?", businessID, contactID).
		Order("transitioned_at ASC, id ASC").
		Find(&transitions).Error
	return transitions, err
}

// ListTransitionsSince returns a business's transitions after the
// cutoff, ascending by time.
func ListTransitionsSince(db *gorm.DB, businessID uint, cutoff time.Time) ([]JourneyTransition, error) {
	var transitions []JourneyTransition
	err := db.Where("business_id = ? AND transitioned_at >= ?", businessID, cutoff).
		Order("transitioned_at ASC, id ASC").
		Find(&transitions).Error
	return transitions, err
}

// CountOpenStages returns how many contacts currently sit in each
// stage for a business.
func CountOpenStages(db *gorm.DB, businessID uint) (map[string]int, error) {
	type row struct {
		Stage string
		N     int
	}
	var rows []row
	err := db.Model(&JourneyStage{}).
		Select("stage, COUNT(*) AS n").
		Where("business_id = ? AND exited_at IS NULL", businessID).
		Group("stage").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Stage] = r.N
	}
	return counts, nil
}

// advancementWindow is the trailing engagement window the heuristic
// looks at. It never looks further back and never skips stages.
const advancementWindow = 7 * 24 * time.Hour

// EligibleForAdvancement reports whether a contact in currentStage
// with the given engagement time should advance one stage. Only the
// two early stages auto-advance.
func EligibleForAdvancement(currentStage string, engagedAt, now time.Time) bool {
	if currentStage != StageAwareness && currentStage != StageConsideration {
		return false
	}
	return engagedAt.After(now.Add(-advancementWindow))
}

// AutoAdvanceResult summarizes one auto-advancement run.
type AutoAdvanceResult struct {
	Advanced int `json:"advanced"`
	Failed   int `json:"failed"`
}

// AutoAdvance runs the advancement heuristic over every contact of a
// business: contacts with no stage enter awareness; contacts in
// awareness or consideration that engaged within the last 7 days move
// exactly one stage forward. Failures are per-contact; one contact's
// error never aborts the batch.
func AutoAdvance(db *gorm.DB, businessID uint, onError func(contactID uint, err error)) (AutoAdvanceResult, error) {
	var contacts []Contact
	if err := db.Where("business_id = ?", businessID).Find(&contacts).Error; err != nil {
		return AutoAdvanceResult{}, err
	}

	now := time.Now().UTC()
	var result AutoAdvanceResult
	for _, contact := range contacts {
		advanced, err := advanceContact(db, businessID, contact, now)
		if err != nil {
			result.Failed++
			if onError != nil {
				onError(contact.ID, err)
			}
			continue
		}
		if advanced {
			result.Advanced++
		}
	}
	return result, nil
}

func advanceContact(db *gorm.DB, businessID uint, contact Contact, now time.Time) (bool, error) {
	// The stage read and the advancement write sit under one critical
	// section; a concurrent move cannot slip in between and leave the
	// write computed from a stale read.
	unlock := contactLocks.Lock(contactKey(businessID, contact.ID))
	defer unlock()

	current, err := GetCurrentStage(db, businessID, contact.ID)
	if err != nil {
		return false, err
	}

	if current == nil {
		_, err := trackStageLocked(db, businessID, contact.ID, StageAwareness, "auto_advancement", nil)
		return err == nil, err
	}

	engagedAt := contact.CreatedAt
	if contact.LastEngagedAt != nil {
		engagedAt = *contact.LastEngagedAt
	}
	if !EligibleForAdvancement(current.Stage, engagedAt, now) {
		return false, nil
	}

	_, err = trackStageLocked(db, businessID, contact.ID, NextStage(current.Stage), "auto_advancement", nil)
	return err == nil, err
}
