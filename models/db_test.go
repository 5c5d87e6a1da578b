package models

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps concurrent tests free of SQLITE_BUSY.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&Business{}, &Contact{},
		&Touchpoint{}, &Conversion{},
		&JourneyStage{}, &JourneyTransition{},
	))
	return db
}

func seedContact(t *testing.T, db *gorm.DB, businessID uint) *Contact {
	t.Helper()
	contact := Contact{BusinessID: businessID, Email: "test@example.com"}
	require.NoError(t, db.Create(&contact).Error)
	return &contact
}

func TestRecordTouchpointCreatesUnknownContact(t *testing.T) {
	db := newTestDB(t)

	tp, err := RecordTouchpoint(db, 1, 42, ChannelEmail, "camp-1", 0, nil)
	require.NoError(t, err, "recording must not require a pre-registered contact")
	assert.Equal(t, uint(42), tp.ContactID)

	var contact Contact
	require.NoError(t, db.First(&contact, 42).Error)
	assert.Equal(t, uint(1), contact.BusinessID)
	require.NotNil(t, contact.LastEngagedAt)
	assert.WithinDuration(t, time.Now().UTC(), *contact.LastEngagedAt, time.Minute)
}

func TestRecordTouchpointStampsEngagementAndOpenStage(t *testing.T) {
	db := newTestDB(t)
	contact := seedContact(t, db, 1)

	_, err := TrackStage(db, 1, contact.ID, StageAwareness, "api", nil)
	require.NoError(t, err)

	tp, err := RecordTouchpoint(db, 1, contact.ID, ChannelSocial, "", 0, nil)
	require.NoError(t, err)

	open, err := GetCurrentStage(db, 1, contact.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Contains(t, open.TouchpointIDs, tp.ID, "touchpoints attach to the open stage row")

	require.NoError(t, db.First(contact, contact.ID).Error)
	require.NotNil(t, contact.LastEngagedAt)
}

func TestRecordTouchpointRejectsUnknownChannel(t *testing.T) {
	db := newTestDB(t)
	contact := seedContact(t, db, 1)

	_, err := RecordTouchpoint(db, 1, contact.ID, "carrier_pigeon", "", 0, nil)
	assert.ErrorIs(t, err, ErrInvalidChannel)

	var count int64
	require.NoError(t, db.Model(&Touchpoint{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordConversionRequiresTouchpoints(t *testing.T) {
	db := newTestDB(t)
	contact := seedContact(t, db, 1)

	_, err := RecordConversion(db, 1, contact.ID, 100, "purchase", nil)
	assert.ErrorIs(t, err, ErrNoTouchpoints)

	var count int64
	require.NoError(t, db.Model(&Conversion{}).Count(&count).Error)
	assert.Zero(t, count, "a rejected conversion must leave nothing behind")
}

func TestConversionAttributionIsFrozen(t *testing.T) {
	db := newTestDB(t)
	contact := seedContact(t, db, 1)

	_, err := RecordTouchpoint(db, 1, contact.ID, ChannelEmail, "", 0, nil)
	require.NoError(t, err)
	_, err = RecordTouchpoint(db, 1, contact.ID, ChannelSocial, "", 0, nil)
	require.NoError(t, err)

	conv, err := RecordConversion(db, 1, contact.ID, 100, "purchase", nil)
	require.NoError(t, err)

	// A later touchpoint must not alter the stored split.
	_, err = RecordTouchpoint(db, 1, contact.ID, ChannelPaid, "", 0, nil)
	require.NoError(t, err)

	var reread Conversion
	require.NoError(t, db.First(&reread, conv.ID).Error)

	assert.InDelta(t, 100.0, reread.Attributions[ModelFirstTouch][ChannelEmail], 1e-9)
	assert.InDelta(t, 50.0, reread.Attributions[ModelLinear][ChannelEmail], 1e-9)
	assert.InDelta(t, 50.0, reread.Attributions[ModelLinear][ChannelSocial], 1e-9)
	for _, model := range AttributionModels {
		assert.NotContains(t, reread.Attributions[model], ChannelPaid,
			"%s must not credit a touchpoint recorded after conversion", model)
	}
}

func TestTrackStageIdempotentEntry(t *testing.T) {
	db := newTestDB(t)
	contact := seedContact(t, db, 1)

	first, err := TrackStage(db, 1, contact.ID, StageAwareness, "api", nil)
	require.NoError(t, err)
	again, err := TrackStage(db, 1, contact.ID, StageAwareness, "api", nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID, "re-entering the current stage returns the existing row")

	history, err := GetJourneyHistory(db, 1, contact.ID)
	require.NoError(t, err)
	require.Len(t, history, 1, "no transition is logged for a same-stage call")
	assert.Equal(t, StageNone, history[0].FromStage)
	assert.Equal(t, StageAwareness, history[0].ToStage)

	counts, err := CountOpenStages(db, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{StageAwareness: 1}, counts)
}

func TestTrackStageClosesPreviousRow(t *testing.T) {
	db := newTestDB(t)
	contact := seedContact(t, db, 1)

	first, err := TrackStage(db, 1, contact.ID, StageAwareness, "api", nil)
	require.NoError(t, err)
	_, err = TrackStage(db, 1, contact.ID, StageDecision, "manual_move", nil)
	require.NoError(t, err)

	var closed JourneyStage
	require.NoError(t, db.First(&closed, first.ID).Error)
	require.NotNil(t, closed.ExitedAt, "the previous row is closed, never deleted")

	current, err := GetCurrentStage(db, 1, contact.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, StageDecision, current.Stage)

	history, err := GetJourneyHistory(db, 1, contact.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, StageAwareness, history[1].FromStage)
	assert.Equal(t, StageDecision, history[1].ToStage)
	assert.Equal(t, "manual_move", history[1].TriggeredBy)
}

func TestAutoAdvanceEntersAndAdvances(t *testing.T) {
	db := newTestDB(t)
	fresh := seedContact(t, db, 1)

	engaged := seedContact(t, db, 1)
	_, err := TrackStage(db, 1, engaged.ID, StageAwareness, "api", nil)
	require.NoError(t, err)
	_, err = RecordTouchpoint(db, 1, engaged.ID, ChannelEmail, "", 0, nil)
	require.NoError(t, err)

	parked := seedContact(t, db, 1)
	_, err = TrackStage(db, 1, parked.ID, StageRetention, "api", nil)
	require.NoError(t, err)

	result, err := AutoAdvance(db, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Advanced)
	assert.Zero(t, result.Failed)

	current, err := GetCurrentStage(db, 1, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, StageAwareness, current.Stage, "stageless contacts enter the funnel")

	current, err = GetCurrentStage(db, 1, engaged.ID)
	require.NoError(t, err)
	assert.Equal(t, StageConsideration, current.Stage, "engaged contacts move exactly one stage")

	current, err = GetCurrentStage(db, 1, parked.ID)
	require.NoError(t, err)
	assert.Equal(t, StageRetention, current.Stage, "late stages never auto-advance")
}

// A manual move racing the advancement batch must never be overwritten
// by a decision computed from a stale stage read.
func TestAutoAdvanceConcurrentMoveNeverRegresses(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 20; i++ {
		businessID := uint(i + 1)
		contact := seedContact(t, db, businessID)
		_, err := TrackStage(db, businessID, contact.ID, StageAwareness, "api", nil)
		require.NoError(t, err)
		_, err = RecordTouchpoint(db, businessID, contact.ID, ChannelEmail, "", 0, nil)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := TrackStage(db, businessID, contact.ID, StageDecision, "manual_move", nil)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := AutoAdvance(db, businessID, nil)
			assert.NoError(t, err)
		}()
		wg.Wait()

		history, err := GetJourneyHistory(db, businessID, contact.ID)
		require.NoError(t, err)
		for _, tr := range history {
			if tr.TriggeredBy == "auto_advancement" {
				assert.True(t, IsForwardTransition(tr.FromStage, tr.ToStage),
					"auto-advancement moved %s -> %s", tr.FromStage, tr.ToStage)
			}
		}

		counts, err := CountOpenStages(db, businessID)
		require.NoError(t, err)
		total := 0
		for _, n := range counts {
			total += n
		}
		assert.Equal(t, 1, total, "exactly one open stage row per contact")
	}
}
