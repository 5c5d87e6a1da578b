package worker

import (
	"context"
	"time"

	"touchflow/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AdvancementWorker periodically runs the auto-advancement heuristic
// for every active business. Each business is processed independently;
// one tenant's failure never blocks another's run.
type AdvancementWorker struct {
	DB       *gorm.DB
	Logger   *logrus.Logger
	Interval time.Duration
}

func NewAdvancementWorker(db *gorm.DB, logger *logrus.Logger, interval time.Duration) *AdvancementWorker {
	return &AdvancementWorker{
		DB:       db,
		Logger:   logger,
		Interval: interval,
	}
}

func (aw *AdvancementWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	aw.Logger.Info("Advancement worker started")

	ticker := time.NewTicker(aw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			aw.Logger.Info("Advancement worker shutting down...")
			return
		case <-ticker.C:
			aw.runAll()
		}
	}
}

func (aw *AdvancementWorker) runAll() {
	var businesses []models.Business
	if err := aw.DB.Where("is_active = ?", true).Find(&businesses).Error; err != nil {
		aw.Logger.WithError(err).Error("Failed to fetch businesses for advancement run")
		return
	}

	for _, business := range businesses {
		result, err := models.AutoAdvance(aw.DB, business.ID, func(contactID uint, err error) {
			aw.Logger.WithFields(logrus.Fields{
				"business_id": business.ID,
				"contact_id":  contactID,
			}).WithError(err).Warn("Auto-advancement failed for contact")
		})
		if err != nil {
			aw.Logger.WithFields(logrus.Fields{
				"business_id": business.ID,
			}).WithError(err).Error("Auto-advancement run failed")
			continue
		}

		if result.Advanced > 0 || result.Failed > 0 {
			aw.Logger.WithFields(logrus.Fields{
				"business_id": business.ID,
				"advanced":    result.Advanced,
				"failed":      result.Failed,
			}).Info("Auto-advancement run completed")
		}
	}
}
