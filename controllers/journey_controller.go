package controller

import (
	"errors"

	"touchflow/models"
	"touchflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type JourneyController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewJourneyController(db *gorm.DB, logger *logrus.Logger) *JourneyController {
	return &JourneyController{
		DB:     db,
		Logger: logger,
	}
}

type stageInput struct {
	ContactID   uint                   `json:"contact_id" validate:"required"`
	Stage       string                 `json:"stage" validate:"required"`
	TriggeredBy string                 `json:"triggered_by" validate:"omitempty,max=100"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func (jc *JourneyController) trackStage(c *fiber.Ctx, defaultTrigger string) error {
	business := c.Locals("business").(*models.Business)

	var input stageInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.TriggeredBy == "" {
		input.TriggeredBy = defaultTrigger
	}

	stage, err := models.TrackStage(jc.DB, business.ID, input.ContactID, input.Stage, input.TriggeredBy, input.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidStage):
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown stage", err)
		case errors.Is(err, models.ErrContactNotFound):
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
		default:
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to track stage", err)
		}
	}

	jc.Logger.WithFields(logrus.Fields{
		"business_id": business.ID,
		"contact_id":  input.ContactID,
		"stage":       input.Stage,
		"stage_id":    stage.ID,
	}).Info("Stage tracked")

	return c.JSON(utils.SuccessResponse(stage))
}

// TrackStage moves a contact into a lifecycle stage. Idempotent when
// the contact already occupies the stage.
func (jc *JourneyController) TrackStage(c *fiber.Ctx) error {
	return jc.trackStage(c, "api")
}

// MoveContactToStage is the externally-facing stage move, kept
// separate from the tracker's internal calls so callers show up
// distinctly in the transition log.
func (jc *JourneyController) MoveContactToStage(c *fiber.Ctx) error {
	return jc.trackStage(c, "manual_move")
}

// GetCurrentStage returns the contact's open stage, or null if the
// contact has not entered the journey.
func (jc *JourneyController) GetCurrentStage(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	contactID := utils.ParseUint(c.Params("contactID"))

	stage, err := models.GetCurrentStage(jc.DB, business.ID, contactID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch current stage", err)
	}

	return c.JSON(utils.SuccessResponse(stage))
}

// GetJourneyHistory returns a contact's transition log, oldest first.
func (jc *JourneyController) GetJourneyHistory(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	contactID := utils.ParseUint(c.Params("contactID"))

	history, err := models.GetJourneyHistory(jc.DB, business.ID, contactID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch journey history", err)
	}

	return c.JSON(utils.SuccessResponse(history))
}

// RunAutoAdvancement runs the advancement heuristic for the calling
// business. Per-contact failures are logged and counted but never
// abort the batch.
func (jc *JourneyController) RunAutoAdvancement(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)

	result, err := models.AutoAdvance(jc.DB, business.ID, func(contactID uint, err error) {
		jc.Logger.WithFields(logrus.Fields{
			"business_id": business.ID,
			"contact_id":  contactID,
		}).WithError(err).Warn("Auto-advancement failed for contact")
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Auto-advancement failed", err)
	}

	jc.Logger.WithFields(logrus.Fields{
		"business_id": business.ID,
		"advanced":    result.Advanced,
		"failed":      result.Failed,
	}).Info("Auto-advancement run completed")

	return c.JSON(utils.SuccessResponse(result))
}
