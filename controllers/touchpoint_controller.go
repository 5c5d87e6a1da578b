package controller

import (
	"errors"

	"touchflow/models"
	"touchflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type TouchpointController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewTouchpointController(db *gorm.DB, logger *logrus.Logger) *TouchpointController {
	return &TouchpointController{
		DB:     db,
		Logger: logger,
	}
}

// RecordTouchpoint appends a channel interaction for a contact,
// creating the contact on first sight.
func (tc *TouchpointController) RecordTouchpoint(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)

	var input struct {
		ContactID  uint                   `json:"contact_id" validate:"required"`
		Channel    string                 `json:"channel" validate:"required"`
		CampaignID string                 `json:"campaign_id" validate:"omitempty,max=200"`
		Value      float64                `json:"value" validate:"omitempty,gte=0"`
		Metadata   map[string]interface{} `json:"metadata"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	tp, err := models.RecordTouchpoint(tc.DB, business.ID, input.ContactID, input.Channel, input.CampaignID, input.Value, input.Metadata)
	if err != nil {
		if errors.Is(err, models.ErrInvalidChannel) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown channel", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record touchpoint", err)
	}

	tc.Logger.WithFields(logrus.Fields{
		"business_id":   business.ID,
		"contact_id":    input.ContactID,
		"channel":       input.Channel,
		"touchpoint_id": tp.ID,
	}).Info("Touchpoint recorded")

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(tp))
}

// GetContactTouchpoints lists a contact's touchpoints ascending by
// occurrence time.
func (tc *TouchpointController) GetContactTouchpoints(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	contactID := utils.ParseUint(c.Params("contactID"))

	var contact models.Contact
	if err := tc.DB.Where("id = ? AND business_id = ?", contactID, business.ID).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	tps, err := models.ListTouchpoints(tc.DB, business.ID, contactID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch touchpoints", err)
	}

	return c.JSON(utils.SuccessResponse(tps))
}
