package controller

import (
	"errors"

	"touchflow/models"
	"touchflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ConversionController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewConversionController(db *gorm.DB, logger *logrus.Logger) *ConversionController {
	return &ConversionController{
		DB:     db,
		Logger: logger,
	}
}

// RecordConversion writes a revenue event and freezes its attribution
// split across the contact's prior touchpoints. A contact with no
// touchpoints is a precondition failure; nothing is written.
func (cc *ConversionController) RecordConversion(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)

	var input struct {
		ContactID      uint                   `json:"contact_id" validate:"required"`
		Revenue        float64                `json:"revenue" validate:"required,gt=0"`
		ConversionType string                 `json:"conversion_type" validate:"omitempty,max=100"`
		Metadata       map[string]interface{} `json:"metadata"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	conv, err := models.RecordConversion(cc.DB, business.ID, input.ContactID, input.Revenue, input.ConversionType, input.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidRevenue):
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid revenue amount", err)
		case errors.Is(err, models.ErrContactNotFound):
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
		case errors.Is(err, models.ErrNoTouchpoints):
			return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Contact has no touchpoints to attribute", err)
		default:
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record conversion", err)
		}
	}

	cc.Logger.WithFields(logrus.Fields{
		"business_id":   business.ID,
		"contact_id":    input.ContactID,
		"conversion_id": conv.ID,
		"amount":        conv.Amount,
	}).Info("Conversion recorded")

	// Monetary values leave the API rounded to 2 decimal places.
	conv.Attributions = conv.RoundedAttributions()
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(conv))
}

// GetConversions lists the business's conversions in a trailing day
// window, newest first.
func (cc *ConversionController) GetConversions(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	days := utils.QueryIntDefault(c, "days", 30)

	convs, err := models.ListConversionsSince(cc.DB, business.ID, daysAgo(days))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversions", err)
	}

	// Newest first for listing; reports consume the ascending order.
	for i, j := 0, len(convs)-1; i < j; i, j = i+1, j-1 {
		convs[i], convs[j] = convs[j], convs[i]
	}
	for i := range convs {
		convs[i].Attributions = convs[i].RoundedAttributions()
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"conversions": convs,
		"days":        days,
	}))
}
