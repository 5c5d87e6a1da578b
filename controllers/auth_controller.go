package controller

import (
	"touchflow/config"
	"touchflow/models"
	"touchflow/utils"

	"github.com/gofiber/fiber/v2"
)

// IssueToken exchanges a business API key for a short-lived JWT so UI
// callers don't have to hold the long-lived key.
func IssueToken(c *fiber.Ctx) error {
	var input struct {
		APIKey string `json:"api_key" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var business models.Business
	if err := config.DB.Where("api_key = ?", input.APIKey).First(&business).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid API key", nil)
	}
	if !business.IsActive {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Business account is not active", nil)
	}

	token, err := utils.GenerateJWTToken(&business)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate token", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"token":      token,
		"expires_in": 3600,
	}))
}
