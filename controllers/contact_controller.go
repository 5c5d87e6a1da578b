package controller

import (
	"touchflow/models"
	"touchflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ContactController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewContactController(db *gorm.DB, logger *logrus.Logger) *ContactController {
	return &ContactController{
		DB:     db,
		Logger: logger,
	}
}

// CreateContact registers a contact for the calling business.
func (cc *ContactController) CreateContact(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)

	var input struct {
		ExternalID string `json:"external_id" validate:"omitempty,max=200"`
		Email      string `json:"email" validate:"omitempty,email"`
		Name       string `json:"name" validate:"omitempty,max=200"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	contact := models.Contact{
		BusinessID: business.ID,
		ExternalID: input.ExternalID,
		Email:      input.Email,
		Name:       input.Name,
	}
	if err := cc.DB.Create(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create contact", err)
	}

	cc.Logger.WithFields(logrus.Fields{
		"business_id": business.ID,
		"contact_id":  contact.ID,
	}).Info("Contact created")

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(contact))
}

// GetContacts lists the business's contacts, newest first.
func (cc *ContactController) GetContacts(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)

	page := utils.QueryIntDefault(c, "page", 1)
	limit := utils.QueryIntDefault(c, "limit", 50)

	var contacts []models.Contact
	var total int64
	cc.DB.Model(&models.Contact{}).Where("business_id = ?", business.ID).Count(&total)
	if err := cc.DB.Where("business_id = ?", business.ID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&contacts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch contacts", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"contacts": contacts,
		"total":    total,
		"page":     page,
		"limit":    limit,
	}))
}

// GetContact returns one contact by id.
func (cc *ContactController) GetContact(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	contactID := utils.ParseUint(c.Params("contactID"))

	var contact models.Contact
	if err := cc.DB.Where("id = ? AND business_id = ?", contactID, business.ID).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	return c.JSON(utils.SuccessResponse(contact))
}
