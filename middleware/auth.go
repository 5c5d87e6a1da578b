package middleware

import (
	"strings"

	"touchflow/config"
	"touchflow/models"
	"touchflow/utils"

	"github.com/gofiber/fiber/v2"
)

// Protected resolves the calling tenant. Service callers send their
// API key in X-API-Key; UI callers send a Bearer JWT minted from it.
// The resolved Business row lands in c.Locals("business").
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var business models.Business

		if apiKey := c.Get("X-API-Key"); apiKey != "" {
			if err := config.DB.Where("api_key = ?", apiKey).First(&business).Error; err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid API key",
				})
			}
		} else {
			authHeader := c.Get("Authorization")
			if authHeader == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Authorization required",
				})
			}
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid authorization format",
				})
			}

			claims, err := utils.ParseJWTToken(tokenParts[1])
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}

			if err := config.DB.First(&business, claims.BusinessID).Error; err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Business not found",
				})
			}
		}

		if !business.IsActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Business account is not active",
			})
		}

		c.Locals("business", &business)
		return c.Next()
	}
}
