package utils

import (
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse creates a standardized error response. Server-side
// failures are also reported to Sentry when it is configured.
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
		if status >= fiber.StatusInternalServerError {
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("path", c.Path())
				scope.SetTag("method", c.Method())
				sentry.CaptureException(err)
			})
		}
	}
	return c.Status(status).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// ParseUint safely parses a string to uint
func ParseUint(s string) uint {
	i, _ := strconv.ParseUint(s, 10, 32)
	return uint(i)
}

// QueryIntDefault reads an integer query parameter with a fallback and
// a floor of 1. Used for the days/limit report windows.
func QueryIntDefault(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
