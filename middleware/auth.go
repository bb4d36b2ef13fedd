package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"whatrack/config"
	"whatrack/models"
	"whatrack/utils"
)

// Protected resolves the calling organization from its API token and stores
// it in the request context. No role or permission model: a valid token is
// full access to that organization's data.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid authorization format",
				})
			}
			token = tokenParts[1]
		} else {
			token = c.Cookies("access_token")
			if token == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Authorization required",
				})
			}
		}

		claims, err := utils.ParseAPIToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		var org models.Organization
		if err := config.DB.First(&org, claims.OrganizationID).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Organization not found",
			})
		}

		if !org.IsActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Organization is not active",
			})
		}

		// Tokens issued before the last revocation are rejected
		if claims.TokenVersion != org.TokenVersion {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token has been revoked",
			})
		}

		c.Locals("organization", &org)
		return c.Next()
	}
}
