package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"whatrack/models"
	"whatrack/utils"
)

type OrganizationController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewOrganizationController(db *gorm.DB, logger *log.Logger) *OrganizationController {
	return &OrganizationController{
		DB:     db,
		Logger: logger,
	}
}

// RotateAPIToken bumps the organization's token version and mints a fresh
// API token. Every token issued before the bump stops validating, so this
// is the kill switch for a leaked credential.
func (oc *OrganizationController) RotateAPIToken(c *fiber.Ctx) error {
	org := organizationFromCtx(c)

	if err := oc.DB.Model(&models.Organization{}).
		Where("id = ?", org.ID).
		Update("token_version", gorm.Expr("token_version + 1")).Error; err != nil {
		oc.Logger.Printf("Failed to rotate token for organization %d: %v", org.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to rotate token",
		})
	}
	org.TokenVersion++

	token, err := utils.GenerateAPIToken(org)
	if err != nil {
		oc.Logger.Printf("Failed to issue token for organization %d: %v", org.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue token",
		})
	}

	return c.JSON(fiber.Map{
		"token":         token,
		"token_version": org.TokenVersion,
	})
}
