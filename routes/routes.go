package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	controller "whatrack/controllers"
	"whatrack/middleware"
	"whatrack/utils"
	"whatrack/worker"
)

// SetupRoutes wires all HTTP endpoints. The webhook endpoints stay outside
// the protected group: Stripe and the delivery-status relay authenticate
// with signatures, not organization tokens.
func SetupRoutes(app *fiber.App, db *gorm.DB, processor *worker.CampaignProcessor, credits *utils.CreditService, whatsappClient *utils.CloudAPIClient) {
	campaignController := controller.NewCampaignController(
		db, log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags), whatsappClient, credits, processor)
	templateController := controller.NewTemplateController(
		db, log.New(os.Stdout, "TEMPLATE: ", log.LstdFlags), whatsappClient)
	creditController := controller.NewCreditController(
		db, log.New(os.Stdout, "CREDITS: ", log.LstdFlags), credits)
	organizationController := controller.NewOrganizationController(
		db, log.New(os.Stdout, "ORG: ", log.LstdFlags))

	// Public webhooks
	webhooks := app.Group("/webhooks", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	webhooks.Post("/stripe", creditController.HandlePaymentWebhook)
	webhooks.Post("/delivery-status", campaignController.HandleDeliveryStatus)

	// API group with versioning and tenant resolution
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Campaign routes
	campaigns := api.Group("/campaigns")
	campaigns.Post("/", campaignController.CreateCampaign)
	campaigns.Get("/", campaignController.GetCampaigns)
	campaigns.Get("/:id", campaignController.GetCampaign)
	campaigns.Patch("/:id", campaignController.UpdateCampaign)
	campaigns.Post("/:id/start", campaignController.StartCampaign)
	campaigns.Post("/:id/cancel", campaignController.CancelCampaign)
	campaigns.Get("/:id/recipients", campaignController.GetCampaignRecipients)
	campaigns.Get("/:id/recipients/export", campaignController.ExportCampaignRecipients)

	// Ad-hoc single sends, rate limited per organization
	api.Post("/messages/send", middleware.SendRateLimiter(), campaignController.SendSingleTemplate)

	// Template routes
	templates := api.Group("/templates")
	templates.Get("/", templateController.GetTemplates)
	templates.Post("/sync", templateController.SyncTemplates)

	// Credit routes
	creditsGroup := api.Group("/credits")
	creditsGroup.Get("/balance", creditController.GetBalance)
	creditsGroup.Get("/transactions", creditController.GetTransactions)
	creditsGroup.Post("/purchase", creditController.CreatePurchaseIntent)

	// Credential rotation
	api.Post("/tokens/rotate", organizationController.RotateAPIToken)

	// Live campaign progress. Same token check as the API group; the
	// resolved organization travels into the upgraded connection's locals.
	app.Use("/ws", middleware.Protected(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/campaign-progress", websocket.New(controller.HandleCampaignProgressWS))
}
