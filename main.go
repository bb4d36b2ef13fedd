package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"whatrack/config"
	controller "whatrack/controllers"
	"whatrack/metrics"
	"whatrack/middleware"
	"whatrack/routes"
	"whatrack/utils"
	"whatrack/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "WHATRACK: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Error reporting
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
	}

	controller.InitStripe()

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Shared services
	whatsappClient := utils.NewCloudAPIClient()
	credits := utils.NewCreditService(config.DB, log.New(os.Stdout, "CREDITS: ", log.LstdFlags))
	processor := worker.NewCampaignProcessor(config.DB, whatsappClient,
		log.New(os.Stdout, "PROCESSOR: ", log.LstdFlags))

	// Initialize and start the campaign scheduler (scheduled starts +
	// resuming campaigns left in PROCESSING by a restart)
	scheduler := worker.NewCampaignScheduler(config.DB, processor, credits,
		log.New(os.Stdout, "SCHEDULER: ", log.LstdFlags))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Start(ctx)

	// Prometheus metrics on their own port
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		logger.Printf("Metrics listening on port %s", config.AppConfig.MetricsPort)
		if err := http.ListenAndServe(":"+config.AppConfig.MetricsPort, mux); err != nil {
			logger.Printf("Metrics server stopped: %v", err)
		}
	}()

	// Setup routes
	routes.SetupRoutes(app, config.DB, processor, credits, whatsappClient)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
