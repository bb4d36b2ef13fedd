package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"whatrack/config"
)

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Use(Protected())
	app.Get("/ws/campaign-progress", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestProtectedRejectsMissingToken(t *testing.T) {
	app := protectedApp()

	req := httptest.NewRequest("GET", "/ws/campaign-progress", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("want 401 without a token, got %d", resp.StatusCode)
	}
}

func TestProtectedRejectsMalformedHeader(t *testing.T) {
	app := protectedApp()

	req := httptest.NewRequest("GET", "/ws/campaign-progress", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("want 401 for a non-Bearer header, got %d", resp.StatusCode)
	}
}

func TestProtectedRejectsInvalidToken(t *testing.T) {
	config.AppConfig.EncryptionKey = "test-signing-key"
	app := protectedApp()

	req := httptest.NewRequest("GET", "/ws/campaign-progress", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("want 401 for a garbage token, got %d", resp.StatusCode)
	}
}
