package controller

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"

	"whatrack/config"
	"whatrack/models"
)

func signDeliveryBody(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func postDelivery(t *testing.T, app *fiber.App, body, signature string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/delivery-status", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestHandleDeliveryStatusAdvancesRecipient(t *testing.T) {
	config.AppConfig.DeliveryWebhookSecret = "relay-secret"
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Post("/webhooks/delivery-status", cc.HandleDeliveryStatus)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaign_recipients"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "message_id"}).
			AddRow(21, models.RecipientStatusSent, "wamid.abc"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "campaign_recipients" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"message_id":"wamid.abc","status":"delivered","timestamp":1767225600}`
	status := postDelivery(t, app, body, signDeliveryBody("relay-secret", body))
	if status != fiber.StatusOK {
		t.Fatalf("want 200 for a correctly signed update, got %d", status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestHandleDeliveryStatusRejectsBadSignature(t *testing.T) {
	config.AppConfig.DeliveryWebhookSecret = "relay-secret"
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Post("/webhooks/delivery-status", cc.HandleDeliveryStatus)

	body := `{"message_id":"wamid.abc","status":"read"}`
	status := postDelivery(t, app, body, signDeliveryBody("wrong-secret", body))
	if status != fiber.StatusUnauthorized {
		t.Fatalf("want 401 for a missigned update, got %d", status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no database access expected: %v", err)
	}
}

func TestHandleDeliveryStatusRejectsUnsigned(t *testing.T) {
	config.AppConfig.DeliveryWebhookSecret = "relay-secret"
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Post("/webhooks/delivery-status", cc.HandleDeliveryStatus)

	status := postDelivery(t, app, `{"message_id":"wamid.abc","status":"failed"}`, "")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("want 401 for an unsigned update, got %d", status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no database access expected: %v", err)
	}
}

func TestHandleDeliveryStatusRejectsWhenSecretUnset(t *testing.T) {
	config.AppConfig.DeliveryWebhookSecret = ""
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Post("/webhooks/delivery-status", cc.HandleDeliveryStatus)

	// An empty secret must fail closed, even for a body signed with the
	// empty string.
	body := `{"message_id":"wamid.abc","status":"delivered"}`
	status := postDelivery(t, app, body, signDeliveryBody("", body))
	if status != fiber.StatusUnauthorized {
		t.Fatalf("want 401 when no secret is configured, got %d", status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no database access expected: %v", err)
	}
}
