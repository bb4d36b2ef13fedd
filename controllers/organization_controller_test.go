package controller

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"

	"whatrack/config"
	"whatrack/utils"
)

func TestRotateAPIToken(t *testing.T) {
	config.AppConfig.EncryptionKey = "test-signing-key"
	app, db, mock := newTestApp(t)
	oc := NewOrganizationController(db, log.New(io.Discard, "", 0))
	app.Post("/tokens/rotate", oc.RotateAPIToken)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "organizations" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest("POST", "/tokens/rotate", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}

	var out struct {
		Token        string `json:"token"`
		TokenVersion int    `json:"token_version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Token == "" {
		t.Fatal("want a freshly minted token")
	}
	if out.TokenVersion != 1 {
		t.Fatalf("want token version bumped to 1, got %d", out.TokenVersion)
	}

	// The minted token must carry the bumped version, so everything issued
	// before the rotation stops validating.
	claims, err := utils.ParseAPIToken(out.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.OrganizationID != 42 || claims.TokenVersion != 1 {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
