package controller

import (
	"bytes"
	"io"
	"log"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"whatrack/models"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		org := &models.Organization{Name: "Test Org"}
		org.ID = 42
		c.Locals("organization", org)
		return c.Next()
	})

	return app, gormDB, mock
}

func newTestCampaignController(db *gorm.DB) *CampaignController {
	return NewCampaignController(db, log.New(io.Discard, "", 0), nil, nil, nil)
}

func postJSON(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestCreateCampaignRejectsEmptyRecipients(t *testing.T) {
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Post("/campaigns", cc.CreateCampaign)

	status := postJSON(t, app, "/campaigns",
		`{"name":"Promo","template_id":7,"recipients":[]}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("want 400, got %d", status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no database access expected: %v", err)
	}
}

func TestCreateCampaignRejectsInvalidPhone(t *testing.T) {
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Post("/campaigns", cc.CreateCampaign)

	status := postJSON(t, app, "/campaigns",
		`{"name":"Promo","template_id":7,"recipients":[{"phone":"not-a-number"}]}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("want 400, got %d", status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no database access expected: %v", err)
	}
}

func TestCreateCampaignUnknownTemplate(t *testing.T) {
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Post("/campaigns", cc.CreateCampaign)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "whats_app_templates"`)).
		WillReturnError(gorm.ErrRecordNotFound)

	status := postJSON(t, app, "/campaigns",
		`{"name":"Promo","template_id":7,"recipients":[{"phone":"+5511999990001"}]}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("want 404, got %d", status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCancelCampaignAlreadyCompleted(t *testing.T) {
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Post("/campaigns/:id/cancel", cc.CancelCampaign)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaigns"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "status"}).
			AddRow(9, 42, models.CampaignStatusCompleted))

	status := postJSON(t, app, "/campaigns/9/cancel", `{}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("completed campaigns must not be cancellable, got %d", status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCancelCampaignNotFound(t *testing.T) {
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Post("/campaigns/:id/cancel", cc.CancelCampaign)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaigns"`)).
		WillReturnError(gorm.ErrRecordNotFound)

	status := postJSON(t, app, "/campaigns/9/cancel", `{}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("want 404, got %d", status)
	}
}

func TestUpdateCampaignAllowsScheduledEdits(t *testing.T) {
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Patch("/campaigns/:id", cc.UpdateCampaign)

	// Scheduled campaigns stay editable until the scheduler starts them.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaigns"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "status"}).
			AddRow(9, 42, models.CampaignStatusScheduled))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "campaigns" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest("PATCH", "/campaigns/9", bytes.NewReader([]byte(`{"name":"Renamed"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateCampaignRejectsProcessing(t *testing.T) {
	app, db, mock := newTestApp(t)
	cc := newTestCampaignController(db)
	app.Patch("/campaigns/:id", cc.UpdateCampaign)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaigns"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "status"}).
			AddRow(9, 42, models.CampaignStatusProcessing))

	req := httptest.NewRequest("PATCH", "/campaigns/9", bytes.NewReader([]byte(`{"name":"Renamed"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("running campaigns must not be editable, got %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
