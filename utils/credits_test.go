package utils

import (
	"errors"
	"io"
	"log"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockedCreditService(t *testing.T) (*CreditService, sqlmock.Sqlmock) {
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

	return NewCreditService(gormDB, log.New(io.Discard, "", 0)), mock
}

func ledgerRows(id, organizationID uint, balanceCents int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "organization_id", "balance_cents"}).
		AddRow(id, organizationID, balanceCents)
}

func TestDebitCredits(t *testing.T) {
	cs, mock := newMockedCreditService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaign_credits"`)).
		WillReturnRows(ledgerRows(1, 42, 1000))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "campaign_credits" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "campaign_credit_transactions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	campaignID := uint(9)
	ledger, err := cs.DebitCredits(42, 285, &campaignID)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.BalanceCents != 715 {
		t.Fatalf("want balance 715, got %d", ledger.BalanceCents)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDebitCreditsInsufficientBalance(t *testing.T) {
	cs, mock := newMockedCreditService(t)

	// Conditional update touches no row when the guarded balance check
	// fails; no ledger entry may be written.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaign_credits"`)).
		WillReturnRows(ledgerRows(1, 42, 100))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "campaign_credits" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := cs.DebitCredits(42, 285, nil)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("want ErrInsufficientCredits, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDebitCreditsRejectsNonPositiveAmount(t *testing.T) {
	cs, mock := newMockedCreditService(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	if _, err := cs.DebitCredits(42, 0, nil); !errors.Is(err, ErrInvalidCreditAmount) {
		t.Fatalf("want ErrInvalidCreditAmount for zero, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectRollback()

	if _, err := cs.DebitCredits(42, -50, nil); !errors.Is(err, ErrInvalidCreditAmount) {
		t.Fatalf("want ErrInvalidCreditAmount for negative, got %v", err)
	}
}

func TestAddCredits(t *testing.T) {
	cs, mock := newMockedCreditService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "campaign_credits"`)).
		WillReturnRows(ledgerRows(1, 42, 500))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "campaign_credits" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "campaign_credit_transactions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	paymentID := "pi_123"
	ledger, err := cs.AddCredits(42, 1000, "Credit purchase", &paymentID)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.BalanceCents != 1500 {
		t.Fatalf("want balance 1500, got %d", ledger.BalanceCents)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAddCreditsRejectsNonPositiveAmount(t *testing.T) {
	cs, _ := newMockedCreditService(t)

	if _, err := cs.AddCredits(42, 0, "x", nil); !errors.Is(err, ErrInvalidCreditAmount) {
		t.Fatalf("want ErrInvalidCreditAmount, got %v", err)
	}
}

func TestHasPaymentTransaction(t *testing.T) {
	cs, mock := newMockedCreditService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "campaign_credit_transactions"`)).
		WithArgs("pi_123").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	seen, err := cs.HasPaymentTransaction("pi_123")
	if err != nil {
		t.Fatal(err)
	}
	if !seen {
		t.Fatal("want existing payment to be reported as seen")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
