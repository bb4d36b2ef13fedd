package utils

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"whatrack/models"
)

// Sentinel errors surfaced to the campaign service and HTTP layer.
var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidCreditAmount = errors.New("credit amount must be positive")
)

// CreditService owns the per-organization prepaid ledger. Every mutation
// runs the balance update and the transaction-log insert as one database
// transaction so the two can never diverge.
type CreditService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCreditService(db *gorm.DB, logger *log.Logger) *CreditService {
	return &CreditService{
		DB:     db,
		Logger: logger,
	}
}

// GetOrCreateLedger returns the organization's ledger, creating an empty one
// on first access. Idempotent.
func (cs *CreditService) GetOrCreateLedger(organizationID uint) (*models.CampaignCredits, error) {
	return getOrCreateLedgerTx(cs.DB, organizationID)
}

func getOrCreateLedgerTx(tx *gorm.DB, organizationID uint) (*models.CampaignCredits, error) {
	var ledger models.CampaignCredits
	err := tx.Where(models.CampaignCredits{OrganizationID: organizationID}).
		FirstOrCreate(&ledger).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load credit ledger: %w", err)
	}
	return &ledger, nil
}

// AddCredits increments the balance and appends a PURCHASE entry.
func (cs *CreditService) AddCredits(organizationID uint, amountCents int64, description string, paymentID *string) (*models.CampaignCredits, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidCreditAmount
	}

	var ledger *models.CampaignCredits
	err := cs.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		ledger, err = getOrCreateLedgerTx(tx, organizationID)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.CampaignCredits{}).
			Where("id = ?", ledger.ID).
			Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents)).Error; err != nil {
			return fmt.Errorf("failed to credit balance: %w", err)
		}

		entry := models.CampaignCreditTransaction{
			CreditsID:   ledger.ID,
			Type:        models.CreditTransactionPurchase,
			AmountCents: amountCents,
			Description: description,
			PaymentID:   paymentID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to record purchase transaction: %w", err)
		}

		ledger.BalanceCents += amountCents
		return nil
	})
	if err != nil {
		return nil, err
	}

	cs.Logger.Printf("Added %d cents to organization %d (balance now %d)",
		amountCents, organizationID, ledger.BalanceCents)
	return ledger, nil
}

// DebitCredits decrements the balance and appends a CAMPAIGN_USE entry. The
// decrement is a single conditional update guarded by the current balance,
// so two concurrent debits can never both pass the sufficient-funds check.
func (cs *CreditService) DebitCredits(organizationID uint, amountCents int64, campaignID *uint) (*models.CampaignCredits, error) {
	var ledger *models.CampaignCredits
	err := cs.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		ledger, err = debitCreditsTx(tx, organizationID, amountCents, campaignID)
		return err
	})
	if err != nil {
		return nil, err
	}

	cs.Logger.Printf("Debited %d cents from organization %d (balance now %d)",
		amountCents, organizationID, ledger.BalanceCents)
	return ledger, nil
}

// DebitCreditsTx is the transactional form used by startCampaign, which has
// to run the debit and the campaign status flip in the same transaction.
func (cs *CreditService) DebitCreditsTx(tx *gorm.DB, organizationID uint, amountCents int64, campaignID *uint) (*models.CampaignCredits, error) {
	return debitCreditsTx(tx, organizationID, amountCents, campaignID)
}

func debitCreditsTx(tx *gorm.DB, organizationID uint, amountCents int64, campaignID *uint) (*models.CampaignCredits, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidCreditAmount
	}

	ledger, err := getOrCreateLedgerTx(tx, organizationID)
	if err != nil {
		return nil, err
	}

	res := tx.Model(&models.CampaignCredits{}).
		Where("id = ? AND balance_cents >= ?", ledger.ID, amountCents).
		Update("balance_cents", gorm.Expr("balance_cents - ?", amountCents))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to debit balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrInsufficientCredits
	}

	entry := models.CampaignCreditTransaction{
		CreditsID:   ledger.ID,
		Type:        models.CreditTransactionCampaignUse,
		AmountCents: -amountCents,
		Description: "Campaign send",
		CampaignID:  campaignID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to record usage transaction: %w", err)
	}

	ledger.BalanceCents -= amountCents
	return ledger, nil
}

// ListTransactions returns one page of the organization's ledger entries,
// newest first, plus the total count.
func (cs *CreditService) ListTransactions(organizationID uint, page, pageSize int) (*models.TransactionPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	ledger, err := cs.GetOrCreateLedger(organizationID)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := cs.DB.Model(&models.CampaignCreditTransaction{}).
		Where("credits_id = ?", ledger.ID).
		Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	var items []models.CampaignCreditTransaction
	if err := cs.DB.
		Where("credits_id = ?", ledger.ID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &models.TransactionPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// HasPaymentTransaction reports whether a PURCHASE entry already exists for
// the given payment id. Used by the Stripe webhook to stay idempotent under
// redelivery.
func (cs *CreditService) HasPaymentTransaction(paymentID string) (bool, error) {
	var count int64
	err := cs.DB.Model(&models.CampaignCreditTransaction{}).
		Where("payment_id = ?", paymentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
