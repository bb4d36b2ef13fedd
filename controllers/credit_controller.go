package controller

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"gorm.io/gorm"

	"whatrack/config"
	"whatrack/metrics"
	"whatrack/models"
	"whatrack/utils"
)

type CreditController struct {
	DB      *gorm.DB
	Logger  *log.Logger
	Credits *utils.CreditService
}

func NewCreditController(db *gorm.DB, logger *log.Logger, credits *utils.CreditService) *CreditController {
	return &CreditController{
		DB:      db,
		Logger:  logger,
		Credits: credits,
	}
}

func InitStripe() {
	stripe.Key = config.AppConfig.StripeSecretKey
}

// GetBalance returns the organization's current credit balance, creating
// the ledger on first access.
func (cr *CreditController) GetBalance(c *fiber.Ctx) error {
	org := c.Locals("organization").(*models.Organization)

	ledger, err := cr.Credits.GetOrCreateLedger(org.ID)
	if err != nil {
		cr.Logger.Printf("Failed to load ledger for organization %d: %v", org.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load credit balance",
		})
	}

	return c.JSON(fiber.Map{
		"balance_cents": ledger.BalanceCents,
	})
}

// GetTransactions returns one page of ledger entries, newest first.
func (cr *CreditController) GetTransactions(c *fiber.Ctx) error {
	org := c.Locals("organization").(*models.Organization)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("limit", "20"))

	result, err := cr.Credits.ListTransactions(org.ID, page, pageSize)
	if err != nil {
		cr.Logger.Printf("Failed to list transactions for organization %d: %v", org.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch transactions",
		})
	}

	return c.JSON(result)
}

type purchaseInput struct {
	AmountCents int64 `json:"amount_cents" validate:"required,min=500"`
}

// CreatePurchaseIntent creates a Stripe payment intent for a credit top-up.
// The credits are only added once the payment_intent.succeeded webhook
// confirms the charge.
func (cr *CreditController) CreatePurchaseIntent(c *fiber.Ctx) error {
	org := c.Locals("organization").(*models.Organization)

	var input purchaseInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	customerID, err := cr.getOrCreateStripeCustomer(org)
	if err != nil {
		cr.Logger.Printf("Failed to resolve Stripe customer for organization %d: %v", org.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process payment",
		})
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(string(stripe.CurrencyBRL)),
		Customer: stripe.String(customerID),
		Metadata: map[string]string{
			"organization_id": strconv.Itoa(int(org.ID)),
		},
		Description: stripe.String("WhaTrack campaign credits"),
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		cr.Logger.Printf("Failed to create payment intent for organization %d: %v", org.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process payment",
		})
	}

	return c.JSON(fiber.Map{
		"clientSecret": pi.ClientSecret,
		"amount":       input.AmountCents,
		"currency":     "brl",
	})
}

// HandlePaymentWebhook adds the purchased credits once Stripe confirms the
// payment. Webhook redeliveries are deduplicated on the payment intent id,
// the ledger stays append-only.
func (cr *CreditController) HandlePaymentWebhook(c *fiber.Ctx) error {
	event, err := utils.ConstructStripeEvent(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	if event.Type != "payment_intent.succeeded" {
		return c.JSON(fiber.Map{"received": true})
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payment intent payload",
		})
	}

	orgID := utils.ParseUint(pi.Metadata["organization_id"])
	if orgID == 0 {
		cr.Logger.Printf("Payment %s has no organization metadata, ignoring", pi.ID)
		return c.JSON(fiber.Map{"received": true})
	}

	seen, err := cr.Credits.HasPaymentTransaction(pi.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check payment",
		})
	}
	if seen {
		return c.JSON(fiber.Map{"received": true})
	}

	if _, err := cr.Credits.AddCredits(orgID, pi.Amount, "Credit purchase", &pi.ID); err != nil {
		if errors.Is(err, utils.ErrInvalidCreditAmount) {
			cr.Logger.Printf("Payment %s carries non-positive amount %d, ignoring", pi.ID, pi.Amount)
			return c.JSON(fiber.Map{"received": true})
		}
		cr.Logger.Printf("Failed to credit payment %s: %v", pi.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add credits",
		})
	}

	metrics.CreditsPurchased.Add(float64(pi.Amount))
	utils.LogEvent("credits_purchased", map[string]interface{}{
		"organization_id": orgID,
		"amount_cents":    pi.Amount,
		"payment_id":      pi.ID,
	})

	return c.JSON(fiber.Map{"received": true})
}

func (cr *CreditController) getOrCreateStripeCustomer(org *models.Organization) (string, error) {
	if org.StripeCustomerID != "" {
		return org.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Name:  stripe.String(org.Name),
		Email: stripe.String(org.Email),
		Metadata: map[string]string{
			"organization_id": strconv.Itoa(int(org.ID)),
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}

	if err := cr.DB.Model(org).Update("stripe_customer_id", cust.ID).Error; err != nil {
		return "", err
	}
	return cust.ID, nil
}
