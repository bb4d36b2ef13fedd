package utils

import (
	"fmt"
	"strconv"

	"gopkg.in/gomail.v2"

	"whatrack/config"
	"whatrack/models"
)

// SendLowBalanceAlert emails the organization when its credit balance drops
// under the configured threshold. Called after debits; failures are logged
// by the caller, never propagated into the campaign flow.
func SendLowBalanceAlert(org *models.Organization, balanceCents int64) error {
	if config.AppConfig.SMTPHost == "" {
		return fmt.Errorf("smtp is not configured")
	}
	to := org.AlertEmail
	if to == "" {
		to = org.Email
	}

	m := gomail.NewMessage()
	m.SetHeader("From", config.AppConfig.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "WhaTrack: campaign credits running low")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nYour campaign credit balance is down to %.2f. "+
			"Top up your credits to keep campaigns running.\n\n— WhaTrack",
		org.Name, float64(balanceCents)/100))

	port, err := strconv.Atoi(config.AppConfig.SMTPPort)
	if err != nil {
		port = 587
	}

	d := gomail.NewDialer(
		config.AppConfig.SMTPHost,
		port,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
	)
	return d.DialAndSend(m)
}
