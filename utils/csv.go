package utils

import (
	"bytes"
	"encoding/csv"
	"time"

	"whatrack/models"
)

// Column order of the recipient export. Fixed so downstream spreadsheets can
// rely on it.
var recipientCSVHeader = []string{
	"phone", "status", "messageId", "sentAt", "deliveredAt",
	"readAt", "failedAt", "errorCode", "errorMessage",
}

// RenderRecipientsCSV renders recipient rows as RFC 4180 CSV. Fields holding
// commas, quotes or newlines are quoted by the encoder; empty optional
// fields render as empty strings.
func RenderRecipientsCSV(recipients []models.CampaignRecipient) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(recipientCSVHeader); err != nil {
		return nil, err
	}

	for _, r := range recipients {
		record := []string{
			r.Phone,
			r.Status,
			r.MessageID,
			formatTimePtr(r.SentAt),
			formatTimePtr(r.DeliveredAt),
			formatTimePtr(r.ReadAt),
			formatTimePtr(r.FailedAt),
			r.ErrorCode,
			r.ErrorMessage,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
