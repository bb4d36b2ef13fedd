package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"whatrack/config"
	"whatrack/models"
)

// SendTemplateInput carries everything the Cloud API needs to deliver one
// templated message to one phone number.
type SendTemplateInput struct {
	Connection   *models.WhatsAppConnection
	To           string
	TemplateName string
	LanguageCode string
	Components   []models.TemplateComponent
}

// SendResult is the sender's outcome for a single message. Ordinary delivery
// failures come back as Success=false with Error set; only transport-level
// faults are returned as Go errors.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WhatsAppSenderInterface is the seam the campaign processor and the ad-hoc
// send endpoint depend on.
type WhatsAppSenderInterface interface {
	SendTemplate(input SendTemplateInput) (*SendResult, error)
}

// CloudAPIClient talks to the Meta Graph API.
type CloudAPIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewCloudAPIClient() *CloudAPIClient {
	return &CloudAPIClient{
		BaseURL: config.AppConfig.GraphAPIBaseURL,
		HTTPClient: &http.Client{
			Timeout: config.AppConfig.GraphAPITimeout,
		},
	}
}

type graphTemplatePayload struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Template         graphTemplate `json:"template"`
}

type graphTemplate struct {
	Name       string                     `json:"name"`
	Language   graphLanguage              `json:"language"`
	Components []models.TemplateComponent `json:"components,omitempty"`
}

type graphLanguage struct {
	Code string `json:"code"`
}

type graphSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *graphError `json:"error"`
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// SendTemplate posts one template message through the connection's phone
// number. API-level rejections (non-2xx with an error body) are reported in
// the result, not as errors.
func (wc *CloudAPIClient) SendTemplate(input SendTemplateInput) (*SendResult, error) {
	payload := graphTemplatePayload{
		MessagingProduct: "whatsapp",
		To:               input.To,
		Type:             "template",
		Template: graphTemplate{
			Name:       input.TemplateName,
			Language:   graphLanguage{Code: input.LanguageCode},
			Components: input.Components,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode template payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", wc.BaseURL, input.Connection.PhoneNumberID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+input.Connection.AccessToken)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := wc.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph api request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph api response: %w", err)
	}

	var parsed graphSendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("malformed graph api response: %w", err)
	}

	if parsed.Error != nil {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("(%d) %s", parsed.Error.Code, parsed.Error.Message),
		}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || len(parsed.Messages) == 0 {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("unexpected graph api status %d", resp.StatusCode),
		}, nil
	}

	return &SendResult{
		Success:   true,
		MessageID: parsed.Messages[0].ID,
	}, nil
}

// RemoteTemplate is one template as listed by the Graph API.
type RemoteTemplate struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name"`
	Language   string                     `json:"language"`
	Category   string                     `json:"category"`
	Status     string                     `json:"status"`
	Components []models.TemplateComponent `json:"components"`
}

type graphTemplateListResponse struct {
	Data  []RemoteTemplate `json:"data"`
	Error *graphError      `json:"error"`
}

// FetchTemplates lists the WABA's message templates. Unlike sends, this is a
// synchronous management call, so remote rejections surface as errors with
// the remote message attached.
func (wc *CloudAPIClient) FetchTemplates(connection *models.WhatsAppConnection) ([]RemoteTemplate, error) {
	url := fmt.Sprintf("%s/%s/message_templates?limit=100", wc.BaseURL, connection.WABAID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+connection.AccessToken)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := wc.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph api request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph api response: %w", err)
	}

	var parsed graphTemplateListResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("malformed graph api response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("template sync rejected: (%d) %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("template sync failed with status %d", resp.StatusCode)
	}

	return parsed.Data, nil
}
