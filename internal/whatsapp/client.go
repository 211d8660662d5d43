// Package whatsapp sends outbound messages through the Meta Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/log"
)

const graphAPIBase = "https://graph.facebook.com/v20.0"

type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	phoneNumberID string
	logger        *log.Logger
}

func NewClient(token, phoneNumberID string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       graphAPIBase,
		token:         token,
		phoneNumberID: phoneNumberID,
		logger:        logger.WithComponent(log.ComponentWhatsApp),
	}
}

// WithBaseURL overrides the Graph API endpoint. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// Send delivers a plain text message to the given phone number.
func (c *Client) Send(ctx context.Context, to, text string) error {
	body, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.ErrorContext(ctx, "WhatsApp send failed",
			log.FieldStatusCode, resp.StatusCode,
			"response", string(respBody))
		return fmt.Errorf("whatsapp API returned status %d", resp.StatusCode)
	}

	c.logger.DebugContext(ctx, "Message sent", log.FieldSender, to)
	return nil
}
