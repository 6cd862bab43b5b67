package sms

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

type termiiRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	SMS     string `json:"sms"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
	APIKey  string `json:"api_key"`
}

type termiiResponse struct {
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

// TermiiClient sends SMS to Nigerian numbers.
type TermiiClient struct {
	http   *resty.Client
	apiKey string
	sender string
}

func NewTermiiClient(opts ClientOptions) *TermiiClient {
	return &TermiiClient{
		http:   newRestyClient(opts),
		apiKey: opts.APIKey,
		sender: opts.SenderID,
	}
}

func (c *TermiiClient) Name() string { return "termii" }

func (c *TermiiClient) Send(ctx context.Context, to, message string) error {
	var result termiiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(termiiRequest{
			To:      strings.TrimPrefix(to, "+"),
			From:    c.sender,
			SMS:     message,
			Type:    "plain",
			Channel: "generic",
			APIKey:  c.apiKey,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/sms/send")
	if err != nil {
		return fmt.Errorf("termii request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("termii returned %d: %s", resp.StatusCode(), result.Message)
	}
	if result.MessageID == "" {
		return fmt.Errorf("termii did not accept message: %s", result.Message)
	}
	return nil
}
