package sms

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

type mnotifyRequest struct {
	Recipient    []string `json:"recipient"`
	Sender       string   `json:"sender"`
	Message      string   `json:"message"`
	IsSchedule   bool     `json:"is_schedule"`
	ScheduleDate string   `json:"schedule_date"`
}

type mnotifyResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MNotifyClient sends SMS to Ghanaian numbers.
type MNotifyClient struct {
	http   *resty.Client
	apiKey string
	sender string
}

func NewMNotifyClient(opts ClientOptions) *MNotifyClient {
	return &MNotifyClient{
		http:   newRestyClient(opts),
		apiKey: opts.APIKey,
		sender: opts.SenderID,
	}
}

func (c *MNotifyClient) Name() string { return "mnotify" }

func (c *MNotifyClient) Send(ctx context.Context, to, message string) error {
	var result mnotifyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(mnotifyRequest{
			Recipient: []string{strings.TrimPrefix(to, "+")},
			Sender:    c.sender,
			Message:   message,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/sms/quick")
	if err != nil {
		return fmt.Errorf("mnotify request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mnotify returned %d: %s", resp.StatusCode(), result.Message)
	}
	if result.Status != "success" {
		return fmt.Errorf("mnotify rejected message (code %s): %s", result.Code, result.Message)
	}
	return nil
}
