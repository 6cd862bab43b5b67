// Package sms sends text messages through the gateway that serves the recipient's country.
package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehousepos/pkg/logger"

	"github.com/go-resty/resty/v2"
)

// ErrUnsupportedRegion is returned for numbers outside the markets a gateway is configured for.
var ErrUnsupportedRegion = errors.New("sms: unsupported region")

// Sender delivers one message to one E.164 number.
type Sender interface {
	Send(ctx context.Context, to, message string) error
	Name() string
}

// ClientOptions are shared by every gateway client.
type ClientOptions struct {
	BaseURL    string
	APIKey     string
	SenderID   string
	Timeout    time.Duration
	RetryCount int
}

func newRestyClient(opts ClientOptions) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

// Router picks a Sender by dial-code prefix.
type Router struct {
	routes []route
	log    *logger.Logger
}

type route struct {
	prefix string
	sender Sender
}

func NewRouter(log *logger.Logger) *Router {
	return &Router{log: log}
}

// Handle routes numbers starting with prefix (e.g. "+233") to s.
func (r *Router) Handle(prefix string, s Sender) *Router {
	r.routes = append(r.routes, route{prefix: prefix, sender: s})
	return r
}

// SenderFor returns the gateway for a number, or ErrUnsupportedRegion.
func (r *Router) SenderFor(to string) (Sender, error) {
	for _, rt := range r.routes {
		if strings.HasPrefix(to, rt.prefix) {
			return rt.sender, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedRegion, maskPhone(to))
}

func (r *Router) Send(ctx context.Context, to, message string) error {
	s, err := r.SenderFor(to)
	if err != nil {
		return err
	}
	ctx = r.log.WithFields(ctx, map[string]any{"gateway": s.Name(), "to": maskPhone(to)})
	if err := s.Send(ctx, to, message); err != nil {
		r.log.Error(ctx, "sms send failed", err)
		return err
	}
	r.log.Info(ctx, "sms sent")
	return nil
}

func (r *Router) Name() string { return "router" }

// maskPhone keeps the dial code and the last three digits.
func maskPhone(p string) string {
	if len(p) <= 7 {
		return p
	}
	return p[:4] + strings.Repeat("*", len(p)-7) + p[len(p)-3:]
}
