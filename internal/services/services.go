package services

import (
	"context"
	"regexp"
	"strings"

	"warehousepos/internal/models"
	"warehousepos/pkg/logger"
)

// EventPublisher pushes events to a tenant's realtime channel.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// SMSSender delivers a text message to an E.164 number.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// publish is best effort: realtime delivery never fails the operation that produced the event.
func publish(ctx context.Context, pub EventPublisher, log *logger.Logger, event models.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		log.Error(ctx, "publish realtime event", err)
	}
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases s and joins its alphanumeric runs with dashes.
func slugify(s string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-"), "-")
}
