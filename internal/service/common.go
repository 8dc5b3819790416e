package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fulfillment/internal/logger"
	"fulfillment/internal/model"
	"fulfillment/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// EventPublisher pushes fulfillment events to live dashboards. The websocket
// hub satisfies it; nil means events are dropped.
type EventPublisher interface {
	Publish(event string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// Clock returns the current time; tests swap it for a fixed one.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return page, limit
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, model.NewValidationError(field, "must be a valid UUID")
	}
	return id, nil
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, actor, action, entityID, entityName string, details interface{}) error {
	payload, _ := json.Marshal(details)
	if actor == "" {
		actor = "system"
	}
	entry := &model.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func formatDateTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateTimeLayout)
	return &s
}

func logFor(ctx context.Context, base *zap.Logger) *zap.Logger {
	return logger.FromContext(ctx, base)
}
