// Package events defines the domain-event contract the application services
// publish through.  The transport lives in infrastructure/messaging; services
// only see the Publisher port.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vigiamx/satavisos/pkg/types/common"
)

// Event type names, also used as the Kafka topic suffix.
const (
	TypeAlertCreated       = "alert.created"
	TypeAlertOverdue       = "alert.overdue"
	TypeAlertCancelled     = "alert.cancelled"
	TypeNoticeGenerated    = "notice.generated"
	TypeNoticeSubmitted    = "notice.submitted"
	TypeNoticeAcknowledged = "notice.acknowledged"
)

// Envelope is the wire format for every domain event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OrgID      common.OrgID    `json:"org_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// New builds an envelope around a JSON-serializable payload.
func New(eventType string, orgID common.OrgID, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.New().String(),
		Type:       eventType,
		OrgID:      orgID,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// Publisher delivers envelopes to the event bus.  Publishing is best-effort
// from the services' point of view: a failed publish is logged, never
// propagated, so the state change that triggered it stands.
type Publisher interface {
	Publish(ctx context.Context, e Envelope) error
}

// NopPublisher discards every event.  CLI commands and tests use it.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Envelope) error { return nil }
