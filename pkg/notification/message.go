// Package notification delivers domain events to downstream consumers after the
// transaction that raised them has committed. Delivery is best effort: failures are
// logged and never reach the operation that produced the event.
package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	commondomain "orderservice/pkg/common/domain"
)

// Message is the envelope every sink receives.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewMessage(event commondomain.Event) (Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Message{}, errors.Wrapf(err, "failed to encode %s", event.Type())
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return Message{}, errors.WithStack(err)
	}
	return Message{
		ID:         id,
		Type:       event.Type(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}, nil
}

func (m Message) Encode() ([]byte, error) {
	body, err := json.Marshal(m)
	return body, errors.Wrapf(err, "failed to encode message %s", m.ID)
}
