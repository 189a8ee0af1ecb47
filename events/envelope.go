package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// Envelope wraps an event with delivery metadata for external consumers.
type Envelope struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	AssetCode string           `json:"asset_code,omitempty"`
	EmittedAt time.Time        `json:"emitted_at"`
	Payload   interfaces.Event `json:"payload"`
}

// NewEnvelope assigns a fresh event id.
func NewEnvelope(event interfaces.Event, now time.Time) Envelope {
	env := Envelope{
		ID:        uuid.New(),
		Name:      event.EventName(),
		EmittedAt: now.UTC(),
		Payload:   event,
	}
	if scoped, ok := event.(interfaces.AssetScoped); ok {
		env.AssetCode = scoped.AssetCode().String()
	}
	return env
}
