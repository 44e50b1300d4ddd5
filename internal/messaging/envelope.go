package messaging

import (
	"encoding/json"
	"errors"
	"time"
)

// Metadata carries tracing context alongside the payload.
type Metadata struct {
	CorrelationID string `json:"correlationId,omitempty"`
	CausationID   string `json:"causationId,omitempty"`
	UserID        string `json:"userId,omitempty"`
}

// Envelope is the wire format shared by inbound and outbound messages:
// a type tag plus an opaque JSON payload.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  Metadata        `json:"metadata,omitempty"`
}

// Validate checks the envelope schema. A message failing this check can never
// be processed and goes straight to the dead-letter topic.
func (e Envelope) Validate() error {
	if e.EventID == "" {
		return errors.New("envelope missing eventId")
	}
	if e.EventType == "" {
		return errors.New("envelope missing eventType")
	}
	if len(e.Payload) == 0 {
		return errors.New("envelope missing payload")
	}
	return nil
}
