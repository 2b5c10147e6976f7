package websocket

import (
	"encoding/json"

	"github.com/isdelr/carlist-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Actions carried in Message.Action.
const (
	ActionEvent = "event"
	ActionPong  = "pong"
	ActionError = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// NewEventMessage wraps an activity event for delivery to the browser.
func NewEventMessage(event models.Event) []byte {
	return encode(Message{Action: ActionEvent, Payload: event})
}

// NewErrorMessage reports a problem with a message the client sent.
func NewErrorMessage(msg string) []byte {
	return encode(Message{Action: ActionError, Payload: map[string]string{"message": msg}})
}

// NewPongMessage answers an application-level ping.
func NewPongMessage() []byte {
	return encode(Message{Action: ActionPong})
}

func encode(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Str("action", m.Action).Msg("Failed to encode websocket message")
		return nil
	}
	return b
}
