package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/isdelr/carlist-be/internal/apperrors"
	"github.com/isdelr/carlist-be/internal/models"
	"github.com/isdelr/carlist-be/internal/repository"
	ws "github.com/isdelr/carlist-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// MaxEventLimit caps how many events GetRecentEvents returns.
const MaxEventLimit = 100

// Broadcaster pushes a websocket message to the clients of one user.
type Broadcaster interface {
	BroadcastTo(userID string, message []byte)
}

// Publisher forwards events to an external message bus.
type Publisher interface {
	Publish(eventType string, data []byte) error
}

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, userID, eventType, level, message string, listingID *string) error
	GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventService records user activity and fans it out to live subscribers.
type EventService struct {
	repo      repository.EventRepository
	hub       Broadcaster
	publisher Publisher
}

// NewEventService creates a new EventService. hub and publisher may be nil.
func NewEventService(repo repository.EventRepository, hub Broadcaster, publisher Publisher) *EventService {
	return &EventService{repo: repo, hub: hub, publisher: publisher}
}

// CreateEvent stores a new event, then pushes it to the user's websocket
// clients and the message bus. Fan-out failures are logged, not returned.
func (s *EventService) CreateEvent(ctx context.Context, userID, eventType, level, message string, listingID *string) error {
	event := models.Event{
		Type:      eventType,
		Level:     level,
		Message:   message,
		UserID:    userID,
		ListingID: listingID,
	}
	if err := s.repo.CreateEvent(ctx, &event); err != nil {
		return apperrors.Internal(err)
	}

	if s.hub != nil {
		if msg := ws.NewEventMessage(event); msg != nil {
			s.hub.BroadcastTo(userID, msg)
		}
	}
	if s.publisher != nil {
		data, err := json.Marshal(event)
		if err == nil {
			err = s.publisher.Publish(eventType, data)
		}
		if err != nil {
			log.Warn().Err(err).Str("event_type", eventType).Str("event_id", event.ID).Msg("Failed to publish event")
		}
	}
	return nil
}

// GetRecentEvents retrieves the most recent events of a user.
func (s *EventService) GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}
	events, err := s.repo.ListEventsByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return events, nil
}

// PruneBefore deletes every event older than cutoff.
func (s *EventService) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.repo.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return n, nil
}

// record is the fire-and-forget form used by the other services: the activity
// log never fails the operation that produced the event.
func record(ctx context.Context, events EventServiceProvider, userID, eventType, message string, listingID *string) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(ctx, userID, eventType, "info", message, listingID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("event_type", eventType).Msg("Failed to record event")
	}
}
