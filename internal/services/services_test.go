package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/carlist-be/internal/auth"
	"github.com/isdelr/carlist-be/internal/database"
	"github.com/isdelr/carlist-be/internal/repository/sqlite"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := database.New(database.MemoryPath)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return sqlite.New(db)
}

type fixture struct {
	store    *sqlite.Store
	tokens   *auth.TokenManager
	hub      *recordingHub
	bus      *recordingPublisher
	events   *EventService
	auth     *AuthService
	listings *ListingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newStore(t)
	f := &fixture{
		store:  store,
		tokens: auth.NewTokenManager("test-secret", time.Hour),
		hub:    &recordingHub{},
		bus:    &recordingPublisher{},
	}
	f.events = NewEventService(store.Events(), f.hub, f.bus)
	f.auth = NewAuthService(store.Users(), auth.NewPasswordHasher(4), f.tokens, f.events)
	f.listings = NewListingService(store.Listings(), f.events)
	return f
}

type recordingHub struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (h *recordingHub) BroadcastTo(userID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.messages == nil {
		h.messages = map[string][][]byte{}
	}
	h.messages[userID] = append(h.messages[userID], message)
}

func (h *recordingHub) count(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages[userID])
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (p *recordingPublisher) Publish(eventType string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, eventType)
	return p.err
}
