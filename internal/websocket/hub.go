package websocket

import "github.com/rs/zerolog/log"

type delivery struct {
	userID  string
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and fans listing events out to the
// clients of the user they concern.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	deliver    chan delivery

	// A map of user IDs to the set of that user's connected clients.
	subscriptions map[string]map[*Client]bool

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		deliver:       make(chan delivery, 64),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run processes registrations and deliveries until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.addSubscription(client)
			log.Info().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case d := <-h.deliver:
			if d.client != nil {
				if h.clients[d.client] {
					h.send(d.client, d.message)
				}
				continue
			}
			for client := range h.subscriptions[d.userID] {
				h.send(client, d.message)
			}
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Register adds a client. It is a no-op once the hub is stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastTo queues message for every client connected as userID.
func (h *Hub) BroadcastTo(userID string, message []byte) {
	select {
	case h.deliver <- delivery{userID: userID, message: message}:
	case <-h.done:
	}
}

// SendTo queues message for a single client, if it is still connected.
func (h *Hub) SendTo(client *Client, message []byte) {
	select {
	case h.deliver <- delivery{client: client, message: message}:
	case <-h.done:
	}
}

func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		log.Warn().Str("user_id", client.UserID).Msg("Dropping slow websocket client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client) {
	if h.subscriptions[client.UserID] == nil {
		h.subscriptions[client.UserID] = make(map[*Client]bool)
	}
	h.subscriptions[client.UserID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	subs, ok := h.subscriptions[client.UserID]
	if !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.subscriptions, client.UserID)
	}
}
