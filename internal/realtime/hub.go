package realtime

import "context"

// message is a relayed change event for the viewers of timelineID.
type message struct {
	timelineID string
	data       []byte
}

// Hub owns the connected clients and fans messages out to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound messages from Redis.
	broadcast chan message

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed once Run has returned.
	done chan struct{}

	metrics *Metrics
}

func NewHub(metrics *Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    metrics,
	}
}

// Run serves registrations and broadcasts until ctx is done, then drops
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.metrics.connected(len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.wants(msg.timelineID) {
					continue
				}
				select {
				case client.send <- msg.data:
					h.metrics.delivered()
				default:
					h.drop(client)
				}
			}
		}
	}
}

// Publish queues data for the clients watching timelineID. It blocks until
// the hub takes the message or ctx is done.
func (h *Hub) Publish(ctx context.Context, timelineID string, data []byte) {
	select {
	case h.broadcast <- message{timelineID: timelineID, data: data}:
	case <-ctx.Done():
	case <-h.done:
	}
}

// Register adds client unless the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	_ = client.conn.Close()
	h.metrics.connected(len(h.clients))
}
