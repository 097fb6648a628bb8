package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/pliu/personifid/internal/metrics"
	"github.com/pliu/personifid/internal/models"
	"github.com/pliu/personifid/internal/xlog"
)

const eventBuffer = 256

type countRequest struct {
	accountID int64
	reply     chan int
}

// Hub fans resource events out to the WebSocket clients of the account that
// owns the resource. All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients, keyed by account.
	clients map[int64]map[*Client]struct{}

	// Events waiting to be delivered.
	events chan models.Event

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	counts chan countRequest
	done   chan struct{}

	upgrader websocket.Upgrader
}

// NewHub returns a hub that accepts upgrades from allowedOrigins. An empty
// list, or one containing "*", accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		events:     make(chan models.Event, eventBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countRequest),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
				return true
			}
			return slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Run delivers events until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = map[int64]map[*Client]struct{}{}
			return

		case client := <-h.register:
			set, ok := h.clients[client.accountID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.accountID] = set
			}
			set[client] = struct{}{}
			xlog.Debugf("ws client connected for user %d (total=%d)", client.accountID, len(set))

		case client := <-h.unregister:
			h.remove(client)

		case req := <-h.counts:
			req.reply <- len(h.clients[req.accountID])

		case event := <-h.events:
			h.deliver(event)
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.accountID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.accountID)
	}
}

func (h *Hub) deliver(event models.Event) {
	set := h.clients[event.AccountID]
	if len(set) == 0 {
		return
	}
	msg, err := json.Marshal(event)
	if err != nil {
		xlog.Errorf("marshal event %s: %v", event.Type, err)
		return
	}
	for client := range set {
		select {
		case client.send <- msg:
		default:
			// Slow consumer; its writePump exits once send is closed.
			xlog.Warnf("dropping slow ws client for user %d", client.accountID)
			h.remove(client)
		}
	}
}

// Publish queues e for delivery. It never blocks: when the queue is full
// the event is dropped.
func (h *Hub) Publish(e models.Event) {
	metrics.RecordEvent(string(e.Type))
	select {
	case h.events <- e:
	default:
		xlog.Warnf("event queue full, dropping %s for user %d", e.Type, e.AccountID)
	}
}

// Connected reports how many clients the account has open. It returns 0
// once the hub has stopped.
func (h *Hub) Connected(accountID int64) int {
	req := countRequest{accountID: accountID, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}
