package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"

	"github.com/tryonlab/api/internal/model"
)

// Client represents a WebSocket subscriber of one progress channel
type Client struct {
	Channel string
	Conn    *websocket.Conn
	Send    chan []byte
}

// Hub maintains active WebSocket connections grouped by progress channel
type Hub struct {
	// Clients grouped by channel
	clients map[string]map[*Client]bool

	// Broadcast messages to channel subscribers
	broadcast chan *BroadcastMessage

	logger zerolog.Logger
	mu     sync.RWMutex
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	Channel string
	Message []byte
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:   make(map[string]map[*Client]bool),
		broadcast: make(chan *BroadcastMessage, 256),
		logger:    logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Run delivers queued broadcasts and returns when ctx is done. Registration
// does not depend on Run, so connections can always unregister.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.Channel]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.Message:
					default:
						// slow subscriber, skip this event
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if h.clients[client.Channel] == nil {
		h.clients[client.Channel] = make(map[*Client]bool)
	}
	h.clients[client.Channel][client] = true
	h.mu.Unlock()
	h.logger.Debug().Str("channel", client.Channel).Msg("client registered")
}

// Unregister removes a client and closes its send queue
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if clients, ok := h.clients[client.Channel]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)
			if len(clients) == 0 {
				delete(h.clients, client.Channel)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug().Str("channel", client.Channel).Msg("client unregistered")
}

// Subscribers returns the number of clients listening on channel
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[channel])
}

// BroadcastProgress sends a job transition to all channel subscribers
func (h *Hub) BroadcastProgress(channel string, job *model.Job, step string, attempt, progress int) {
	h.send(channel, model.WSProgressMessage{
		Type:     model.WSMessageTypeProgress,
		Channel:  channel,
		JobID:    job.ID,
		Flow:     job.Flow,
		Status:   job.Status,
		Step:     step,
		Attempt:  attempt,
		Progress: progress,
	})
}

// BroadcastComplete sends a completion message to all channel subscribers
func (h *Hub) BroadcastComplete(channel, jobID string, result *model.Outcome) {
	h.send(channel, model.WSCompleteMessage{
		Type:    model.WSMessageTypeComplete,
		Channel: channel,
		JobID:   jobID,
		Result:  result,
	})
}

// BroadcastError sends an error message to all channel subscribers
func (h *Hub) BroadcastError(channel, jobID, code, message string) {
	h.send(channel, model.WSErrorMessage{
		Type:    model.WSMessageTypeError,
		Channel: channel,
		JobID:   jobID,
		Error: model.WSError{
			Code:    code,
			Message: message,
		},
	})
}

// send never blocks the request path; events are dropped when the queue is
// full or nobody listens on channel
func (h *Hub) send(channel string, msg interface{}) {
	if h == nil || channel == "" || h.Subscribers(channel) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal ws message")
		return
	}

	select {
	case h.broadcast <- &BroadcastMessage{Channel: channel, Message: data}:
	default:
		h.logger.Warn().Str("channel", channel).Msg("broadcast queue full, dropping event")
	}
}

// HandleConnection handles a WebSocket connection
func (h *Hub) HandleConnection(c *websocket.Conn, channel string) {
	client := &Client{
		Channel: channel,
		Conn:    c,
		Send:    make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					_ = c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Str("channel", channel).Msg("websocket error")
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}
