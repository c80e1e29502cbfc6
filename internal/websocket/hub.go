package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/model"
)

// Client represents a WebSocket client. Send is never closed; done is closed
// once the hub drops the client.
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client for jobID with a send buffer of size buffer.
func NewClient(jobID string, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		JobID: jobID,
		Conn:  conn,
		Send:  make(chan []byte, buffer),
		done:  make(chan struct{}),
	}
}

// Done is closed when the hub no longer delivers to the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// trySend queues data unless the client was dropped or its buffer is full.
func (c *Client) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Hub fans job status updates out to the sockets watching each job.
type Hub struct {
	// Clients grouped by job ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	// last status seen per job, replayed to late subscribers
	last map[string][]byte

	// closed when Run returns
	done     chan struct{}
	stopOnce sync.Once

	mu  sync.RWMutex
	log *zap.Logger
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	JobID    string
	Message  []byte
	Terminal bool
}

// NewHub creates a new Hub
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		last:       make(map[string][]byte),
		done:       make(chan struct{}),
		log:        log.Named("ws"),
	}
}

// Run processes registrations and broadcasts until ctx is done. After it
// returns, Register drops new clients and Unregister is a no-op.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			if msg, ok := h.last[client.JobID]; ok {
				client.trySend(msg)
			}
			h.mu.Unlock()
			h.log.Debug("client registered", zap.String("job_id", client.JobID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.log.Debug("client unregistered", zap.String("job_id", client.JobID))

		case msg := <-h.broadcast:
			h.mu.Lock()
			if msg.Terminal {
				delete(h.last, msg.JobID)
			} else {
				h.last[msg.JobID] = msg.Message
			}
			for client := range h.clients[msg.JobID] {
				if !client.trySend(msg.Message) {
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops client; callers hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.JobID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	client.close()
	if len(clients) == 0 {
		delete(h.clients, client.JobID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// Register adds a new client. A client registered after the hub stopped is
// closed right away.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

// Subscribers returns how many sockets watch jobID.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[jobID])
}

// BroadcastStatus publishes a workflow status. A finished status with a
// video URL is sent as a completion message instead.
func (h *Hub) BroadcastStatus(res *model.JobStatusResponse) {
	if res.Finished() {
		h.BroadcastComplete(res.JobID, res.VideoURL)
		return
	}
	h.publish(res.JobID, model.WSStatusMessage{
		Type:   model.WSMessageTypeStatus,
		JobID:  res.JobID,
		Status: res.Status,
	}, false)
}

// BroadcastComplete sends a completion message to all job subscribers
func (h *Hub) BroadcastComplete(jobID, videoURL string) {
	h.publish(jobID, model.WSCompleteMessage{
		Type:     model.WSMessageTypeComplete,
		JobID:    jobID,
		VideoURL: videoURL,
	}, true)
}

func (h *Hub) publish(jobID string, msg interface{}, terminal bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{JobID: jobID, Message: data, Terminal: terminal}:
	default:
		h.log.Warn("broadcast queue full, dropping update", zap.String("job_id", jobID))
	}
}

// HandleConnection handles a WebSocket connection
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := NewClient(jobID, c, 16)

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-client.Done():
				c.WriteMessage(websocket.CloseMessage, []byte{})
				// unblocks the reader of a dropped client
				c.Close()
				return

			case message := <-client.Send:
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
				h.log.Warn("websocket error", zap.Error(err))
			}
			break
		}

		// Handle client messages (ping/pong)
		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			client.trySend(data)
		}
	}
}
