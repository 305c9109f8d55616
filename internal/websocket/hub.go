package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/metrics"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Stages reported while a request moves through the pipeline
const (
	StageUploaded   = "uploaded"
	StageExtracting = "extracting"
	StageEstimating = "estimating"
	StageDone       = "done"
	StageFailed     = "failed"
)

// Hub maintains the set of active clients and routes progress to them by session
type Hub struct {
	// Registered clients by browser session ID
	clients map[string]map[*Client]bool

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	mutex  sync.RWMutex
	logger *zerolog.Logger
}

// ProgressUpdate is pushed to the browser while an analysis runs
type ProgressUpdate struct {
	Type      string    `json:"type"`
	Stage     string    `json:"stage"`
	JobID     string    `json:"job_id,omitempty"`
	State     string    `json:"state,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message represents a generic WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.Global(),
	}
}

// Run processes register and unregister requests until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			h.closeAll()
			return nil
		}
	}
}

// registerClient registers a new client
func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.SessionID] == nil {
		h.clients[client.SessionID] = make(map[*Client]bool)
	}
	h.clients[client.SessionID][client] = true

	metrics.Get().IncrementWSConnection()

	h.logger.Info().
		Str("session_id", client.SessionID).
		Int("session_connections", len(h.clients[client.SessionID])).
		Msg("WebSocket client registered")

	if data, ok := client.encode(Message{
		Type:      "connection",
		Data:      map[string]string{"status": "connected"},
		Timestamp: time.Now(),
	}); ok {
		client.queue(data)
	}
}

// unregisterClient unregisters a client
func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.removeLocked(client)
}

// removeLocked closes the client channel once. Caller holds the write lock.
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.Send)
	metrics.Get().DecrementWSConnection()

	if len(clients) == 0 {
		delete(h.clients, client.SessionID)
	}

	h.logger.Info().
		Str("session_id", client.SessionID).
		Int("remaining_connections", len(clients)).
		Msg("WebSocket client unregistered")
}

// closeAll drops every client on shutdown
func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// SendToSession sends a message to all connections of a browser session
func (h *Hub) SendToSession(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("Failed to marshal message for session")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, exists := h.clients[sessionID]
	if !exists {
		h.logger.Debug().
			Str("session_id", sessionID).
			Msg("No WebSocket connections found for session")
		return
	}

	for client := range clients {
		select {
		case client.Send <- data:
			metrics.Get().IncrementWSMessageOut()
		default:
			h.logger.Warn().
				Str("session_id", sessionID).
				Msg("Client send buffer full, closing connection")
			h.removeLocked(client)
		}
	}
}

// SendProgress stamps and sends a progress update to a session
func (h *Hub) SendProgress(sessionID string, progress ProgressUpdate) {
	if sessionID == "" {
		return
	}
	progress.Type = "progress"
	progress.Timestamp = time.Now()

	h.SendToSession(sessionID, progress)
}

// JobProgress converts an analysis job snapshot into a progress update
func JobProgress(job model.AnalysisJob) ProgressUpdate {
	stage := StageExtracting
	if job.State == model.AnalysisFailed {
		stage = StageFailed
	}
	return ProgressUpdate{
		Stage:    stage,
		JobID:    job.ID,
		State:    string(job.State),
		Attempts: job.Attempts,
	}
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}

// GetSessionConnectionCount returns the number of connections for a session
func (h *Hub) GetSessionConnectionCount(sessionID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients[sessionID])
}
