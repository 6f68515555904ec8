// websocket/hub.go
package websocket

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeProgress    MessageType = "PROGRESS_UPDATE"
	MessageTypeStreamEnded MessageType = "STREAM_ENDED"
	MessageTypeError       MessageType = "ERROR"
)

// StreamMessage is one frame pushed to a progress stream subscriber.
type StreamMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	JobID     string      `json:"jobId,omitempty"`

	terminal bool // marks the job's final snapshot; not serialized
}

type Client struct {
	ID    uuid.UUID
	JobID string
	Conn  *websocket.Conn
	Hub   *Hub
	Send  chan StreamMessage

	mu          sync.Mutex
	sawTerminal bool
}

type jobBroadcast struct {
	jobID   string
	message StreamMessage
	close   bool // end the job's streams instead of delivering a frame
}

// Hub fans committed progress snapshots out to the subscribers of each job.
// One producer (the progress tracker), N consumers (stream handlers); a
// job's stream lifetime is bounded by its terminal status. Nothing is
// buffered for disconnected subscribers.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan jobBroadcast
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan jobBroadcast, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case update := <-h.broadcast:
			if update.close {
				h.closeJobClients(update.jobID)
			} else {
				h.broadcastToJob(update.jobID, update.message)
			}
		}
	}
}

// BroadcastToJob queues a snapshot for every subscriber of the job. Updates
// are delivered in the order they were committed.
func (h *Hub) BroadcastToJob(jobID string, payload interface{}, terminal bool) {
	h.broadcast <- jobBroadcast{
		jobID: jobID,
		message: StreamMessage{
			Type:      MessageTypeProgress,
			Payload:   payload,
			Timestamp: time.Now(),
			JobID:     jobID,
			terminal:  terminal,
		},
	}
}

// CloseJob ends every subscriber stream for the job. The close rides the
// same channel as snapshots, so a terminal snapshot queued before it is
// delivered before any subscriber is closed.
func (h *Hub) CloseJob(jobID string) {
	h.broadcast <- jobBroadcast{jobID: jobID, close: true}
}

func (h *Hub) broadcastToJob(jobID string, message StreamMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.JobID != jobID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			// Slow consumer: drop it rather than buffer without bound.
			close(client.Send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeJobClients(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.JobID != jobID {
			continue
		}
		close(client.Send)
		delete(h.clients, client)
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetJobSubscriberCount returns the number of clients streaming one job.
func (h *Hub) GetJobSubscriberCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for client := range h.clients {
		if client.JobID == jobID {
			count++
		}
	}
	return count
}
