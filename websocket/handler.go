// websocket/handler.go
package websocket

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	importservices "product-importer-backend/imports/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512 * 1024
)

// SnapshotReader resolves the current committed snapshot of a job.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context, jobID uuid.UUID) (*importservices.Snapshot, error)
}

type StreamHandler struct {
	hub      *Hub
	snapshot SnapshotReader
	logger   *zap.Logger
}

func NewStreamHandler(hub *Hub, snapshot SnapshotReader, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, snapshot: snapshot, logger: logger}
}

// Upgrade gates the stream route behind a proper websocket upgrade request.
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleImportStream serves GET /imports/:id/stream. The subscriber gets
// the job's current snapshot immediately, then every committed update in
// order. When the job reaches a terminal status the final snapshot is
// delivered and the stream is closed by the server.
func (h *StreamHandler) HandleImportStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		jobID, err := uuid.Parse(conn.Params("id"))
		if err != nil {
			h.writeError(conn, "Invalid import job ID")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		snapshot, err := h.snapshot.GetSnapshot(ctx, jobID)
		cancel()
		if err != nil {
			h.writeError(conn, "Import job not found")
			return
		}

		// A job that already finished gets its final snapshot and an
		// immediate close; there is nothing left to stream.
		if snapshot.Status.IsTerminal() {
			h.writeSnapshot(conn, jobID, *snapshot)
			h.writeClose(conn)
			return
		}

		// First frame is the snapshot loaded above, written directly while
		// no pump is running yet. Once registered, only the hub touches
		// client.Send.
		h.writeSnapshot(conn, jobID, *snapshot)

		client := &Client{
			ID:    uuid.New(),
			JobID: jobID.String(),
			Conn:  conn,
			Hub:   h.hub,
			Send:  make(chan StreamMessage, 32),
		}
		h.hub.register <- client

		// If the job finished between the load and the registration, the
		// terminal broadcast was missed; re-read and close out the stream
		// ourselves.
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		latest, err := h.snapshot.GetSnapshot(ctx, jobID)
		cancel()
		if err == nil && latest.Status.IsTerminal() {
			h.hub.unregister <- client
			h.writeSnapshot(conn, jobID, *latest)
			h.writeClose(conn)
			return
		}

		go client.writePump()
		client.readPump()
	})
}

func (h *StreamHandler) writeSnapshot(conn *websocket.Conn, jobID uuid.UUID, snapshot importservices.Snapshot) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(StreamMessage{
		Type:      MessageTypeProgress,
		Payload:   snapshot,
		Timestamp: time.Now(),
		JobID:     jobID.String(),
	}); err != nil {
		h.logger.Debug("Failed to write snapshot frame", zap.Error(err))
	}
}

func (h *StreamHandler) writeError(conn *websocket.Conn, reason string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteJSON(StreamMessage{
		Type:      MessageTypeError,
		Payload:   fiber.Map{"error": reason},
		Timestamp: time.Now(),
	})
	h.writeClose(conn)
}

func (h *StreamHandler) writeClose(conn *websocket.Conn) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump drains the connection. Subscribers never send application
// messages; reads exist to process control frames and detect disconnects.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the stream. A consumer that already saw the
				// terminal snapshot needs no marker; anyone else gets an
				// explicit end-of-stream frame before the close.
				if !c.terminalSeen() {
					c.Conn.WriteJSON(StreamMessage{
						Type:      MessageTypeStreamEnded,
						Timestamp: time.Now(),
						JobID:     c.JobID,
					})
					c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				}
				c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				return
			}
			if message.terminal {
				c.markTerminalSeen()
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) markTerminalSeen() {
	c.mu.Lock()
	c.sawTerminal = true
	c.mu.Unlock()
}

func (c *Client) terminalSeen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sawTerminal
}
