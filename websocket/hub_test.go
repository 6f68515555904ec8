package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestClient(hub *Hub, jobID string, buffer int) *Client {
	return &Client{
		ID:    uuid.New(),
		JobID: jobID,
		Hub:   hub,
		Send:  make(chan StreamMessage, buffer),
	}
}

func receiveMessage(t *testing.T, ch chan StreamMessage) StreamMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stream message")
		return StreamMessage{}
	}
}

func waitForClosed(t *testing.T, ch chan StreamMessage) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for channel close")
		}
	}
}

func TestHubDeliversToJobSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	jobID := uuid.New().String()
	subscriber := newTestClient(hub, jobID, 8)
	other := newTestClient(hub, uuid.New().String(), 8)
	hub.register <- subscriber
	hub.register <- other

	hub.BroadcastToJob(jobID, map[string]int64{"processed_rows": 5000}, false)

	msg := receiveMessage(t, subscriber.Send)
	assert.Equal(t, MessageTypeProgress, msg.Type)
	assert.Equal(t, jobID, msg.JobID)
	assert.False(t, msg.terminal)

	// A subscriber of a different job never sees the update.
	select {
	case <-other.Send:
		t.Fatal("update leaked to an unrelated job stream")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversUpdatesInOrder(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	jobID := uuid.New().String()
	subscriber := newTestClient(hub, jobID, 16)
	hub.register <- subscriber

	for i := 1; i <= 5; i++ {
		hub.BroadcastToJob(jobID, int64(i*1000), false)
	}

	var last int64
	for i := 0; i < 5; i++ {
		msg := receiveMessage(t, subscriber.Send)
		processed := msg.Payload.(int64)
		assert.Greater(t, processed, last)
		last = processed
	}
}

func TestHubTerminalSnapshotPrecedesClose(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	jobID := uuid.New().String()
	subscriber := newTestClient(hub, jobID, 8)
	hub.register <- subscriber

	// Publish-then-close through the same channel preserves ordering.
	hub.BroadcastToJob(jobID, "final", true)
	hub.CloseJob(jobID)

	msg := receiveMessage(t, subscriber.Send)
	assert.True(t, msg.terminal)
	assert.Equal(t, "final", msg.Payload)

	waitForClosed(t, subscriber.Send)
	assert.Equal(t, 0, hub.GetJobSubscriberCount(jobID))
}

func TestHubTerminalNeverLostToClose(t *testing.T) {
	for trial := 0; trial < 200; trial++ {
		hub := NewHub()
		jobID := uuid.New().String()
		subscriber := newTestClient(hub, jobID, 8)
		hub.mu.Lock()
		hub.clients[subscriber] = true
		hub.mu.Unlock()

		// Both frames are already queued when the loop starts, the state
		// reached whenever the hub is busy while a job finishes.
		hub.BroadcastToJob(jobID, "final", true)
		hub.CloseJob(jobID)
		go hub.Run()

		msg, ok := <-subscriber.Send
		if !ok {
			t.Fatalf("stream closed before the terminal snapshot (trial %d)", trial)
		}
		assert.True(t, msg.terminal)
		waitForClosed(t, subscriber.Send)
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	jobID := uuid.New().String()
	slow := newTestClient(hub, jobID, 1)
	hub.register <- slow

	// Second update overflows the unread buffer; the consumer is dropped
	// rather than buffered without bound.
	hub.BroadcastToJob(jobID, 1, false)
	hub.BroadcastToJob(jobID, 2, false)

	deadline := time.After(time.Second)
	for hub.GetJobSubscriberCount(jobID) != 0 {
		select {
		case <-deadline:
			t.Fatal("slow consumer was never dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHubUnregisterIdempotentAfterClose(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	jobID := uuid.New().String()
	subscriber := newTestClient(hub, jobID, 8)
	hub.register <- subscriber

	hub.CloseJob(jobID)
	waitForClosed(t, subscriber.Send)

	// A read pump exiting afterwards must not double-close the channel.
	hub.unregister <- subscriber

	deadline := time.After(time.Second)
	for hub.GetClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client count never reached zero")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
