// websocket/publisher.go
package websocket

import (
	importservices "product-importer-backend/imports/services"
)

// ProgressPublisher bridges the import pipeline to the stream hub.
type ProgressPublisher struct {
	hub *Hub
}

func NewProgressPublisher(hub *Hub) *ProgressPublisher {
	return &ProgressPublisher{hub: hub}
}

func (p *ProgressPublisher) PublishSnapshot(jobID string, snapshot importservices.Snapshot) {
	p.hub.BroadcastToJob(jobID, snapshot, snapshot.Status.IsTerminal())
}

func (p *ProgressPublisher) CloseJobStream(jobID string) {
	p.hub.CloseJob(jobID)
}
