package services

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EventType tags the lifecycle events a webhook can subscribe to.
type EventType string

const (
	EventProductCreated  EventType = "product.created"
	EventProductUpdated  EventType = "product.updated"
	EventProductDeleted  EventType = "product.deleted"
	EventImportStarted   EventType = "import.started"
	EventImportCompleted EventType = "import.completed"
	EventImportFailed    EventType = "import.failed"
)

// AllEventTypes lists every dispatchable event, in presentation order.
func AllEventTypes() []EventType {
	return []EventType{
		EventProductCreated,
		EventProductUpdated,
		EventProductDeleted,
		EventImportStarted,
		EventImportCompleted,
		EventImportFailed,
	}
}

// IsValid reports whether the value names a known event.
func (e EventType) IsValid() bool {
	for _, known := range AllEventTypes() {
		if e == known {
			return true
		}
	}
	return false
}

// Label renders a human-readable name, e.g. "Product Created".
func (e EventType) Label() string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(string(e), ".", " "))
}

// EventPayload is the outbound webhook body: event name, relevant data and
// the dispatch timestamp.
type EventPayload struct {
	Event     EventType   `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
