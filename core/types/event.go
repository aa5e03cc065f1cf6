package types

// Event represents a structured state change recorded by the settlement core.
// Attributes are stringly typed so downstream indexers can consume them without
// schema knowledge.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// NewEvent constructs an event with a non-nil attribute map.
func NewEvent(eventType string) *Event {
	return &Event{Type: eventType, Attributes: make(map[string]string)}
}
