package events

import (
	"time"
)

// Record is one audit entry in a planning run's stream
type Record struct {
	Type      string      `json:"type"`
	RunID     string      `json:"run_id"`
	Version   int         `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type Handler interface {
	Handle(record Record) error
	CanHandle(eventType string) bool
}

// HandlerFunc adapts a function into a Handler that accepts every event type
type HandlerFunc func(record Record) error

func (f HandlerFunc) Handle(record Record) error {
	return f(record)
}

func (f HandlerFunc) CanHandle(string) bool {
	return true
}

type Store interface {
	Append(runID, eventType string, data interface{}) (Record, error)
	Read(runID string, fromVersion int) ([]Record, error)
	ReadAll(fromPosition int) ([]Record, error)
	Subscribe(eventTypes []string, handler Handler)
}
