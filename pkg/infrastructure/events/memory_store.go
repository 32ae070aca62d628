package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
)

// InMemoryStore keeps run streams in memory for the lifetime of the process
type InMemoryStore struct {
	streams     map[string][]Record
	subscribers map[string][]Handler
	allRecords  []Record
	mutex       sync.RWMutex
	now         func() time.Time
	log         *logger.Logger
}

func NewInMemoryStore(log *logger.Logger) *InMemoryStore {
	return &InMemoryStore{
		streams:     make(map[string][]Record),
		subscribers: make(map[string][]Handler),
		allRecords:  make([]Record, 0),
		now:         time.Now,
		log:         logger.OrNop(log),
	}
}

var _ Store = (*InMemoryStore)(nil)

// WithClock replaces the timestamp source
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Append(runID, eventType string, data interface{}) (Record, error) {
	if runID == "" {
		return Record{}, fmt.Errorf("run id cannot be empty")
	}
	if eventType == "" {
		return Record{}, fmt.Errorf("event type cannot be empty")
	}

	s.mutex.Lock()
	record := Record{
		Type:      eventType,
		RunID:     runID,
		Version:   len(s.streams[runID]) + 1,
		Timestamp: s.now(),
		Data:      data,
	}
	s.streams[runID] = append(s.streams[runID], record)
	s.allRecords = append(s.allRecords, record)
	handlers := append([]Handler(nil), s.subscribers[eventType]...)
	s.mutex.Unlock()

	for _, handler := range handlers {
		if !handler.CanHandle(eventType) {
			continue
		}
		if err := handler.Handle(record); err != nil {
			s.log.Warn("event handler failed", "event_type", eventType, "run_id", runID, "error", err)
		}
	}

	return record, nil
}

func (s *InMemoryStore) Read(runID string, fromVersion int) ([]Record, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := s.streams[runID]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(records) {
		return []Record{}, nil
	}

	out := make([]Record, len(records)-fromVersion+1)
	copy(out, records[fromVersion-1:])
	return out, nil
}

func (s *InMemoryStore) ReadAll(fromPosition int) ([]Record, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition >= len(s.allRecords) {
		return []Record{}, nil
	}

	out := make([]Record, len(s.allRecords)-fromPosition)
	copy(out, s.allRecords[fromPosition:])
	return out, nil
}

func (s *InMemoryStore) Subscribe(eventTypes []string, handler Handler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}
}
