package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/fvorders/fvorders-api/services"
)

// PublishedEvent is one call to RecordingPublisher.Publish
type PublishedEvent struct {
	Topic string
	Key   string
	Event services.Event
}

// RecordingPublisher keeps every event in memory
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, topic, key string, ev services.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, PublishedEvent{Topic: topic, Key: key, Event: ev})
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

// Events returns a copy of the recorded events
func (p *RecordingPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}

// Types returns the recorded event types in publish order
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Event.Type)
	}
	return types
}

// MemoryIdempotencyStore is an IdempotencyStore backed by a map
type MemoryIdempotencyStore struct {
	mu        sync.Mutex
	keys      map[string]uint
	LookupErr error
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{keys: make(map[string]uint)}
}

func (s *MemoryIdempotencyStore) Lookup(_ context.Context, key string) (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LookupErr != nil {
		return 0, false, s.LookupErr
	}
	id, ok := s.keys[key]
	return id, ok, nil
}

func (s *MemoryIdempotencyStore) Remember(_ context.Context, key string, orderID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; !ok {
		s.keys[key] = orderID
	}
	return nil
}

// ErrStoreDown simulates an unreachable idempotency store
var ErrStoreDown = errors.New("store unavailable")
