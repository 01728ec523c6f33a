// Package memstore 提供内存事件存储，用于测试与本地开发。
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/wyfcoding/allowance/eventsourcing"
)

type storedEvent struct {
	eventType string
	version   int64
	data      []byte
}

type storedSnapshot struct {
	state   []byte
	version int64
}

// EventStore 内存 EventStore 实现。
// 事件经过 JSON 序列化存取，与持久化实现保持相同的回放路径。
type EventStore struct {
	mu        sync.Mutex
	registry  *eventsourcing.Registry
	streams   map[string][]storedEvent
	snapshots map[string]storedSnapshot
}

// NewEventStore 创建内存事件存储。
func NewEventStore(registry *eventsourcing.Registry) *EventStore {
	return &EventStore{
		registry:  registry,
		streams:   make(map[string][]storedEvent),
		snapshots: make(map[string]storedSnapshot),
	}
}

// Save 实现 EventStore 接口。
func (s *EventStore) Save(_ context.Context, aggregateID string, events []eventsourcing.DomainEvent, expectedVersion int64) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[aggregateID]

	var currentVersion int64
	if len(stream) > 0 {
		currentVersion = stream[len(stream)-1].version
	}

	if currentVersion != expectedVersion {
		return fmt.Errorf("%w: aggregate %s expected version %d, actual %d",
			eventsourcing.ErrConcurrencyConflict, aggregateID, expectedVersion, currentVersion)
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.EventType(), err)
		}
		stream = append(stream, storedEvent{
			eventType: event.EventType(),
			version:   event.Version(),
			data:      data,
		})
	}

	s.streams[aggregateID] = stream

	return nil
}

// Load 实现 EventStore 接口。
func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]eventsourcing.DomainEvent, error) {
	return s.LoadFromVersion(ctx, aggregateID, 0)
}

// LoadFromVersion 实现 EventStore 接口。
func (s *EventStore) LoadFromVersion(_ context.Context, aggregateID string, fromVersion int64) ([]eventsourcing.DomainEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []eventsourcing.DomainEvent
	for _, stored := range s.streams[aggregateID] {
		if stored.version < fromVersion {
			continue
		}
		event, err := s.registry.Decode(stored.eventType, stored.data)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, nil
}

// SaveSnapshot 实现 EventStore 接口。
func (s *EventStore) SaveSnapshot(_ context.Context, aggregateID string, state any, version int64) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[aggregateID] = storedSnapshot{state: data, version: version}

	return nil
}

// GetSnapshot 实现 EventStore 接口。
func (s *EventStore) GetSnapshot(_ context.Context, aggregateID string) ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.snapshots[aggregateID]
	if !ok {
		return nil, 0, nil
	}

	return snapshot.state, snapshot.version, nil
}
