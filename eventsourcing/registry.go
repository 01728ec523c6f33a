package eventsourcing

import (
	"encoding/json"
	"fmt"
	"sync"
)

// EventFactory 构造一个空白事件实例，供存储层反序列化时还原具体类型。
type EventFactory func() DomainEvent

// Registry 事件类型注册表。
// 通用存储层无法得知具体事件类型，回放时通过注册表将持久化的
// JSON 载荷还原为各领域包定义的事件结构体。
type Registry struct {
	mu        sync.RWMutex
	factories map[string]EventFactory
}

// NewRegistry 创建空的事件类型注册表。
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]EventFactory),
	}
}

// Register 注册一个事件类型。重复注册同名类型直接 panic，
// 这是启动期的装配错误而非运行时状况。
func (r *Registry) Register(factory EventFactory) {
	prototype := factory()
	eventType := prototype.EventType()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[eventType]; ok {
		panic(fmt.Sprintf("event type %q already registered", eventType))
	}
	r.factories[eventType] = factory
}

// Decode 根据事件类型还原出具体事件实例。
func (r *Registry) Decode(eventType string, data []byte) (DomainEvent, error) {
	r.mu.RLock()
	factory, ok := r.factories[eventType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("decode event %q: %w", eventType, err)
	}

	return event, nil
}
