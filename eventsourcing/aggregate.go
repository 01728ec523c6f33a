// Package eventsourcing 提供事件溯源的核心抽象和基础设施。
package eventsourcing

import (
	"time"
)

// DomainEvent 领域事件基础接口。
// 具体事件类型自行携带载荷字段，载荷随事件整体序列化。
type DomainEvent interface {
	// EventType 返回事件类型标识，用于存储与回放时的类型还原。
	EventType() string
	// OccurredAt 返回事件发生时间。
	OccurredAt() time.Time
	// AggregateID 返回聚合根 ID。
	AggregateID() string
	// Version 返回事件版本号。
	Version() int64
	// SetVersion 设置事件版本号。
	SetVersion(version int64)
}

// EventModel 领域事件的公共字段，具体事件类型内嵌使用。
type EventModel struct {
	Timestamp time.Time `json:"occurred_at"`  // 事件发生时间。
	AggID     string    `json:"aggregate_id"` // 聚合根 ID。
	Ver       int64     `json:"version"`      // 事件版本（聚合根版本）。
}

// NewEventModel 创建事件公共字段。
func NewEventModel(aggregateID string) EventModel {
	return EventModel{
		Timestamp: time.Now().UTC(),
		AggID:     aggregateID,
	}
}

// OccurredAt 实现 DomainEvent 接口。
func (m *EventModel) OccurredAt() time.Time {
	return m.Timestamp
}

// AggregateID 实现 DomainEvent 接口。
func (m *EventModel) AggregateID() string {
	return m.AggID
}

// Version 实现 DomainEvent 接口。
func (m *EventModel) Version() int64 {
	return m.Ver
}

// SetVersion 实现 DomainEvent 接口。
func (m *EventModel) SetVersion(version int64) {
	m.Ver = version
}

// AggregateRoot 事件溯源聚合根基类。
// 版本号从 1 开始（创建事件），每提交一个事件严格加一，不重用。
type AggregateRoot struct {
	uncommitted []DomainEvent
	version     int64
	id          string
}

// ID 返回聚合根唯一标识。
func (a *AggregateRoot) ID() string {
	return a.id
}

// SetID 设置聚合根唯一标识。
func (a *AggregateRoot) SetID(id string) {
	a.id = id
}

// Version 返回聚合根当前版本号。
func (a *AggregateRoot) Version() int64 {
	return a.version
}

// SetVersion 设置聚合根版本号。
func (a *AggregateRoot) SetVersion(version int64) {
	a.version = version
}

// Record 记录一个新产生的领域事件并递增版本号。
// 调用方必须先完成校验与状态变更：校验失败时不得调用本方法，
// 保证失败的操作不会留下半成品状态或悬挂事件。
func (a *AggregateRoot) Record(event DomainEvent) {
	a.version++
	event.SetVersion(a.version)
	a.uncommitted = append(a.uncommitted, event)
}

// UncommittedEvents 获取所有未提交的领域事件。
func (a *AggregateRoot) UncommittedEvents() []DomainEvent {
	return a.uncommitted
}

// MarkCommitted 标记所有事件已提交，清空待提交队列。
func (a *AggregateRoot) MarkCommitted() {
	a.uncommitted = nil
}

// HasUncommittedEvents 检查是否有未提交的事件。
func (a *AggregateRoot) HasUncommittedEvents() bool {
	return len(a.uncommitted) > 0
}

// EventApplier 事件应用器接口。
type EventApplier interface {
	// Apply 将事件应用到聚合根状态，未知事件类型返回错误。
	Apply(event DomainEvent) error
}

// Aggregate 完整聚合接口。
type Aggregate interface {
	EventApplier
	ID() string
	Version() int64
	SetID(id string)
	SetVersion(version int64)
	Record(event DomainEvent)
	UncommittedEvents() []DomainEvent
	MarkCommitted()
}

// Snapshotter 支持快照的聚合根实现此接口。
// 快照仅是回放的性能优化，恢复结果必须与全量回放一致。
type Snapshotter interface {
	// SnapshotState 导出当前状态用于快照持久化。
	SnapshotState() any
	// RestoreSnapshot 从序列化的快照状态恢复。
	RestoreSnapshot(data []byte) error
}

// LoadFromHistory 从事件历史恢复聚合根状态。
// 回放结束后聚合根版本为最后一个事件的版本号。
func LoadFromHistory(aggregate Aggregate, events []DomainEvent) error {
	for _, event := range events {
		if err := aggregate.Apply(event); err != nil {
			return err
		}
		aggregate.SetVersion(event.Version())
	}

	return nil
}
