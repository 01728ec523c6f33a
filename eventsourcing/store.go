package eventsourcing

import (
	"context"
	"errors"
)

var (
	// ErrAggregateNotFound 聚合根不存在：请求的 ID 没有任何事件历史。
	ErrAggregateNotFound = errors.New("aggregate not found")
	// ErrConcurrencyConflict 乐观并发冲突：期望的起始版本号已被其他写入者占用。
	// 观测到的设计是快速失败并进入死信，不在存储层重试。
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// EventStore 事件存储接口。
// 每个聚合一条只追加的事件流，以 (aggregateID, version) 唯一约束
// 实现乐观并发控制。
type EventStore interface {
	// Save 将事件追加到聚合的事件流。
	// expectedVersion 为追加前的当前版本号，不匹配时返回 ErrConcurrencyConflict。
	Save(ctx context.Context, aggregateID string, events []DomainEvent, expectedVersion int64) error

	// Load 加载指定聚合的全部事件，按版本号升序。
	Load(ctx context.Context, aggregateID string) ([]DomainEvent, error)

	// LoadFromVersion 从指定版本号（包含）开始加载事件。
	LoadFromVersion(ctx context.Context, aggregateID string, fromVersion int64) ([]DomainEvent, error)

	// GetSnapshot 获取聚合最新快照，返回序列化状态与对应版本号。
	// 无快照时返回 (nil, 0, nil)。
	GetSnapshot(ctx context.Context, aggregateID string) ([]byte, int64, error)

	// SaveSnapshot 保存聚合快照，覆盖旧快照。
	SaveSnapshot(ctx context.Context, aggregateID string, state any, version int64) error
}

// SnapshotStrategy 快照策略接口。
type SnapshotStrategy interface {
	// ShouldSnapshot 判断本次提交后是否应该创建快照。
	ShouldSnapshot(aggregate Aggregate, committed int) bool
}

// IntervalSnapshotStrategy 基于版本间隔的快照策略。
// 间隔是可调参数而非业务规则，由配置决定。
type IntervalSnapshotStrategy struct {
	Interval int64
}

// NewIntervalSnapshotStrategy 创建基于间隔的快照策略。
func NewIntervalSnapshotStrategy(interval int64) *IntervalSnapshotStrategy {
	return &IntervalSnapshotStrategy{Interval: interval}
}

// ShouldSnapshot 当前版本跨过间隔倍数时触发快照。
func (s *IntervalSnapshotStrategy) ShouldSnapshot(aggregate Aggregate, committed int) bool {
	if s.Interval <= 0 {
		return false
	}

	version := aggregate.Version()

	return version/s.Interval > (version-int64(committed))/s.Interval
}

// NeverSnapshot 从不创建快照的策略。
type NeverSnapshot struct{}

// ShouldSnapshot 恒为 false。
func (NeverSnapshot) ShouldSnapshot(Aggregate, int) bool {
	return false
}
