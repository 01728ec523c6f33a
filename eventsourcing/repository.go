package eventsourcing

import (
	"context"
	"fmt"
)

// AggregateRepository 定义了聚合根的泛型仓储接口。
type AggregateRepository[A Aggregate] interface {
	// Save 保存聚合根中的未提交事件。
	Save(ctx context.Context, aggregate A) error
	// Load 通过 ID 加载聚合根并恢复其状态。
	Load(ctx context.Context, id string) (A, error)
}

// Repository 是基于泛型的事件溯源仓储实现。
type Repository[A Aggregate] struct {
	store    EventStore
	factory  func() A
	strategy SnapshotStrategy
}

// NewRepository 创建一个新的事件溯源仓储。
// factory 返回零状态的聚合根实例，用于回放。
func NewRepository[A Aggregate](store EventStore, factory func() A) *Repository[A] {
	return &Repository[A]{
		store:    store,
		factory:  factory,
		strategy: NeverSnapshot{},
	}
}

// WithSnapshotStrategy 设置快照策略。
func (r *Repository[A]) WithSnapshotStrategy(strategy SnapshotStrategy) *Repository[A] {
	if strategy != nil {
		r.strategy = strategy
	}

	return r
}

// Save 实现 AggregateRepository.Save。
// 成功提交后清空未提交事件队列；版本冲突原样透出 ErrConcurrencyConflict。
func (r *Repository[A]) Save(ctx context.Context, aggregate A) error {
	events := aggregate.UncommittedEvents()
	if len(events) == 0 {
		return nil
	}

	// 期望版本为应用新事件之前的版本。
	expectedVersion := aggregate.Version() - int64(len(events))
	if err := r.store.Save(ctx, aggregate.ID(), events, expectedVersion); err != nil {
		return fmt.Errorf("save events for aggregate %s: %w", aggregate.ID(), err)
	}

	aggregate.MarkCommitted()

	if r.strategy.ShouldSnapshot(aggregate, len(events)) {
		if snapshotter, ok := any(aggregate).(Snapshotter); ok {
			if err := r.store.SaveSnapshot(ctx, aggregate.ID(), snapshotter.SnapshotState(), aggregate.Version()); err != nil {
				// 快照失败不影响已提交的事件流，下次提交再尝试。
				return nil
			}
		}
	}

	return nil
}

// Load 实现 AggregateRepository.Load。
// 优先从最新快照恢复，再回放其后的事件；快照缺失时全量回放。
func (r *Repository[A]) Load(ctx context.Context, id string) (A, error) {
	var zero A

	aggregate := r.factory()
	aggregate.SetID(id)

	if snapshotter, ok := any(aggregate).(Snapshotter); ok {
		state, version, err := r.store.GetSnapshot(ctx, id)
		if err == nil && state != nil {
			if restoreErr := snapshotter.RestoreSnapshot(state); restoreErr == nil {
				aggregate.SetVersion(version)
			}
		}
	}

	events, err := r.store.LoadFromVersion(ctx, id, aggregate.Version()+1)
	if err != nil {
		return zero, fmt.Errorf("load events for aggregate %s: %w", id, err)
	}

	if len(events) == 0 && aggregate.Version() == 0 {
		return zero, fmt.Errorf("%w: %s", ErrAggregateNotFound, id)
	}

	if err := LoadFromHistory(aggregate, events); err != nil {
		return zero, fmt.Errorf("replay aggregate %s: %w", id, err)
	}

	return aggregate, nil
}
