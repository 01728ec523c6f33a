// Package gormstore 提供基于 GORM 的事件存储实现，支持 MySQL、PostgreSQL 与 SQLite。
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/allowance/eventsourcing"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventModel 事件流持久化模型。
// (aggregate_id, version) 上的唯一索引即乐观并发控制的最终防线。
type EventModel struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	AggregateID string    `gorm:"type:varchar(64);index:idx_agg_ver,unique;not null"`
	Type        string    `gorm:"type:varchar(128);not null"`
	Version     int64     `gorm:"index:idx_agg_ver,unique;not null"`
	Data        string    `gorm:"type:json;not null"` // 事件载荷 (JSON)。
	OccurredAt  time.Time `gorm:"index;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// SnapshotModel 快照持久化模型，每个聚合仅保留最新一份。
type SnapshotModel struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	AggregateID string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Version     int64     `gorm:"not null"`
	State       string    `gorm:"type:json;not null"` // 聚合根状态 (JSON)。
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// DB 事件存储依赖的数据库能力。写路径经由 Transaction 执行，
// 调用方在其中附加熔断等保护；读路径直接使用原始实例。
type DB interface {
	Transaction(ctx context.Context, fc func(tx *gorm.DB) error) error
	RawDB() *gorm.DB
}

// EventStore 基于 GORM 的 EventStore 实现。
type EventStore struct {
	db        DB
	registry  *eventsourcing.Registry
	tableName string
}

// NewEventStore 创建新的 GORM EventStore。
// registry 用于在加载时将持久化事件还原为具体类型。
func NewEventStore(db DB, registry *eventsourcing.Registry, tableName string) (*EventStore, error) {
	if tableName == "" {
		tableName = "events"
	}

	store := &EventStore{
		db:        db,
		registry:  registry,
		tableName: tableName,
	}

	// 自动迁移。生产环境建议通过专门的 migration 工具管理。
	if err := db.RawDB().Table(tableName).AutoMigrate(&EventModel{}); err != nil {
		return nil, err
	}
	if err := db.RawDB().AutoMigrate(&SnapshotModel{}); err != nil {
		return nil, err
	}

	return store, nil
}

// Save 实现 EventStore 接口。
func (s *EventStore) Save(ctx context.Context, aggregateID string, events []eventsourcing.DomainEvent, expectedVersion int64) error {
	if len(events) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *gorm.DB) error {
		var currentVersion int64
		err := tx.Table(s.tableName).
			Where("aggregate_id = ?", aggregateID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&currentVersion).Error
		if err != nil {
			return err
		}

		// 新聚合的 expectedVersion 为 0。
		if currentVersion != expectedVersion {
			return fmt.Errorf("%w: aggregate %s expected version %d, actual %d",
				eventsourcing.ErrConcurrencyConflict, aggregateID, expectedVersion, currentVersion)
		}

		models := make([]*EventModel, 0, len(events))
		for _, event := range events {
			data, marshalErr := json.Marshal(event)
			if marshalErr != nil {
				return fmt.Errorf("marshal event %s: %w", event.EventType(), marshalErr)
			}

			models = append(models, &EventModel{
				AggregateID: aggregateID,
				Type:        event.EventType(),
				Version:     event.Version(),
				Data:        string(data),
				OccurredAt:  event.OccurredAt(),
			})
		}

		if createErr := tx.Table(s.tableName).Create(&models).Error; createErr != nil {
			// 预检与插入之间被并发写入者抢先时，由唯一索引兜底。
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: aggregate %s version race", eventsourcing.ErrConcurrencyConflict, aggregateID)
			}

			return createErr
		}

		return nil
	})
}

// Load 实现 EventStore 接口。
func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]eventsourcing.DomainEvent, error) {
	return s.LoadFromVersion(ctx, aggregateID, 0)
}

// LoadFromVersion 实现 EventStore 接口。
func (s *EventStore) LoadFromVersion(ctx context.Context, aggregateID string, fromVersion int64) ([]eventsourcing.DomainEvent, error) {
	var models []EventModel
	err := s.db.RawDB().WithContext(ctx).Table(s.tableName).
		Where("aggregate_id = ? AND version >= ?", aggregateID, fromVersion).
		Order("version ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	events := make([]eventsourcing.DomainEvent, 0, len(models))
	for _, model := range models {
		event, decodeErr := s.registry.Decode(model.Type, []byte(model.Data))
		if decodeErr != nil {
			return nil, decodeErr
		}
		events = append(events, event)
	}

	return events, nil
}

// SaveSnapshot 实现 EventStore 接口。
func (s *EventStore) SaveSnapshot(ctx context.Context, aggregateID string, state any, version int64) error {
	stateBytes, err := json.Marshal(state)
	if err != nil {
		return err
	}

	snapshot := SnapshotModel{
		AggregateID: aggregateID,
		Version:     version,
		State:       string(stateBytes),
	}

	return s.db.RawDB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "aggregate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "state", "updated_at"}),
	}).Create(&snapshot).Error
}

// GetSnapshot 实现 EventStore 接口。
func (s *EventStore) GetSnapshot(ctx context.Context, aggregateID string) ([]byte, int64, error) {
	var snapshot SnapshotModel
	err := s.db.RawDB().WithContext(ctx).Where("aggregate_id = ?", aggregateID).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, nil
		}

		return nil, 0, err
	}

	return []byte(snapshot.State), snapshot.Version, nil
}
