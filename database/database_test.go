package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wyfcoding/allowance/breaker"
	"github.com/wyfcoding/allowance/config"
	"github.com/wyfcoding/allowance/database"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/logging"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	}
	cbCfg := config.CircuitBreakerConfig{
		Enabled:     true,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
	}

	db, err := database.NewDB(cfg, cbCfg, logging.Default(), nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	return db
}

// 连续的事务失败应触发熔断，后续调用被快速拒绝。
func TestTransactionBreakerOpensOnRepeatedFailures(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("storage down")

	var sawOpen bool
	for i := 0; i < 10; i++ {
		err := db.Transaction(context.Background(), func(*gorm.DB) error {
			return boom
		})
		if errors.Is(err, breaker.ErrServiceUnavailable) {
			sawOpen = true

			break
		}
		if !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}

	if !sawOpen {
		t.Error("breaker never opened after repeated transaction failures")
	}
}

// 乐观并发冲突是业务信号，不应计入熔断失败统计。
func TestTransactionConflictsDoNotTripBreaker(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 20; i++ {
		err := db.Transaction(context.Background(), func(*gorm.DB) error {
			return fmt.Errorf("version race: %w", eventsourcing.ErrConcurrencyConflict)
		})
		if errors.Is(err, breaker.ErrServiceUnavailable) {
			t.Fatalf("breaker opened on conflict %d", i)
		}
		if !errors.Is(err, eventsourcing.ErrConcurrencyConflict) {
			t.Fatalf("conflict %d: err = %v", i, err)
		}
	}

	err := db.Transaction(context.Background(), func(*gorm.DB) error { return nil })
	if err != nil {
		t.Errorf("transaction after conflict storm: %v", err)
	}
}

type uniqueRow struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex;not null"`
}

// 唯一索引冲突必须被翻译为 gorm.ErrDuplicatedKey，
// 事件存储的并发兜底分支依赖这一分类。
func TestDuplicateKeyTranslated(t *testing.T) {
	db := newTestDB(t)

	if err := db.RawDB().AutoMigrate(&uniqueRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := db.RawDB().Create(&uniqueRow{Name: "first"}).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}

	err := db.RawDB().Create(&uniqueRow{Name: "first"}).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("duplicate insert err = %v, want gorm.ErrDuplicatedKey", err)
	}
}
