// Package database 封装了 GORM 数据库连接的初始化、事务与熔断保护。
package database

import (
	"context"
	"time"

	"github.com/wyfcoding/allowance/breaker"
	"github.com/wyfcoding/allowance/config"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/metrics"
	"github.com/wyfcoding/allowance/xerrors"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	defaultSlowThreshold = 200 * time.Millisecond
	errBadRequest        = 400
)

// DB 封装了 GORM 实例.
type DB struct {
	*gorm.DB
	breaker *breaker.Breaker
	logger  *logging.Logger
}

// NewDB 初始化并返回一个功能增强的数据库连接封装.
func NewDB(cfg config.DatabaseConfig, cbCfg config.CircuitBreakerConfig, logger *logging.Logger, m *metrics.Metrics) (*DB, error) {
	var dialer gorm.Dialector

	dsn := cfg.DSN
	switch cfg.Driver {
	case "mysql":
		dialer = mysql.Open(dsn)
	case "postgres":
		dialer = postgres.Open(dsn)
	case "sqlite":
		dialer = sqlite.Open(dsn)
	default:
		return nil, xerrors.New(xerrors.ErrInvalidArg, errBadRequest, "unsupported database driver", cfg.Driver, nil)
	}

	slowThreshold := cfg.SlowThreshold
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowThreshold
	}

	gormDB, err := gorm.Open(dialer, &gorm.Config{
		Logger:         logging.NewGormLogger(logger, slowThreshold),
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, xerrors.WrapInternal(err, "failed to open database connection")
	}

	if errTracing := gormDB.Use(tracing.NewPlugin()); errTracing != nil {
		return nil, xerrors.WrapInternal(errTracing, "failed to register gorm otel plugin")
	}

	sqlDB, errDB := gormDB.DB()
	if errDB != nil {
		return nil, xerrors.WrapInternal(errDB, "failed to get underlying sql.DB")
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	cb := breaker.NewBreaker(breaker.Settings{
		Name:         "database-" + cfg.Driver,
		Config:       cbCfg,
		FailureRatio: 0,
		MinRequests:  0,
		// 乐观并发冲突是业务信号而非数据库故障，不计入熔断统计。
		IgnoredErrors: []error{eventsourcing.ErrConcurrencyConflict},
	}, m)

	db := &DB{
		DB:      gormDB,
		breaker: cb,
		logger:  logger,
	}

	return db, nil
}

// Transaction 封装了带熔断保护的事务逻辑.
func (db *DB) Transaction(ctx context.Context, fc func(tx *gorm.DB) error) error {
	_, err := db.breaker.Execute(func() (any, error) {
		if errTx := db.DB.WithContext(ctx).Transaction(fc); errTx != nil {
			return nil, errTx
		}

		return struct{}{}, nil
	})

	return err
}

// RawDB 暴露原始 GORM 实例.
func (db *DB) RawDB() *gorm.DB {
	return db.DB
}
