// Package mongodb 封装了读模型投影存储使用的 MongoDB 客户端初始化。
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wyfcoding/allowance/config"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	mongoOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongo_ops_total",
			Help: "The total number of mongo operations",
		},
		[]string{"command", "status"},
	)
	mongoDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mongo_duration_seconds",
			Help:    "The duration of mongo operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(mongoOps, mongoDuration)
}

// NewMongoClient 初始化并返回一个带指标采集的 MongoDB 客户端及其清理闭包。
// 利用 CommandMonitor 自动采集每一次查询、写入的延迟与成功率。
func NewMongoClient(conf *config.MongoDBConfig) (*mongo.Client, func(), error) {
	connectTimeout := conf.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	monitor := &event.CommandMonitor{
		Succeeded: func(_ context.Context, evt *event.CommandSucceededEvent) {
			mongoOps.WithLabelValues(evt.CommandName, "success").Inc()
			mongoDuration.WithLabelValues(evt.CommandName).Observe(evt.Duration.Seconds())
		},
		Failed: func(_ context.Context, evt *event.CommandFailedEvent) {
			mongoOps.WithLabelValues(evt.CommandName, "failed").Inc()
			mongoDuration.WithLabelValues(evt.CommandName).Observe(evt.Duration.Seconds())
		},
	}

	clientOpts := options.Client().
		ApplyURI(conf.URI).
		SetMaxPoolSize(conf.MaxPoolSize).
		SetMonitor(monitor)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	slog.Info("mongodb client initialized successfully", "db", conf.Database)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			slog.Error("failed to disconnect from mongodb", "error", err)
		}
	}

	return client, cleanup, nil
}
