// Package bootstrap 组装各限界上下文工作进程共享的基础设施：
// 配置、日志、追踪、指标、事件存储、读模型与消息队列客户端。
package bootstrap

import (
	"context"
	"flag"
	"fmt"

	"github.com/wyfcoding/allowance/config"
	"github.com/wyfcoding/allowance/cqrs"
	"github.com/wyfcoding/allowance/database"
	"github.com/wyfcoding/allowance/database/mongodb"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/eventsourcing/gormstore"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/messagequeue"
	"github.com/wyfcoding/allowance/messagequeue/kafka"
	"github.com/wyfcoding/allowance/metrics"
	"github.com/wyfcoding/allowance/notification"
	"github.com/wyfcoding/allowance/readmodel"
	"github.com/wyfcoding/allowance/tracing"
)

var confPath = flag.String("conf", "configs/config.toml", "配置文件路径")

// App 持有一个工作进程的全部共享依赖。
type App struct {
	Conf     *config.Config
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	Producer *kafka.Producer
	Read     readmodel.Store

	contextName string
	db          *database.DB
	registry    *eventsourcing.Registry
	cleanups    []func()
}

// New 加载配置并装配基础设施。contextName 标识限界上下文，
// 进入日志模块名、消费组与指标标签。
func New(contextName string) (*App, error) {
	flag.Parse()

	conf := &config.Config{}
	if err := config.Load(*confPath, conf); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logging.InitLogger(conf.Server.Name, contextName, conf.Log.Level)
	logger := logging.NewFromConfig(logging.Config{
		Service:    conf.Server.Name,
		Module:     contextName,
		Level:      conf.Log.Level,
		File:       conf.Log.File,
		MaxSize:    conf.Log.MaxSize,
		MaxBackups: conf.Log.MaxBackups,
		MaxAge:     conf.Log.MaxAge,
		Compress:   conf.Log.Compress,
	})

	app := &App{
		Conf:        conf,
		Logger:      logger,
		Metrics:     metrics.NewMetrics(conf.Server.Name),
		contextName: contextName,
		registry:    eventsourcing.NewRegistry(),
	}

	shutdownTracer, err := tracing.InitTracer(conf.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	app.cleanups = append(app.cleanups, func() {
		_ = shutdownTracer(context.Background())
	})

	db, err := database.NewDB(conf.Data.Database, conf.Data.Breaker, logger, app.Metrics)
	if err != nil {
		app.Close()

		return nil, fmt.Errorf("open event store database: %w", err)
	}
	app.db = db

	mongoClient, mongoCleanup, err := mongodb.NewMongoClient(&conf.Data.MongoDB)
	if err != nil {
		app.Close()

		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	app.cleanups = append(app.cleanups, mongoCleanup)
	app.Read = readmodel.NewMongoStore(mongoClient, conf.Data.MongoDB.Database)

	app.Producer = kafka.NewProducer(conf.MessageQueue.Kafka, logger)
	app.cleanups = append(app.cleanups, func() {
		_ = app.Producer.Close()
	})

	if conf.Metrics.Enabled {
		stop := app.Metrics.ExposeHttp(conf.Metrics.Port)
		app.cleanups = append(app.cleanups, stop)
	}

	return app, nil
}

// EventRegistry 返回事件类型注册表，各上下文在启动时登记自己的事件。
func (a *App) EventRegistry() *eventsourcing.Registry {
	return a.registry
}

// EventStore 在事件库上打开一条以 tableName 命名的事件流表。
// 写事务经由带熔断保护的数据库封装执行。
func (a *App) EventStore(tableName string) (eventsourcing.EventStore, error) {
	return gormstore.NewEventStore(a.db, a.registry, tableName)
}

// SnapshotStrategy 依据配置返回快照策略。
func (a *App) SnapshotStrategy() eventsourcing.SnapshotStrategy {
	if a.Conf.Snapshot.Interval > 0 {
		return eventsourcing.NewIntervalSnapshotStrategy(a.Conf.Snapshot.Interval)
	}

	return eventsourcing.NeverSnapshot{}
}

// CommandClient 返回面向指定主题的命令发送客户端。
func (a *App) CommandClient(topic string) *messagequeue.CommandClient {
	return messagequeue.NewCommandClient(a.Producer, topic)
}

// Notifier 返回发布到共享通知主题的通知器。
func (a *App) Notifier() notification.Notifier {
	return notification.NewTopicNotifier(a.Producer, a.Conf.Topics.Notification, a.Logger)
}

// CommandRegistry 返回带指标的命令注册表。
func (a *App) CommandRegistry() *cqrs.Registry {
	return cqrs.NewRegistry(a.contextName, a.Metrics)
}

// Consume 在指定主题上启动消费循环，阻塞直到 ctx 取消。
// 处理失败的消息写入共享死信主题后提交，保持消费位点前进。
func (a *App) Consume(ctx context.Context, topic string, handler kafka.Handler) error {
	dlq := kafka.NewDeadLetterWriter(a.Conf.MessageQueue.Kafka, a.Conf.Topics.DLQ, a.contextName, a.Logger, a.Metrics)
	defer dlq.Close()

	consumer := kafka.NewConsumer(a.Conf.MessageQueue.Kafka, topic, dlq, a.Logger)
	defer consumer.Close()

	a.Logger.InfoContext(ctx, "consumer starting", "topic", topic, "group", a.Conf.MessageQueue.Kafka.GroupID)

	return consumer.Run(ctx, handler)
}

// Close 逆序释放全部资源。
func (a *App) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}
