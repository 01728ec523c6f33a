// Package kafka 提供基于 segmentio/kafka-go 的命令消息生产者与消费者。
// 消费失败的消息连同错误信息一起写入共享死信主题后提交位移，不做重投递。
package kafka

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wyfcoding/allowance/config"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/metrics"
	"github.com/wyfcoding/allowance/retry"
	"github.com/wyfcoding/allowance/xerrors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var (
	mqProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mq_produced_total", Help: "消息生产总数"},
		[]string{"topic", "status"},
	)
	mqConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mq_consumed_total", Help: "消息消费总数"},
		[]string{"topic", "status"},
	)
	mqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_operation_duration_seconds",
			Help:    "MQ操作耗时",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic", "operation"},
	)
	mqLag = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_lag_seconds",
			Help:    "消息消费延迟",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(mqProduced, mqConsumed, mqDuration, mqLag)
}

// 死信消息附加的头部键。
const (
	HeaderOriginTopic   = "x-origin-topic"
	HeaderErrorCategory = "x-error-category"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// Handler 消息处理函数。
type Handler func(ctx context.Context, msg kafkago.Message) error

// Producer 多主题 Kafka 生产者，按消息键哈希分区以保证同聚合的命令有序。
type Producer struct {
	writer *kafkago.Writer
	logger *logging.Logger
}

// NewProducer 创建生产者。主题通过每条消息指定，不在 Writer 上固定。
func NewProducer(cfg config.KafkaConfig, logger *logging.Logger) *Producer {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		MaxAttempts:  maxAttempts,
		RequiredAcks: kafkago.RequireAll,
		Async:        cfg.Async,
	}

	return &Producer{writer: w, logger: logger}
}

// Publish 发布一条消息并注入链路追踪头。实现 messagequeue.Publisher。
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	start := time.Now()
	tracer := otel.Tracer("kafka-producer")
	ctx, span := tracer.Start(ctx, "Kafka.Publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	headers := make([]kafkago.Header, 0)
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}

	msg := kafkago.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: headers,
		Time:    time.Now(),
	}

	err := p.writer.WriteMessages(ctx, msg)
	mqDuration.WithLabelValues(topic, "publish").Observe(time.Since(start).Seconds())

	if err != nil {
		mqProduced.WithLabelValues(topic, "failed").Inc()
		span.SetStatus(codes.Error, err.Error())
		p.logger.ErrorContext(ctx, "failed to publish message", "topic", topic, "error", err)

		return xerrors.Unavailable("kafka publish failed", err)
	}

	mqProduced.WithLabelValues(topic, "success").Inc()

	return nil
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// DeadLetterWriter 将处理失败的原始消息写入共享死信主题。
type DeadLetterWriter struct {
	writer  *kafkago.Writer
	write   func(ctx context.Context, msgs ...kafkago.Message) error
	topic   string
	logger  *logging.Logger
	metrics *metrics.Metrics
	context string
	retry   retry.Config
}

// NewDeadLetterWriter 创建死信写入器。contextName 标识来源的限界上下文。
func NewDeadLetterWriter(cfg config.KafkaConfig, dlqTopic, contextName string, logger *logging.Logger, m *metrics.Metrics) *DeadLetterWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        dlqTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}

	retryCfg := retry.DefaultConfig()
	if cfg.RetryMax > 0 {
		retryCfg.MaxRetries = cfg.RetryMax
	}
	if cfg.RetryInitial > 0 {
		retryCfg.InitialBackoff = cfg.RetryInitial
	}
	if cfg.RetryMaxBackoff > 0 {
		retryCfg.MaxBackoff = cfg.RetryMaxBackoff
	}

	return &DeadLetterWriter{
		writer:  w,
		write:   w.WriteMessages,
		topic:   dlqTopic,
		logger:  logger,
		metrics: m,
		context: contextName,
		retry:   retryCfg,
	}
}

// buildDeadLetter 基于原始消息与失败原因构造死信消息。
// 原始消息头保留，来源主题、错误分类、错误消息与失败时间通过附加头部携带。
func buildDeadLetter(origin kafkago.Message, cause error) (kafkago.Message, string) {
	category := xerrors.TypeOf(cause).String()

	headers := append([]kafkago.Header(nil), origin.Headers...)
	headers = append(headers,
		kafkago.Header{Key: HeaderOriginTopic, Value: []byte(origin.Topic)},
		kafkago.Header{Key: HeaderErrorCategory, Value: []byte(category)},
		kafkago.Header{Key: HeaderErrorMessage, Value: []byte(cause.Error())},
		kafkago.Header{Key: HeaderFailedAt, Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	)

	return kafkago.Message{
		Key:     origin.Key,
		Value:   origin.Value,
		Headers: headers,
		Time:    time.Now(),
	}, category
}

// Write 将原始消息体连同失败原因写入死信主题。
func (d *DeadLetterWriter) Write(ctx context.Context, origin kafkago.Message, cause error) error {
	msg, category := buildDeadLetter(origin, cause)

	// 死信写入失败意味着原消息会被整体重投递，先在本地指数退避重试。
	err := retry.Retry(ctx, func() error {
		return d.write(ctx, msg)
	}, d.retry)
	if err != nil {
		mqProduced.WithLabelValues(d.topic, "failed").Inc()
		d.logger.ErrorContext(ctx, "failed to write dead letter",
			"origin_topic", origin.Topic, "offset", origin.Offset, "error", err)

		return xerrors.Unavailable("dead letter write failed", err)
	}

	mqProduced.WithLabelValues(d.topic, "success").Inc()
	if d.metrics != nil {
		d.metrics.DeadLetters.WithLabelValues(d.context, category).Inc()
	}
	d.logger.WarnContext(ctx, "message dead-lettered",
		"origin_topic", origin.Topic, "offset", origin.Offset,
		"category", category, "error", cause)

	return nil
}

// Close 关闭死信写入器。
func (d *DeadLetterWriter) Close() error {
	return d.writer.Close()
}

// Consumer 单协程串行消费者。一次只处理一条消息，处理完成后才提交位移，
// 等价于 prefetch=1 的拉取语义。
type Consumer struct {
	reader *kafkago.Reader
	dlq    *DeadLetterWriter
	logger *logging.Logger
}

// NewConsumer 创建指定主题的消费者。dlq 为 nil 时处理失败的消息仅记录日志后提交。
func NewConsumer(cfg config.KafkaConfig, topic string, dlq *DeadLetterWriter, logger *logging.Logger) *Consumer {
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = time.Second
	}

	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        maxWait,
		CommitInterval: 0,
	})

	return &Consumer{reader: r, dlq: dlq, logger: logger}
}

// Run 串行消费循环：拉取、处理、失败转死信、提交。
// 拉取错误记录后继续重试，连接中断由 Reader 自动重连。ctx 取消时退出。
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	tracer := otel.Tracer("kafka-consumer")

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch message", "error", err)

			continue
		}

		carrier := propagation.MapCarrier{}
		for _, h := range m.Headers {
			carrier[h.Key] = string(h.Value)
		}
		extractedCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)
		spanCtx, span := tracer.Start(extractedCtx, "Kafka.Consume", trace.WithSpanKind(trace.SpanKindConsumer))

		start := time.Now()
		handleErr := handler(spanCtx, m)

		mqDuration.WithLabelValues(m.Topic, "consume").Observe(time.Since(start).Seconds())
		mqLag.WithLabelValues(m.Topic).Observe(time.Since(m.Time).Seconds())

		if handleErr != nil {
			mqConsumed.WithLabelValues(m.Topic, "failed").Inc()
			span.SetStatus(codes.Error, handleErr.Error())

			if c.dlq != nil {
				if dlqErr := c.dlq.Write(spanCtx, m, handleErr); dlqErr != nil {
					// 死信写入失败时不提交位移，消息会被重新拉取。
					span.End()

					continue
				}
			} else {
				c.logger.ErrorContext(spanCtx, "message handler failed",
					"error", handleErr, "topic", m.Topic, "offset", m.Offset)
			}
		} else {
			mqConsumed.WithLabelValues(m.Topic, "success").Inc()
		}

		if commitErr := c.reader.CommitMessages(ctx, m); commitErr != nil {
			c.logger.ErrorContext(spanCtx, "failed to commit offset", "error", commitErr)
		}

		span.End()
	}
}

// Close 关闭消费者。
func (c *Consumer) Close() error {
	return c.reader.Close()
}
