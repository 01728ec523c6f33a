// Package worker 实现命令工作进程的消息处理循环：
// 解析消息封装，按命令名顺序分发到对应的处理器。
package worker

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wyfcoding/allowance/cqrs"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/messagequeue"
	"github.com/wyfcoding/allowance/messagequeue/kafka"
)

// Worker 将消息体中的命令逐条分发到命令注册表。
type Worker struct {
	registry *cqrs.Registry
	logger   *logging.Logger
}

// New 创建命令工作器。
func New(registry *cqrs.Registry, logger *logging.Logger) *Worker {
	return &Worker{registry: registry, logger: logger}
}

// Process 处理一条原始消息体。封装中的多个命令按名称字典序依次分发，
// 任一命令失败即中止，整条消息作为失败处理。
func (w *Worker) Process(ctx context.Context, body []byte) error {
	env, err := messagequeue.DecodeEnvelope(body)
	if err != nil {
		return err
	}

	for _, name := range env.Names() {
		if err := w.registry.Dispatch(ctx, name, env[name]); err != nil {
			return err
		}
	}

	return nil
}

// Handler 返回可挂接到 Kafka 消费者的处理函数。
func (w *Worker) Handler() kafka.Handler {
	return func(ctx context.Context, msg kafkago.Message) error {
		return w.Process(ctx, msg.Value)
	}
}
