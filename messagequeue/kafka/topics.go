package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wyfcoding/allowance/config"
	"github.com/wyfcoding/allowance/xerrors"
)

// EnsureTopics 在集群控制节点上声明全部命令主题与死信主题。
// 主题已存在时为幂等操作。
func EnsureTopics(ctx context.Context, cfg config.KafkaConfig, topics config.TopicsConfig, partitions, replicationFactor int) error {
	if len(cfg.Brokers) == 0 {
		return xerrors.InvalidArg("no kafka brokers configured")
	}

	conn, err := kafkago.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return xerrors.Unavailable("failed to dial kafka broker", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return xerrors.Unavailable("failed to resolve kafka controller", err)
	}

	controllerConn, err := kafkago.DialContext(ctx, "tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return xerrors.Unavailable("failed to dial kafka controller", err)
	}
	defer controllerConn.Close()

	names := []string{
		topics.Bank,
		topics.Store,
		topics.Task,
		topics.Family,
		topics.Notification,
		topics.DLQ,
	}

	specs := make([]kafkago.TopicConfig, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		specs = append(specs, kafkago.TopicConfig{
			Topic:             name,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
	}

	if err := controllerConn.CreateTopics(specs...); err != nil {
		return xerrors.Unavailable(fmt.Sprintf("failed to create %d topics", len(specs)), err)
	}

	return nil
}
