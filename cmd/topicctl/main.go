// topicctl 按配置在 Kafka 集群上创建全部命令主题与死信主题。
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/wyfcoding/allowance/config"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/messagequeue/kafka"
)

func main() {
	confPath := flag.String("conf", "configs/config.toml", "配置文件路径")
	partitions := flag.Int("partitions", 3, "每个主题的分区数")
	replication := flag.Int("replication", 1, "副本因子")
	timeout := flag.Duration("timeout", 30*time.Second, "创建超时")
	flag.Parse()

	conf := &config.Config{}
	if err := config.Load(*confPath, conf); err != nil {
		os.Stderr.WriteString("load config failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	logging.InitLogger(conf.Server.Name, "topicctl", conf.Log.Level)
	logger := logging.Default()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := kafka.EnsureTopics(ctx, conf.MessageQueue.Kafka, conf.Topics, *partitions, *replication); err != nil {
		logger.ErrorContext(ctx, "ensure topics failed", "error", err)
		os.Exit(1)
	}

	logger.InfoContext(ctx, "topics ensured",
		"bank", conf.Topics.Bank,
		"store", conf.Topics.Store,
		"task", conf.Topics.Task,
		"family", conf.Topics.Family,
		"notification", conf.Topics.Notification,
		"dlq", conf.Topics.DLQ)
}
