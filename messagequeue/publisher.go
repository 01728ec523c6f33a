package messagequeue

import "context"

// Publisher 消息发布抽象。key 用于分区路由，聚合 ID 作键可保证同一聚合的命令有序。
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, body []byte) error
}

// CommandClient 面向某个主题发布命令消息。
type CommandClient struct {
	pub   Publisher
	topic string
}

// NewCommandClient 创建指向单一主题的命令发布客户端。
func NewCommandClient(pub Publisher, topic string) *CommandClient {
	return &CommandClient{pub: pub, topic: topic}
}

// Send 将命令编码后发布。key 通常为目标聚合的 ID。
func (c *CommandClient) Send(ctx context.Context, key string, name string, payload any) error {
	body, err := Encode(name, payload)
	if err != nil {
		return err
	}

	return c.pub.Publish(ctx, c.topic, []byte(key), body)
}
