// Package notification 定义对外通知消息及其发布器。
// 通知在本地事件提交之后发布，发布失败只记录日志，不回滚命令。
package notification

import (
	"context"

	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/messagequeue"
)

// Notification 通知消息。
type Notification interface {
	// NotificationName 返回线路上的通知名称。
	NotificationName() string
	// Key 返回分区路由键。
	Key() string
}

// BankAccountCreated 账户创建完成通知。
type BankAccountCreated struct {
	AccountID string `json:"account_id"`
}

func (BankAccountCreated) NotificationName() string { return "BankAccountCreatedNotification" }
func (n BankAccountCreated) Key() string            { return n.AccountID }

// BankTransactionProcessed 交易入账完成通知。
type BankTransactionProcessed struct {
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
}

func (BankTransactionProcessed) NotificationName() string {
	return "BankTransactionProcessedNotification"
}
func (n BankTransactionProcessed) Key() string { return n.AccountID }

// ChildCreated 子女账户创建完成通知。
type ChildCreated struct {
	FamilyID string `json:"family_id"`
	ChildID  string `json:"child_id"`
}

func (ChildCreated) NotificationName() string { return "ChildCreatedNotification" }
func (n ChildCreated) Key() string            { return n.FamilyID }

// Notifier 通知发布器。
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// TopicNotifier 将通知发布到共享通知主题。
type TopicNotifier struct {
	client *messagequeue.CommandClient
	logger *logging.Logger
}

// NewTopicNotifier 创建通知发布器。
func NewTopicNotifier(pub messagequeue.Publisher, topic string, logger *logging.Logger) *TopicNotifier {
	return &TopicNotifier{
		client: messagequeue.NewCommandClient(pub, topic),
		logger: logger,
	}
}

// Notify 发布一条通知。失败只告警，由下游依赖最终一致性补偿。
func (t *TopicNotifier) Notify(ctx context.Context, n Notification) {
	if err := t.client.Send(ctx, n.Key(), n.NotificationName(), n); err != nil {
		t.logger.WarnContext(ctx, "notification publish failed",
			"notification", n.NotificationName(), "key", n.Key(), "error", err)
	}
}

// NopNotifier 空通知器，用于测试与未配置通知主题的场景。
type NopNotifier struct{}

// Notify 丢弃通知。
func (NopNotifier) Notify(context.Context, Notification) {}
