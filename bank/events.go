package bank

import (
	"time"

	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/money"
)

// AccountEstablished 账户建立事件。
type AccountEstablished struct {
	eventsourcing.EventModel

	OwnerID              string `json:"owner_id"`
	IsOverdraftProtected bool   `json:"is_overdraft_protected"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*AccountEstablished) EventType() string { return "bank.AccountEstablished" }

// TransactionApplied 交易入账事件。
type TransactionApplied struct {
	eventsourcing.EventModel

	TransactionID string            `json:"transaction_id"`
	ItemID        string            `json:"item_id"`
	Method        TransactionMethod `json:"method"`
	Value         money.Money       `json:"value"`
	CreatedAt     time.Time         `json:"created_at"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*TransactionApplied) EventType() string { return "bank.TransactionApplied" }

// RegisterEvents 向事件注册表登记本上下文的全部事件类型。
func RegisterEvents(r *eventsourcing.Registry) {
	r.Register(func() eventsourcing.DomainEvent { return &AccountEstablished{} })
	r.Register(func() eventsourcing.DomainEvent { return &TransactionApplied{} })
}
