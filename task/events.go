package task

import (
	"time"

	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/money"
)

// TaskCreated 任务创建事件。
type TaskCreated struct {
	eventsourcing.EventModel

	OwnerID          string      `json:"owner_id"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	DueDate          time.Time   `json:"due_date"`
	EvidenceRequired bool        `json:"evidence_required"`
	Value            money.Money `json:"value"`
	CreatedAt        time.Time   `json:"created_at"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*TaskCreated) EventType() string { return "task.TaskCreated" }

// TaskCompleted 任务完成事件。
type TaskCompleted struct {
	eventsourcing.EventModel
}

// EventType 实现 eventsourcing.DomainEvent。
func (*TaskCompleted) EventType() string { return "task.TaskCompleted" }

// EvidenceAttached 凭证附加事件。
type EvidenceAttached struct {
	eventsourcing.EventModel

	Data []byte `json:"data"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*EvidenceAttached) EventType() string { return "task.EvidenceAttached" }

// ValueChanged 任务价值调整事件。
type ValueChanged struct {
	eventsourcing.EventModel

	Value money.Money `json:"value"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*ValueChanged) EventType() string { return "task.ValueChanged" }

// RegisterEvents 向事件注册表登记本上下文的全部事件类型。
func RegisterEvents(r *eventsourcing.Registry) {
	r.Register(func() eventsourcing.DomainEvent { return &TaskCreated{} })
	r.Register(func() eventsourcing.DomainEvent { return &TaskCompleted{} })
	r.Register(func() eventsourcing.DomainEvent { return &EvidenceAttached{} })
	r.Register(func() eventsourcing.DomainEvent { return &ValueChanged{} })
}
