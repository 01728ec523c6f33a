// Package task 实现任务限界上下文：家务任务的创建、取证与完成。
package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/money"
)

// Status 任务状态。线路枚举值与存量数据保持一致。
type Status int

const (
	StatusComplete Status = iota
	StatusIncomplete
	StatusAwarded
)

// Task 任务聚合根。
type Task struct {
	eventsourcing.AggregateRoot

	OwnerID          string
	Name             string
	Description      string
	Status           Status
	Value            money.Money
	EvidenceRequired bool
	EvidenceData     []byte
	DueDate          time.Time
	CreatedAt        time.Time
}

// NewBlankTask 返回零状态任务，供回放使用。
func NewBlankTask() *Task {
	return &Task{}
}

// CreateTask 创建新任务，初始状态为未完成。
func CreateTask(ownerID uuid.UUID, name, description string, dueDate time.Time, evidenceRequired bool, value money.Money) (*Task, error) {
	t := NewBlankTask()

	ev := &TaskCreated{
		EventModel:       eventsourcing.NewEventModel(uuid.NewString()),
		OwnerID:          ownerID.String(),
		Name:             name,
		Description:      description,
		DueDate:          dueDate,
		EvidenceRequired: evidenceRequired,
		Value:            value,
		CreatedAt:        time.Now().UTC(),
	}

	return t, t.raise(ev)
}

// MarkComplete 将任务标记为完成。
// 重复完成不做拒绝，与重投递语义保持一致。
func (t *Task) MarkComplete() error {
	ev := &TaskCompleted{
		EventModel: eventsourcing.NewEventModel(t.ID()),
	}

	return t.raise(ev)
}

// AttachEvidence 附加完成凭证。任务未要求凭证时为软性空操作，
// 不产生事件，返回 false。
func (t *Task) AttachEvidence(data []byte) (bool, error) {
	if !t.EvidenceRequired {
		return false, nil
	}

	ev := &EvidenceAttached{
		EventModel: eventsourcing.NewEventModel(t.ID()),
		Data:       data,
	}

	if err := t.raise(ev); err != nil {
		return false, err
	}

	return true, nil
}

// ChangeValue 调整任务价值。
func (t *Task) ChangeValue(value money.Money) error {
	ev := &ValueChanged{
		EventModel: eventsourcing.NewEventModel(t.ID()),
		Value:      value,
	}

	return t.raise(ev)
}

func (t *Task) raise(ev eventsourcing.DomainEvent) error {
	if err := t.Apply(ev); err != nil {
		return err
	}
	t.Record(ev)

	return nil
}

// Apply 实现 eventsourcing.EventApplier。
func (t *Task) Apply(event eventsourcing.DomainEvent) error {
	switch ev := event.(type) {
	case *TaskCreated:
		t.SetID(ev.AggregateID())
		t.OwnerID = ev.OwnerID
		t.Name = ev.Name
		t.Description = ev.Description
		t.Status = StatusIncomplete
		t.Value = ev.Value
		t.EvidenceRequired = ev.EvidenceRequired
		t.DueDate = ev.DueDate
		t.CreatedAt = ev.CreatedAt
	case *TaskCompleted:
		t.Status = StatusComplete
	case *EvidenceAttached:
		t.EvidenceData = ev.Data
	case *ValueChanged:
		t.Value = ev.Value
	default:
		return fmt.Errorf("task: unknown event type %T", event)
	}

	return nil
}

type taskSnapshot struct {
	OwnerID          string      `json:"owner_id"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Status           Status      `json:"status"`
	Value            money.Money `json:"value"`
	EvidenceRequired bool        `json:"evidence_required"`
	EvidenceData     []byte      `json:"evidence_data,omitempty"`
	DueDate          time.Time   `json:"due_date"`
	CreatedAt        time.Time   `json:"created_at"`
}

// SnapshotState 实现 eventsourcing.Snapshotter。
func (t *Task) SnapshotState() any {
	return taskSnapshot{
		OwnerID:          t.OwnerID,
		Name:             t.Name,
		Description:      t.Description,
		Status:           t.Status,
		Value:            t.Value,
		EvidenceRequired: t.EvidenceRequired,
		EvidenceData:     t.EvidenceData,
		DueDate:          t.DueDate,
		CreatedAt:        t.CreatedAt,
	}
}

// RestoreSnapshot 实现 eventsourcing.Snapshotter。
func (t *Task) RestoreSnapshot(data []byte) error {
	var snap taskSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("task: restore snapshot: %w", err)
	}

	t.OwnerID = snap.OwnerID
	t.Name = snap.Name
	t.Description = snap.Description
	t.Status = snap.Status
	t.Value = snap.Value
	t.EvidenceRequired = snap.EvidenceRequired
	t.EvidenceData = snap.EvidenceData
	t.DueDate = snap.DueDate
	t.CreatedAt = snap.CreatedAt

	return nil
}
