package task

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/datetime"
)

// NewTask 创建任务命令。
type NewTask struct {
	OwnerID          string  `json:"owner_id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	DueDate          string  `json:"due_date"`
	EvidenceRequired bool    `json:"evidence_required"`
	Value            float64 `json:"value"`
}

// CommandName 实现 cqrs.Command。
func (NewTask) CommandName() string { return "NewTaskEvent" }

// Validate 实现 cqrs.Validator。
func (c NewTask) Validate() error {
	if _, err := uuid.Parse(c.OwnerID); err != nil {
		return fmt.Errorf("owner_id: %w", err)
	}
	if _, err := datetime.ParseISO8601(c.DueDate); err != nil {
		return fmt.Errorf("due_date: %w", err)
	}

	return nil
}

// MarkTaskComplete 任务完成命令。
type MarkTaskComplete struct {
	TaskID string `json:"task_id"`
}

// CommandName 实现 cqrs.Command。
func (MarkTaskComplete) CommandName() string { return "MarkTaskCompleteEvent" }

// Validate 实现 cqrs.Validator。
func (c MarkTaskComplete) Validate() error {
	if _, err := uuid.Parse(c.TaskID); err != nil {
		return fmt.Errorf("task_id: %w", err)
	}

	return nil
}

// UpdateTaskValue 任务价值调整命令。
type UpdateTaskValue struct {
	TaskID string  `json:"task_id"`
	Value  float64 `json:"value"`
}

// CommandName 实现 cqrs.Command。
func (UpdateTaskValue) CommandName() string { return "UpdateTaskValueEvent" }

// Validate 实现 cqrs.Validator。
func (c UpdateTaskValue) Validate() error {
	if _, err := uuid.Parse(c.TaskID); err != nil {
		return fmt.Errorf("task_id: %w", err)
	}

	return nil
}

// AddEvidence 附加凭证命令。data 在线路上为 base64 字符串。
type AddEvidence struct {
	TaskID string `json:"task_id"`
	Data   []byte `json:"data"`
}

// CommandName 实现 cqrs.Command。
func (AddEvidence) CommandName() string { return "AddEvidenceEvent" }

// Validate 实现 cqrs.Validator。
func (c AddEvidence) Validate() error {
	if _, err := uuid.Parse(c.TaskID); err != nil {
		return fmt.Errorf("task_id: %w", err)
	}

	return nil
}
