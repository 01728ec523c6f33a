package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/cqrs"
	"github.com/wyfcoding/allowance/datetime"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/money"
	"github.com/wyfcoding/allowance/readmodel"
	"github.com/wyfcoding/allowance/xerrors"
)

// Collection 读模型集合名。
const Collection = "tasks"

// Service 任务上下文应用服务。
type Service struct {
	repo   eventsourcing.AggregateRepository[*Task]
	read   readmodel.Store
	logger *logging.Logger
}

// NewService 创建任务应用服务。
func NewService(repo eventsourcing.AggregateRepository[*Task], read readmodel.Store, logger *logging.Logger) *Service {
	return &Service{repo: repo, read: read, logger: logger}
}

// RegisterCommands 将本服务的全部命令挂接到命令注册表。
func (s *Service) RegisterCommands(reg *cqrs.Registry) {
	cqrs.RegisterHandler(reg, func() *NewTask { return &NewTask{} }, s.HandleNewTask)
	cqrs.RegisterHandler(reg, func() *MarkTaskComplete { return &MarkTaskComplete{} }, s.HandleMarkTaskComplete)
	cqrs.RegisterHandler(reg, func() *UpdateTaskValue { return &UpdateTaskValue{} }, s.HandleUpdateTaskValue)
	cqrs.RegisterHandler(reg, func() *AddEvidence { return &AddEvidence{} }, s.HandleAddEvidence)
}

// HandleNewTask 创建任务。
func (s *Service) HandleNewTask(ctx context.Context, cmd *NewTask) error {
	dueDate, err := datetime.ParseISO8601(cmd.DueDate)
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "invalid due_date")
	}

	t, err := CreateTask(uuid.MustParse(cmd.OwnerID), cmd.Name, cmd.Description,
		dueDate, cmd.EvidenceRequired, money.New(cmd.Value))
	if err != nil {
		return err
	}

	if err := s.commit(ctx, t); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "task created",
		"task_id", t.ID(), "owner_id", t.OwnerID, "evidence_required", t.EvidenceRequired)

	return nil
}

// HandleMarkTaskComplete 完成任务。
func (s *Service) HandleMarkTaskComplete(ctx context.Context, cmd *MarkTaskComplete) error {
	t, err := s.repo.Load(ctx, cmd.TaskID)
	if err != nil {
		return s.storeErr(err, cmd.TaskID)
	}

	if err := t.MarkComplete(); err != nil {
		return err
	}

	if err := s.commit(ctx, t); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "task completed", "task_id", t.ID())

	return nil
}

// HandleUpdateTaskValue 调整任务价值。
func (s *Service) HandleUpdateTaskValue(ctx context.Context, cmd *UpdateTaskValue) error {
	t, err := s.repo.Load(ctx, cmd.TaskID)
	if err != nil {
		return s.storeErr(err, cmd.TaskID)
	}

	if err := t.ChangeValue(money.New(cmd.Value)); err != nil {
		return err
	}

	if err := s.commit(ctx, t); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "task value updated", "task_id", t.ID(), "value", cmd.Value)

	return nil
}

// HandleAddEvidence 附加凭证。任务未要求凭证时记录日志并吞掉，不入死信。
func (s *Service) HandleAddEvidence(ctx context.Context, cmd *AddEvidence) error {
	t, err := s.repo.Load(ctx, cmd.TaskID)
	if err != nil {
		return s.storeErr(err, cmd.TaskID)
	}

	attached, err := t.AttachEvidence(cmd.Data)
	if err != nil {
		return err
	}
	if !attached {
		s.logger.WarnContext(ctx, "evidence not required, ignoring", "task_id", t.ID())

		return nil
	}

	if err := s.commit(ctx, t); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "task evidence attached", "task_id", t.ID(), "bytes", len(cmd.Data))

	return nil
}

func (s *Service) commit(ctx context.Context, t *Task) error {
	if err := s.repo.Save(ctx, t); err != nil {
		return s.storeErr(err, t.ID())
	}

	view := taskView{
		ID:               t.ID(),
		OwnerID:          t.OwnerID,
		Name:             t.Name,
		Description:      t.Description,
		Status:           int(t.Status),
		Value:            t.Value.ToFloat(),
		EvidenceRequired: t.EvidenceRequired,
		HasEvidence:      len(t.EvidenceData) > 0,
		DueDate:          datetime.FormatISO8601(t.DueDate),
		CreatedAt:        datetime.FormatISO8601(t.CreatedAt),
		Version:          t.Version(),
	}

	return s.read.Upsert(ctx, Collection, t.ID(), view)
}

func (s *Service) storeErr(err error, taskID string) error {
	switch {
	case errors.Is(err, eventsourcing.ErrAggregateNotFound):
		return xerrors.NotFound("task not found").WithContext("task_id", taskID)
	case errors.Is(err, eventsourcing.ErrConcurrencyConflict):
		return xerrors.Conflict("task version conflict", err).WithContext("task_id", taskID)
	default:
		return xerrors.WrapInternal(err, "task event store failure")
	}
}

// taskView 读模型投影文档。凭证本体不投影，只保留有无标记。
type taskView struct {
	ID               string  `json:"id"                bson:"id"`
	OwnerID          string  `json:"owner_id"          bson:"owner_id"`
	Name             string  `json:"name"              bson:"name"`
	Description      string  `json:"description"       bson:"description"`
	Status           int     `json:"status"            bson:"status"`
	Value            float64 `json:"value"             bson:"value"`
	EvidenceRequired bool    `json:"evidence_required" bson:"evidence_required"`
	HasEvidence      bool    `json:"has_evidence"      bson:"has_evidence"`
	DueDate          string  `json:"due_date"          bson:"due_date"`
	CreatedAt        string  `json:"created_at"        bson:"created_at"`
	Version          int64   `json:"version"           bson:"version"`
}
