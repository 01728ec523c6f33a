package family

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/cqrs"
	"github.com/wyfcoding/allowance/datetime"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/identity"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/messagequeue"
	"github.com/wyfcoding/allowance/notification"
	"github.com/wyfcoding/allowance/readmodel"
	"github.com/wyfcoding/allowance/xerrors"
)

// Collection 读模型集合名。
const Collection = "families"

// Service 家庭/用户上下文应用服务。
// 家庭建立与子女加入会以编排方式向其他上下文发布后续命令，
// 发布在本地提交之后进行，不在同一事务内。
type Service struct {
	repo        eventsourcing.AggregateRepository[*Family]
	read        readmodel.Store
	notifier    notification.Notifier
	provider    identity.Provider
	familyQueue *messagequeue.CommandClient
	storeQueue  *messagequeue.CommandClient
	realUsers   bool
	logger      *logging.Logger
}

// NewService 创建家庭应用服务。
// familyQueue 指向本上下文自己的命令主题，storeQueue 指向商店上下文主题。
// realUsers 为真时 CreateIdentityEvent 会携带 is_real 真正登记身份。
func NewService(
	repo eventsourcing.AggregateRepository[*Family],
	read readmodel.Store,
	notifier notification.Notifier,
	provider identity.Provider,
	familyQueue *messagequeue.CommandClient,
	storeQueue *messagequeue.CommandClient,
	realUsers bool,
	logger *logging.Logger,
) *Service {
	return &Service{
		repo:        repo,
		read:        read,
		notifier:    notifier,
		provider:    provider,
		familyQueue: familyQueue,
		storeQueue:  storeQueue,
		realUsers:   realUsers,
		logger:      logger,
	}
}

// RegisterCommands 将本服务的全部命令挂接到命令注册表。
func (s *Service) RegisterCommands(reg *cqrs.Registry) {
	cqrs.RegisterHandler(reg, func() *NewFamily { return &NewFamily{} }, s.HandleNewFamily)
	cqrs.RegisterHandler(reg, func() *NewChildAccount { return &NewChildAccount{} }, s.HandleNewChildAccount)
	cqrs.RegisterHandler(reg, func() *NewAdultAccount { return &NewAdultAccount{} }, s.HandleNewAdultAccount)
	cqrs.RegisterHandler(reg, func() *FamilySubscriptionChange { return &FamilySubscriptionChange{} }, s.HandleSubscriptionChange)
	cqrs.RegisterHandler(reg, func() *CreateIdentity { return &CreateIdentity{} }, s.HandleCreateIdentity)
}

// HandleNewFamily 建立家庭，随后编排创始成年成员与家庭商店的建立。
func (s *Service) HandleNewFamily(ctx context.Context, cmd *NewFamily) error {
	familyID := uuid.New()
	if cmd.ID != "" {
		familyID = uuid.MustParse(cmd.ID)
	}

	f, err := CreateFamily(familyID, cmd.Name, cmd.Description, SubscriptionType(cmd.SubscriptionType))
	if err != nil {
		return err
	}

	if err := s.commit(ctx, f); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "family created", "family_id", f.ID(), "name", f.Name)

	// 本地提交后的编排：创始人账户回到本上下文队列，建店命令发往商店上下文。
	founder := NewAdultAccount{
		FamilyID:  f.ID(),
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		Email:     cmd.Email,
		DOB:       cmd.DOB,
		Password:  cmd.Password,
	}
	if err := s.familyQueue.Send(ctx, f.ID(), founder.CommandName(), founder); err != nil {
		return err
	}

	newStore := map[string]string{"family_id": f.ID()}
	if err := s.storeQueue.Send(ctx, f.ID(), "NewStoreEvent", newStore); err != nil {
		return err
	}

	return nil
}

// HandleNewChildAccount 添加子女成员，随后编排身份登记并发布子女创建通知。
func (s *Service) HandleNewChildAccount(ctx context.Context, cmd *NewChildAccount) error {
	f, err := s.repo.Load(ctx, cmd.FamilyID)
	if err != nil {
		return s.storeErr(err, cmd.FamilyID)
	}

	dob, err := datetime.ParseISO8601(cmd.DOB)
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "invalid dob")
	}

	member, err := f.AddChildMember(cmd.FirstName, cmd.LastName, cmd.Email, dob, cmd.Grade, cmd.Password)
	if err != nil {
		return err
	}

	if err := s.commit(ctx, f); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "child member added", "family_id", f.ID(), "member_id", member.ID)

	if err := s.publishIdentity(ctx, f.ID(), member); err != nil {
		return err
	}

	s.notifier.Notify(ctx, notification.ChildCreated{
		FamilyID: f.ID(),
		ChildID:  member.ID,
	})

	return nil
}

// HandleNewAdultAccount 添加成年成员并编排身份登记。
func (s *Service) HandleNewAdultAccount(ctx context.Context, cmd *NewAdultAccount) error {
	f, err := s.repo.Load(ctx, cmd.FamilyID)
	if err != nil {
		return s.storeErr(err, cmd.FamilyID)
	}

	dob, err := datetime.ParseISO8601(cmd.DOB)
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "invalid dob")
	}

	member, err := f.AddAdultMember(cmd.FirstName, cmd.LastName, cmd.Email, dob, cmd.Password)
	if err != nil {
		return err
	}

	if err := s.commit(ctx, f); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "adult member added", "family_id", f.ID(), "member_id", member.ID)

	return s.publishIdentity(ctx, f.ID(), member)
}

// HandleSubscriptionChange 变更订阅等级。
// 等级与当前一致时记录日志并吞掉命令，不产生事件也不入死信。
func (s *Service) HandleSubscriptionChange(ctx context.Context, cmd *FamilySubscriptionChange) error {
	f, err := s.repo.Load(ctx, cmd.FamilyID)
	if err != nil {
		return s.storeErr(err, cmd.FamilyID)
	}

	next := SubscriptionType(cmd.SubscriptionType)
	if next == f.Subscription {
		s.logger.WarnContext(ctx, "family subscription already set, rejecting event",
			"family_id", f.ID(), "subscription_type", int(next))

		return nil
	}

	if err := f.ChangeSubscription(next); err != nil {
		return err
	}

	if err := s.commit(ctx, f); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "family subscription changed",
		"family_id", f.ID(), "subscription_type", int(next))

	return nil
}

// HandleCreateIdentity 登记外部身份。is_real 为假时仅记录日志。
// 身份提供方的错误归类为外部依赖错误。
func (s *Service) HandleCreateIdentity(ctx context.Context, cmd *CreateIdentity) error {
	if !cmd.IsReal {
		s.logger.InfoContext(ctx, "received and processed fake identity event",
			"username", cmd.Username, "email", cmd.Email)

		return nil
	}

	if err := s.provider.RegisterUser(ctx, cmd.Username, cmd.Email); err != nil {
		return xerrors.Unavailable("identity provider registration failed", err).
			WithContext("username", cmd.Username)
	}

	s.logger.InfoContext(ctx, "identity provisioned", "username", cmd.Username)

	return nil
}

func (s *Service) publishIdentity(ctx context.Context, familyID string, member Member) error {
	var email string
	switch d := member.Detail.(type) {
	case AdultDetail:
		email = d.Email
	case ChildDetail:
		email = d.Email
	}

	cmd := CreateIdentity{
		Username: member.Credential.Username,
		Email:    email,
		IsReal:   s.realUsers,
	}

	return s.familyQueue.Send(ctx, familyID, cmd.CommandName(), cmd)
}

func (s *Service) commit(ctx context.Context, f *Family) error {
	if err := s.repo.Save(ctx, f); err != nil {
		return s.storeErr(err, f.ID())
	}

	members := make([]memberView, 0, len(f.Members))
	for _, m := range f.Members {
		mv := memberView{ID: m.ID, Kind: int(m.Detail.Kind()), Username: m.Credential.Username}
		switch d := m.Detail.(type) {
		case AdultDetail:
			mv.FirstName, mv.LastName, mv.Email = d.FirstName, d.LastName, d.Email
			mv.DOB = formatDOB(d.DOB)
		case ChildDetail:
			mv.FirstName, mv.LastName, mv.Email = d.FirstName, d.LastName, d.Email
			mv.DOB = formatDOB(d.DOB)
			mv.Grade = d.Grade
		}
		members = append(members, mv)
	}

	view := familyView{
		ID:               f.ID(),
		Name:             f.Name,
		Description:      f.Description,
		SubscriptionType: int(f.Subscription),
		Members:          members,
		Version:          f.Version(),
	}

	return s.read.Upsert(ctx, Collection, f.ID(), view)
}

func (s *Service) storeErr(err error, familyID string) error {
	switch {
	case errors.Is(err, eventsourcing.ErrAggregateNotFound):
		return xerrors.NotFound("family not found").WithContext("family_id", familyID)
	case errors.Is(err, eventsourcing.ErrConcurrencyConflict):
		return xerrors.Conflict("family version conflict", err).WithContext("family_id", familyID)
	default:
		return xerrors.WrapInternal(err, "family event store failure")
	}
}

func formatDOB(t time.Time) string {
	return datetime.FormatISO8601(t)
}

// familyView 读模型投影文档。凭据哈希不投影。
type familyView struct {
	ID               string       `json:"id"                bson:"id"`
	Name             string       `json:"name"              bson:"name"`
	Description      string       `json:"description"       bson:"description"`
	SubscriptionType int          `json:"subscription_type" bson:"subscription_type"`
	Members          []memberView `json:"members"           bson:"members"`
	Version          int64        `json:"version"           bson:"version"`
}

type memberView struct {
	ID        string `json:"id"         bson:"id"`
	Kind      int    `json:"kind"       bson:"kind"`
	FirstName string `json:"first_name" bson:"first_name"`
	LastName  string `json:"last_name"  bson:"last_name"`
	Email     string `json:"email"      bson:"email"`
	DOB       string `json:"dob"        bson:"dob"`
	Grade     int    `json:"grade"      bson:"grade"`
	Username  string `json:"username"   bson:"username"`
}
