package bank

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/cqrs"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/money"
	"github.com/wyfcoding/allowance/notification"
	"github.com/wyfcoding/allowance/readmodel"
	"github.com/wyfcoding/allowance/xerrors"
)

// Collection 读模型集合名。
const Collection = "bank_accounts"

// Service 银行上下文应用服务。
type Service struct {
	repo     eventsourcing.AggregateRepository[*Account]
	read     readmodel.Store
	notifier notification.Notifier
	logger   *logging.Logger
}

// NewService 创建银行应用服务。
func NewService(repo eventsourcing.AggregateRepository[*Account], read readmodel.Store, notifier notification.Notifier, logger *logging.Logger) *Service {
	return &Service{repo: repo, read: read, notifier: notifier, logger: logger}
}

// RegisterCommands 将本服务的全部命令挂接到命令注册表。
func (s *Service) RegisterCommands(reg *cqrs.Registry) {
	cqrs.RegisterHandler(reg, func() *EstablishNewAccount { return &EstablishNewAccount{} }, s.HandleEstablishAccount)
	cqrs.RegisterHandler(reg, func() *NewTransaction { return &NewTransaction{} }, s.HandleNewTransaction)
}

// HandleEstablishAccount 建立新账户，成功后发布账户创建通知。
// 同一命令重投递会建立重复的事件流，处理链路不做去重。
func (s *Service) HandleEstablishAccount(ctx context.Context, cmd *EstablishNewAccount) error {
	ownerID := uuid.MustParse(cmd.OwnerID)

	account, err := EstablishAccount(ownerID, cmd.IsOverdraftProtected)
	if err != nil {
		return err
	}

	if err := s.commit(ctx, account); err != nil {
		return err
	}

	s.notifier.Notify(ctx, notification.BankAccountCreated{AccountID: account.ID()})
	s.logger.InfoContext(ctx, "bank account established",
		"account_id", account.ID(), "overdraft_protected", cmd.IsOverdraftProtected)

	return nil
}

// HandleNewTransaction 对已有账户入账一笔交易，成功后发布交易处理通知。
func (s *Service) HandleNewTransaction(ctx context.Context, cmd *NewTransaction) error {
	account, err := s.repo.Load(ctx, cmd.AccountID)
	if err != nil {
		return s.storeErr(err, cmd.AccountID)
	}

	transaction, err := account.ApplyTransaction(
		uuid.MustParse(cmd.ItemID),
		TransactionMethod(cmd.TransactionMethod),
		money.New(cmd.Value),
	)
	if err != nil {
		return err
	}

	if err := s.commit(ctx, account); err != nil {
		return err
	}

	s.notifier.Notify(ctx, notification.BankTransactionProcessed{
		AccountID:     account.ID(),
		TransactionID: transaction.ID,
	})
	s.logger.InfoContext(ctx, "bank transaction processed",
		"account_id", account.ID(), "transaction_id", transaction.ID, "balance", account.Balance)

	return nil
}

// commit 提交事件流并刷新读模型投影。投影失败视为外部依赖错误。
func (s *Service) commit(ctx context.Context, account *Account) error {
	if err := s.repo.Save(ctx, account); err != nil {
		return s.storeErr(err, account.ID())
	}

	transactions := make([]transactionView, 0, len(account.Transactions))
	for _, t := range account.Transactions {
		transactions = append(transactions, transactionView{
			ID:        t.ID,
			ItemID:    t.ItemID,
			Method:    int(t.Method),
			Value:     t.Value.ToFloat(),
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		})
	}

	view := accountView{
		ID:                   account.ID(),
		OwnerID:              account.OwnerID,
		State:                int(account.State),
		IsOverdraftProtected: account.IsOverdraftProtected,
		Balance:              account.Balance.ToFloat(),
		Transactions:         transactions,
		Version:              account.Version(),
	}

	return s.read.Upsert(ctx, Collection, account.ID(), view)
}

func (s *Service) storeErr(err error, accountID string) error {
	switch {
	case errors.Is(err, eventsourcing.ErrAggregateNotFound):
		return xerrors.NotFound("bank account not found").WithContext("account_id", accountID)
	case errors.Is(err, eventsourcing.ErrConcurrencyConflict):
		return xerrors.Conflict("bank account version conflict", err).WithContext("account_id", accountID)
	default:
		return xerrors.WrapInternal(err, "bank event store failure")
	}
}

// accountView 读模型投影文档。金额以浮点数写入，供查询端直接消费。
type accountView struct {
	ID                   string            `json:"id"                     bson:"id"`
	OwnerID              string            `json:"owner_id"               bson:"owner_id"`
	State                int               `json:"state"                  bson:"state"`
	IsOverdraftProtected bool              `json:"is_overdraft_protected" bson:"is_overdraft_protected"`
	Balance              float64           `json:"balance"                bson:"balance"`
	Transactions         []transactionView `json:"transactions"           bson:"transactions"`
	Version              int64             `json:"version"                bson:"version"`
}

type transactionView struct {
	ID        string  `json:"transaction_id" bson:"transaction_id"`
	ItemID    string  `json:"item_id"        bson:"item_id"`
	Method    int     `json:"method"         bson:"method"`
	Value     float64 `json:"value"          bson:"value"`
	CreatedAt string  `json:"created_at"     bson:"created_at"`
}
