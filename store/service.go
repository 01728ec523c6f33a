package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/cqrs"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/money"
	"github.com/wyfcoding/allowance/readmodel"
	"github.com/wyfcoding/allowance/xerrors"
)

// Collection 读模型集合名。
const Collection = "stores"

// Service 商店上下文应用服务。
type Service struct {
	repo   eventsourcing.AggregateRepository[*Store]
	read   readmodel.Store
	logger *logging.Logger
}

// NewService 创建商店应用服务。
func NewService(repo eventsourcing.AggregateRepository[*Store], read readmodel.Store, logger *logging.Logger) *Service {
	return &Service{repo: repo, read: read, logger: logger}
}

// RegisterCommands 将本服务的全部命令挂接到命令注册表。
func (s *Service) RegisterCommands(reg *cqrs.Registry) {
	cqrs.RegisterHandler(reg, func() *NewStore { return &NewStore{} }, s.HandleNewStore)
	cqrs.RegisterHandler(reg, func() *NewStoreItem { return &NewStoreItem{} }, s.HandleNewStoreItem)
	cqrs.RegisterHandler(reg, func() *RemoveStoreItem { return &RemoveStoreItem{} }, s.HandleRemoveStoreItem)
}

// HandleNewStore 为家庭建立商店。
func (s *Service) HandleNewStore(ctx context.Context, cmd *NewStore) error {
	st, err := CreateStore(uuid.MustParse(cmd.FamilyID))
	if err != nil {
		return err
	}

	if err := s.commit(ctx, st); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "store created", "store_id", st.ID())

	return nil
}

// HandleNewStoreItem 上架商品。
func (s *Service) HandleNewStoreItem(ctx context.Context, cmd *NewStoreItem) error {
	st, err := s.repo.Load(ctx, cmd.StoreID)
	if err != nil {
		return s.storeErr(err, cmd.StoreID)
	}

	item, err := st.AddItem(cmd.ItemName, cmd.ItemDescription, money.New(cmd.ItemValue))
	if err != nil {
		return err
	}

	if err := s.commit(ctx, st); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "store item added", "store_id", st.ID(), "item_id", item.ID)

	return nil
}

// HandleRemoveStoreItem 下架商品。
func (s *Service) HandleRemoveStoreItem(ctx context.Context, cmd *RemoveStoreItem) error {
	st, err := s.repo.Load(ctx, cmd.StoreID)
	if err != nil {
		return s.storeErr(err, cmd.StoreID)
	}

	if err := st.RemoveItem(cmd.ItemID); err != nil {
		return err
	}

	if err := s.commit(ctx, st); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "store item removed", "store_id", st.ID(), "item_id", cmd.ItemID)

	return nil
}

func (s *Service) commit(ctx context.Context, st *Store) error {
	if err := s.repo.Save(ctx, st); err != nil {
		return s.storeErr(err, st.ID())
	}

	items := make(map[string]itemView, len(st.Items))
	for id, item := range st.Items {
		items[id] = itemView{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Value:       item.Value.ToFloat(),
		}
	}

	view := storeView{
		ID:       st.ID(),
		FamilyID: st.FamilyID,
		Items:    items,
		Version:  st.Version(),
	}

	return s.read.Upsert(ctx, Collection, st.ID(), view)
}

func (s *Service) storeErr(err error, storeID string) error {
	switch {
	case errors.Is(err, eventsourcing.ErrAggregateNotFound):
		return xerrors.NotFound("store not found").WithContext("store_id", storeID)
	case errors.Is(err, eventsourcing.ErrConcurrencyConflict):
		return xerrors.Conflict("store version conflict", err).WithContext("store_id", storeID)
	default:
		return xerrors.WrapInternal(err, "store event store failure")
	}
}

// storeView 读模型投影文档。
type storeView struct {
	ID       string              `json:"id"        bson:"id"`
	FamilyID string              `json:"family_id" bson:"family_id"`
	Items    map[string]itemView `json:"items"     bson:"items"`
	Version  int64               `json:"version"   bson:"version"`
}

type itemView struct {
	ID          string  `json:"id"          bson:"id"`
	Name        string  `json:"name"        bson:"name"`
	Description string  `json:"description" bson:"description"`
	Value       float64 `json:"value"       bson:"value"`
}
