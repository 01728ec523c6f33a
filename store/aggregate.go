// Package store 实现商店限界上下文：每个家庭一个商店，
// 商店 ID 即家庭 ID，商品按 ID 唯一。
package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/money"
	"github.com/wyfcoding/allowance/xerrors"
)

// Item 商店商品。身份一经创建不可变更。
type Item struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Value       money.Money `json:"value"`
}

// Store 商店聚合根。
type Store struct {
	eventsourcing.AggregateRoot

	FamilyID string
	Items    map[string]Item
}

// NewBlankStore 返回零状态商店，供回放使用。
func NewBlankStore() *Store {
	return &Store{Items: make(map[string]Item)}
}

// CreateStore 为家庭建立商店。商店 ID 与家庭 ID 相同。
func CreateStore(familyID uuid.UUID) (*Store, error) {
	s := NewBlankStore()

	ev := &StoreCreated{
		EventModel: eventsourcing.NewEventModel(familyID.String()),
		FamilyID:   familyID.String(),
	}

	return s, s.raise(ev)
}

// AddItem 上架新商品。
func (s *Store) AddItem(name, description string, value money.Money) (Item, error) {
	ev := &ItemAdded{
		EventModel:  eventsourcing.NewEventModel(s.ID()),
		ItemID:      uuid.NewString(),
		Name:        name,
		Description: description,
		Value:       value,
	}

	if err := s.raise(ev); err != nil {
		return Item{}, err
	}

	return s.Items[ev.ItemID], nil
}

// RemoveItem 下架商品。商品不存在是业务错误。
func (s *Store) RemoveItem(itemID string) error {
	if _, ok := s.Items[itemID]; !ok {
		return xerrors.FailedPrecondition("store item not found").
			WithContext("store_id", s.ID()).
			WithContext("item_id", itemID)
	}

	ev := &ItemRemoved{
		EventModel: eventsourcing.NewEventModel(s.ID()),
		ItemID:     itemID,
	}

	return s.raise(ev)
}

func (s *Store) raise(ev eventsourcing.DomainEvent) error {
	if err := s.Apply(ev); err != nil {
		return err
	}
	s.Record(ev)

	return nil
}

// Apply 实现 eventsourcing.EventApplier。
func (s *Store) Apply(event eventsourcing.DomainEvent) error {
	switch ev := event.(type) {
	case *StoreCreated:
		s.SetID(ev.AggregateID())
		s.FamilyID = ev.FamilyID
		if s.Items == nil {
			s.Items = make(map[string]Item)
		}
	case *ItemAdded:
		s.Items[ev.ItemID] = Item{
			ID:          ev.ItemID,
			Name:        ev.Name,
			Description: ev.Description,
			Value:       ev.Value,
		}
	case *ItemRemoved:
		delete(s.Items, ev.ItemID)
	default:
		return fmt.Errorf("store: unknown event type %T", event)
	}

	return nil
}

type storeSnapshot struct {
	FamilyID string          `json:"family_id"`
	Items    map[string]Item `json:"items"`
}

// SnapshotState 实现 eventsourcing.Snapshotter。
func (s *Store) SnapshotState() any {
	return storeSnapshot{FamilyID: s.FamilyID, Items: s.Items}
}

// RestoreSnapshot 实现 eventsourcing.Snapshotter。
func (s *Store) RestoreSnapshot(data []byte) error {
	var snap storeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("store: restore snapshot: %w", err)
	}

	s.FamilyID = snap.FamilyID
	s.Items = snap.Items
	if s.Items == nil {
		s.Items = make(map[string]Item)
	}

	return nil
}
