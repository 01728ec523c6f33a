package store

import (
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/money"
)

// StoreCreated 商店建立事件。
type StoreCreated struct {
	eventsourcing.EventModel

	FamilyID string `json:"family_id"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*StoreCreated) EventType() string { return "store.StoreCreated" }

// ItemAdded 商品上架事件。
type ItemAdded struct {
	eventsourcing.EventModel

	ItemID      string      `json:"item_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Value       money.Money `json:"value"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*ItemAdded) EventType() string { return "store.ItemAdded" }

// ItemRemoved 商品下架事件。
type ItemRemoved struct {
	eventsourcing.EventModel

	ItemID string `json:"item_id"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*ItemRemoved) EventType() string { return "store.ItemRemoved" }

// RegisterEvents 向事件注册表登记本上下文的全部事件类型。
func RegisterEvents(r *eventsourcing.Registry) {
	r.Register(func() eventsourcing.DomainEvent { return &StoreCreated{} })
	r.Register(func() eventsourcing.DomainEvent { return &ItemAdded{} })
	r.Register(func() eventsourcing.DomainEvent { return &ItemRemoved{} })
}
