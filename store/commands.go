package store

import (
	"fmt"

	"github.com/google/uuid"
)

// NewStore 建店命令。
type NewStore struct {
	FamilyID string `json:"family_id"`
}

// CommandName 实现 cqrs.Command。
func (NewStore) CommandName() string { return "NewStoreEvent" }

// Validate 实现 cqrs.Validator。
func (c NewStore) Validate() error {
	if _, err := uuid.Parse(c.FamilyID); err != nil {
		return fmt.Errorf("family_id: %w", err)
	}

	return nil
}

// NewStoreItem 商品上架命令。
type NewStoreItem struct {
	StoreID         string  `json:"store_id"`
	ItemName        string  `json:"item_name"`
	ItemDescription string  `json:"item_description"`
	ItemValue       float64 `json:"item_value"`
}

// CommandName 实现 cqrs.Command。
func (NewStoreItem) CommandName() string { return "NewStoreItemEvent" }

// Validate 实现 cqrs.Validator。
func (c NewStoreItem) Validate() error {
	if _, err := uuid.Parse(c.StoreID); err != nil {
		return fmt.Errorf("store_id: %w", err)
	}

	return nil
}

// RemoveStoreItem 商品下架命令。
type RemoveStoreItem struct {
	StoreID string `json:"store_id"`
	ItemID  string `json:"item_id"`
}

// CommandName 实现 cqrs.Command。
func (RemoveStoreItem) CommandName() string { return "RemoveStoreItemEvent" }

// Validate 实现 cqrs.Validator。
func (c RemoveStoreItem) Validate() error {
	if _, err := uuid.Parse(c.StoreID); err != nil {
		return fmt.Errorf("store_id: %w", err)
	}
	if _, err := uuid.Parse(c.ItemID); err != nil {
		return fmt.Errorf("item_id: %w", err)
	}

	return nil
}
