package bank

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/xerrors"
)

// EstablishNewAccount 建立新账户命令。
type EstablishNewAccount struct {
	OwnerID              string `json:"owner_id"`
	IsOverdraftProtected bool   `json:"is_overdraft_protected"`
}

// CommandName 实现 cqrs.Command。
func (EstablishNewAccount) CommandName() string { return "EstablishNewAccountEvent" }

// Validate 实现 cqrs.Validator。
func (c EstablishNewAccount) Validate() error {
	if _, err := uuid.Parse(c.OwnerID); err != nil {
		return fmt.Errorf("owner_id: %w", err)
	}

	return nil
}

// NewTransaction 交易入账命令。
type NewTransaction struct {
	ItemID            string  `json:"item_id"`
	AccountID         string  `json:"account_id"`
	TransactionMethod int     `json:"transaction_method"`
	Value             float64 `json:"value"`
}

// CommandName 实现 cqrs.Command。
func (NewTransaction) CommandName() string { return "NewTransactionEvent" }

// Validate 实现 cqrs.Validator。
func (c NewTransaction) Validate() error {
	if _, err := uuid.Parse(c.AccountID); err != nil {
		return fmt.Errorf("account_id: %w", err)
	}
	if _, err := uuid.Parse(c.ItemID); err != nil {
		return fmt.Errorf("item_id: %w", err)
	}
	if !TransactionMethod(c.TransactionMethod).Valid() {
		return xerrors.InvalidArg(fmt.Sprintf("unknown transaction_method: %d", c.TransactionMethod))
	}

	return nil
}
