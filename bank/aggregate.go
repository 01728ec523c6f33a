// Package bank 实现银行限界上下文：每个成员一个账户，
// 余额由交易流水累加得出，账户 ID 即持有人 ID。
package bank

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/money"
	"github.com/wyfcoding/allowance/xerrors"
)

// AccountState 账户状态。
type AccountState int

const (
	StateActive AccountState = iota
	StateInactive
)

// TransactionMethod 交易方向。
type TransactionMethod int

const (
	MethodAdd TransactionMethod = iota
	MethodSubtract
)

// Valid 判断交易方向是否为已知枚举值。
func (m TransactionMethod) Valid() bool {
	return m == MethodAdd || m == MethodSubtract
}

// Transaction 账户流水。只追加，不修改不删除。
type Transaction struct {
	ID        string            `json:"transaction_id"`
	ItemID    string            `json:"item_id"`
	Method    TransactionMethod `json:"method"`
	Value     money.Money       `json:"value"`
	CreatedAt time.Time         `json:"created_at"`
}

// Account 银行账户聚合根。
type Account struct {
	eventsourcing.AggregateRoot

	OwnerID              string
	IsOverdraftProtected bool
	State                AccountState
	Transactions         []Transaction
	Balance              money.Money
}

// NewBlankAccount 返回零状态账户，供回放使用。
func NewBlankAccount() *Account {
	return &Account{Balance: money.Zero()}
}

// EstablishAccount 建立新账户。账户 ID 与持有人 ID 相同。
func EstablishAccount(ownerID uuid.UUID, isOverdraftProtected bool) (*Account, error) {
	a := NewBlankAccount()

	ev := &AccountEstablished{
		EventModel:           eventsourcing.NewEventModel(ownerID.String()),
		OwnerID:              ownerID.String(),
		IsOverdraftProtected: isOverdraftProtected,
	}

	return a, a.raise(ev)
}

// ApplyTransaction 向账户追加一笔交易并重算余额。
func (a *Account) ApplyTransaction(itemID uuid.UUID, method TransactionMethod, value money.Money) (Transaction, error) {
	if !method.Valid() {
		return Transaction{}, xerrors.InvalidArg(fmt.Sprintf("unknown transaction method: %d", method))
	}

	ev := &TransactionApplied{
		EventModel:    eventsourcing.NewEventModel(a.ID()),
		TransactionID: uuid.NewString(),
		ItemID:        itemID.String(),
		Method:        method,
		Value:         value,
		CreatedAt:     time.Now().UTC(),
	}

	if err := a.raise(ev); err != nil {
		return Transaction{}, err
	}

	return a.Transactions[len(a.Transactions)-1], nil
}

// TransactionByID 按 ID 查找流水。
func (a *Account) TransactionByID(transactionID string) (Transaction, bool) {
	for _, t := range a.Transactions {
		if t.ID == transactionID {
			return t, true
		}
	}

	return Transaction{}, false
}

func (a *Account) raise(ev eventsourcing.DomainEvent) error {
	if err := a.Apply(ev); err != nil {
		return err
	}
	a.Record(ev)

	return nil
}

// Apply 实现 eventsourcing.EventApplier。
func (a *Account) Apply(event eventsourcing.DomainEvent) error {
	switch ev := event.(type) {
	case *AccountEstablished:
		a.SetID(ev.AggregateID())
		a.OwnerID = ev.OwnerID
		a.IsOverdraftProtected = ev.IsOverdraftProtected
		a.State = StateActive
		a.Balance = money.Zero()
	case *TransactionApplied:
		t := Transaction{
			ID:        ev.TransactionID,
			ItemID:    ev.ItemID,
			Method:    ev.Method,
			Value:     ev.Value,
			CreatedAt: ev.CreatedAt,
		}
		a.Transactions = append(a.Transactions, t)
		switch t.Method {
		case MethodAdd:
			a.Balance = a.Balance.Add(t.Value)
		case MethodSubtract:
			a.Balance = a.Balance.Sub(t.Value)
		}
	default:
		return fmt.Errorf("bank: unknown event type %T", event)
	}

	return nil
}

// accountSnapshot 账户快照状态。
type accountSnapshot struct {
	OwnerID              string        `json:"owner_id"`
	IsOverdraftProtected bool          `json:"is_overdraft_protected"`
	State                AccountState  `json:"state"`
	Transactions         []Transaction `json:"transactions"`
	Balance              money.Money   `json:"balance"`
}

// SnapshotState 实现 eventsourcing.Snapshotter。
func (a *Account) SnapshotState() any {
	return accountSnapshot{
		OwnerID:              a.OwnerID,
		IsOverdraftProtected: a.IsOverdraftProtected,
		State:                a.State,
		Transactions:         a.Transactions,
		Balance:              a.Balance,
	}
}

// RestoreSnapshot 实现 eventsourcing.Snapshotter。
func (a *Account) RestoreSnapshot(data []byte) error {
	var snap accountSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("bank: restore snapshot: %w", err)
	}

	a.OwnerID = snap.OwnerID
	a.IsOverdraftProtected = snap.IsOverdraftProtected
	a.State = snap.State
	a.Transactions = snap.Transactions
	a.Balance = snap.Balance

	return nil
}
