package bank

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/money"
)

func TestEstablishAccount(t *testing.T) {
	ownerID := uuid.New()

	account, err := EstablishAccount(ownerID, true)
	if err != nil {
		t.Fatalf("EstablishAccount: %v", err)
	}

	if account.ID() != ownerID.String() {
		t.Errorf("account ID = %s, want owner ID %s", account.ID(), ownerID)
	}
	if account.Version() != 1 {
		t.Errorf("version = %d, want 1", account.Version())
	}
	if !account.Balance.IsZero() {
		t.Errorf("balance = %s, want zero", account.Balance)
	}
	if account.State != StateActive {
		t.Errorf("state = %d, want active", account.State)
	}
	if len(account.UncommittedEvents()) != 1 {
		t.Errorf("uncommitted events = %d, want 1", len(account.UncommittedEvents()))
	}
}

func TestBalanceInvariant(t *testing.T) {
	account, err := EstablishAccount(uuid.New(), false)
	if err != nil {
		t.Fatalf("EstablishAccount: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	expected := money.Zero()

	for i := 0; i < 100; i++ {
		value := money.New(float64(rng.Intn(10000)) / 100)
		method := TransactionMethod(rng.Intn(2))

		if _, err := account.ApplyTransaction(uuid.New(), method, value); err != nil {
			t.Fatalf("ApplyTransaction: %v", err)
		}

		if method == MethodAdd {
			expected = expected.Add(value)
		} else {
			expected = expected.Sub(value)
		}
	}

	if !account.Balance.Equal(expected) {
		t.Errorf("balance = %s, want %s", account.Balance, expected)
	}
	if len(account.Transactions) != 100 {
		t.Errorf("transactions = %d, want 100", len(account.Transactions))
	}
}

func TestVersionMonotonicity(t *testing.T) {
	account, err := EstablishAccount(uuid.New(), false)
	if err != nil {
		t.Fatalf("EstablishAccount: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := account.ApplyTransaction(uuid.New(), MethodAdd, money.New(1)); err != nil {
			t.Fatalf("ApplyTransaction: %v", err)
		}
	}

	if account.Version() != 11 {
		t.Errorf("version = %d, want 11 (create + 10 transactions)", account.Version())
	}

	events := account.UncommittedEvents()
	for i, ev := range events {
		if ev.Version() != int64(i+1) {
			t.Errorf("event %d version = %d, want %d", i, ev.Version(), i+1)
		}
	}
}

func TestInvalidMethodRejected(t *testing.T) {
	account, err := EstablishAccount(uuid.New(), false)
	if err != nil {
		t.Fatalf("EstablishAccount: %v", err)
	}

	versionBefore := account.Version()
	if _, err := account.ApplyTransaction(uuid.New(), TransactionMethod(7), money.New(1)); err == nil {
		t.Fatal("unknown method should be rejected")
	}

	// 失败的操作不得留下半成品状态。
	if account.Version() != versionBefore {
		t.Errorf("version changed on failed operation: %d -> %d", versionBefore, account.Version())
	}
	if len(account.Transactions) != 0 {
		t.Errorf("transactions = %d, want 0", len(account.Transactions))
	}
}

func TestReplayDeterminism(t *testing.T) {
	account, err := EstablishAccount(uuid.New(), true)
	if err != nil {
		t.Fatalf("EstablishAccount: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := account.ApplyTransaction(uuid.New(), MethodAdd, money.New(2.5)); err != nil {
			t.Fatalf("ApplyTransaction: %v", err)
		}
	}

	replica := NewBlankAccount()
	if err := eventsourcing.LoadFromHistory(replica, account.UncommittedEvents()); err != nil {
		t.Fatalf("LoadFromHistory: %v", err)
	}

	if replica.ID() != account.ID() {
		t.Errorf("replica ID = %s, want %s", replica.ID(), account.ID())
	}
	if replica.Version() != account.Version() {
		t.Errorf("replica version = %d, want %d", replica.Version(), account.Version())
	}
	if !replica.Balance.Equal(account.Balance) {
		t.Errorf("replica balance = %s, want %s", replica.Balance, account.Balance)
	}
	if len(replica.Transactions) != len(account.Transactions) {
		t.Errorf("replica transactions = %d, want %d", len(replica.Transactions), len(account.Transactions))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	account, err := EstablishAccount(uuid.New(), true)
	if err != nil {
		t.Fatalf("EstablishAccount: %v", err)
	}
	if _, err := account.ApplyTransaction(uuid.New(), MethodAdd, money.New(10)); err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}
	if _, err := account.ApplyTransaction(uuid.New(), MethodSubtract, money.New(4)); err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}

	data, err := json.Marshal(account.SnapshotState())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	restored := NewBlankAccount()
	restored.SetID(account.ID())
	if err := restored.RestoreSnapshot(data); err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}

	if !restored.Balance.Equal(money.New(6)) {
		t.Errorf("restored balance = %s, want 6.00", restored.Balance)
	}
	if len(restored.Transactions) != 2 {
		t.Errorf("restored transactions = %d, want 2", len(restored.Transactions))
	}
}
