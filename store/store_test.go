package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/eventsourcing/memstore"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/money"
	"github.com/wyfcoding/allowance/readmodel"
	"github.com/wyfcoding/allowance/xerrors"
)

func TestCreateStore(t *testing.T) {
	familyID := uuid.New()

	st, err := CreateStore(familyID)
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}

	if st.ID() != familyID.String() {
		t.Errorf("store ID = %s, want family ID %s", st.ID(), familyID)
	}
	if st.Version() != 1 {
		t.Errorf("version = %d, want 1", st.Version())
	}
}

func TestAddAndRemoveItem(t *testing.T) {
	st, err := CreateStore(uuid.New())
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}

	item, err := st.AddItem("ice cream", "one scoop", money.New(3.5))
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(st.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(st.Items))
	}

	if err := st.RemoveItem(item.ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(st.Items) != 0 {
		t.Errorf("items = %d, want 0 after removal", len(st.Items))
	}
	if st.Version() != 3 {
		t.Errorf("version = %d, want 3", st.Version())
	}
}

func TestRemoveAbsentItem(t *testing.T) {
	st, err := CreateStore(uuid.New())
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}

	versionBefore := st.Version()
	err = st.RemoveItem(uuid.NewString())
	if xerrors.TypeOf(err) != xerrors.ErrFailedPrecondition {
		t.Errorf("RemoveItem error = %v, want ErrFailedPrecondition", err)
	}
	if st.Version() != versionBefore {
		t.Errorf("version changed on failed removal: %d -> %d", versionBefore, st.Version())
	}
}

func TestReplayDeterminism(t *testing.T) {
	st, err := CreateStore(uuid.New())
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	first, _ := st.AddItem("a", "", money.New(1))
	if _, err := st.AddItem("b", "", money.New(2)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := st.RemoveItem(first.ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}

	replica := NewBlankStore()
	if err := eventsourcing.LoadFromHistory(replica, st.UncommittedEvents()); err != nil {
		t.Fatalf("LoadFromHistory: %v", err)
	}

	if replica.Version() != st.Version() {
		t.Errorf("replica version = %d, want %d", replica.Version(), st.Version())
	}
	if len(replica.Items) != len(st.Items) {
		t.Errorf("replica items = %d, want %d", len(replica.Items), len(st.Items))
	}
	for id, item := range st.Items {
		got, ok := replica.Items[id]
		if !ok || got.Name != item.Name || !got.Value.Equal(item.Value) {
			t.Errorf("replica item %s = %+v, want %+v", id, got, item)
		}
	}
}

func newTestService(t *testing.T) (*Service, *readmodel.MemoryStore) {
	t.Helper()

	registry := eventsourcing.NewRegistry()
	RegisterEvents(registry)

	repo := eventsourcing.NewRepository(memstore.NewEventStore(registry), NewBlankStore)
	read := readmodel.NewMemoryStore()

	return NewService(repo, read, logging.Default()), read
}

func TestServiceLifecycle(t *testing.T) {
	svc, read := newTestService(t)
	familyID := uuid.NewString()
	ctx := context.Background()

	if err := svc.HandleNewStore(ctx, &NewStore{FamilyID: familyID}); err != nil {
		t.Fatalf("HandleNewStore: %v", err)
	}

	if err := svc.HandleNewStoreItem(ctx, &NewStoreItem{
		StoreID:         familyID,
		ItemName:        "bicycle",
		ItemDescription: "red one",
		ItemValue:       99.95,
	}); err != nil {
		t.Fatalf("HandleNewStoreItem: %v", err)
	}

	doc, ok := read.Get(Collection, familyID)
	if !ok {
		t.Fatal("projection missing")
	}
	view := doc.(storeView)
	if len(view.Items) != 1 {
		t.Fatalf("projected items = %d, want 1", len(view.Items))
	}
	for _, item := range view.Items {
		if item.Value != 99.95 {
			t.Errorf("projected item value = %v, want 99.95", item.Value)
		}
	}
}

func TestServiceRemoveFromMissingStore(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.HandleRemoveStoreItem(context.Background(), &RemoveStoreItem{
		StoreID: uuid.NewString(),
		ItemID:  uuid.NewString(),
	})
	if xerrors.TypeOf(err) != xerrors.ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
