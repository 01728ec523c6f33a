package family

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/cqrs"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/eventsourcing/memstore"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/messagequeue"
	"github.com/wyfcoding/allowance/notification"
	"github.com/wyfcoding/allowance/readmodel"
	"github.com/wyfcoding/allowance/xerrors"
)

type publishedMessage struct {
	topic string
	key   string
	body  []byte
}

type recordingPublisher struct {
	messages []publishedMessage
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, key, body []byte) error {
	p.messages = append(p.messages, publishedMessage{topic: topic, key: string(key), body: body})

	return nil
}

func (p *recordingPublisher) names(t *testing.T, topic string) []string {
	t.Helper()

	var names []string
	for _, m := range p.messages {
		if m.topic != topic {
			continue
		}
		env, err := messagequeue.DecodeEnvelope(m.body)
		if err != nil {
			t.Fatalf("decode envelope on %s: %v", topic, err)
		}
		names = append(names, env.Names()...)
	}

	return names
}

type recordingNotifier struct {
	sent []notification.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notification.Notification) {
	r.sent = append(r.sent, n)
}

type recordingProvider struct {
	usernames []string
}

func (p *recordingProvider) RegisterUser(_ context.Context, username, _ string) error {
	p.usernames = append(p.usernames, username)

	return nil
}

type testHarness struct {
	svc      *Service
	repo     eventsourcing.AggregateRepository[*Family]
	read     *readmodel.MemoryStore
	pub      *recordingPublisher
	notifier *recordingNotifier
	provider *recordingProvider
}

func newTestService(t *testing.T) *testHarness {
	t.Helper()

	registry := eventsourcing.NewRegistry()
	RegisterEvents(registry)

	store := memstore.NewEventStore(registry)
	repo := eventsourcing.NewRepository(store, NewBlankFamily)
	read := readmodel.NewMemoryStore()
	pub := &recordingPublisher{}
	notifier := &recordingNotifier{}
	provider := &recordingProvider{}

	svc := NewService(
		repo,
		read,
		notifier,
		provider,
		messagequeue.NewCommandClient(pub, "allowance.family"),
		messagequeue.NewCommandClient(pub, "allowance.store"),
		true,
		logging.Default(),
	)

	return &testHarness{svc: svc, repo: repo, read: read, pub: pub, notifier: notifier, provider: provider}
}

// 建立家庭后应编排出两条后续命令：创始人账户回到本队列，建店命令发往商店队列。
func TestHandleNewFamilyChoreography(t *testing.T) {
	h := newTestService(t)
	familyID := uuid.NewString()

	err := h.svc.HandleNewFamily(context.Background(), &NewFamily{
		ID:               familyID,
		Name:             "Doe",
		Description:      "the does",
		SubscriptionType: int(SubscriptionBasic),
		FirstName:        "John",
		LastName:         "Doe",
		Email:            "john@example.com",
		DOB:              "1990-03-01",
		Password:         "s3cret",
	})
	if err != nil {
		t.Fatalf("HandleNewFamily: %v", err)
	}

	doc, ok := h.read.Get(Collection, familyID)
	if !ok {
		t.Fatal("projection missing after create")
	}
	if view := doc.(familyView); view.Name != "Doe" || view.Version != 1 {
		t.Errorf("view = %+v", view)
	}

	familyNames := h.pub.names(t, "allowance.family")
	if len(familyNames) != 1 || familyNames[0] != "NewAdultAccountEvent" {
		t.Errorf("family topic commands = %v, want [NewAdultAccountEvent]", familyNames)
	}
	storeNames := h.pub.names(t, "allowance.store")
	if len(storeNames) != 1 || storeNames[0] != "NewStoreEvent" {
		t.Errorf("store topic commands = %v, want [NewStoreEvent]", storeNames)
	}

	// 创始人命令携带新家庭 ID，可被本队列继续消费。
	env, err := messagequeue.DecodeEnvelope(h.pub.messages[0].body)
	if err != nil {
		t.Fatalf("decode founder envelope: %v", err)
	}
	var founder NewAdultAccount
	if err := json.Unmarshal(env["NewAdultAccountEvent"], &founder); err != nil {
		t.Fatalf("unmarshal founder: %v", err)
	}
	if founder.FamilyID != familyID {
		t.Errorf("founder family_id = %s, want %s", founder.FamilyID, familyID)
	}
	if founder.Password != "s3cret" {
		t.Errorf("founder password = %q, want the original password", founder.Password)
	}

	// 继续消费创始人命令后，成员凭据应可校验密码。
	if err := h.svc.HandleNewAdultAccount(context.Background(), &founder); err != nil {
		t.Fatalf("HandleNewAdultAccount: %v", err)
	}
	f, err := h.repo.Load(context.Background(), familyID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Members) != 1 {
		t.Fatalf("members = %d, want 1", len(f.Members))
	}
	for _, m := range f.Members {
		if !m.Credential.Verify("s3cret") {
			t.Error("founder password not verifiable after commit")
		}
	}
}

func TestHandleNewChildAccount(t *testing.T) {
	h := newTestService(t)
	familyID := uuid.NewString()

	if err := h.svc.HandleNewFamily(context.Background(), &NewFamily{
		ID:               familyID,
		Name:             "Doe",
		SubscriptionType: int(SubscriptionBasic),
		FirstName:        "John",
		LastName:         "Doe",
		Email:            "john@example.com",
		DOB:              "1990-03-01",
	}); err != nil {
		t.Fatalf("HandleNewFamily: %v", err)
	}

	err := h.svc.HandleNewChildAccount(context.Background(), &NewChildAccount{
		FamilyID:  familyID,
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		DOB:       "2012-06-15",
		Grade:     5,
	})
	if err != nil {
		t.Fatalf("HandleNewChildAccount: %v", err)
	}

	var identityNames int
	for _, name := range h.pub.names(t, "allowance.family") {
		if name == "CreateIdentityEvent" {
			identityNames++
		}
	}
	if identityNames != 1 {
		t.Errorf("CreateIdentityEvent published %d times, want 1", identityNames)
	}

	if len(h.notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(h.notifier.sent))
	}
	if h.notifier.sent[0].NotificationName() != "ChildCreatedNotification" {
		t.Errorf("notification = %s", h.notifier.sent[0].NotificationName())
	}

	doc, _ := h.read.Get(Collection, familyID)
	view := doc.(familyView)
	if len(view.Members) != 1 {
		t.Fatalf("projected members = %d, want 1", len(view.Members))
	}
	if view.Members[0].Username != "jane_doe" {
		t.Errorf("projected username = %s, want jane_doe", view.Members[0].Username)
	}
}

func TestHandleCreateIdentity(t *testing.T) {
	h := newTestService(t)

	err := h.svc.HandleCreateIdentity(context.Background(), &CreateIdentity{
		Username: "john_doe",
		Email:    "john@example.com",
		IsReal:   true,
	})
	if err != nil {
		t.Fatalf("HandleCreateIdentity: %v", err)
	}
	if len(h.provider.usernames) != 1 || h.provider.usernames[0] != "john_doe" {
		t.Errorf("registered usernames = %v", h.provider.usernames)
	}

	// is_real 为假只记录日志，不触达身份提供方。
	if err := h.svc.HandleCreateIdentity(context.Background(), &CreateIdentity{
		Username: "ghost",
		IsReal:   false,
	}); err != nil {
		t.Fatalf("fake identity: %v", err)
	}
	if len(h.provider.usernames) != 1 {
		t.Errorf("fake identity reached provider: %v", h.provider.usernames)
	}
}

// 订阅等级与当前一致时命令被吞掉：不产生事件，版本不变。
func TestSubscriptionChangeUnchangedIsNoOp(t *testing.T) {
	h := newTestService(t)
	familyID := uuid.NewString()

	if err := h.svc.HandleNewFamily(context.Background(), &NewFamily{
		ID:               familyID,
		Name:             "Doe",
		SubscriptionType: int(SubscriptionBasic),
		FirstName:        "John",
		LastName:         "Doe",
		DOB:              "1990-03-01",
	}); err != nil {
		t.Fatalf("HandleNewFamily: %v", err)
	}

	err := h.svc.HandleSubscriptionChange(context.Background(), &FamilySubscriptionChange{
		FamilyID:         familyID,
		SubscriptionType: int(SubscriptionBasic),
	})
	if err != nil {
		t.Fatalf("unchanged subscription: %v", err)
	}

	doc, _ := h.read.Get(Collection, familyID)
	if view := doc.(familyView); view.Version != 1 {
		t.Errorf("version = %d, want 1", view.Version)
	}

	err = h.svc.HandleSubscriptionChange(context.Background(), &FamilySubscriptionChange{
		FamilyID:         familyID,
		SubscriptionType: int(SubscriptionPremium),
	})
	if err != nil {
		t.Fatalf("subscription change: %v", err)
	}

	doc, _ = h.read.Get(Collection, familyID)
	view := doc.(familyView)
	if view.SubscriptionType != int(SubscriptionPremium) {
		t.Errorf("subscription = %d, want premium", view.SubscriptionType)
	}
	if view.Version != 2 {
		t.Errorf("version = %d, want 2", view.Version)
	}
}

func TestHandleChildOnMissingFamily(t *testing.T) {
	h := newTestService(t)

	err := h.svc.HandleNewChildAccount(context.Background(), &NewChildAccount{
		FamilyID:  uuid.NewString(),
		FirstName: "Jane",
		LastName:  "Doe",
		DOB:       "2012-06-15",
	})
	if xerrors.TypeOf(err) != xerrors.ErrNotFound {
		t.Errorf("missing family error = %v, want ErrNotFound", err)
	}
}

func TestFamilyCommandsRegistered(t *testing.T) {
	h := newTestService(t)
	reg := cqrs.NewRegistry("family", nil)
	h.svc.RegisterCommands(reg)

	names := []string{
		"NewFamilyEvent",
		"NewChildAccountEvent",
		"NewAdultAccountEvent",
		"FamilySubscriptionChangeEvent",
		"CreateIdentityEvent",
	}
	for _, name := range names {
		if !reg.Known(name) {
			t.Errorf("command %s not registered", name)
		}
	}
}
