package family

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/xerrors"
)

func newFamily(t *testing.T) *Family {
	t.Helper()

	f, err := CreateFamily(uuid.New(), "Fam", "test family", SubscriptionBasic)
	if err != nil {
		t.Fatalf("CreateFamily: %v", err)
	}

	return f
}

func TestCreateFamily(t *testing.T) {
	f := newFamily(t)

	if f.Version() != 1 {
		t.Errorf("version = %d, want 1", f.Version())
	}
	if f.Subscription != SubscriptionBasic {
		t.Errorf("subscription = %d", f.Subscription)
	}
	if len(f.Members) != 0 {
		t.Errorf("members = %d, want 0", len(f.Members))
	}
}

func TestCreateFamilyUnknownSubscription(t *testing.T) {
	if _, err := CreateFamily(uuid.New(), "Fam", "", SubscriptionType(7)); xerrors.TypeOf(err) != xerrors.ErrInvalidArg {
		t.Errorf("error = %v, want ErrInvalidArg", err)
	}
}

func TestAddMembersAndUsername(t *testing.T) {
	f := newFamily(t)
	dob := time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC)

	adult, err := f.AddAdultMember("John", "Doe", "john@example.com", dob, "")
	if err != nil {
		t.Fatalf("AddAdultMember: %v", err)
	}
	if adult.Credential.Username != "john_doe" {
		t.Errorf("username = %s, want john_doe", adult.Credential.Username)
	}
	if adult.Detail.Kind() != KindAdult {
		t.Errorf("kind = %d", adult.Detail.Kind())
	}

	child, err := f.AddChildMember("Jane", "Doe", "jane@example.com", dob, 5, "")
	if err != nil {
		t.Fatalf("AddChildMember: %v", err)
	}
	detail, ok := child.Detail.(ChildDetail)
	if !ok {
		t.Fatalf("detail type = %T", child.Detail)
	}
	if detail.Grade != 5 {
		t.Errorf("grade = %d, want 5", detail.Grade)
	}

	if len(f.Members) != 2 {
		t.Errorf("members = %d, want 2", len(f.Members))
	}
	if f.Version() != 3 {
		t.Errorf("version = %d, want 3", f.Version())
	}
}

// 同一账户 ID 重复加入被拒绝，聚合状态与版本保持不变。
func TestDuplicateMemberRejected(t *testing.T) {
	f := newFamily(t)
	dob := time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC)

	adult, err := f.AddAdultMember("John", "Doe", "john@example.com", dob, "")
	if err != nil {
		t.Fatalf("AddAdultMember: %v", err)
	}
	version := f.Version()

	dup := &AdultMemberAdded{
		EventModel: eventsourcing.NewEventModel(f.ID()),
		MemberID:   adult.ID,
		FirstName:  "John",
		LastName:   "Doe",
		Username:   "john_doe",
	}
	if err := f.Apply(dup); xerrors.TypeOf(err) != xerrors.ErrFailedPrecondition {
		t.Errorf("duplicate apply error = %v, want ErrFailedPrecondition", err)
	}

	if len(f.Members) != 1 {
		t.Errorf("members = %d, want 1", len(f.Members))
	}
	if f.Version() != version {
		t.Errorf("version = %d, want %d", f.Version(), version)
	}
}

func TestRemoveMember(t *testing.T) {
	f := newFamily(t)
	dob := time.Date(2012, 6, 15, 0, 0, 0, 0, time.UTC)

	child, err := f.AddChildMember("Jane", "Doe", "jane@example.com", dob, 5, "")
	if err != nil {
		t.Fatalf("AddChildMember: %v", err)
	}

	if err := f.RemoveMember(child.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if len(f.Members) != 0 {
		t.Errorf("members = %d, want 0", len(f.Members))
	}

	err = f.RemoveMember(child.ID)
	if xerrors.TypeOf(err) != xerrors.ErrFailedPrecondition {
		t.Errorf("remove absent error = %v, want ErrFailedPrecondition", err)
	}
}

func TestFamilyReplayDeterminism(t *testing.T) {
	f := newFamily(t)
	dob := time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := f.AddAdultMember("John", "Doe", "john@example.com", dob, ""); err != nil {
		t.Fatalf("AddAdultMember: %v", err)
	}
	child, err := f.AddChildMember("Jane", "Doe", "jane@example.com", dob, 5, "")
	if err != nil {
		t.Fatalf("AddChildMember: %v", err)
	}
	if err := f.ChangeSubscription(SubscriptionPremium); err != nil {
		t.Fatalf("ChangeSubscription: %v", err)
	}
	if err := f.RemoveMember(child.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	replayed := NewBlankFamily()
	if err := eventsourcing.LoadFromHistory(replayed, f.UncommittedEvents()); err != nil {
		t.Fatalf("LoadFromHistory: %v", err)
	}

	if replayed.ID() != f.ID() {
		t.Errorf("id = %s, want %s", replayed.ID(), f.ID())
	}
	if replayed.Version() != f.Version() {
		t.Errorf("version = %d, want %d", replayed.Version(), f.Version())
	}
	if replayed.Subscription != SubscriptionPremium {
		t.Errorf("subscription = %d, want premium", replayed.Subscription)
	}
	if len(replayed.Members) != 1 {
		t.Errorf("members = %d, want 1", len(replayed.Members))
	}
}

func TestFamilySnapshotRoundTrip(t *testing.T) {
	f := newFamily(t)
	dob := time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := f.AddAdultMember("John", "Doe", "john@example.com", dob, ""); err != nil {
		t.Fatalf("AddAdultMember: %v", err)
	}
	child, err := f.AddChildMember("Jane", "Doe", "jane@example.com", dob, 5, "")
	if err != nil {
		t.Fatalf("AddChildMember: %v", err)
	}

	data, err := json.Marshal(f.SnapshotState())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	restored := NewBlankFamily()
	if err := restored.RestoreSnapshot(data); err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}

	if len(restored.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(restored.Members))
	}
	detail, ok := restored.Members[child.ID].Detail.(ChildDetail)
	if !ok {
		t.Fatalf("restored child detail type = %T", restored.Members[child.ID].Detail)
	}
	if detail.Grade != 5 {
		t.Errorf("grade = %d, want 5", detail.Grade)
	}
}

func TestCredentialVerify(t *testing.T) {
	cred, err := NewCredential("john_doe", "s3cret")
	if err != nil {
		t.Fatalf("NewCredential: %v", err)
	}

	if !cred.Verify("s3cret") {
		t.Error("correct password rejected")
	}
	if cred.Verify("wrong") {
		t.Error("wrong password accepted")
	}

	bare, err := NewCredential("john_doe", "")
	if err != nil {
		t.Fatalf("NewCredential without password: %v", err)
	}
	if bare.Verify("") {
		t.Error("empty credential verified")
	}
}

func TestMemberPasswordSurvivesReplay(t *testing.T) {
	f := newFamily(t)
	dob := time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC)

	adult, err := f.AddAdultMember("John", "Doe", "john@example.com", dob, "s3cret")
	if err != nil {
		t.Fatalf("AddAdultMember: %v", err)
	}
	if !adult.Credential.Verify("s3cret") {
		t.Fatal("password not verifiable right after creation")
	}

	replayed := NewBlankFamily()
	if err := eventsourcing.LoadFromHistory(replayed, f.UncommittedEvents()); err != nil {
		t.Fatalf("LoadFromHistory: %v", err)
	}

	member, ok := replayed.Members[adult.ID]
	if !ok {
		t.Fatal("member missing after replay")
	}
	if !member.Credential.Verify("s3cret") {
		t.Error("password not verifiable after replay")
	}
	if member.Credential.Verify("wrong") {
		t.Error("wrong password accepted after replay")
	}
}
