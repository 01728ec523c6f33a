// Package family 实现家庭/用户限界上下文：家庭、成员账户与订阅等级。
package family

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/xerrors"
)

// SubscriptionType 订阅等级。
type SubscriptionType int

const (
	SubscriptionBasic SubscriptionType = iota
	SubscriptionPremium
)

// Valid 判断订阅等级是否为已知枚举值。
func (s SubscriptionType) Valid() bool {
	return s == SubscriptionBasic || s == SubscriptionPremium
}

// AccountKind 成员账户类型。
type AccountKind int

const (
	KindAdult AccountKind = iota
	KindChild
)

// AccountDetail 账户详情的可辨识联合，按账户类型展开读取。
type AccountDetail interface {
	Kind() AccountKind
}

// AdultDetail 成年成员详情。
type AdultDetail struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	DOB       time.Time `json:"dob"`
}

// Kind 实现 AccountDetail。
func (AdultDetail) Kind() AccountKind { return KindAdult }

// ChildDetail 子女成员详情。
type ChildDetail struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	DOB       time.Time `json:"dob"`
	Grade     int       `json:"grade"`
}

// Kind 实现 AccountDetail。
func (ChildDetail) Kind() AccountKind { return KindChild }

// Member 家庭成员账户。
type Member struct {
	ID         string
	Detail     AccountDetail
	Credential Credential
}

// Family 家庭聚合根。
type Family struct {
	eventsourcing.AggregateRoot

	Name         string
	Description  string
	Subscription SubscriptionType
	Members      map[string]Member
}

// NewBlankFamily 返回零状态家庭，供回放使用。
func NewBlankFamily() *Family {
	return &Family{Members: make(map[string]Member)}
}

// CreateFamily 建立新家庭。
func CreateFamily(id uuid.UUID, name, description string, subscription SubscriptionType) (*Family, error) {
	if !subscription.Valid() {
		return nil, xerrors.InvalidArg(fmt.Sprintf("unknown subscription type: %d", subscription))
	}

	f := NewBlankFamily()

	ev := &FamilyCreated{
		EventModel:   eventsourcing.NewEventModel(id.String()),
		Name:         name,
		Description:  description,
		Subscription: subscription,
	}

	return f, f.raise(ev)
}

// AddAdultMember 添加成年成员。password 可为空，此时凭据仅含用户名。
func (f *Family) AddAdultMember(firstName, lastName, email string, dob time.Time, password string) (Member, error) {
	cred, err := NewCredential(buildUsername(firstName, lastName), password)
	if err != nil {
		return Member{}, err
	}

	ev := &AdultMemberAdded{
		EventModel:   eventsourcing.NewEventModel(f.ID()),
		MemberID:     uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		DOB:          dob,
		Username:     cred.Username,
		PasswordHash: cred.PasswordHash,
	}

	if err := f.raise(ev); err != nil {
		return Member{}, err
	}

	return f.Members[ev.MemberID], nil
}

// AddChildMember 添加子女成员。password 可为空，此时凭据仅含用户名。
func (f *Family) AddChildMember(firstName, lastName, email string, dob time.Time, grade int, password string) (Member, error) {
	cred, err := NewCredential(buildUsername(firstName, lastName), password)
	if err != nil {
		return Member{}, err
	}

	ev := &ChildMemberAdded{
		EventModel:   eventsourcing.NewEventModel(f.ID()),
		MemberID:     uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		DOB:          dob,
		Grade:        grade,
		Username:     cred.Username,
		PasswordHash: cred.PasswordHash,
	}

	if err := f.raise(ev); err != nil {
		return Member{}, err
	}

	return f.Members[ev.MemberID], nil
}

// RemoveMember 移除成员。成员不存在是业务错误。
func (f *Family) RemoveMember(memberID string) error {
	if _, ok := f.Members[memberID]; !ok {
		return xerrors.FailedPrecondition("family member not found").
			WithContext("family_id", f.ID()).
			WithContext("member_id", memberID)
	}

	ev := &MemberRemoved{
		EventModel: eventsourcing.NewEventModel(f.ID()),
		MemberID:   memberID,
	}

	return f.raise(ev)
}

// ChangeSubscription 变更订阅等级。等级未变化由应用服务先行拦截。
func (f *Family) ChangeSubscription(subscription SubscriptionType) error {
	if !subscription.Valid() {
		return xerrors.InvalidArg(fmt.Sprintf("unknown subscription type: %d", subscription))
	}

	ev := &SubscriptionChanged{
		EventModel:   eventsourcing.NewEventModel(f.ID()),
		Subscription: subscription,
	}

	return f.raise(ev)
}

// addMember 成员集合无重复：同一账户 ID 重复加入是业务错误。
func (f *Family) addMember(m Member) error {
	if _, ok := f.Members[m.ID]; ok {
		return xerrors.FailedPrecondition(
			fmt.Sprintf("AccountID=%s already member", m.ID)).
			WithContext("family_id", f.ID())
	}
	f.Members[m.ID] = m

	return nil
}

func (f *Family) raise(ev eventsourcing.DomainEvent) error {
	if err := f.Apply(ev); err != nil {
		return err
	}
	f.Record(ev)

	return nil
}

// Apply 实现 eventsourcing.EventApplier。
func (f *Family) Apply(event eventsourcing.DomainEvent) error {
	switch ev := event.(type) {
	case *FamilyCreated:
		f.SetID(ev.AggregateID())
		f.Name = ev.Name
		f.Description = ev.Description
		f.Subscription = ev.Subscription
		if f.Members == nil {
			f.Members = make(map[string]Member)
		}
	case *AdultMemberAdded:
		return f.addMember(Member{
			ID: ev.MemberID,
			Detail: AdultDetail{
				FirstName: ev.FirstName,
				LastName:  ev.LastName,
				Email:     ev.Email,
				DOB:       ev.DOB,
			},
			Credential: Credential{Username: ev.Username, PasswordHash: ev.PasswordHash},
		})
	case *ChildMemberAdded:
		return f.addMember(Member{
			ID: ev.MemberID,
			Detail: ChildDetail{
				FirstName: ev.FirstName,
				LastName:  ev.LastName,
				Email:     ev.Email,
				DOB:       ev.DOB,
				Grade:     ev.Grade,
			},
			Credential: Credential{Username: ev.Username, PasswordHash: ev.PasswordHash},
		})
	case *MemberRemoved:
		delete(f.Members, ev.MemberID)
	case *SubscriptionChanged:
		f.Subscription = ev.Subscription
	default:
		return fmt.Errorf("family: unknown event type %T", event)
	}

	return nil
}

func buildUsername(firstName, lastName string) string {
	return strings.ToLower(firstName + "_" + lastName)
}

// memberSnapshot 成员的快照形态，联合类型展平并携带判别字段。
type memberSnapshot struct {
	ID         string     `json:"id"`
	Kind       int        `json:"kind"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email"`
	DOB        time.Time  `json:"dob"`
	Grade      int        `json:"grade,omitempty"`
	Credential Credential `json:"credential"`
}

type familySnapshot struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Subscription SubscriptionType `json:"subscription"`
	Members      []memberSnapshot `json:"members"`
}

// SnapshotState 实现 eventsourcing.Snapshotter。
func (f *Family) SnapshotState() any {
	members := make([]memberSnapshot, 0, len(f.Members))
	for _, m := range f.Members {
		snap := memberSnapshot{ID: m.ID, Kind: int(m.Detail.Kind()), Credential: m.Credential}
		switch d := m.Detail.(type) {
		case AdultDetail:
			snap.FirstName, snap.LastName, snap.Email, snap.DOB = d.FirstName, d.LastName, d.Email, d.DOB
		case ChildDetail:
			snap.FirstName, snap.LastName, snap.Email, snap.DOB = d.FirstName, d.LastName, d.Email, d.DOB
			snap.Grade = d.Grade
		}
		members = append(members, snap)
	}

	return familySnapshot{
		Name:         f.Name,
		Description:  f.Description,
		Subscription: f.Subscription,
		Members:      members,
	}
}

// RestoreSnapshot 实现 eventsourcing.Snapshotter。
func (f *Family) RestoreSnapshot(data []byte) error {
	var snap familySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("family: restore snapshot: %w", err)
	}

	f.Name = snap.Name
	f.Description = snap.Description
	f.Subscription = snap.Subscription
	f.Members = make(map[string]Member, len(snap.Members))

	for _, m := range snap.Members {
		member := Member{ID: m.ID, Credential: m.Credential}
		switch AccountKind(m.Kind) {
		case KindAdult:
			member.Detail = AdultDetail{FirstName: m.FirstName, LastName: m.LastName, Email: m.Email, DOB: m.DOB}
		case KindChild:
			member.Detail = ChildDetail{FirstName: m.FirstName, LastName: m.LastName, Email: m.Email, DOB: m.DOB, Grade: m.Grade}
		default:
			return fmt.Errorf("family: unknown member kind %d", m.Kind)
		}
		f.Members[m.ID] = member
	}

	return nil
}
