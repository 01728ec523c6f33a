package family

import (
	"time"

	"github.com/wyfcoding/allowance/eventsourcing"
)

// FamilyCreated 家庭建立事件。
type FamilyCreated struct {
	eventsourcing.EventModel

	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Subscription SubscriptionType `json:"subscription_type"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*FamilyCreated) EventType() string { return "family.FamilyCreated" }

// AdultMemberAdded 成年成员加入事件。
type AdultMemberAdded struct {
	eventsourcing.EventModel

	MemberID     string    `json:"member_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	DOB          time.Time `json:"dob"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"password_hash,omitempty"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*AdultMemberAdded) EventType() string { return "family.AdultMemberAdded" }

// ChildMemberAdded 子女成员加入事件。
type ChildMemberAdded struct {
	eventsourcing.EventModel

	MemberID     string    `json:"member_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	DOB          time.Time `json:"dob"`
	Grade        int       `json:"grade"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"password_hash,omitempty"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*ChildMemberAdded) EventType() string { return "family.ChildMemberAdded" }

// MemberRemoved 成员移除事件。
type MemberRemoved struct {
	eventsourcing.EventModel

	MemberID string `json:"member_id"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*MemberRemoved) EventType() string { return "family.MemberRemoved" }

// SubscriptionChanged 订阅等级变更事件。
type SubscriptionChanged struct {
	eventsourcing.EventModel

	Subscription SubscriptionType `json:"subscription_type"`
}

// EventType 实现 eventsourcing.DomainEvent。
func (*SubscriptionChanged) EventType() string { return "family.SubscriptionChanged" }

// RegisterEvents 向事件注册表登记本上下文的全部事件类型。
func RegisterEvents(r *eventsourcing.Registry) {
	r.Register(func() eventsourcing.DomainEvent { return &FamilyCreated{} })
	r.Register(func() eventsourcing.DomainEvent { return &AdultMemberAdded{} })
	r.Register(func() eventsourcing.DomainEvent { return &ChildMemberAdded{} })
	r.Register(func() eventsourcing.DomainEvent { return &MemberRemoved{} })
	r.Register(func() eventsourcing.DomainEvent { return &SubscriptionChanged{} })
}
