package family

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/wyfcoding/allowance/datetime"
	"github.com/wyfcoding/allowance/xerrors"
)

// NewFamily 建立家庭命令，同时携带创始成员信息。
// id 缺省时由服务端生成。
type NewFamily struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	SubscriptionType int    `json:"subscription_type"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	DOB              string `json:"dob"`
	Password         string `json:"password,omitempty"`
}

// CommandName 实现 cqrs.Command。
func (NewFamily) CommandName() string { return "NewFamilyEvent" }

// Validate 实现 cqrs.Validator。
func (c NewFamily) Validate() error {
	if c.ID != "" {
		if _, err := uuid.Parse(c.ID); err != nil {
			return fmt.Errorf("id: %w", err)
		}
	}
	if !SubscriptionType(c.SubscriptionType).Valid() {
		return xerrors.InvalidArg(fmt.Sprintf("unknown subscription_type: %d", c.SubscriptionType))
	}
	if _, err := datetime.ParseISO8601(c.DOB); err != nil {
		return fmt.Errorf("dob: %w", err)
	}

	return nil
}

// NewChildAccount 添加子女成员命令。
type NewChildAccount struct {
	FamilyID  string `json:"family_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	DOB       string `json:"dob"`
	Grade     int    `json:"grade"`
	Password  string `json:"password,omitempty"`
}

// CommandName 实现 cqrs.Command。
func (NewChildAccount) CommandName() string { return "NewChildAccountEvent" }

// Validate 实现 cqrs.Validator。
func (c NewChildAccount) Validate() error {
	if _, err := uuid.Parse(c.FamilyID); err != nil {
		return fmt.Errorf("family_id: %w", err)
	}
	if _, err := datetime.ParseISO8601(c.DOB); err != nil {
		return fmt.Errorf("dob: %w", err)
	}

	return nil
}

// NewAdultAccount 添加成年成员命令。
type NewAdultAccount struct {
	FamilyID  string `json:"family_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	DOB       string `json:"dob"`
	Password  string `json:"password,omitempty"`
}

// CommandName 实现 cqrs.Command。
func (NewAdultAccount) CommandName() string { return "NewAdultAccountEvent" }

// Validate 实现 cqrs.Validator。
func (c NewAdultAccount) Validate() error {
	if _, err := uuid.Parse(c.FamilyID); err != nil {
		return fmt.Errorf("family_id: %w", err)
	}
	if _, err := datetime.ParseISO8601(c.DOB); err != nil {
		return fmt.Errorf("dob: %w", err)
	}

	return nil
}

// FamilySubscriptionChange 订阅等级变更命令。
type FamilySubscriptionChange struct {
	FamilyID         string `json:"family_id"`
	SubscriptionType int    `json:"subscription_type"`
}

// CommandName 实现 cqrs.Command。
func (FamilySubscriptionChange) CommandName() string { return "FamilySubscriptionChangeEvent" }

// Validate 实现 cqrs.Validator。
func (c FamilySubscriptionChange) Validate() error {
	if _, err := uuid.Parse(c.FamilyID); err != nil {
		return fmt.Errorf("family_id: %w", err)
	}
	if !SubscriptionType(c.SubscriptionType).Valid() {
		return xerrors.InvalidArg(fmt.Sprintf("unknown subscription_type: %d", c.SubscriptionType))
	}

	return nil
}

// CreateIdentity 外部身份登记命令。is_real 为假时只做日志记录。
type CreateIdentity struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsReal   bool   `json:"is_real"`
}

// CommandName 实现 cqrs.Command。
func (CreateIdentity) CommandName() string { return "CreateIdentityEvent" }
