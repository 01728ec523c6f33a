package family

import (
	"golang.org/x/crypto/bcrypt"
)

// Credential 成员的本地登录凭据。
type Credential struct {
	Username     string `json:"username"`
	PasswordHash []byte `json:"password_hash,omitempty"`
}

// NewCredential 创建凭据。password 为空时只登记用户名，
// 密码由后续的身份登记流程补齐。
func NewCredential(username, password string) (Credential, error) {
	c := Credential{Username: username}
	if password == "" {
		return c, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Credential{}, err
	}
	c.PasswordHash = hash

	return c, nil
}

// Verify 校验明文密码。
func (c Credential) Verify(password string) bool {
	if len(c.PasswordHash) == 0 {
		return false
	}

	return bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)) == nil
}
