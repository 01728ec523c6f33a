// Package identity 抽象了外部身份提供方的用户登记。
package identity

import (
	"context"

	"github.com/wyfcoding/allowance/config"
	"github.com/wyfcoding/allowance/logging"
)

// Provider 外部身份提供方。
type Provider interface {
	// RegisterUser 在身份池中登记一个用户。
	RegisterUser(ctx context.Context, username, email string) error
}

// LogProvider 仅记录日志的身份提供方，未接入真实身份池时使用。
type LogProvider struct {
	poolID string
	logger *logging.Logger
}

// NewLogProvider 创建日志身份提供方。
func NewLogProvider(cfg config.IdentityConfig, logger *logging.Logger) *LogProvider {
	return &LogProvider{poolID: cfg.PoolID, logger: logger}
}

// RegisterUser 记录登记请求。始终成功。
func (p *LogProvider) RegisterUser(ctx context.Context, username, email string) error {
	p.logger.InfoContext(ctx, "identity user registered",
		"pool_id", p.poolID,
		"username", username,
		"email", email,
	)

	return nil
}
