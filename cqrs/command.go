// Package cqrs 提供命令分发的基础设施和接口定义。
package cqrs

import "context"

// Command 命令接口标识。
type Command interface {
	// CommandName 返回线路上的命令名称，用于路由和日志。
	CommandName() string
}

// Validator 可选接口：命令在分发前进行载荷校验。
type Validator interface {
	// Validate 校验命令载荷，非法时返回错误。
	Validate() error
}

// Factory 构造一个空白命令实例，供 JSON 反序列化填充。
type Factory func() Command

// Handler 命令处理函数。
type Handler func(ctx context.Context, cmd Command) error

// CommandHandler 命令处理器泛型接口。
type CommandHandler[C Command] interface {
	// Handle 处理命令逻辑。
	Handle(ctx context.Context, cmd C) error
}
