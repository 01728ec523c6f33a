package cqrs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/wyfcoding/allowance/metrics"
	"github.com/wyfcoding/allowance/xerrors"
)

type entry struct {
	factory Factory
	handle  Handler
	cmdType reflect.Type
}

// Registry 将线路命令名映射到命令工厂与处理器，按命令名分发。
type Registry struct {
	entries map[string]entry
	context string
	metrics *metrics.Metrics
	mu      sync.RWMutex
}

// NewRegistry 创建一个命令注册表。contextName 标识所属限界上下文，用于日志与指标维度。
func NewRegistry(contextName string, m *metrics.Metrics) *Registry {
	return &Registry{
		entries: make(map[string]entry),
		context: contextName,
		metrics: m,
	}
}

// Register 注册命令处理器。同名重复注册视为装配错误，直接 panic。
func (r *Registry) Register(factory Factory, handle Handler) {
	cmd := factory()
	name := cmd.CommandName()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; ok {
		panic(fmt.Sprintf("cqrs: command %s already registered", name))
	}

	r.entries[name] = entry{
		factory: factory,
		handle:  handle,
		cmdType: reflect.TypeOf(cmd),
	}
}

// RegisterHandler 泛型注册辅助：绑定具体命令类型的处理函数，
// 并在分发时做防御性的运行时类型检查。
func RegisterHandler[C Command](r *Registry, factory func() C, handle func(ctx context.Context, cmd C) error) {
	r.Register(
		func() Command { return factory() },
		func(ctx context.Context, cmd Command) error {
			typed, ok := cmd.(C)
			if !ok {
				return xerrors.Internal(
					fmt.Sprintf("command %s has unexpected type %T", cmd.CommandName(), cmd), nil)
			}

			return handle(ctx, typed)
		},
	)
}

// Known 判断命令名是否已注册。
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[name]

	return ok
}

// Names 返回所有已注册的命令名。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	return names
}

// Dispatch 反序列化载荷并分发到已注册的处理器。
// 未知命令名与非法 JSON 均归类为 InvalidArg。
func (r *Registry) Dispatch(ctx context.Context, name string, payload json.RawMessage) error {
	start := time.Now()

	r.mu.RLock()
	ent, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		slog.ErrorContext(ctx, "no command handler registered", "context", r.context, "command", name)
		r.observe(name, "unknown", start)

		return xerrors.InvalidArg("unknown command: " + name)
	}

	cmd := ent.factory()
	if got := reflect.TypeOf(cmd); got != ent.cmdType {
		slog.ErrorContext(ctx, "command factory returned unexpected type",
			"context", r.context, "command", name, "got", got.String(), "want", ent.cmdType.String())
		r.observe(name, "mismatch", start)

		return xerrors.Internal(
			fmt.Sprintf("command %s factory returned %s, registered as %s", name, got, ent.cmdType), nil)
	}

	if err := json.Unmarshal(payload, cmd); err != nil {
		r.observe(name, "malformed", start)

		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "malformed payload for command "+name)
	}

	if v, isValidator := cmd.(Validator); isValidator {
		if err := v.Validate(); err != nil {
			r.observe(name, "invalid", start)

			return xerrors.Wrap(err, xerrors.ErrInvalidArg, "invalid payload for command "+name)
		}
	}

	err := ent.handle(ctx, cmd)
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "command dispatch failed",
			"context", r.context, "command", name, "error", err, "duration", duration)
		r.observe(name, "error", start)

		return err
	}

	slog.InfoContext(ctx, "command dispatched successfully",
		"context", r.context, "command", name, "duration", duration)
	r.observe(name, "success", start)

	return nil
}

func (r *Registry) observe(name, status string, start time.Time) {
	if r.metrics == nil {
		return
	}

	r.metrics.CommandsTotal.WithLabelValues(r.context, name, status).Inc()
	r.metrics.CommandDuration.WithLabelValues(r.context, name).Observe(time.Since(start).Seconds())
}
