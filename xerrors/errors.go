// Package xerrors 提供带类型分类的增强错误，消息处理链路据此决定死信分类。
package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorType 错误的大类。
type ErrorType uint

const (
	ErrUnknown ErrorType = iota
	ErrInternal
	ErrInvalidArg          // 命令格式错误：非法 UUID、未知枚举值、缺少必填字段。
	ErrNotFound            // 聚合根不存在。
	ErrFailedPrecondition  // 业务规则冲突：重复成员、移除不存在的商品等。
	ErrConcurrencyConflict // 保存时版本冲突。
	ErrUnavailable         // 外部依赖错误：身份提供方、读模型存储。
)

// Error 增强型错误结构。
type Error struct {
	Type    ErrorType      `json:"type"`
	Code    int            `json:"code"`    // 业务自定义错误码。
	Message string         `json:"message"` // 对外展示的友好消息。
	Detail  string         `json:"detail"`  // 对内调试的详细信息。
	Cause   error          `json:"-"`       // 原始错误。
	Stack   []string       `json:"stack"`   // 堆栈追踪。
	Context map[string]any `json:"context"` // 上下文数据 (AggregateID 等)。
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %d: %s (Cause: %v)", e.Type.String(), e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %d: %s", e.Type.String(), e.Code, e.Message)
}

// Unwrap 实现 Go 1.13 解包接口。
func (e *Error) Unwrap() error {
	return e.Cause
}

func (t ErrorType) String() string {
	return [...]string{
		"Unknown", "Internal", "InvalidArg", "NotFound",
		"FailedPrecondition", "ConcurrencyConflict", "Unavailable",
	}[t]
}

// New 创建新错误并自动捕获堆栈。
func New(errType ErrorType, code int, message string, detail string, cause error) *Error {
	e := &Error{
		Type:    errType,
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
		Context: make(map[string]any),
	}
	e.captureStack()
	return e
}

// captureStack 捕获当前调用栈 (深度限制 10 层)。
func (e *Error) captureStack() {
	const depth = 10
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // 跳过 captureStack, New 和上层构造函数。
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		e.Stack = append(e.Stack, fmt.Sprintf("%s:%d (%s)", frame.File, frame.Line, frame.Function))
		if !more || len(e.Stack) >= depth {
			break
		}
	}
}

// WithContext 附加上下文数据。
func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// WithDetail 设置调试详情。
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// --- 快捷构造工具 ---

func Internal(msg string, cause error) *Error {
	return New(ErrInternal, 500, msg, "", cause)
}

func InvalidArg(msg string) *Error {
	return New(ErrInvalidArg, 400, msg, "", nil)
}

func NotFound(msg string) *Error {
	return New(ErrNotFound, 404, msg, "", nil)
}

func FailedPrecondition(msg string) *Error {
	return New(ErrFailedPrecondition, 422, msg, "", nil)
}

func Conflict(msg string, cause error) *Error {
	return New(ErrConcurrencyConflict, 409, msg, "", cause)
}

func Unavailable(msg string, cause error) *Error {
	return New(ErrUnavailable, 503, msg, "", cause)
}

// Wrap 使用指定类型包裹一个底层错误。
func Wrap(err error, errType ErrorType, msg string) *Error {
	return New(errType, 0, msg, "", err)
}

// WrapInternal 包裹为内部错误。
func WrapInternal(err error, msg string) *Error {
	return New(ErrInternal, 500, msg, "", err)
}

// FromError 尝试从普通 error 还原 *Error。
func FromError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// TypeOf 返回错误的分类，未分类错误归为 Unknown。
func TypeOf(err error) ErrorType {
	if e, ok := FromError(err); ok {
		return e.Type
	}
	return ErrUnknown
}

// HTTPStatus 将错误类型映射为 HTTP 状态码，供外层 API 网关使用。
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case ErrInvalidArg:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrFailedPrecondition:
		return http.StatusUnprocessableEntity
	case ErrConcurrencyConflict:
		return http.StatusConflict
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
