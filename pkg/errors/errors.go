package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Kind classifies an error for callers; it decides the HTTP status.
type Kind string

const (
	KindInternal    Kind = "internal"
	KindNotFound    Kind = "not_found"
	KindValidation  Kind = "validation"
	KindConflict    Kind = "conflict"
	KindForbidden   Kind = "forbidden"
	KindUnavailable Kind = "unavailable"
)

// Error represents a custom error with stack trace
type Error struct {
	Code    int        `json:"code"`
	Kind    Kind       `json:"kind"`
	Reason  string     `json:"reason,omitempty"` // stable machine-readable code
	Message string     `json:"message"`
	Err     error      `json:"-"` // 原始错误，不序列化
	Stack   string     `json:"stack,omitempty"`
	Context []KeyValue `json:"context,omitempty"`
}

// KeyValue represents a key-value pair for context
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements the errors.Wrapper interface
func (e *Error) Unwrap() error {
	return e.Err
}

func newKind(kind Kind, code int, message string) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Stack:   captureStack(),
	}
}

// NotFound reports a referenced entity that does not exist.
func NotFound(message string) *Error {
	return newKind(KindNotFound, http.StatusNotFound, message)
}

// Validation reports missing or contradictory input, or a wrong workflow order.
func Validation(message string) *Error {
	return newKind(KindValidation, http.StatusBadRequest, message)
}

// Conflict reports a duplicate record.
func Conflict(message string) *Error {
	return newKind(KindConflict, http.StatusConflict, message)
}

// Forbidden reports a caller whose role may not perform the action.
func Forbidden(reason, message string) *Error {
	e := newKind(KindForbidden, http.StatusForbidden, message)
	e.Reason = reason
	return e
}

// Unavailable wraps a dependency failure that callers are expected to absorb.
func Unavailable(err error, message string) *Error {
	e := newKind(KindUnavailable, http.StatusServiceUnavailable, message)
	e.Err = err
	return e
}

// WithCode creates a new error with code
func WithCode(code int, message string) *Error {
	return &Error{
		Code:    code,
		Kind:    KindInternal,
		Message: message,
		Stack:   captureStack(),
	}
}

// WithCodef creates a new error with code and formatted message
func WithCodef(code int, format string, args ...interface{}) *Error {
	return WithCode(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with message
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Kind:    KindOf(err),
		Code:    GetCode(err),
		Reason:  ReasonOf(err),
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// New creates a new error
func New(message string) *Error {
	return WithCode(http.StatusInternalServerError, message)
}

// Errorf creates a new formatted error
func Errorf(format string, args ...interface{}) *Error {
	return New(fmt.Sprintf(format, args...))
}

// WithContext adds context to an error
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}

	// 创建新的错误实例以避免修改原始错误
	newErr := *e
	newErr.Context = make([]KeyValue, len(e.Context), len(e.Context)+1)
	copy(newErr.Context, e.Context)
	newErr.Context = append(newErr.Context, KeyValue{Key: key, Value: value})
	return &newErr
}

// captureStack captures the current stack trace
func captureStack() string {
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// 移除顶部几行（通常是 captureStack 和 Error 相关的调用）
	lines := strings.Split(stack, "\n")
	if len(lines) > 6 {
		stack = strings.Join(lines[6:], "\n")
	}

	return strings.TrimSpace(stack)
}

func asError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	if e, ok := asError(err); ok && e.Kind != "" {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ReasonOf returns the machine-readable reason, if any.
func ReasonOf(err error) string {
	if e, ok := asError(err); ok {
		return e.Reason
	}
	return ""
}

// GetCode returns the error code
func GetCode(err error) int {
	if e, ok := asError(err); ok && e.Code != 0 {
		return e.Code
	}
	if err != nil {
		return http.StatusInternalServerError
	}
	return 0
}

// GetMessage returns the error message
func GetMessage(err error) string {
	if e, ok := asError(err); ok {
		return e.Error()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// GetStack returns the error stack trace
func GetStack(err error) string {
	if e, ok := asError(err); ok {
		return e.Stack
	}
	return ""
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Cause returns the underlying error
func Cause(err error) error {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Err != nil {
			err = e.Err
		} else {
			return err
		}
	}
	return err
}

// Format implements fmt.Formatter
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			if e.Stack != "" {
				fmt.Fprintf(s, "\n%s", e.Stack)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
