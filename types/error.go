package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the client.
type ErrorCode string

// Client error codes
const (
	// ErrConfiguration 创建任务时缺少必要输入（字段/模板均未提供等），不重试
	ErrConfiguration ErrorCode = "CONFIGURATION"
	// ErrConnection 传输层失败且重试次数耗尽
	ErrConnection ErrorCode = "CONNECTION"
	// ErrService 响应格式正确但 success=false
	ErrService ErrorCode = "SERVICE_ERROR"
	// ErrMalformedResponse 响应体不是合法 JSON 信封
	ErrMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	// ErrTimeout 轮询超出等待预算
	ErrTimeout ErrorCode = "TIMEOUT"
	// ErrCanceled 调用方取消了 context
	ErrCanceled ErrorCode = "CANCELED"
	// ErrInvalidSubmission 提交数据不符合字段定义
	ErrInvalidSubmission ErrorCode = "INVALID_SUBMISSION"
	// ErrInvalidSignature Webhook 签名校验失败
	ErrInvalidSignature ErrorCode = "INVALID_SIGNATURE"
)

// UnknownServiceCode is reported when the service omits an error code.
const UnknownServiceCode = "UNKNOWN_ERROR"

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code        ErrorCode  `json:"code"`
	Message     string     `json:"message"`
	ServiceCode string     `json:"service_code,omitempty"`
	HTTPStatus  int        `json:"http_status,omitempty"`
	TaskID      string     `json:"task_id,omitempty"`
	LastStatus  TaskStatus `json:"last_status,omitempty"`
	Retryable   bool       `json:"retryable"`
	Cause       error      `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.ServiceCode != "" {
		msg = fmt.Sprintf("[%s] API Error (%s): %s", e.Code, e.ServiceCode, e.Message)
	}
	if e.LastStatus != "" {
		msg += fmt.Sprintf(" (last status: %s)", e.LastStatus)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithServiceCode records the error code reported by the remote service.
func (e *Error) WithServiceCode(code string) *Error {
	e.ServiceCode = code
	return e
}

// WithTask annotates the error with the task it concerns and the last observed status.
func (e *Error) WithTask(taskID string, status TaskStatus) *Error {
	e.TaskID = taskID
	e.LastStatus = status
	return e
}

// AsError extracts *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether any *Error in the chain carries the code.
func IsErrorCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsTimeout reports a polling timeout. The interrupt adapter downgrades only this kind.
func IsTimeout(err error) bool { return IsErrorCode(err, ErrTimeout) }

// IsConfiguration reports missing or inconsistent task-creation input.
func IsConfiguration(err error) bool { return IsErrorCode(err, ErrConfiguration) }

// IsConnection reports a transport failure after the retry budget was spent.
func IsConnection(err error) bool { return IsErrorCode(err, ErrConnection) }

// IsValueError reports the value class: service errors, malformed responses and bad submissions.
func IsValueError(err error) bool {
	switch GetErrorCode(err) {
	case ErrService, ErrMalformedResponse, ErrInvalidSubmission:
		return true
	}
	return false
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) *Error {
	return NewError(ErrConfiguration, message)
}

// NewTimeoutError creates a polling timeout error for a task.
func NewTimeoutError(taskID string, last TaskStatus) *Error {
	return NewError(ErrTimeout, fmt.Sprintf("Task %s not completed within timeout", taskID)).
		WithTask(taskID, last)
}
