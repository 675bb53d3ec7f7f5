// Package errors provides typed errors for the orchestration engine.
// All errors support errors.Is() and errors.As() for proper error handling.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is()
var (
	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingRequired indicates a required field is missing
	ErrMissingRequired = errors.New("missing required field")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrClosed indicates the resource has been closed
	ErrClosed = errors.New("resource closed")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrRateLimited indicates rate limiting was triggered
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExceeded indicates a quota was exceeded
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrAuthFailed indicates authentication failed
	ErrAuthFailed = errors.New("authentication failed")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnsupportedOperation indicates an unsupported operation
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrRetryable indicates the error is retryable
	ErrRetryable = errors.New("retryable error")

	// ErrPermanent indicates a permanent error that should not be retried
	ErrPermanent = errors.New("permanent error")
)

// LLMError represents an error during LLM operations
type LLMError struct {
	Provider   string
	Model      string
	Operation  string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm %s/%s: %s (status %d): %v", e.Provider, e.Model, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s/%s: %s: %v", e.Provider, e.Model, e.Operation, e.Err)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func (e *LLMError) Is(target error) bool {
	if e.Retryable && errors.Is(target, ErrRetryable) {
		return true
	}
	if e.StatusCode == 429 && errors.Is(target, ErrRateLimited) {
		return true
	}
	if e.StatusCode == 401 && errors.Is(target, ErrAuthFailed) {
		return true
	}
	if e.StatusCode == 403 && errors.Is(target, ErrPermissionDenied) {
		return true
	}
	return false
}

// NewLLMError creates a new LLM error
func NewLLMError(provider, model, operation string, statusCode int, err error) *LLMError {
	retryable := statusCode == 429 || statusCode == 500 || statusCode == 502 || statusCode == 503 || statusCode == 504
	return &LLMError{
		Provider:   provider,
		Model:      model,
		Operation:  operation,
		StatusCode: statusCode,
		Err:        err,
		Retryable:  retryable,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error: %s: %s (got %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Field     string
	Message   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s.%s: %s", e.Component, e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigError creates a new configuration error
func NewConfigError(component, field, message string) *ConfigError {
	return &ConfigError{
		Component: component,
		Field:     field,
		Message:   message,
	}
}

// RetryableError wraps an error and marks it as retryable
type RetryableError struct {
	Err         error
	MaxRetries  int
	RetryAfter  int // seconds, if known
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func (e *RetryableError) Is(target error) bool {
	return errors.Is(target, ErrRetryable)
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error, maxRetries int) *RetryableError {
	return &RetryableError{
		Err:        err,
		MaxRetries: maxRetries,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

// IsRateLimited checks if an error is due to rate limiting
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout checks if an error is due to timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is due to cancellation
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsNotFound checks if an error is due to resource not found
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// PlanningError represents a failure to decompose a request into tasks.
type PlanningError struct {
	UserRequest string
	Err         error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed for %q: %v", e.UserRequest, e.Err)
}

func (e *PlanningError) Unwrap() error {
	return e.Err
}

// NewPlanningError creates a new planning error.
func NewPlanningError(userRequest string, err error) *PlanningError {
	return &PlanningError{UserRequest: userRequest, Err: err}
}

// ExecutionError represents a failure while executing a task.
type ExecutionError struct {
	TaskID string
	Stage  string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed for task %s at %s: %v", e.TaskID, e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a new execution error.
func NewExecutionError(taskID, stage string, err error) *ExecutionError {
	return &ExecutionError{TaskID: taskID, Stage: stage, Err: err}
}

// ApplyError represents a failure while applying side effects of a task result.
type ApplyError struct {
	TaskID string
	Path   string
	Err    error
}

func (e *ApplyError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("apply failed for task %s (%s): %v", e.TaskID, e.Path, e.Err)
	}
	return fmt.Sprintf("apply failed for task %s: %v", e.TaskID, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// NewApplyError creates a new apply error.
func NewApplyError(taskID, path string, err error) *ApplyError {
	return &ApplyError{TaskID: taskID, Path: path, Err: err}
}

// ForgeError represents a failure talking to the remote forge (Gitea/GitHub).
type ForgeError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *ForgeError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("forge %s failed (status %d): %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("forge %s failed: %v", e.Operation, e.Err)
}

func (e *ForgeError) Unwrap() error {
	return e.Err
}

func (e *ForgeError) Is(target error) bool {
	if e.StatusCode == 429 && errors.Is(target, ErrRateLimited) {
		return true
	}
	if e.StatusCode == 401 && errors.Is(target, ErrAuthFailed) {
		return true
	}
	return false
}

// NewForgeError creates a new forge error.
func NewForgeError(operation string, statusCode int, err error) *ForgeError {
	return &ForgeError{Operation: operation, StatusCode: statusCode, Err: err}
}

// GitOpError represents a failure during a local version-control operation.
type GitOpError struct {
	Operation string
	Ref       string
	Err       error
}

func (e *GitOpError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("git %s(%s) failed: %v", e.Operation, e.Ref, e.Err)
	}
	return fmt.Sprintf("git %s failed: %v", e.Operation, e.Err)
}

func (e *GitOpError) Unwrap() error {
	return e.Err
}

// NewGitOpError creates a new git operation error.
func NewGitOpError(operation, ref string, err error) *GitOpError {
	return &GitOpError{Operation: operation, Ref: ref, Err: err}
}

// BudgetExceededError indicates the engine stopped because it hit its
// configured iteration or time budget, not because it ran out of work.
type BudgetExceededError struct {
	Budget  string
	Limit   int
	Reached int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%s budget exceeded: reached %d of %d", e.Budget, e.Reached, e.Limit)
}

// NewBudgetExceededError creates a new budget-exceeded error.
func NewBudgetExceededError(budget string, limit, reached int) *BudgetExceededError {
	return &BudgetExceededError{Budget: budget, Limit: limit, Reached: reached}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
