package errors_test

import (
	"errors"
	"fmt"

	yaverrors "github.com/yaverhq/yaver/errors"
)

func ExampleIsRetryable() {
	// Check if an error is retryable
	err := yaverrors.NewRetryableError(errors.New("connection failed"), 3)
	if yaverrors.IsRetryable(err) {
		fmt.Println("Error is retryable")
	}
	// Output: Error is retryable
}

func ExampleNewExecutionError() {
	// Create an execution error with task context
	underlying := errors.New("LLM API failed")
	err := yaverrors.NewExecutionError("abcd1234", "generate", underlying)
	fmt.Println(err.Error())
	// Output: execution failed for task abcd1234 at generate: LLM API failed
}

func ExampleNewLLMError() {
	// Create an LLM error with status code
	underlying := errors.New("rate limit exceeded")
	err := yaverrors.NewLLMError("openai", "gpt-4", "chat", 429, underlying)
	fmt.Println(err.Error())

	// Check if it's rate limited
	if errors.Is(err, yaverrors.ErrRateLimited) {
		fmt.Println("Error is rate limited")
	}
	// Output:
	// llm openai/gpt-4: chat (status 429): rate limit exceeded
	// Error is rate limited
}

func ExampleNewValidationError() {
	// Create a validation error
	err := yaverrors.NewValidationError("temperature", 2.5, "must be between 0 and 1")
	fmt.Println(err.Error())

	// Check if it's an invalid input error
	if errors.Is(err, yaverrors.ErrInvalidInput) {
		fmt.Println("This is an input validation error")
	}
	// Output:
	// validation error: temperature: must be between 0 and 1 (got 2.5)
	// This is an input validation error
}

func ExampleWrap() {
	// Wrap an error with additional context
	underlying := yaverrors.ErrTimeout
	wrapped := yaverrors.Wrap(underlying, "failed to refresh pull request")
	fmt.Println(wrapped.Error())

	// The underlying error can still be found with errors.Is
	if errors.Is(wrapped, yaverrors.ErrTimeout) {
		fmt.Println("Original error was a timeout")
	}
	// Output:
	// failed to refresh pull request: operation timed out
	// Original error was a timeout
}

func ExampleWrapf() {
	// Wrap an error with formatted context
	underlying := yaverrors.ErrNotFound
	wrapped := yaverrors.Wrapf(underlying, "document %s not found in collection %s", "doc-123", "my-collection")
	fmt.Println(wrapped.Error())
	// Output: document doc-123 not found in collection my-collection: not found
}

func ExampleGoWithError() {
	// Run a goroutine whose panic surfaces as an error
	errCh := yaverrors.GoWithError(func() error {
		panic("something went wrong")
	})

	err := <-errCh
	fmt.Println(err)
	// Output: panic: something went wrong
}

func ExampleSafeFuncVoid() {
	// Wrap a function to convert panics to errors
	fn := yaverrors.SafeFuncVoid(func() error {
		panic("unexpected error")
	})

	err := fn()
	fmt.Printf("Error: %v\n", err != nil)
	// Output: Error: true
}
