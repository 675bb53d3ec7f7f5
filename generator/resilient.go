package generator

import (
	"context"
	"errors"

	yaverrors "github.com/yaverhq/yaver/errors"
	"github.com/yaverhq/yaver/resilience"
)

// RetryingGenerator decorates a Generator with retry-and-backoff. Language
// model backends fail transiently (rate limits, gateway timeouts), so a
// bounded retry sits between the engine and the backend; a structured-output
// validation failure is not retried here, since re-sending the identical
// prompt is the planner's shape-salvage job, not transport recovery.
type RetryingGenerator struct {
	inner  Generator
	policy *resilience.RetryPolicy
}

// NewRetryingGenerator wraps inner with the given retry policy. A nil
// policy uses resilience defaults (3 attempts, exponential backoff with
// jitter).
func NewRetryingGenerator(inner Generator, policy *resilience.RetryPolicy) *RetryingGenerator {
	if policy == nil {
		policy = resilience.DefaultRetryPolicy()
	}
	if policy.RetryableErrors == nil {
		policy.RetryableErrors = retryableGeneratorError
	}
	return &RetryingGenerator{inner: inner, policy: policy}
}

// Generate implements Generator.
func (g *RetryingGenerator) Generate(ctx context.Context, promptTemplate string, variables map[string]any) (string, error) {
	return resilience.RetryWithResult(ctx, g.policy, func() (string, error) {
		return g.inner.Generate(ctx, promptTemplate, variables)
	})
}

// GenerateStructured implements Generator.
func (g *RetryingGenerator) GenerateStructured(ctx context.Context, promptTemplate string, variables map[string]any, schema map[string]any) (map[string]any, error) {
	return resilience.RetryWithResult(ctx, g.policy, func() (map[string]any, error) {
		return g.inner.GenerateStructured(ctx, promptTemplate, variables, schema)
	})
}

// HealthCheck implements HealthCheckable when the inner generator does.
func (g *RetryingGenerator) HealthCheck(ctx context.Context) error {
	if hc, ok := g.inner.(HealthCheckable); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func retryableGeneratorError(err error) bool {
	var llmErr *yaverrors.LLMError
	if errors.As(err, &llmErr) {
		// 4xx other than 429 means the request itself is wrong; retrying
		// the same payload cannot succeed.
		code := llmErr.StatusCode
		if code >= 400 && code < 500 && code != 429 {
			return false
		}
		return true
	}
	var valErr *yaverrors.ValidationError
	return !errors.As(err, &valErr)
}
