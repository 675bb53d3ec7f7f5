// Package generator defines the boundary to the language model backing the
// engine's planning and code-writing steps. Everything downstream of this
// package treats the model as opaque: a prompt template plus variables goes
// in, text or a structured object comes out.
package generator

import "context"

// Generator produces free-form text or schema-constrained structured output
// from a named prompt template and its variables.
type Generator interface {
	// Generate renders promptTemplate with variables and returns the model's
	// raw text response.
	Generate(ctx context.Context, promptTemplate string, variables map[string]any) (string, error)

	// GenerateStructured renders promptTemplate with variables and asks the
	// model to return an object matching schema. Implementations may enforce
	// the schema server-side (e.g. JSON mode) or validate client-side; on
	// failure to produce a conforming object they return an error rather
	// than a best-effort guess.
	GenerateStructured(ctx context.Context, promptTemplate string, variables map[string]any, schema map[string]any) (map[string]any, error)
}

// HealthCheckable is implemented by generators that can report liveness
// without making a billable completion call.
type HealthCheckable interface {
	HealthCheck(ctx context.Context) error
}
