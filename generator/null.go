package generator

import "context"

// NullGenerator always returns an error. It exists so callers can fail
// closed when no generator is configured, rather than silently no-op.
type NullGenerator struct{}

func (NullGenerator) Generate(ctx context.Context, promptTemplate string, variables map[string]any) (string, error) {
	return "", errUnconfigured
}

func (NullGenerator) GenerateStructured(ctx context.Context, promptTemplate string, variables map[string]any, schema map[string]any) (map[string]any, error) {
	return nil, errUnconfigured
}

var errUnconfigured = genError("no generator configured")

type genError string

func (e genError) Error() string { return string(e) }
