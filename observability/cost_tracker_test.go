package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostTracker_CalculateCost(t *testing.T) {
	tracker, err := NewCostTracker(CostConfig{Enabled: true, Currency: "USD"})
	require.NoError(t, err)

	cost := tracker.CalculateCost("openai", "gpt-4", 1000, 1000)
	assert.InDelta(t, 0.09, cost, 1e-9)

	assert.Zero(t, tracker.CalculateCost("openai", "unknown-model", 1000, 1000))
}

func TestCostTracker_RecordAndSummarize(t *testing.T) {
	tracker, err := NewCostTracker(CostConfig{Enabled: true, Currency: "USD"})
	require.NoError(t, err)
	ctx := context.Background()

	tracker.RecordCost(ctx, "abcd1234", "fix the bug", "openai", "gpt-4", 500, 100)
	tracker.RecordCost(ctx, "abcd1234", "fix the bug", "openai", "gpt-4", 300, 50)
	tracker.RecordCost(ctx, "ef567890", "fix the bug", "openai", "gpt-3.5-turbo", 200, 20)

	summary := tracker.GetTotalSummary()
	assert.Equal(t, 3, summary.TotalRequests)
	assert.Equal(t, 1170, summary.TotalTokens)
	assert.Len(t, summary.CostByTask, 2)
	assert.Greater(t, summary.CostByTask["abcd1234"], summary.CostByTask["ef567890"])
}

func TestCostTracker_DisabledRecordsNothing(t *testing.T) {
	tracker, err := NewCostTracker(CostConfig{Enabled: false})
	require.NoError(t, err)

	cost := tracker.RecordCost(context.Background(), "", "", "openai", "gpt-4", 1000, 1000)

	assert.Zero(t, cost)
	assert.Zero(t, tracker.GetTotalSummary().TotalRequests)
}

func TestTracer_DisabledIsNoOp(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: false})
	require.NoError(t, err)

	ctx, span := tracer.StartTaskSpan(context.Background(), "abcd1234", "Add greeting", "HIGH")
	tracer.RecordLLMTokens(span, 10, 20, 0.001)
	tracer.EndSpan(span, nil)

	assert.NotNil(t, ctx)
	assert.NoError(t, tracer.Close(context.Background()))
}

func TestCostTracker_SetAndGetPricing(t *testing.T) {
	tracker, err := NewCostTracker(CostConfig{Enabled: true})
	require.NoError(t, err)

	tracker.SetPricing(ModelPricing{
		Provider:             "openai",
		Model:                "custom",
		PromptPricePer1K:     0.002,
		CompletionPricePer1K: 0.004,
		LastUpdated:          time.Now().Format("2006-01-02"),
	})

	p, ok := tracker.GetPricing("openai", "custom")
	require.True(t, ok)
	assert.Equal(t, 0.002, p.PromptPricePer1K)
}
