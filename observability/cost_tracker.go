package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/metrics"
)

// CostConfig contains cost tracking configuration
type CostConfig struct {
	Enabled              bool
	PricingFile          string
	BudgetAlertThreshold float64 // USD per day
	Currency             string
}

// ModelPricing contains pricing information for LLM models
type ModelPricing struct {
	Provider             string  `json:"provider"`
	Model                string  `json:"model"`
	PromptPricePer1K     float64 `json:"prompt_price_per_1k"`     // USD per 1K prompt tokens
	CompletionPricePer1K float64 `json:"completion_price_per_1k"` // USD per 1K completion tokens
	LastUpdated          string  `json:"last_updated"`
}

// CostRecord represents a single cost record. TaskID attributes the spend
// to the task whose execution triggered the generator call; it is empty
// when the caller supplies no task id, as OpenAIGenerator does for every
// call it records.
type CostRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	TaskID           string    `json:"task_id"`
	SessionRequest   string    `json:"session_request"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Cost             float64   `json:"cost"`
	Currency         string    `json:"currency"`
}

// CostSummary represents aggregated cost statistics
type CostSummary struct {
	TotalCost      float64            `json:"total_cost"`
	TotalTokens    int                `json:"total_tokens"`
	TotalRequests  int                `json:"total_requests"`
	CostByProvider map[string]float64 `json:"cost_by_provider"`
	CostByModel    map[string]float64 `json:"cost_by_model"`
	CostByTask     map[string]float64 `json:"cost_by_task"`
	TokensByModel  map[string]int     `json:"tokens_by_model"`
	Currency       string             `json:"currency"`
	StartTime      time.Time          `json:"start_time"`
	EndTime        time.Time          `json:"end_time"`
}

// CostTracker tracks and manages LLM costs
type CostTracker struct {
	config    CostConfig
	pricing   map[string]ModelPricing // key: provider:model
	records   []CostRecord
	mu        sync.RWMutex
	startTime time.Time
}

// NewCostTracker creates a new cost tracker
func NewCostTracker(config CostConfig) (*CostTracker, error) {
	tracker := &CostTracker{
		config:    config,
		pricing:   make(map[string]ModelPricing),
		records:   make([]CostRecord, 0),
		startTime: time.Now(),
	}

	if config.Enabled && config.PricingFile != "" {
		if err := tracker.LoadPricing(config.PricingFile); err != nil {
			return nil, fmt.Errorf("failed to load pricing: %w", err)
		}
	} else {
		tracker.LoadDefaultPricing()
	}

	return tracker, nil
}

// LoadPricing loads pricing from a JSON file
func (t *CostTracker) LoadPricing(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open pricing file: %w", err)
	}
	defer file.Close()

	var pricingList []ModelPricing
	if err := json.NewDecoder(file).Decode(&pricingList); err != nil {
		return fmt.Errorf("failed to decode pricing file: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range pricingList {
		key := fmt.Sprintf("%s:%s", p.Provider, p.Model)
		t.pricing[key] = p
	}

	return nil
}

// LoadDefaultPricing loads default pricing for common models
func (t *CostTracker) LoadDefaultPricing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	// OpenAI pricing (as of 2024)
	t.pricing["openai:gpt-4-turbo-preview"] = ModelPricing{
		Provider:             "openai",
		Model:                "gpt-4-turbo-preview",
		PromptPricePer1K:     0.01,
		CompletionPricePer1K: 0.03,
		LastUpdated:          "2024-01-01",
	}

	t.pricing["openai:gpt-4"] = ModelPricing{
		Provider:             "openai",
		Model:                "gpt-4",
		PromptPricePer1K:     0.03,
		CompletionPricePer1K: 0.06,
		LastUpdated:          "2024-01-01",
	}

	t.pricing["openai:gpt-4o-mini"] = ModelPricing{
		Provider:             "openai",
		Model:                "gpt-4o-mini",
		PromptPricePer1K:     0.00015,
		CompletionPricePer1K: 0.0006,
		LastUpdated:          "2024-07-18",
	}

	t.pricing["openai:gpt-3.5-turbo"] = ModelPricing{
		Provider:             "openai",
		Model:                "gpt-3.5-turbo",
		PromptPricePer1K:     0.0015,
		CompletionPricePer1K: 0.002,
		LastUpdated:          "2024-01-01",
	}
}

// CalculateCost calculates the cost for a given number of tokens
func (t *CostTracker) CalculateCost(provider, model string, promptTokens, completionTokens int) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	key := fmt.Sprintf("%s:%s", provider, model)
	pricing, ok := t.pricing[key]
	if !ok {
		return 0
	}

	promptCost := (float64(promptTokens) / 1000.0) * pricing.PromptPricePer1K
	completionCost := (float64(completionTokens) / 1000.0) * pricing.CompletionPricePer1K

	return promptCost + completionCost
}

// RecordCost records a cost entry
func (t *CostTracker) RecordCost(ctx context.Context, taskID, sessionRequest, provider, model string, promptTokens, completionTokens int) float64 {
	if !t.config.Enabled {
		return 0
	}

	cost := t.CalculateCost(provider, model, promptTokens, completionTokens)

	record := CostRecord{
		Timestamp:        time.Now(),
		TaskID:           taskID,
		SessionRequest:   sessionRequest,
		Provider:         provider,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Cost:             cost,
		Currency:         t.config.Currency,
	}

	t.mu.Lock()
	t.records = append(t.records, record)
	t.mu.Unlock()

	if t.config.BudgetAlertThreshold > 0 {
		t.checkBudgetAlert(ctx)
	}

	m := metrics.GetMetrics()
	labels := metrics.Labels{"provider": provider, "model": model}
	m.Counter(metrics.MetricLLMCallsTotal, labels).Inc()
	m.Counter(metrics.MetricLLMTokensUsed, labels).Add(float64(promptTokens + completionTokens))
	m.Counter(metrics.MetricLLMCostTotal, labels).Add(cost)

	return cost
}

// GetSummary returns a cost summary for the specified time range
func (t *CostTracker) GetSummary(startTime, endTime time.Time) *CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	summary := &CostSummary{
		CostByProvider: make(map[string]float64),
		CostByModel:    make(map[string]float64),
		CostByTask:     make(map[string]float64),
		TokensByModel:  make(map[string]int),
		Currency:       t.config.Currency,
		StartTime:      startTime,
		EndTime:        endTime,
	}

	for _, record := range t.records {
		if record.Timestamp.Before(startTime) || record.Timestamp.After(endTime) {
			continue
		}

		summary.TotalCost += record.Cost
		summary.TotalTokens += record.PromptTokens + record.CompletionTokens
		summary.TotalRequests++

		summary.CostByProvider[record.Provider] += record.Cost
		summary.CostByModel[record.Model] += record.Cost
		summary.CostByTask[record.TaskID] += record.Cost
		summary.TokensByModel[record.Model] += record.PromptTokens + record.CompletionTokens
	}

	return summary
}

// GetDailySummary returns a summary for the current day
func (t *CostTracker) GetDailySummary() *CostSummary {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	return t.GetSummary(startOfDay, endOfDay)
}

// GetTotalSummary returns a summary for all recorded costs
func (t *CostTracker) GetTotalSummary() *CostSummary {
	return t.GetSummary(t.startTime, time.Now())
}

// checkBudgetAlert checks if daily cost exceeds budget threshold
func (t *CostTracker) checkBudgetAlert(ctx context.Context) {
	dailySummary := t.GetDailySummary()

	if dailySummary.TotalCost > t.config.BudgetAlertThreshold {
		logging.GetLogger().WithName("observability.cost").Warn(ctx, "daily budget threshold exceeded",
			logging.F("total_cost", dailySummary.TotalCost),
			logging.F("threshold", t.config.BudgetAlertThreshold),
		)
	}
}

// ExportRecords exports cost records to a JSON file
func (t *CostTracker) ExportRecords(filename string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(t.records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	return nil
}

// GetPricing returns the pricing for a specific model
func (t *CostTracker) GetPricing(provider, model string) (ModelPricing, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	key := fmt.Sprintf("%s:%s", provider, model)
	pricing, ok := t.pricing[key]
	return pricing, ok
}

// SetPricing sets or updates the pricing for a specific model
func (t *CostTracker) SetPricing(pricing ModelPricing) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := fmt.Sprintf("%s:%s", pricing.Provider, pricing.Model)
	t.pricing[key] = pricing
}

// Global cost tracker
var globalCostTracker *CostTracker

// InitGlobalCostTracker initializes the global cost tracker
func InitGlobalCostTracker(config CostConfig) error {
	tracker, err := NewCostTracker(config)
	if err != nil {
		return err
	}
	globalCostTracker = tracker
	return nil
}

// GetCostTracker returns the global cost tracker
func GetCostTracker() *CostTracker {
	if globalCostTracker == nil {
		_ = InitGlobalCostTracker(CostConfig{
			Enabled:              false,
			BudgetAlertThreshold: 100.0,
			Currency:             "USD",
		})
	}
	return globalCostTracker
}

// RecordLLMCost records LLM cost using the global tracker, attributed to
// the given task.
func RecordLLMCost(ctx context.Context, taskID, sessionRequest, provider, model string, promptTokens, completionTokens int) float64 {
	return GetCostTracker().RecordCost(ctx, taskID, sessionRequest, provider, model, promptTokens, completionTokens)
}
