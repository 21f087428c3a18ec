package agent

import "github.com/ensembleai/ensemble/pkg/models"

// ModelPricing contains pricing per 1M tokens for a model.
type ModelPricing struct {
	InputPerMillion  float64 // Cost per 1M input tokens
	OutputPerMillion float64 // Cost per 1M output tokens
}

// DefaultModelPricing contains pricing for known Claude models.
var DefaultModelPricing = map[string]ModelPricing{
	"claude-opus-4-5-20251101":   {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-sonnet-4-20250514":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-sonnet-20241022": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku-20241022":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// defaultPricing is used when the model is not in the pricing table.
// Approximates Sonnet pricing.
var defaultPricing = ModelPricing{InputPerMillion: 3.00, OutputPerMillion: 15.00}

// EstimateCost estimates the USD cost of the given usage for a model.
// Unknown models fall back to approximate Sonnet pricing.
func EstimateCost(usage models.Usage, model string) float64 {
	pricing, ok := DefaultModelPricing[model]
	if !ok {
		pricing = defaultPricing
	}
	inputCost := float64(usage.InputTokens) / 1_000_000 * pricing.InputPerMillion
	outputCost := float64(usage.OutputTokens) / 1_000_000 * pricing.OutputPerMillion
	return inputCost + outputCost
}
