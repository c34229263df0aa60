package generation

// DefaultCostPer1K is charged for models missing from CostPer1K.
const DefaultCostPer1K = 0.01

// CostPer1K is the estimated USD cost per 1000 tokens by model id.
var CostPer1K = map[string]float64{
	"openai/gpt-4":              0.03,
	"openai/gpt-3.5-turbo":      0.002,
	"anthropic/claude-3-haiku":  0.00025,
	"anthropic/claude-3-sonnet": 0.003,
}

// EstimateCost returns the estimated USD cost of a call that used tokens.
func EstimateCost(tokens int, model string) float64 {
	rate, ok := CostPer1K[model]
	if !ok {
		rate = DefaultCostPer1K
	}
	return float64(tokens) / 1000 * rate
}
