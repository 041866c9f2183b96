package analytics

// ModelPricingUSDPer1K is the blended token price used when a usage row has no
// recorded cost.
var ModelPricingUSDPer1K = map[string]float64{
	"gpt-4o":            0.005,
	"gpt-4o-mini":       0.0015,
	"gpt-4.1":           0.008,
	"gpt-4.1-mini":      0.002,
	"claude-3-5-sonnet": 0.006,
	"claude-3-5-haiku":  0.001,
	"gemini-1.5-pro":    0.0035,
	"gemini-1.5-flash":  0.001,
}

// DeployedModels are the models the chatbot routes traffic to. Model
// performance always reports all of them, even before any traffic.
var DeployedModels = []string{"gpt-4o", "gpt-4o-mini", "gemini-1.5-flash"}

func EstimateCostUSD(model string, tokens int64) float64 {
	price, ok := ModelPricingUSDPer1K[model]
	if !ok {
		price = 0.002
	}
	return price * float64(tokens) / 1000.0
}
