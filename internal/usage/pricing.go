package usage

// Pricing in USD per 1M tokens, input and output priced independently.
// This is static business data; update when the provider changes rates.
type modelPrice struct {
	Input  float64
	Output float64
}

var pricing = map[string]modelPrice{
	"gpt-4o":        {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":   {Input: 0.15, Output: 0.60},
	"gpt-4-turbo":   {Input: 10.00, Output: 30.00},
	"gpt-3.5-turbo": {Input: 0.50, Output: 1.50},
}

// defaultPriceModel is the fallback row for unknown model names.
const defaultPriceModel = "gpt-4o"

// usdToEUR is the static conversion rate into the display currency.
const usdToEUR = 0.92

// Cost returns the cost in EUR for the given token counts and model.
func Cost(promptTokens, completionTokens int, model string) float64 {
	price, ok := pricing[model]
	if !ok {
		price = pricing[defaultPriceModel]
	}
	costUSD := float64(promptTokens)*price.Input/1_000_000 + float64(completionTokens)*price.Output/1_000_000
	return costUSD * usdToEUR
}
