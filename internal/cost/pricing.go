package cost

// Image generation pricing (USD per image)
// Sources: https://openai.com/api/pricing/ and https://ai.google.dev/pricing

type PricingKey struct {
	Model   string
	Size    string
	Quality string
}

var openAIPricing = map[PricingKey]float64{
	{Model: "gpt-image-1", Size: "1024x1024", Quality: "low"}:    0.011,
	{Model: "gpt-image-1", Size: "1024x1024", Quality: "medium"}: 0.042,
	{Model: "gpt-image-1", Size: "1024x1024", Quality: "high"}:   0.167,
	{Model: "gpt-image-1", Size: "1024x1024", Quality: "auto"}:   0.042,

	{Model: "gpt-image-1", Size: "1536x1024", Quality: "low"}:    0.016,
	{Model: "gpt-image-1", Size: "1536x1024", Quality: "medium"}: 0.063,
	{Model: "gpt-image-1", Size: "1536x1024", Quality: "high"}:   0.250,
	{Model: "gpt-image-1", Size: "1536x1024", Quality: "auto"}:   0.063,

	{Model: "gpt-image-1", Size: "1024x1536", Quality: "low"}:    0.016,
	{Model: "gpt-image-1", Size: "1024x1536", Quality: "medium"}: 0.063,
	{Model: "gpt-image-1", Size: "1024x1536", Quality: "high"}:   0.250,
	{Model: "gpt-image-1", Size: "1024x1536", Quality: "auto"}:   0.063,

	{Model: "gpt-image-1", Size: "auto", Quality: "low"}:    0.011,
	{Model: "gpt-image-1", Size: "auto", Quality: "medium"}: 0.042,
	{Model: "gpt-image-1", Size: "auto", Quality: "high"}:   0.167,
	{Model: "gpt-image-1", Size: "auto", Quality: "auto"}:   0.042,
}

// Gemini image output is billed per image regardless of prompt size
// (1290 output tokens at $30 per 1M tokens).
var geminiPricing = map[string]float64{
	"gemini-2.5-flash-image": 0.039,
}

func GetOpenAIPrice(model, size, quality string) (float64, bool) {
	key := PricingKey{Model: model, Size: size, Quality: quality}
	price, ok := openAIPricing[key]
	return price, ok
}

func GetGeminiPrice(model string) (float64, bool) {
	price, ok := geminiPricing[model]
	return price, ok
}
