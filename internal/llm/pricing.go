package llm

import "strings"

// price is US dollars per 1K tokens.
type price struct {
	in  float64
	out float64
}

// Prefix-matched so dated snapshots share their family's price.
var prices = []struct {
	prefix string
	price  price
}{
	{"gpt-4o-mini", price{0.00015, 0.0006}},
	{"gpt-4o", price{0.0025, 0.01}},
	{"gpt-4-turbo", price{0.01, 0.03}},
	{"gpt-4", price{0.03, 0.06}},
	{"gpt-3.5-turbo", price{0.0015, 0.002}},
	{"claude-3-5-haiku", price{0.0008, 0.004}},
	{"claude-3-5-sonnet", price{0.003, 0.015}},
}

// EstimateCost returns the dollar cost of a completion. Unknown models cost 0.
func EstimateCost(model string, tokensIn, tokensOut int) float64 {
	for _, p := range prices {
		if strings.HasPrefix(model, p.prefix) {
			return float64(tokensIn)/1000*p.price.in + float64(tokensOut)/1000*p.price.out
		}
	}
	return 0
}
