package llm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Variant is one of the two model choices offered to the user.
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantAdvanced Variant = "advanced"
)

// Temperature bounds of the sampling control.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// ModelConfig is the resolved model choice for one request.
type ModelConfig struct {
	Model       string
	Temperature float64
}

// Option is one entry of the model control.
type Option struct {
	Variant Variant
	Label   string
	Model   string
}

// Selector maps user-facing choices to a provider's model identifiers.
type Selector struct {
	options map[Variant]Option
}

var providerOptions = map[Provider][]Option{
	ProviderOpenAI: {
		{Variant: VariantStandard, Label: "GPT-3.5", Model: "gpt-3.5-turbo"},
		{Variant: VariantAdvanced, Label: "GPT-4", Model: "gpt-4"},
	},
	ProviderAnthropic: {
		{Variant: VariantStandard, Label: "Claude Haiku", Model: "claude-3-5-haiku-20241022"},
		{Variant: VariantAdvanced, Label: "Claude Sonnet", Model: "claude-3-5-sonnet-20241022"},
	},
}

// NewSelector returns the selector for a provider. Unknown providers get the
// OpenAI choices.
func NewSelector(provider Provider) *Selector {
	opts, ok := providerOptions[provider]
	if !ok {
		opts = providerOptions[ProviderOpenAI]
	}
	s := &Selector{options: make(map[Variant]Option, len(opts))}
	for _, o := range opts {
		s.options[o.Variant] = o
	}
	return s
}

// Options lists the choices in display order.
func (s *Selector) Options() []Option {
	return []Option{s.options[VariantStandard], s.options[VariantAdvanced]}
}

// Resolve maps an already-validated variant and temperature to a ModelConfig.
func (s *Selector) Resolve(v Variant, temperature float64) ModelConfig {
	return ModelConfig{
		Model:       s.options[v].Model,
		Temperature: temperature,
	}
}

// ParseVariant validates a variant name. The empty string selects the
// standard variant, matching the control's default.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VariantStandard, nil
	case VariantStandard, VariantAdvanced:
		return v, nil
	default:
		return "", fmt.Errorf("unknown model variant %q", s)
	}
}

// ParseTemperature validates a temperature value and snaps it to the
// control's 0.1 step. The empty string yields 0.
func ParseTemperature(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return MinTemperature, nil
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid temperature %q", s)
	}
	return CheckTemperature(t)
}

// CheckTemperature validates a numeric temperature and snaps it to 0.1.
func CheckTemperature(t float64) (float64, error) {
	if math.IsNaN(t) || t < MinTemperature || t > MaxTemperature {
		return 0, fmt.Errorf("temperature %v outside [%.1f, %.1f]", t, MinTemperature, MaxTemperature)
	}
	return math.Round(t*10) / 10, nil
}
