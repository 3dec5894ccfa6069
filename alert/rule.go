package alert

import (
	"fmt"
	"strings"

	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/shopspring/decimal"
)

// Rule defines the requirements for evaluating an alerting rule against a tick.
type Rule interface {
	// Evaluate checks the rule against the current tick and the previously
	// seen tick for its symbol (nil when none exists), returning whether the
	// rule triggered and the reason why.
	Evaluate(current shared.Tick, previous *shared.Tick) (bool, string)
}

// PriceThresholdRule triggers when its symbol trades outside the configured
// price band.
type PriceThresholdRule struct {
	Symbol shared.Symbol
	Min    decimal.Decimal
	Max    decimal.Decimal
}

// Ensure the price threshold rule implements the Rule interface.
var _ Rule = (*PriceThresholdRule)(nil)

// Evaluate checks whether the tick's price crossed either bound of the band.
func (r *PriceThresholdRule) Evaluate(current shared.Tick, previous *shared.Tick) (bool, string) {
	if current.Symbol != r.Symbol {
		return false, ""
	}

	if current.Price.GreaterThan(r.Max) {
		return true, fmt.Sprintf("price %s exceeded max threshold %s", current.Price, r.Max)
	}
	if current.Price.LessThan(r.Min) {
		return true, fmt.Sprintf("price %s dropped below min threshold %s", current.Price, r.Min)
	}

	return false, ""
}

// VolumeSpikeRule triggers when a tick's volume jumps past a multiple of the
// previous tick's volume for the same symbol.
type VolumeSpikeRule struct {
	Multiplier decimal.Decimal
}

// Ensure the volume spike rule implements the Rule interface.
var _ Rule = (*VolumeSpikeRule)(nil)

// Evaluate checks whether volume spiked relative to the previous tick. It
// never triggers without a previous tick or when the previous volume was zero.
func (r *VolumeSpikeRule) Evaluate(current shared.Tick, previous *shared.Tick) (bool, string) {
	if previous == nil || previous.Volume.IsZero() {
		return false, ""
	}

	if current.Volume.GreaterThan(previous.Volume.Mul(r.Multiplier)) {
		return true, fmt.Sprintf("volume spike detected: current %s, previous %s",
			current.Volume, previous.Volume)
	}

	return false, ""
}

// RuleSpec declares an alert rule in configuration. The spec order defines the
// evaluation order.
type RuleSpec struct {
	Type       string  `yaml:"type"`
	Symbol     string  `yaml:"symbol"`
	MinPrice   float64 `yaml:"minPrice"`
	MaxPrice   float64 `yaml:"maxPrice"`
	Multiplier float64 `yaml:"multiplier"`
}

// NewRules builds the ordered rule set declared by the provided specs.
func NewRules(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for idx := range specs {
		spec := &specs[idx]
		switch strings.ToLower(spec.Type) {
		case "price":
			symbol, err := shared.NewSymbol(spec.Symbol)
			if err != nil {
				return nil, fmt.Errorf("alert rule %d: %v", idx, err)
			}

			rules = append(rules, &PriceThresholdRule{
				Symbol: symbol,
				Min:    decimal.NewFromFloat(spec.MinPrice),
				Max:    decimal.NewFromFloat(spec.MaxPrice),
			})
		case "volume":
			multiplier := spec.Multiplier
			if multiplier <= 0 {
				multiplier = 2
			}

			rules = append(rules, &VolumeSpikeRule{
				Multiplier: decimal.NewFromFloat(multiplier),
			})
		default:
			return nil, fmt.Errorf("alert rule %d: unknown type %q", idx, spec.Type)
		}
	}

	return rules, nil
}
