// Package usage prices LLM calls, records node executions and enforces the
// monthly platform quota.
package usage

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Price is the USD cost per 1K tokens
type Price struct {
	Input  decimal.Decimal `yaml:"input" json:"input"`
	Output decimal.Decimal `yaml:"output" json:"output"`
}

var thousand = decimal.NewFromInt(1000)

// Cost prices a call from its token counts
func (p Price) Cost(promptTokens, completionTokens int) decimal.Decimal {
	in := decimal.NewFromInt(int64(promptTokens)).Div(thousand).Mul(p.Input)
	out := decimal.NewFromInt(int64(completionTokens)).Div(thousand).Mul(p.Output)
	return in.Add(out)
}

// PricingTable maps model name fragments to prices
type PricingTable struct {
	Default Price            `yaml:"default"`
	Models  map[string]Price `yaml:"models"`
}

// DefaultPricing returns the built-in per 1K token prices
func DefaultPricing() *PricingTable {
	return &PricingTable{
		Default: price("0.005", "0.015"),
		Models: map[string]Price{
			"gpt-4":         price("0.03", "0.06"),
			"gpt-4o":        price("0.005", "0.015"),
			"gpt-3.5-turbo": price("0.0005", "0.0015"),
			"claude-3-opus": price("0.015", "0.075"),
		},
	}
}

func price(in, out string) Price {
	return Price{Input: decimal.RequireFromString(in), Output: decimal.RequireFromString(out)}
}

// LoadPricing reads a YAML pricing file on top of the defaults. An empty
// path returns the defaults.
//
//	default: {input: 0.005, output: 0.015}
//	models:
//	  gpt-4o-mini: {input: 0.00015, output: 0.0006}
func LoadPricing(path string) (*PricingTable, error) {
	table := DefaultPricing()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var override PricingTable
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file: %w", err)
	}

	if !override.Default.Input.IsZero() || !override.Default.Output.IsZero() {
		table.Default = override.Default
	}
	for name, p := range override.Models {
		table.Models[strings.ToLower(strings.TrimSpace(name))] = p
	}
	return table, nil
}

// Lookup returns the price of the longest model key contained in the
// lowercased model name, or the default price.
func (t *PricingTable) Lookup(model string) Price {
	model = strings.ToLower(model)

	best := ""
	for key := range t.Models {
		if strings.Contains(model, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return t.Default
	}
	return t.Models[best]
}

// Cost prices a call to model
func (t *PricingTable) Cost(model string, promptTokens, completionTokens int) decimal.Decimal {
	return t.Lookup(model).Cost(promptTokens, completionTokens)
}
