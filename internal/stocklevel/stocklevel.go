// Package stocklevel maps an ingredient's current, minimum and maximum stock
// into a discrete health category. Everything here is pure: no I/O, no clock.
package stocklevel

import "github.com/shopspring/decimal"

// Level is the health category of a stock quantity.
type Level string

const (
	OutOfStock  Level = "out_of_stock"
	Critical    Level = "critical"
	Low         Level = "low"
	Good        Level = "good"
	Overstocked Level = "overstocked"
)

// Levels lists every category from most to least severe.
var Levels = []Level{OutOfStock, Critical, Low, Overstocked, Good}

var two = decimal.NewFromInt(2)

// Classify evaluates the rules in a fixed order and returns the first match:
//
//	current == 0        → OutOfStock
//	current <= min      → Critical
//	current <= 2 × min  → Low
//	current >= max      → Overstocked
//	otherwise           → Good
//
// Low is checked before Overstocked, so a quantity that satisfies both
// (min=50, max=60, current=90) is reported as Low.
func Classify(current, min, max decimal.Decimal) Level {
	switch {
	case current.IsZero():
		return OutOfStock
	case current.LessThanOrEqual(min):
		return Critical
	case current.LessThanOrEqual(min.Mul(two)):
		return Low
	case current.GreaterThanOrEqual(max):
		return Overstocked
	default:
		return Good
	}
}

// Description is the presentation payload for a level. SeverityRank orders
// levels for display only; no decision in the engine depends on it.
type Description struct {
	Level        Level  `json:"level"`
	Message      string `json:"message"`
	SeverityRank int    `json:"severity_rank"`
	Color        string `json:"color"`
	Icon         string `json:"icon"`
}

var descriptions = map[Level]Description{
	OutOfStock:  {Level: OutOfStock, Message: "Out of stock", SeverityRank: 4, Color: "red", Icon: "x-circle"},
	Critical:    {Level: Critical, Message: "Critical stock, restock immediately", SeverityRank: 3, Color: "orange", Icon: "alert-triangle"},
	Low:         {Level: Low, Message: "Low stock, plan a restock", SeverityRank: 2, Color: "yellow", Icon: "alert-circle"},
	Overstocked: {Level: Overstocked, Message: "Overstocked", SeverityRank: 1, Color: "blue", Icon: "archive"},
	Good:        {Level: Good, Message: "In stock", SeverityRank: 0, Color: "green", Icon: "check-circle"},
}

// Describe classifies the quantities and returns the matching presentation.
func Describe(current, min, max decimal.Decimal) Description {
	return DescribeLevel(Classify(current, min, max))
}

// DescribeLevel returns the presentation for an already computed level.
func DescribeLevel(l Level) Description {
	if d, ok := descriptions[l]; ok {
		return d
	}
	return Description{Level: l, Message: string(l), Color: "gray", Icon: "help-circle"}
}

// NeedsAlert reports whether a level should trigger a restock alert.
func NeedsAlert(l Level) bool {
	return l == OutOfStock || l == Critical
}

// Valid reports whether s names a known level.
func Valid(s string) bool {
	_, ok := descriptions[Level(s)]
	return ok
}
