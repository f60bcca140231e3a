package auction

import "github.com/shopspring/decimal"

// increment ladder, keyed by the current price (not the requested amount)
var incrementLadder = []struct {
	threshold decimal.Decimal
	increment decimal.Decimal
}{
	{decimal.NewFromInt(10000), decimal.NewFromInt(250)},
	{decimal.NewFromInt(5000), decimal.NewFromInt(100)},
	{decimal.NewFromInt(1000), decimal.NewFromInt(50)},
	{decimal.NewFromInt(500), decimal.NewFromInt(25)},
	{decimal.NewFromInt(100), decimal.NewFromInt(10)},
}

var baseIncrement = decimal.NewFromInt(5)

// Increment returns the minimum bid increment at the given price.
func Increment(current decimal.Decimal) decimal.Decimal {
	for _, step := range incrementLadder {
		if current.GreaterThanOrEqual(step.threshold) {
			return step.increment
		}
	}
	return baseIncrement
}
