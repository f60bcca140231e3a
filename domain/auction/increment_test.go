package auction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIncrementLadder(t *testing.T) {
	cases := []struct {
		current   string
		increment string
	}{
		{"0", "5"},
		{"1", "5"},
		{"99.99", "5"},
		{"100", "10"},
		{"105", "10"},
		{"499.99", "10"},
		{"500", "25"},
		{"999.99", "25"},
		{"1000", "50"},
		{"4999.99", "50"},
		{"5000", "100"},
		{"9999.99", "100"},
		{"10000", "250"},
		{"250000", "250"},
	}

	for _, c := range cases {
		current := decimal.RequireFromString(c.current)
		want := decimal.RequireFromString(c.increment)
		assert.True(t, Increment(current).Equal(want), "increment(%s) should be %s, got %s", c.current, c.increment, Increment(current))
	}
}

func TestMinimumBidUsesLadder(t *testing.T) {
	a := &Auction{CurrentBid: decimal.NewFromInt(105)}
	assert.True(t, a.MinimumBid().Equal(decimal.NewFromInt(115)))
}

func TestMinimumBidUsesPerLotOverride(t *testing.T) {
	override := decimal.NewFromInt(3)
	a := &Auction{CurrentBid: decimal.NewFromInt(105), BidIncrement: &override}
	assert.True(t, a.MinimumBid().Equal(decimal.NewFromInt(108)))
}
