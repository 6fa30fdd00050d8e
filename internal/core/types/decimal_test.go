package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "10.13", Round2(MustMoney("10.125")).StringFixed(2))
	assert.Equal(t, "-10.13", Round2(MustMoney("-10.125")).StringFixed(2))
	assert.Equal(t, "3.33", Round2(MustMoney("3.333333")).StringFixed(2))
}

func TestFloorZero(t *testing.T) {
	assert.True(t, FloorZero(MustMoney("-0.01")).IsZero())
	assert.Equal(t, "4.20", FloorZero(MustMoney("4.2")).StringFixed(2))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "50.00", Percent(MustMoney("250"), MustMoney("20")).StringFixed(2))
	assert.Equal(t, "0.67", Percent(MustMoney("3.33"), MustMoney("20")).StringFixed(2))
}

func TestSum(t *testing.T) {
	assert.Equal(t, "0.30", Sum(MustMoney("0.1"), MustMoney("0.2")).StringFixed(2))
	assert.True(t, Sum().IsZero())
}
