package services

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeAwardHashDeterministic(t *testing.T) {
	amount := decimal.NewFromInt(485000)

	first := ComputeAwardHash("t-1", "b-1", "c-1", amount, "lowest compliant offer")
	second := ComputeAwardHash("t-1", "b-1", "c-1", amount, "lowest compliant offer")

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "0x"))
	assert.Len(t, first, 66)
}

func TestComputeAwardHashSensitiveToEveryField(t *testing.T) {
	amount := decimal.NewFromInt(485000)
	base := ComputeAwardHash("t-1", "b-1", "c-1", amount, "justified")

	assert.NotEqual(t, base, ComputeAwardHash("t-2", "b-1", "c-1", amount, "justified"))
	assert.NotEqual(t, base, ComputeAwardHash("t-1", "b-2", "c-1", amount, "justified"))
	assert.NotEqual(t, base, ComputeAwardHash("t-1", "b-1", "c-2", amount, "justified"))
	assert.NotEqual(t, base, ComputeAwardHash("t-1", "b-1", "c-1", decimal.NewFromInt(485001), "justified"))
	assert.NotEqual(t, base, ComputeAwardHash("t-1", "b-1", "c-1", amount, "different"))
}
