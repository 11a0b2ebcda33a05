package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/yield-agg-api/internal/model"
)

func TestComputeEmpty(t *testing.T) {
	report := Compute(nil)

	assert.Zero(t, report.Overall.Count)
	assert.Empty(t, report.ByCategory)
	assert.Empty(t, report.ByChain)
}

func TestComputeGroups(t *testing.T) {
	opportunities := []model.Opportunity{
		{APR: 510, Category: model.CategoryStaking, Chain: model.ChainEthereum},
		{APR: 1459, Category: model.CategoryStaking, Chain: model.ChainSolana},
		{APR: 320, Category: model.CategoryLending, Chain: model.ChainEthereum},
	}

	report := Compute(opportunities)

	assert.Equal(t, 3, report.Overall.Count)
	assert.Equal(t, (510+1459+320)/3, report.Overall.MeanAPR)
	assert.Equal(t, 510, report.Overall.MedianAPR)
	assert.Equal(t, 1459, report.Overall.TopAPR)

	staking := report.ByCategory["staking"]
	require.Equal(t, 2, staking.Count)
	assert.Equal(t, 1459, staking.TopAPR)

	eth := report.ByChain["ethereum"]
	require.Equal(t, 2, eth.Count)
	assert.Equal(t, 510, eth.TopAPR)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []int
		want int
	}{
		{"empty", nil, 0},
		{"single", []int{7}, 7},
		{"odd count", []int{900, 300, 600}, 600},
		{"even count averages middle pair", []int{100, 200, 300, 400}, 250},
		{"unsorted even", []int{400, 100, 300, 200}, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Median(tt.in))
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	in := []int{300, 100, 200}

	_ = Median(in)

	assert.Equal(t, []int{300, 100, 200}, in)
}
