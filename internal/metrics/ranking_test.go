package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rated struct {
	id     string
	rate   float64
	sample int
}

func rateOf(r rated) float64 { return r.rate }
func sampleOf(r rated) int   { return r.sample }

func TestRankBy_TopNKeepsTieOrder(t *testing.T) {
	employees := []rated{
		{id: "first", rate: 0.9},
		{id: "second", rate: 0.5},
		{id: "third", rate: 0.9},
		{id: "fourth", rate: 0.2},
	}

	got := RankBy(employees, rateOf, RankOptions[rated]{Direction: Descending, Limit: 2})

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].id)
	assert.Equal(t, "third", got[1].id)
}

func TestRankBy_Ascending(t *testing.T) {
	in := []rated{{id: "a", rate: 0.4}, {id: "b", rate: 0.1}, {id: "c", rate: 0.4}, {id: "d", rate: 0.7}}

	got := RankBy(in, rateOf, RankOptions[rated]{Direction: Ascending})

	assert.Equal(t, []string{"b", "a", "c", "d"}, idsOf(got))
}

func TestRankBy_MinSample(t *testing.T) {
	in := []rated{
		{id: "one-task-wonder", rate: 1.0, sample: 1},
		{id: "steady", rate: 0.8, sample: 10},
		{id: "new", rate: 0, sample: 0},
	}

	got := RankBy(in, rateOf, RankOptions[rated]{MinSample: 3, Sample: sampleOf})

	assert.Equal(t, []string{"steady"}, idsOf(got))
}

func TestRankBy_NoLimitAndNoMutation(t *testing.T) {
	in := []rated{{id: "a", rate: 0.1}, {id: "b", rate: 0.9}}
	before := append([]rated(nil), in...)

	got := RankBy(in, rateOf, RankOptions[rated]{Limit: 0})

	assert.Equal(t, []string{"b", "a"}, idsOf(got))
	assert.Equal(t, before, in)
}

func TestRankBy_Empty(t *testing.T) {
	assert.Empty(t, RankBy(nil, rateOf, RankOptions[rated]{Limit: 3}))
}

func TestRate_Bounds(t *testing.T) {
	tests := []struct {
		part, total int
		want        float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 5, 0},
		{1, 4, 0.25},
		{4, 4, 1},
		{7, 4, 1},
		{-1, 4, 0},
	}

	for _, tt := range tests {
		got := Rate(tt.part, tt.total)
		assert.Equal(t, tt.want, got)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func idsOf(rs []rated) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.id
	}
	return out
}
