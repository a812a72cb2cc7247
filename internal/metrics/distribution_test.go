package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/highbeam/pulseboard/internal/domain"
	"github.com/highbeam/pulseboard/internal/normalize"
)

func taskStatus(t domain.Task) string { return string(t.Status) }

func TestDistribution_FirstEncounteredOrder(t *testing.T) {
	tasks := []domain.Task{
		{Status: "todo"},
		{Status: "todo"},
		{Status: "in_progress"},
		{Status: "Completed"},
	}

	got := Distribution(tasks, taskStatus)

	assert.Equal(t, []Slice{
		{Name: "todo", Value: 2},
		{Name: "in_progress", Value: 1},
		{Name: "Completed", Value: 1},
	}, got)
}

func TestDistribution_NormalizedCasingCollapses(t *testing.T) {
	tasks := normalize.New(nil).Tasks([]domain.Task{
		{Status: "todo", Priority: 1},
		{Status: "todo", Priority: 1},
		{Status: "in_progress", Priority: 1},
		{Status: "Completed", Priority: 1},
		{Status: "completed", Priority: 1},
	})

	got := Distribution(tasks, taskStatus)

	assert.Equal(t, []Slice{
		{Name: "todo", Value: 2},
		{Name: "in_progress", Value: 1},
		{Name: "completed", Value: 2},
	}, got)
}

func TestDistribution_SeededZeroCategories(t *testing.T) {
	tasks := []domain.Task{{Priority: 2}, {Priority: 2}, {Priority: 9}}

	got := Distribution(tasks, func(t domain.Task) string { return t.Priority.Label() },
		"critical", "high", "medium", "low")

	assert.Equal(t, []Slice{
		{Name: "critical", Value: 0},
		{Name: "high", Value: 2},
		{Name: "medium", Value: 0},
		{Name: "low", Value: 0},
		{Name: "unset", Value: 1},
	}, got)
}

func TestDistribution_DuplicateSeedIgnored(t *testing.T) {
	got := Distribution([]string{"a"}, func(s string) string { return s }, "a", "a", "b")
	assert.Equal(t, []Slice{{Name: "a", Value: 1}, {Name: "b", Value: 0}}, got)
}

func TestDistribution_Reconciles(t *testing.T) {
	records := []string{"x", "y", "x", "z", "", "y", "x", "unknown-status"}
	keyFns := map[string]func(string) string{
		"identity": func(s string) string { return s },
		"constant": func(string) string { return "all" },
		"length": func(s string) string {
			if len(s) > 1 {
				return "long"
			}
			return "short"
		},
	}

	for name, fn := range keyFns {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, len(records), Total(Distribution(records, fn)))
			assert.Equal(t, len(records), Total(Distribution(records, fn, "seed-a", "seed-b")))
		})
	}
}

func TestDistribution_Empty(t *testing.T) {
	assert.Empty(t, Distribution(nil, taskStatus))
	assert.Equal(t, []Slice{{Name: "a"}}, Distribution(nil, taskStatus, "a"))
	assert.Equal(t, 0, Total(nil))
}

func TestPct(t *testing.T) {
	assert.Equal(t, 0.0, Pct(0, 0))
	assert.Equal(t, 0.0, Pct(5, 0))
	assert.Equal(t, 0.25, Pct(1, 4))
	assert.Equal(t, 1.0, Pct(4, 4))
}
