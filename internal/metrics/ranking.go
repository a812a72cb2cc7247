package metrics

import "sort"

// Direction is the sort order of a ranking.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

// RankOptions controls RankBy.
type RankOptions[T any] struct {
	Direction Direction
	// Limit truncates the result; zero or negative keeps everything.
	Limit int
	// MinSample drops entities whose Sample is below it. Ignored when
	// Sample is nil.
	MinSample int
	Sample    func(T) int
}

// RankBy sorts entities by rate and truncates to opts.Limit. Equal rates
// keep their input order. The input slice is not modified.
func RankBy[T any](entities []T, rate func(T) float64, opts RankOptions[T]) []T {
	type scored struct {
		item T
		rate float64
	}

	ranked := make([]scored, 0, len(entities))
	for _, e := range entities {
		if opts.Sample != nil && opts.Sample(e) < opts.MinSample {
			continue
		}
		ranked = append(ranked, scored{item: e, rate: rate(e)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if opts.Direction == Ascending {
			return ranked[i].rate < ranked[j].rate
		}
		return ranked[i].rate > ranked[j].rate
	})

	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}

	out := make([]T, len(ranked))
	for i, s := range ranked {
		out[i] = s.item
	}
	return out
}

// Rate returns part/total clamped to [0, 1], or 0 when total is 0.
func Rate(part, total int) float64 {
	if total <= 0 || part <= 0 {
		return 0
	}
	if part >= total {
		return 1
	}
	return float64(part) / float64(total)
}
