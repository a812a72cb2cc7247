package metrics

// Slice is one category of a distribution: a pie wedge or a bar.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Distribution counts records per key. Keys listed in seed appear first, in
// seed order, even when their count is zero, so legends render the same
// categories every time. Remaining keys follow in first-encountered order.
// The values always sum to len(records).
func Distribution[T any](records []T, key func(T) string, seed ...string) []Slice {
	out := make([]Slice, 0, len(seed))
	pos := make(map[string]int, len(seed))

	for _, k := range seed {
		if _, dup := pos[k]; dup {
			continue
		}
		pos[k] = len(out)
		out = append(out, Slice{Name: k})
	}

	for _, r := range records {
		k := key(r)
		i, ok := pos[k]
		if !ok {
			i = len(out)
			pos[k] = i
			out = append(out, Slice{Name: k})
		}
		out[i].Value++
	}

	return out
}

// Total sums the values of a distribution.
func Total(slices []Slice) int {
	total := 0
	for _, s := range slices {
		total += s.Value
	}
	return total
}

// Pct returns value/total as a fraction, or 0 when total is 0.
func Pct(value, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(value) / float64(total)
}
