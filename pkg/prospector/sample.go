package prospector

import "math/rand/v2"

// sampleWeighted draws up to n documents from candidates without
// replacement, weighted toward larger documents (§4.10 step 1). Weight is
// WordCount+1 so zero-length documents remain eligible with low
// probability rather than being excluded outright.
func sampleWeighted(candidates []Document, n int) []Document {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	if n >= len(candidates) {
		out := make([]Document, len(candidates))
		copy(out, candidates)
		return out
	}

	pool := make([]Document, len(candidates))
	copy(pool, candidates)
	weights := make([]float64, len(pool))
	total := 0.0
	for i, d := range pool {
		weights[i] = float64(d.WordCount + 1)
		total += weights[i]
	}

	selected := make([]Document, 0, n)
	for len(selected) < n && len(pool) > 0 {
		target := rand.Float64() * total
		idx := 0
		cursor := 0.0
		for i, w := range weights {
			cursor += w
			if cursor >= target {
				idx = i
				break
			}
		}
		selected = append(selected, pool[idx])
		total -= weights[idx]
		pool = append(pool[:idx], pool[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}
	return selected
}
