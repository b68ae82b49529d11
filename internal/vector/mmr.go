package vector

import "math"

// maximalMarginalRelevance selects up to k candidate indices balancing
// similarity to the query against diversity among already-selected
// candidates. lambda 1 reduces to pure relevance ordering, 0 to pure
// diversity.
func maximalMarginalRelevance(query []float32, candidates [][]float32, lambda float64, k int) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	queryScores := make([]float64, len(candidates))
	for i, c := range candidates {
		queryScores[i] = cosineSimilarity(query, c)
	}

	selected := make([]int, 0, k)
	taken := make([]bool, len(candidates))

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if taken[i] {
				continue
			}
			maxSim := 0.0
			for _, j := range selected {
				if sim := cosineSimilarity(candidates[i], candidates[j]); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*queryScores[i] - (1-lambda)*maxSim
			if score > bestScore {
				best = i
				bestScore = score
			}
		}
		selected = append(selected, best)
		taken[best] = true
	}

	return selected
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
