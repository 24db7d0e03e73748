package adjust

// BenjaminiHochberg applies the step-up false discovery rate procedure to a
// vector of p-values already sorted ascending. The returned q-values satisfy
// q_i = min_{j>=i}(p_j * n / rank_j) clipped to [0, 1], which makes them
// non-decreasing across ranks and never smaller than the raw p-value.
func BenjaminiHochberg(sortedP []float64) []float64 {
	n := len(sortedP)
	q := make([]float64, n)
	if n == 0 {
		return q
	}

	running := 1.0
	for i := n - 1; i >= 0; i-- {
		adj := sortedP[i] * float64(n) / float64(i+1)
		if adj < running {
			running = adj
		}
		q[i] = running
	}
	return q
}
