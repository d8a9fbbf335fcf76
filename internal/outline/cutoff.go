package outline

import "sort"

// otsuCutoff splits scores into a heading and a body class by maximising
// between-class variance, and returns the midpoint between the two classes
// clamped to [lo, hi]. With fewer than two distinct scores it returns lo.
func otsuCutoff(scores []float64, lo, hi float64) float64 {
	if len(scores) < 2 {
		return lo
	}
	s := append([]float64(nil), scores...)
	sort.Float64s(s)
	if s[0] == s[len(s)-1] {
		return lo
	}

	n := float64(len(s))
	var total float64
	for _, v := range s {
		total += v
	}

	var (
		best     = -1.0
		cut      = lo
		sumBelow float64
	)
	for i := 1; i < len(s); i++ {
		sumBelow += s[i-1]
		if s[i] == s[i-1] {
			continue
		}
		w0 := float64(i) / n
		w1 := 1 - w0
		mu0 := sumBelow / float64(i)
		mu1 := (total - sumBelow) / (n - float64(i))
		between := w0 * w1 * (mu0 - mu1) * (mu0 - mu1)
		if between > best {
			best = between
			cut = (s[i-1] + s[i]) / 2
		}
	}

	switch {
	case cut < lo:
		return lo
	case cut > hi:
		return hi
	}
	return cut
}
