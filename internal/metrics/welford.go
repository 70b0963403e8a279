package metrics

import "math"

// WelfordState holds running statistics using Welford's online algorithm.
// Mean and standard deviation are updated in O(1) without storing
// observations.
type WelfordState struct {
	Count int     // n - number of observations
	Mean  float64 // running mean
	M2    float64 // sum of squared differences from mean (for variance)
}

// Update adds a new observation.
// Reference: https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Welford's_online_algorithm
func (w *WelfordState) Update(newValue float64) {
	w.Count++
	delta := newValue - w.Mean
	w.Mean += delta / float64(w.Count)
	delta2 := newValue - w.Mean
	w.M2 += delta * delta2
}

// StdDev returns the population standard deviation.
// Returns 0 if fewer than 2 observations.
func (w *WelfordState) StdDev() float64 {
	if w.Count < 2 {
		return 0
	}
	return math.Sqrt(w.M2 / float64(w.Count))
}

// Summary is a point-in-time view of a WelfordState
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Last   float64 `json:"last"`
}

func (w *WelfordState) summary(last float64) Summary {
	return Summary{Count: w.Count, Mean: w.Mean, StdDev: w.StdDev(), Last: last}
}
