// Package stats computes fitness summaries and writes run report artifacts.
package stats

import (
	"gonum.org/v1/gonum/stat"
)

// Summary describes one generation's fitness distribution on the primary
// objective, over successfully evaluated individuals only.
type Summary struct {
	Best   float64 `json:"best"`
	Worst  float64 `json:"worst"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// Summarize reduces the evaluated fitness values of a generation. minimize
// fixes which end of the distribution counts as best. An empty slice (every
// evaluation failed) yields a zero Summary with Count 0.
func Summarize(values []float64, minimize bool) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	best, worst := values[0], values[0]
	for _, v := range values[1:] {
		if (minimize && v < best) || (!minimize && v > best) {
			best = v
		}
		if (minimize && v > worst) || (!minimize && v < worst) {
			worst = v
		}
	}

	mean := stat.Mean(values, nil)
	sd := 0.0
	if len(values) > 1 {
		sd = stat.StdDev(values, nil)
	}
	return Summary{
		Best:   best,
		Worst:  worst,
		Mean:   mean,
		StdDev: sd,
		Count:  len(values),
	}
}
