package evo

import "math"

// Fitness is the cached evaluation result of an individual: a scalar or a
// vector of objective values. An invalid fitness is the sentinel assigned
// when the external evaluator fails; it compares worse than everything.
type Fitness struct {
	Values []float64
	Valid  bool
}

func Scalar(v float64) Fitness {
	return Fitness{Values: []float64{v}, Valid: true}
}

func Vector(vs ...float64) Fitness {
	return Fitness{Values: append([]float64(nil), vs...), Valid: true}
}

// Worst is the sentinel fitness for failed evaluations.
func Worst() Fitness {
	return Fitness{}
}

// Objectives fixes the comparison direction per objective. A single entry
// covers scalar fitness; multiple entries switch comparisons to Pareto
// dominance.
type Objectives struct {
	Minimize []bool
}

func MinimizeSingle() Objectives { return Objectives{Minimize: []bool{true}} }
func MaximizeSingle() Objectives { return Objectives{Minimize: []bool{false}} }

func (o Objectives) Arity() int { return len(o.Minimize) }

// betterValue reports a strictly preferable value on objective i.
func (o Objectives) betterValue(i int, a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	if o.Minimize[i] {
		return a < b
	}
	return a > b
}

// Dominates implements Pareto dominance: no objective worse, at least one
// strictly better. Invalid fitness never dominates and is always dominated
// by any valid fitness.
func (o Objectives) Dominates(a, b Fitness) bool {
	if !a.Valid {
		return false
	}
	if !b.Valid {
		return true
	}
	strict := false
	for i := range o.Minimize {
		av, bv := objective(a, i), objective(b, i)
		if o.betterValue(i, bv, av) {
			return false
		}
		if o.betterValue(i, av, bv) {
			strict = true
		}
	}
	return strict
}

// Better is the total-order half of comparison: for a single objective it is
// plain ordering, for vectors it is dominance. Ties report false.
func (o Objectives) Better(a, b Fitness) bool {
	if !a.Valid {
		return false
	}
	if !b.Valid {
		return true
	}
	if len(o.Minimize) == 1 {
		return o.betterValue(0, objective(a, 0), objective(b, 0))
	}
	return o.Dominates(a, b)
}

// SatisfiesTarget reports whether f is at least as good as target on every
// objective. Used by the fitness-target termination condition.
func (o Objectives) SatisfiesTarget(f, target Fitness) bool {
	if !f.Valid {
		return false
	}
	for i := range o.Minimize {
		fv, tv := objective(f, i), objective(target, i)
		if fv != tv && o.betterValue(i, tv, fv) {
			return false
		}
	}
	return true
}

func objective(f Fitness, i int) float64 {
	if i < len(f.Values) {
		return f.Values[i]
	}
	return math.NaN()
}
