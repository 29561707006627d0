package problems

import (
	"context"
	"fmt"
	"math"

	"grammateus/internal/evo"
	"grammateus/internal/grammar"
	"grammateus/internal/tree"
)

func init() {
	mustRegister(SumToTarget{Target: 100})
}

// SumToTarget scores arithmetic sum expressions by their distance to a
// target value. The global optimum is any expression summing exactly to
// Target.
type SumToTarget struct {
	Target float64
}

func (SumToTarget) Name() string { return "sum_to_target" }

func (p SumToTarget) Description() string {
	return fmt.Sprintf("evolve a sum of digits equal to %v", p.Target)
}

func (SumToTarget) Grammar(maxDepth int) (*grammar.Grammar, error) {
	b := grammar.NewBuilder("Expr")
	b.Rule("Add", "Expr", "Expr", "Expr")
	b.IntRange("Digit", "Expr", 1, 9)
	return b.Compile(maxDepth)
}

func (p SumToTarget) Evaluator() evo.Evaluator {
	return evo.EvaluatorFunc(p.Name(), func(_ context.Context, n *tree.Node) (evo.Fitness, error) {
		return evo.Scalar(math.Abs(sumValue(n) - p.Target)), nil
	})
}

func (SumToTarget) Objectives() evo.Objectives { return evo.MinimizeSingle() }

func sumValue(n *tree.Node) float64 {
	if v, ok := n.Value(); ok {
		return v
	}
	total := 0.0
	for _, c := range n.Children() {
		total += sumValue(c)
	}
	return total
}
