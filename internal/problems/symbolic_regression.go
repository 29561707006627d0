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
	mustRegister(DefaultSymbolicRegression())
}

// Sample is one labeled point of a regression dataset.
type Sample struct {
	X float64
	Y float64
}

// SymbolicRegression fits an expression over one variable to a dataset,
// scored by mean squared error. Expressions that evaluate to a non-finite
// value on any sample fail evaluation.
type SymbolicRegression struct {
	Dataset []Sample
}

// DefaultSymbolicRegression targets x^2 + x + 1 on a uniform grid.
func DefaultSymbolicRegression() SymbolicRegression {
	samples := make([]Sample, 0, 21)
	for i := -10; i <= 10; i++ {
		x := float64(i)
		samples = append(samples, Sample{X: x, Y: x*x + x + 1})
	}
	return SymbolicRegression{Dataset: samples}
}

func (SymbolicRegression) Name() string { return "symbolic_regression" }

func (SymbolicRegression) Description() string {
	return "fit an arithmetic expression of x to a dataset by mean squared error"
}

func (SymbolicRegression) Grammar(maxDepth int) (*grammar.Grammar, error) {
	b := grammar.NewBuilder("Expr")
	b.Rule("Add", "Expr", "Expr", "Expr")
	b.Rule("Sub", "Expr", "Expr", "Expr")
	b.Rule("Mul", "Expr", "Expr", "Expr")
	b.Terminal("X", "Expr")
	b.IntRange("Const", "Expr", -5, 5)
	return b.Compile(maxDepth)
}

func (p SymbolicRegression) Evaluator() evo.Evaluator {
	return evo.EvaluatorFunc(p.Name(), func(_ context.Context, n *tree.Node) (evo.Fitness, error) {
		if len(p.Dataset) == 0 {
			return evo.Worst(), fmt.Errorf("symbolic regression: empty dataset")
		}
		total := 0.0
		for _, s := range p.Dataset {
			predicted, err := evalExpr(n, s.X)
			if err != nil {
				return evo.Worst(), err
			}
			residual := predicted - s.Y
			total += residual * residual
		}
		mse := total / float64(len(p.Dataset))
		if math.IsNaN(mse) || math.IsInf(mse, 0) {
			return evo.Worst(), fmt.Errorf("symbolic regression: non-finite error")
		}
		return evo.Scalar(mse), nil
	})
}

func (SymbolicRegression) Objectives() evo.Objectives { return evo.MinimizeSingle() }

func evalExpr(n *tree.Node, x float64) (float64, error) {
	p := n.Production()
	switch p.Name {
	case "X":
		return x, nil
	case "Const":
		v, _ := n.Value()
		return v, nil
	}

	children := n.Children()
	switch p.Name {
	case "Add", "Sub", "Mul":
		left, err := evalExpr(children[0], x)
		if err != nil {
			return 0, err
		}
		right, err := evalExpr(children[1], x)
		if err != nil {
			return 0, err
		}
		switch p.Name {
		case "Add":
			return left + right, nil
		case "Sub":
			return left - right, nil
		default:
			return left * right, nil
		}
	}
	return 0, fmt.Errorf("symbolic regression: unknown production %s", p.Name)
}
