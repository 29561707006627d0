package evo

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"grammateus/internal/builder"
	"grammateus/internal/grammar"
	"grammateus/internal/tree"
)

// arithmeticGrammar is the Expr -> Add(Expr, Expr) | 1..9 grammar used
// throughout the engine tests.
func arithmeticGrammar(t *testing.T, maxDepth int) *grammar.Grammar {
	t.Helper()
	b := grammar.NewBuilder("Expr")
	b.Rule("Add", "Expr", "Expr", "Expr")
	b.IntRange("Digit", "Expr", 1, 9)
	g, err := b.Compile(maxDepth)
	if err != nil {
		t.Fatalf("compile grammar: %v", err)
	}
	return g
}

// degenerateGrammar has exactly one choice at every node.
func degenerateGrammar(t *testing.T) *grammar.Grammar {
	t.Helper()
	b := grammar.NewBuilder("S")
	b.Terminal("Only", "S")
	g, err := b.Compile(2)
	if err != nil {
		t.Fatalf("compile grammar: %v", err)
	}
	return g
}

func newBuilder(t *testing.T, g *grammar.Grammar) *builder.Builder {
	t.Helper()
	b, err := builder.New(g, nil)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	return b
}

// evalSum interprets the arithmetic grammar: literals evaluate to their
// value, Add sums its children.
func evalSum(n *tree.Node) float64 {
	if v, ok := n.Value(); ok {
		return v
	}
	total := 0.0
	for _, c := range n.Children() {
		total += evalSum(c)
	}
	return total
}

// sumToEvaluator rewards trees whose arithmetic value is close to target.
func sumToEvaluator(target float64) Evaluator {
	return EvaluatorFunc("sum_to", func(_ context.Context, n *tree.Node) (Fitness, error) {
		return Scalar(math.Abs(evalSum(n) - target)), nil
	})
}

// buildDeterministic grows a root tree from a fixed seed.
func buildDeterministic(t *testing.T, b *builder.Builder, seed int64) *tree.Node {
	t.Helper()
	n, err := b.BuildRoot(rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return n
}

func assertValidTree(t *testing.T, g *grammar.Grammar, n *tree.Node) {
	t.Helper()
	if n.Depth() > g.MaxDepth() {
		t.Fatalf("tree depth %d exceeds limit %d", n.Depth(), g.MaxDepth())
	}
	n.Walk(func(path []int, node *tree.Node) bool {
		p := node.Production()
		children := node.Children()
		if len(children) != len(p.Args) {
			t.Fatalf("node %s at %v has %d children, wants %d", p.Name, path, len(children), len(p.Args))
		}
		for i, c := range children {
			if !g.Substitutable(c.Result(), p.Args[i]) {
				t.Fatalf("node %s at %v child %d: %s not substitutable for %s",
					p.Name, path, i, c.Result(), p.Args[i])
			}
		}
		return true
	})
}
