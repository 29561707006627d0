// Package builder grows grammar-valid derivation trees top-down within a
// depth budget. Initialization, mutation regrowth and crossover repair all
// funnel through Build.
package builder

import (
	"fmt"
	"math"
	"math/rand"

	"grammateus/internal/grammar"
	"grammateus/internal/tree"
)

// UnreachableError reports a node position where no production fits the
// remaining depth budget. With a compiled grammar this is unreachable; it is
// surfaced instead of ever emitting an invalid tree.
type UnreachableError struct {
	Symbol grammar.Symbol
	Budget int
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("builder: no production of %q fits depth budget %d", e.Symbol, e.Budget)
}

// Strategy picks one production among the depth-feasible candidates.
type Strategy interface {
	Name() string
	Choose(rng *rand.Rand, candidates []grammar.Production) grammar.Production
}

// Uniform picks uniformly at random. Default.
type Uniform struct{}

func (Uniform) Name() string { return "uniform" }

func (Uniform) Choose(rng *rand.Rand, candidates []grammar.Production) grammar.Production {
	return candidates[rng.Intn(len(candidates))]
}

// Weighted picks proportionally to each production's weight.
type Weighted struct{}

func (Weighted) Name() string { return "weighted" }

func (Weighted) Choose(rng *rand.Rand, candidates []grammar.Production) grammar.Production {
	total := 0.0
	for _, p := range candidates {
		total += p.Weight
	}
	if total <= 0 {
		return candidates[rng.Intn(len(candidates))]
	}
	pick := rng.Float64() * total
	acc := 0.0
	for _, p := range candidates {
		acc += p.Weight
		if pick <= acc {
			return p
		}
	}
	return candidates[len(candidates)-1]
}

// Builder constructs trees for one grammar. Safe for concurrent use as long
// as each call owns its rng.
type Builder struct {
	grammar  *grammar.Grammar
	strategy Strategy
}

func New(g *grammar.Grammar, strategy Strategy) (*Builder, error) {
	if g == nil {
		return nil, fmt.Errorf("builder: grammar is required")
	}
	if strategy == nil {
		strategy = Uniform{}
	}
	return &Builder{grammar: g, strategy: strategy}, nil
}

func (b *Builder) Grammar() *grammar.Grammar { return b.grammar }

// Build grows a tree rooted at sym within maxDepth levels. Every produced
// tree satisfies depth(tree) <= maxDepth and full type conformance.
func (b *Builder) Build(rng *rand.Rand, sym grammar.Symbol, maxDepth int) (*tree.Node, error) {
	if rng == nil {
		return nil, fmt.Errorf("builder: random source is required")
	}
	if maxDepth <= 0 {
		return nil, &UnreachableError{Symbol: sym, Budget: maxDepth}
	}
	return b.grow(rng, sym, maxDepth)
}

// BuildRoot grows a tree for the grammar's root within its configured limit.
func (b *Builder) BuildRoot(rng *rand.Rand) (*tree.Node, error) {
	return b.Build(rng, b.grammar.Root(), b.grammar.MaxDepth())
}

func (b *Builder) grow(rng *rand.Rand, sym grammar.Symbol, budget int) (*tree.Node, error) {
	candidates := b.feasible(sym, budget)
	if len(candidates) == 0 {
		return nil, &UnreachableError{Symbol: sym, Budget: budget}
	}
	p := b.strategy.Choose(rng, candidates)

	if p.Literal != nil {
		return tree.NewLiteral(p, sampleLiteral(rng, *p.Literal))
	}
	children := make([]*tree.Node, len(p.Args))
	for i, arg := range p.Args {
		child, err := b.grow(rng, arg, budget-1)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return tree.New(b.grammar, p, children...)
}

func (b *Builder) feasible(sym grammar.Symbol, budget int) []grammar.Production {
	prods := b.grammar.Resolve(sym)
	out := make([]grammar.Production, 0, len(prods))
	for _, p := range prods {
		if b.grammar.ProductionMinDepth(p.Name) <= budget {
			out = append(out, p)
		}
	}
	return out
}

func sampleLiteral(rng *rand.Rand, spec grammar.LiteralSpec) float64 {
	if spec.Kind == grammar.LiteralInt {
		low := int(spec.Low)
		high := int(spec.High)
		return float64(low + rng.Intn(high-low+1))
	}
	v := spec.Low + rng.Float64()*(spec.High-spec.Low)
	if math.IsNaN(v) {
		return spec.Low
	}
	return v
}
