package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"grammateus/internal/builder"
	"grammateus/internal/grammar"
	"grammateus/internal/tree"
)

var ErrNilTree = errors.New("operator applied to nil tree")

const (
	defaultMutationAttempts  = 4
	defaultCrossoverAttempts = 8
)

// Mutation replaces a randomly chosen subtree with a freshly grown one of
// the type expected at that position, regrowing within the depth budget left
// under the node (maxDepth minus the node's level).
//
// The operator retries a few node picks to return a tree distinct from its
// input; under a degenerate grammar with a single choice at every node the
// final attempt is returned even when it is structurally identical.
type Mutation struct {
	Grammar *grammar.Grammar
	Builder *builder.Builder

	// SizeWeighted selects the mutation point proportionally to subtree
	// size instead of uniformly over nodes.
	SizeWeighted bool
	MaxAttempts  int
}

func NewMutation(g *grammar.Grammar, b *builder.Builder) (*Mutation, error) {
	if g == nil || b == nil {
		return nil, fmt.Errorf("mutation requires a grammar and a builder")
	}
	return &Mutation{Grammar: g, Builder: b}, nil
}

func (m *Mutation) Name() string { return "subtree_mutation" }

func (m *Mutation) Apply(rng *rand.Rand, t *tree.Node) (*tree.Node, error) {
	if t == nil {
		return nil, ErrNilTree
	}
	if rng == nil {
		return nil, fmt.Errorf("mutation: random source is required")
	}
	attempts := m.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMutationAttempts
	}

	paths := t.Paths()
	var last *tree.Node
	for attempt := 0; attempt < attempts; attempt++ {
		path := m.pickPath(rng, t, paths)
		expected, err := t.ExpectedAt(path)
		if err != nil {
			return nil, err
		}
		budget := m.Grammar.MaxDepth() - len(path)
		replacement, err := m.Builder.Build(rng, expected, budget)
		if err != nil {
			return nil, fmt.Errorf("mutation regrow at %v: %w", path, err)
		}
		out, err := t.ReplaceSubtreeAt(m.Grammar, path, replacement)
		if err != nil {
			return nil, fmt.Errorf("mutation splice at %v: %w", path, err)
		}
		last = out
		if out.Fingerprint() != t.Fingerprint() {
			return out, nil
		}
	}
	return last, nil
}

func (m *Mutation) pickPath(rng *rand.Rand, t *tree.Node, paths [][]int) []int {
	if !m.SizeWeighted {
		return paths[rng.Intn(len(paths))]
	}
	// Weight each candidate by the size of the subtree it roots.
	total := 0
	weights := make([]int, len(paths))
	for i, p := range paths {
		sub, err := t.SubtreeAt(p)
		if err != nil {
			weights[i] = 1
		} else {
			weights[i] = sub.Size()
		}
		total += weights[i]
	}
	pick := rng.Intn(total)
	for i, w := range weights {
		pick -= w
		if pick < 0 {
			return paths[i]
		}
	}
	return paths[len(paths)-1]
}

// Crossover swaps type-compatible subtrees between two parents. Pairs whose
// swap would exceed the depth limit are rejected and retried; after
// MaxAttempts without a legal depth-compatible pair, both parents are
// returned unchanged. That fallback is deliberate: a pathological grammar
// must degrade to reproduction, never stall or error the generation loop.
type Crossover struct {
	Grammar     *grammar.Grammar
	MaxAttempts int
}

func NewCrossover(g *grammar.Grammar) (*Crossover, error) {
	if g == nil {
		return nil, fmt.Errorf("crossover requires a grammar")
	}
	return &Crossover{Grammar: g}, nil
}

func (c *Crossover) Name() string { return "subtree_crossover" }

func (c *Crossover) Apply(rng *rand.Rand, a, b *tree.Node) (*tree.Node, *tree.Node, error) {
	if a == nil || b == nil {
		return nil, nil, ErrNilTree
	}
	if rng == nil {
		return nil, nil, fmt.Errorf("crossover: random source is required")
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = defaultCrossoverAttempts
	}

	maxDepth := c.Grammar.MaxDepth()
	pathsA := a.Paths()
	pathsB := b.Paths()

	for attempt := 0; attempt < attempts; attempt++ {
		pa := pathsA[rng.Intn(len(pathsA))]
		subA, err := a.SubtreeAt(pa)
		if err != nil {
			return nil, nil, err
		}
		wantA, err := a.ExpectedAt(pa)
		if err != nil {
			return nil, nil, err
		}

		candidates := make([][]int, 0, len(pathsB))
		for _, pb := range pathsB {
			subB, err := b.SubtreeAt(pb)
			if err != nil {
				return nil, nil, err
			}
			wantB, err := b.ExpectedAt(pb)
			if err != nil {
				return nil, nil, err
			}
			if !c.Grammar.Substitutable(subB.Result(), wantA) || !c.Grammar.Substitutable(subA.Result(), wantB) {
				continue
			}
			if len(pa)+subB.Depth() > maxDepth || len(pb)+subA.Depth() > maxDepth {
				continue
			}
			candidates = append(candidates, pb)
		}
		if len(candidates) == 0 {
			continue
		}
		pb := candidates[rng.Intn(len(candidates))]
		subB, _ := b.SubtreeAt(pb)

		childA, err := a.ReplaceSubtreeAt(c.Grammar, pa, subB)
		if err != nil {
			// Depth-checked above; treat any residual rejection as a
			// failed attempt rather than a partially swapped tree.
			var dee *tree.DepthExceededError
			if errors.As(err, &dee) {
				continue
			}
			return nil, nil, err
		}
		childB, err := b.ReplaceSubtreeAt(c.Grammar, pb, subA)
		if err != nil {
			var dee *tree.DepthExceededError
			if errors.As(err, &dee) {
				continue
			}
			return nil, nil, err
		}
		return childA, childB, nil
	}

	// Documented fallback: parents pass through unchanged.
	return a, b, nil
}
