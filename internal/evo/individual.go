package evo

import (
	"fmt"

	"grammateus/internal/tree"
)

// Individual wraps a derivation tree with its cached fitness and creation
// metadata. The tree is immutable; variation always wraps a new tree in a
// fresh, unevaluated Individual.
type Individual struct {
	ID         string
	Tree       *tree.Node
	Fitness    Fitness
	Evaluated  bool
	Generation int
}

func NewIndividual(id string, t *tree.Node, generation int) *Individual {
	return &Individual{ID: id, Tree: t, Generation: generation}
}

// WithTree derives an unevaluated individual carrying a new tree. The cached
// fitness is dropped because it describes the old structure.
func (ind *Individual) WithTree(id string, t *tree.Node, generation int) *Individual {
	return &Individual{ID: id, Tree: t, Generation: generation}
}

func (ind *Individual) String() string {
	if !ind.Evaluated {
		return fmt.Sprintf("%s<unevaluated> %s", ind.ID, ind.Tree)
	}
	return fmt.Sprintf("%s<%v> %s", ind.ID, ind.Fitness.Values, ind.Tree)
}

// BetterIndividual orders individuals by fitness with the bloat-control tie
// break: among equally fit (or mutually non-dominating) trees the smaller
// one wins, then the earlier generation for stability.
func (o Objectives) BetterIndividual(a, b *Individual) bool {
	if o.Better(a.Fitness, b.Fitness) {
		return true
	}
	if o.Better(b.Fitness, a.Fitness) {
		return false
	}
	if a.Tree.Size() != b.Tree.Size() {
		return a.Tree.Size() < b.Tree.Size()
	}
	return false
}
