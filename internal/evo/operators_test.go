package evo

import (
	"math/rand"
	"testing"

	"grammateus/internal/grammar"
	"grammateus/internal/tree"
)

func TestMutationPreservesDepthAndValidity(t *testing.T) {
	g := arithmeticGrammar(t, 5)
	b := newBuilder(t, g)
	m, err := NewMutation(g, b)
	if err != nil {
		t.Fatalf("new mutation: %v", err)
	}
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 200; i++ {
		parent, err := b.BuildRoot(rng)
		if err != nil {
			t.Fatalf("build parent: %v", err)
		}
		child, err := m.Apply(rng, parent)
		if err != nil {
			t.Fatalf("mutate %d: %v", i, err)
		}
		assertValidTree(t, g, child)
	}
}

func TestMutationLeavesInputUntouched(t *testing.T) {
	g := arithmeticGrammar(t, 4)
	b := newBuilder(t, g)
	m, _ := NewMutation(g, b)
	rng := rand.New(rand.NewSource(2))

	parent, _ := b.BuildRoot(rng)
	before := parent.Fingerprint()
	for i := 0; i < 50; i++ {
		if _, err := m.Apply(rng, parent); err != nil {
			t.Fatalf("mutate: %v", err)
		}
	}
	if parent.Fingerprint() != before {
		t.Fatal("mutation modified its input tree")
	}
}

func TestMutationProducesDistinctTree(t *testing.T) {
	g := arithmeticGrammar(t, 4)
	b := newBuilder(t, g)
	m, _ := NewMutation(g, b)
	rng := rand.New(rand.NewSource(17))

	distinct := 0
	for i := 0; i < 100; i++ {
		parent, _ := b.BuildRoot(rng)
		child, err := m.Apply(rng, parent)
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
		if child.Fingerprint() != parent.Fingerprint() {
			distinct++
		}
	}
	// The arithmetic grammar always offers an alternative; near-every
	// mutation should change the tree.
	if distinct < 95 {
		t.Fatalf("only %d/100 mutations changed the tree", distinct)
	}
}

func TestMutationDegenerateGrammarReturnsEquivalentTree(t *testing.T) {
	g := degenerateGrammar(t)
	b := newBuilder(t, g)
	m, _ := NewMutation(g, b)
	rng := rand.New(rand.NewSource(1))

	parent, err := b.BuildRoot(rng)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	child, err := m.Apply(rng, parent)
	if err != nil {
		t.Fatalf("degenerate mutation must not fail: %v", err)
	}
	if child.Fingerprint() != parent.Fingerprint() {
		t.Fatal("degenerate grammar admits exactly one derivation")
	}
}

func TestSizeWeightedMutationStillValid(t *testing.T) {
	g := arithmeticGrammar(t, 6)
	b := newBuilder(t, g)
	m, _ := NewMutation(g, b)
	m.SizeWeighted = true
	rng := rand.New(rand.NewSource(23))

	for i := 0; i < 100; i++ {
		parent, _ := b.BuildRoot(rng)
		child, err := m.Apply(rng, parent)
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
		assertValidTree(t, g, child)
	}
}

func TestCrossoverOffspringValidOrUnchanged(t *testing.T) {
	g := arithmeticGrammar(t, 5)
	b := newBuilder(t, g)
	c, err := NewCrossover(g)
	if err != nil {
		t.Fatalf("new crossover: %v", err)
	}
	rng := rand.New(rand.NewSource(31))

	for i := 0; i < 200; i++ {
		p1, _ := b.BuildRoot(rng)
		p2, _ := b.BuildRoot(rng)
		c1, c2, err := c.Apply(rng, p1, p2)
		if err != nil {
			t.Fatalf("crossover %d: %v", i, err)
		}
		assertValidTree(t, g, c1)
		assertValidTree(t, g, c2)
	}
}

func TestCrossoverLeavesParentsUntouched(t *testing.T) {
	g := arithmeticGrammar(t, 5)
	b := newBuilder(t, g)
	c, _ := NewCrossover(g)
	rng := rand.New(rand.NewSource(41))

	p1, _ := b.BuildRoot(rng)
	p2, _ := b.BuildRoot(rng)
	fp1, fp2 := p1.Fingerprint(), p2.Fingerprint()
	for i := 0; i < 50; i++ {
		if _, _, err := c.Apply(rng, p1, p2); err != nil {
			t.Fatalf("crossover: %v", err)
		}
	}
	if p1.Fingerprint() != fp1 || p2.Fingerprint() != fp2 {
		t.Fatal("crossover mutated a parent")
	}
}

func TestCrossoverIncompatibleTypesFallsBackToParents(t *testing.T) {
	// Two disjoint sorts: trees of one sort offer no node compatible with
	// the other, so every pairing attempt fails and the parents must pass
	// through unchanged.
	gb := grammar.NewBuilder("Expr")
	gb.Rule("Not", "Expr", "Bool")
	gb.IntRange("Bit", "Bool", 0, 1)
	gb.IntRange("Digit", "Num", 1, 9)
	gb.Rule("Twice", "Expr", "Num")
	g, err := gb.Compile(4)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	bitP, _ := g.Production("Bit")
	digitP, _ := g.Production("Digit")
	bit, _ := tree.NewLiteral(bitP, 1)
	digit, _ := tree.NewLiteral(digitP, 5)

	c, _ := NewCrossover(g)
	rng := rand.New(rand.NewSource(3))
	c1, c2, err := c.Apply(rng, bit, digit)
	if err != nil {
		t.Fatalf("crossover: %v", err)
	}
	if c1 != bit || c2 != digit {
		t.Fatal("expected the documented parents-unchanged fallback")
	}
}
