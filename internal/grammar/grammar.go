package grammar

import (
	"fmt"
	"sort"
	"strings"
)

// Symbol names a non-terminal type in the grammar.
type Symbol string

// LiteralKind selects the value domain of a literal terminal production.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
)

// LiteralSpec describes a value-carrying terminal. Nodes built from such a
// production carry a sampled value instead of children.
type LiteralSpec struct {
	Kind LiteralKind
	Low  float64
	High float64
}

// Production is a single typed rewrite rule. Immutable once the grammar is
// compiled.
type Production struct {
	Name    string
	Result  Symbol
	Args    []Symbol
	Weight  float64
	Literal *LiteralSpec
}

// IsTerminal reports whether the production expands to no further symbols.
func (p Production) IsTerminal() bool {
	return len(p.Args) == 0
}

// UnproducibleTypeError reports a symbol that cannot derive a terminal-only
// subtree within the grammar's maximum depth. Raised at compile time only.
type UnproducibleTypeError struct {
	Symbol   Symbol
	MinDepth int
	MaxDepth int
}

func (e *UnproducibleTypeError) Error() string {
	if e.MinDepth >= unreachableDepth {
		return fmt.Sprintf("grammar: symbol %q cannot produce a terminal subtree", e.Symbol)
	}
	return fmt.Sprintf("grammar: symbol %q requires depth %d, max is %d", e.Symbol, e.MinDepth, e.MaxDepth)
}

const unreachableDepth = 1 << 30

// Grammar is the normalized, immutable rule set shared by builders,
// operators and evaluation workers.
type Grammar struct {
	root     Symbol
	maxDepth int

	alternatives map[Symbol][]Production
	byName       map[string]Production
	subtypes     map[Symbol][]Symbol
	minDepth     map[Symbol]int
	prodMinDepth map[string]int
	recursive    map[Symbol]bool
}

func (g *Grammar) Root() Symbol  { return g.root }
func (g *Grammar) MaxDepth() int { return g.maxDepth }

// Resolve returns the ordered productions applicable where sym is expected,
// including productions of declared subtypes.
func (g *Grammar) Resolve(sym Symbol) []Production {
	return g.alternatives[sym]
}

// Production looks up a compiled production by name.
func (g *Grammar) Production(name string) (Production, bool) {
	p, ok := g.byName[name]
	return p, ok
}

// IsTerminal reports whether every production of sym is terminal.
func (g *Grammar) IsTerminal(sym Symbol) bool {
	prods := g.alternatives[sym]
	if len(prods) == 0 {
		return false
	}
	for _, p := range prods {
		if !p.IsTerminal() {
			return false
		}
	}
	return true
}

// MinDepth is the minimum derivation depth needed to produce a terminal-only
// subtree rooted at sym. Precomputed at compile time.
func (g *Grammar) MinDepth(sym Symbol) int {
	d, ok := g.minDepth[sym]
	if !ok {
		return unreachableDepth
	}
	return d
}

// ProductionMinDepth is the minimum subtree depth for a node using the named
// production: 1 for terminals, 1 plus the deepest argument otherwise.
func (g *Grammar) ProductionMinDepth(name string) int {
	d, ok := g.prodMinDepth[name]
	if !ok {
		return unreachableDepth
	}
	return d
}

// Substitutable reports whether a subtree producing sub may stand where super
// is expected: identical symbols or a declared (transitive) subtype.
func (g *Grammar) Substitutable(sub, super Symbol) bool {
	if sub == super {
		return true
	}
	seen := map[Symbol]bool{}
	queue := append([]Symbol(nil), g.subtypes[super]...)
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if seen[s] {
			continue
		}
		seen[s] = true
		if s == sub {
			return true
		}
		queue = append(queue, g.subtypes[s]...)
	}
	return false
}

// IsRecursive reports whether sym can reach itself through its productions.
func (g *Grammar) IsRecursive(sym Symbol) bool {
	return g.recursive[sym]
}

// Symbols returns all symbols with at least one production, sorted.
func (g *Grammar) Symbols() []Symbol {
	out := make([]Symbol, 0, len(g.alternatives))
	for sym := range g.alternatives {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Summary aggregates grammar-level properties for reporting.
type Summary struct {
	Root             Symbol
	MaxDepth         int
	MinTreeDepth     int
	NonTerminals     int
	Productions      int
	RecursiveSymbols int
}

func (g *Grammar) Summarize() Summary {
	total := 0
	nonTerminals := 0
	recursive := 0
	for sym, prods := range g.alternatives {
		total += len(prods)
		if !g.IsTerminal(sym) {
			nonTerminals++
		}
		if g.recursive[sym] {
			recursive++
		}
	}
	return Summary{
		Root:             g.root,
		MaxDepth:         g.maxDepth,
		MinTreeDepth:     g.MinDepth(g.root),
		NonTerminals:     nonTerminals,
		Productions:      total,
		RecursiveSymbols: recursive,
	}
}

func (g *Grammar) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grammar<Root=%s", g.root)
	for _, sym := range g.Symbols() {
		parts := make([]string, 0, len(g.alternatives[sym]))
		for _, p := range g.alternatives[sym] {
			args := make([]string, len(p.Args))
			for i, a := range p.Args {
				args[i] = string(a)
			}
			parts = append(parts, fmt.Sprintf("%s(%s)", p.Name, strings.Join(args, ",")))
		}
		fmt.Fprintf(&b, ";%s->%s", sym, strings.Join(parts, "|"))
	}
	b.WriteString(">")
	return b.String()
}

// preprocess runs the fixpoint over minimum depths and the recursive-symbol
// reachability relation, then rejects unproducible symbols.
func (g *Grammar) preprocess() error {
	for sym := range g.alternatives {
		g.minDepth[sym] = unreachableDepth
	}

	changed := true
	for changed {
		changed = false
		for sym, prods := range g.alternatives {
			best := g.minDepth[sym]
			for _, p := range prods {
				d := g.productionDepth(p)
				g.prodMinDepth[p.Name] = d
				if d < best {
					best = d
				}
			}
			if best < g.minDepth[sym] {
				g.minDepth[sym] = best
				changed = true
			}
		}
	}

	reach := map[Symbol]map[Symbol]bool{}
	for sym, prods := range g.alternatives {
		set := map[Symbol]bool{}
		for _, p := range prods {
			for _, a := range p.Args {
				set[a] = true
				for _, sub := range g.transitiveSubtypes(a) {
					set[sub] = true
				}
			}
		}
		reach[sym] = set
	}
	changed = true
	for changed {
		changed = false
		for _, set := range reach {
			for dst := range set {
				for next := range reach[dst] {
					if !set[next] {
						set[next] = true
						changed = true
					}
				}
			}
		}
	}
	for sym, set := range reach {
		if set[sym] {
			g.recursive[sym] = true
		}
	}

	for _, sym := range g.reachableFromRoot() {
		if d := g.minDepth[sym]; d >= unreachableDepth || d > g.maxDepth {
			return &UnproducibleTypeError{Symbol: sym, MinDepth: d, MaxDepth: g.maxDepth}
		}
	}
	return nil
}

func (g *Grammar) productionDepth(p Production) int {
	if p.IsTerminal() {
		return 1
	}
	worst := 0
	for _, a := range p.Args {
		d, ok := g.minDepth[a]
		if !ok {
			return unreachableDepth
		}
		if d > worst {
			worst = d
		}
	}
	if worst >= unreachableDepth {
		return unreachableDepth
	}
	return 1 + worst
}

func (g *Grammar) transitiveSubtypes(sym Symbol) []Symbol {
	var out []Symbol
	seen := map[Symbol]bool{}
	queue := append([]Symbol(nil), g.subtypes[sym]...)
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		queue = append(queue, g.subtypes[s]...)
	}
	return out
}

func (g *Grammar) reachableFromRoot() []Symbol {
	var out []Symbol
	seen := map[Symbol]bool{}
	queue := []Symbol{g.root}
	for len(queue) > 0 {
		sym := queue[0]
		queue = queue[1:]
		if seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
		for _, p := range g.alternatives[sym] {
			queue = append(queue, p.Args...)
		}
		queue = append(queue, g.subtypes[sym]...)
	}
	return out
}
