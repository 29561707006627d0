package grammar

import (
	"fmt"
	"math"
)

// Builder assembles a grammar declaratively before a single Compile pass
// normalizes and validates it. The zero value is not usable; start from
// NewBuilder.
type Builder struct {
	root     Symbol
	rules    []Production
	subtypes map[Symbol][]Symbol
	order    []Symbol
	err      error
}

func NewBuilder(root Symbol) *Builder {
	b := &Builder{root: root, subtypes: map[Symbol][]Symbol{}}
	if root == "" {
		b.err = fmt.Errorf("grammar: root symbol is required")
	}
	return b
}

// Rule registers result -> name(args...). Calling multiple times with the
// same result symbol registers alternatives in order.
func (b *Builder) Rule(name string, result Symbol, args ...Symbol) *Builder {
	return b.add(Production{Name: name, Result: result, Args: append([]Symbol(nil), args...), Weight: 1})
}

// Terminal registers a zero-argument production.
func (b *Builder) Terminal(name string, result Symbol) *Builder {
	return b.add(Production{Name: name, Result: result, Weight: 1})
}

// IntRange registers a literal terminal whose nodes carry an integer sampled
// uniformly from [low, high].
func (b *Builder) IntRange(name string, result Symbol, low, high int) *Builder {
	if low > high {
		return b.fail(fmt.Errorf("grammar: int range %q has low %d > high %d", name, low, high))
	}
	return b.add(Production{
		Name:    name,
		Result:  result,
		Weight:  1,
		Literal: &LiteralSpec{Kind: LiteralInt, Low: float64(low), High: float64(high)},
	})
}

// FloatRange registers a literal terminal sampled uniformly from [low, high).
func (b *Builder) FloatRange(name string, result Symbol, low, high float64) *Builder {
	if low >= high || math.IsNaN(low) || math.IsNaN(high) {
		return b.fail(fmt.Errorf("grammar: float range %q has invalid bounds [%v, %v)", name, low, high))
	}
	return b.add(Production{
		Name:    name,
		Result:  result,
		Weight:  1,
		Literal: &LiteralSpec{Kind: LiteralFloat, Low: low, High: high},
	})
}

// Weight overrides the relative choice weight of a registered production.
// Only the probabilistic build strategy consults weights.
func (b *Builder) Weight(name string, weight float64) *Builder {
	if b.err != nil {
		return b
	}
	if weight <= 0 || math.IsNaN(weight) {
		return b.fail(fmt.Errorf("grammar: weight for %q must be > 0, got %v", name, weight))
	}
	for i := range b.rules {
		if b.rules[i].Name == name {
			b.rules[i].Weight = weight
			return b
		}
	}
	return b.fail(fmt.Errorf("grammar: weight refers to unknown production %q", name))
}

// Subtype declares that sub may stand wherever super is expected. The
// supertype inherits all of sub's productions as alternatives.
func (b *Builder) Subtype(sub, super Symbol) *Builder {
	if b.err != nil {
		return b
	}
	if sub == super {
		return b.fail(fmt.Errorf("grammar: symbol %q cannot be its own subtype", sub))
	}
	b.subtypes[super] = append(b.subtypes[super], sub)
	return b
}

// Compile normalizes the rule set, precomputes minimum depths and rejects
// grammars whose root cannot be produced within maxDepth.
func (b *Builder) Compile(maxDepth int) (*Grammar, error) {
	if b.err != nil {
		return nil, b.err
	}
	if maxDepth <= 0 {
		return nil, fmt.Errorf("grammar: max depth must be > 0, got %d", maxDepth)
	}
	if len(b.rules) == 0 {
		return nil, fmt.Errorf("grammar: at least one production is required")
	}

	g := &Grammar{
		root:         b.root,
		maxDepth:     maxDepth,
		alternatives: map[Symbol][]Production{},
		byName:       map[string]Production{},
		subtypes:     map[Symbol][]Symbol{},
		minDepth:     map[Symbol]int{},
		prodMinDepth: map[string]int{},
		recursive:    map[Symbol]bool{},
	}
	for super, subs := range b.subtypes {
		g.subtypes[super] = append([]Symbol(nil), subs...)
	}
	for _, p := range b.rules {
		if _, dup := g.byName[p.Name]; dup {
			return nil, fmt.Errorf("grammar: duplicate production name %q", p.Name)
		}
		g.byName[p.Name] = p
		g.alternatives[p.Result] = append(g.alternatives[p.Result], p)
	}

	// Supertypes resolve to their own alternatives followed by the
	// alternatives of transitive subtypes, in declaration order. A purely
	// abstract supertype has no rules of its own.
	flattened := append([]Symbol(nil), b.order...)
	for super := range b.subtypes {
		if _, seen := b.seenSymbol(super); !seen {
			flattened = append(flattened, super)
		}
	}
	for _, sym := range flattened {
		for _, sub := range g.transitiveSubtypes(sym) {
			for _, p := range b.rules {
				if p.Result == sub {
					g.alternatives[sym] = append(g.alternatives[sym], p)
				}
			}
		}
	}

	if _, ok := g.alternatives[b.root]; !ok {
		return nil, fmt.Errorf("grammar: root symbol %q has no productions", b.root)
	}
	for name, p := range g.byName {
		for _, a := range p.Args {
			if _, ok := g.alternatives[a]; !ok {
				return nil, fmt.Errorf("grammar: production %q argument %q has no productions", name, a)
			}
		}
	}

	if err := g.preprocess(); err != nil {
		return nil, err
	}
	return g, nil
}

func (b *Builder) add(p Production) *Builder {
	if b.err != nil {
		return b
	}
	if p.Name == "" {
		return b.fail(fmt.Errorf("grammar: production name is required"))
	}
	if p.Result == "" {
		return b.fail(fmt.Errorf("grammar: production %q needs a result symbol", p.Name))
	}
	if _, seen := b.seenSymbol(p.Result); !seen {
		b.order = append(b.order, p.Result)
	}
	b.rules = append(b.rules, p)
	return b
}

func (b *Builder) seenSymbol(sym Symbol) (int, bool) {
	for i, s := range b.order {
		if s == sym {
			return i, true
		}
	}
	return 0, false
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}
