package tree

import (
	"fmt"

	"grammateus/internal/grammar"
	"grammateus/internal/model"
)

// ToRecord converts a derivation tree into its serialized form.
func ToRecord(n *Node) model.TreeRecord {
	rec := model.TreeRecord{Production: n.prod.Name}
	if v, ok := n.Value(); ok {
		value := v
		rec.Value = &value
	}
	for _, c := range n.children {
		rec.Children = append(rec.Children, ToRecord(c))
	}
	return rec
}

// FromRecord rebuilds a tree against the grammar the record was produced
// from, re-validating every production choice and argument type.
func FromRecord(g *grammar.Grammar, rec model.TreeRecord) (*Node, error) {
	p, ok := g.Production(rec.Production)
	if !ok {
		return nil, fmt.Errorf("tree: record references unknown production %q", rec.Production)
	}
	if p.Literal != nil {
		if rec.Value == nil {
			return nil, fmt.Errorf("tree: literal production %q record has no value", rec.Production)
		}
		return NewLiteral(p, *rec.Value)
	}

	children := make([]*Node, len(rec.Children))
	for i, c := range rec.Children {
		child, err := FromRecord(g, c)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return New(g, p, children...)
}
