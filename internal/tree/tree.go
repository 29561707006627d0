// Package tree implements the immutable derivation-tree representation.
// Nodes are persistent: structural mutation returns a new tree that shares
// every unaffected subtree with the original.
package tree

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"

	"grammateus/internal/grammar"
)

// TypeMismatchError reports a subtree whose result type cannot stand at the
// target position. It indicates a bug in the caller, never expected input.
type TypeMismatchError struct {
	Path []int
	Want grammar.Symbol
	Got  grammar.Symbol
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("tree: type mismatch at %v: want %s, got %s", e.Path, e.Want, e.Got)
}

// DepthExceededError reports a structural edit that would push the tree past
// the grammar's depth limit.
type DepthExceededError struct {
	Depth int
	Max   int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("tree: depth %d exceeds limit %d", e.Depth, e.Max)
}

// PathError reports a child index sequence that does not address a node.
type PathError struct {
	Path []int
}

func (e *PathError) Error() string {
	return fmt.Sprintf("tree: no node at path %v", e.Path)
}

// Node is one instantiated production choice. Never mutate a Node after
// construction; every edit goes through ReplaceSubtreeAt.
type Node struct {
	prod     grammar.Production
	value    float64
	children []*Node
	depth    int
	size     int
}

// New builds a node from a production and its argument subtrees, validating
// arity and argument substitutability against the grammar.
func New(g *grammar.Grammar, p grammar.Production, children ...*Node) (*Node, error) {
	if p.Literal != nil {
		return nil, fmt.Errorf("tree: literal production %q needs NewLiteral", p.Name)
	}
	if len(children) != len(p.Args) {
		return nil, fmt.Errorf("tree: production %q wants %d children, got %d", p.Name, len(p.Args), len(children))
	}
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("tree: production %q child %d is nil", p.Name, i)
		}
		if !g.Substitutable(c.Result(), p.Args[i]) {
			return nil, &TypeMismatchError{Path: []int{i}, Want: p.Args[i], Got: c.Result()}
		}
	}

	n := &Node{prod: p, children: append([]*Node(nil), children...)}
	n.relabel()
	return n, nil
}

// NewLiteral builds a value-carrying terminal node.
func NewLiteral(p grammar.Production, value float64) (*Node, error) {
	if p.Literal == nil {
		return nil, fmt.Errorf("tree: production %q is not a literal", p.Name)
	}
	n := &Node{prod: p, value: value, depth: 1, size: 1}
	return n, nil
}

func (n *Node) relabel() {
	deepest := 0
	count := 1
	for _, c := range n.children {
		if c.depth > deepest {
			deepest = c.depth
		}
		count += c.size
	}
	n.depth = 1 + deepest
	n.size = count
}

// Depth is the number of levels in the subtree; a lone terminal has depth 1.
func (n *Node) Depth() int { return n.depth }

// Size is the total node count of the subtree.
func (n *Node) Size() int { return n.size }

// Result is the symbol this node's production produces.
func (n *Node) Result() grammar.Symbol { return n.prod.Result }

// Production returns the production choice attached to this node.
func (n *Node) Production() grammar.Production { return n.prod }

// Value returns the sampled literal and whether the node carries one.
func (n *Node) Value() (float64, bool) {
	return n.value, n.prod.Literal != nil
}

// Children returns the ordered argument subtrees. The slice is a copy; the
// nodes themselves are shared and must not be mutated.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// SubtreeAt resolves a sequence of child indices from this node.
func (n *Node) SubtreeAt(path []int) (*Node, error) {
	cur := n
	for _, idx := range path {
		if idx < 0 || idx >= len(cur.children) {
			return nil, &PathError{Path: append([]int(nil), path...)}
		}
		cur = cur.children[idx]
	}
	return cur, nil
}

// TypeAt returns the result symbol of the node at path.
func (n *Node) TypeAt(path []int) (grammar.Symbol, error) {
	sub, err := n.SubtreeAt(path)
	if err != nil {
		return "", err
	}
	return sub.Result(), nil
}

// ExpectedAt returns the argument symbol the grammar demands at path: the
// parent production's declared argument type, or the node's own result for
// the root. Operators regrow against this, not the concrete result, so a
// substitutable sibling production remains a legal replacement.
func (n *Node) ExpectedAt(path []int) (grammar.Symbol, error) {
	if len(path) == 0 {
		return n.Result(), nil
	}
	parent, err := n.SubtreeAt(path[:len(path)-1])
	if err != nil {
		return "", err
	}
	idx := path[len(path)-1]
	if idx < 0 || idx >= len(parent.prod.Args) {
		return "", &PathError{Path: append([]int(nil), path...)}
	}
	return parent.prod.Args[idx], nil
}

// ReplaceSubtreeAt returns a new tree with the subtree at path replaced.
// The receiver is left untouched; ancestors along the path are rebuilt and
// everything else is shared. Fails with TypeMismatchError when the
// replacement's result does not satisfy the expected argument type, and with
// DepthExceededError when the edit would exceed the grammar's depth limit.
func (n *Node) ReplaceSubtreeAt(g *grammar.Grammar, path []int, sub *Node) (*Node, error) {
	if sub == nil {
		return nil, fmt.Errorf("tree: replacement subtree is nil")
	}
	expected, err := n.ExpectedAt(path)
	if err != nil {
		return nil, err
	}
	if !g.Substitutable(sub.Result(), expected) {
		return nil, &TypeMismatchError{Path: append([]int(nil), path...), Want: expected, Got: sub.Result()}
	}

	out, err := n.replace(path, sub)
	if err != nil {
		return nil, err
	}
	if out.depth > g.MaxDepth() {
		return nil, &DepthExceededError{Depth: out.depth, Max: g.MaxDepth()}
	}
	return out, nil
}

func (n *Node) replace(path []int, sub *Node) (*Node, error) {
	if len(path) == 0 {
		return sub, nil
	}
	idx := path[0]
	if idx < 0 || idx >= len(n.children) {
		return nil, &PathError{Path: append([]int(nil), path...)}
	}
	child, err := n.children[idx].replace(path[1:], sub)
	if err != nil {
		return nil, err
	}

	children := append([]*Node(nil), n.children...)
	children[idx] = child
	out := &Node{prod: n.prod, value: n.value, children: children}
	out.relabel()
	return out, nil
}

// Walk visits the subtree in preorder. Returning false from fn prunes the
// node's children.
func (n *Node) Walk(fn func(path []int, node *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(path []int, fn func(path []int, node *Node) bool) {
	if !fn(path, n) {
		return
	}
	for i, c := range n.children {
		c.walk(append(path, i), fn)
	}
}

// Paths enumerates every node path in preorder, root first.
func (n *Node) Paths() [][]int {
	out := make([][]int, 0, n.size)
	n.Walk(func(path []int, _ *Node) bool {
		out = append(out, append([]int(nil), path...))
		return true
	})
	return out
}

// Fingerprint is a structural hash over production choices and literal
// values. Equal fingerprints identify equivalent derivations.
func (n *Node) Fingerprint() string {
	h := fnv.New64a()
	n.Walk(func(_ []int, node *Node) bool {
		_, _ = h.Write([]byte(node.prod.Name))
		if node.prod.Literal != nil {
			_, _ = h.Write([]byte(strconv.FormatFloat(node.value, 'g', -1, 64)))
		}
		_, _ = h.Write([]byte{'/'})
		return true
	})
	return strconv.FormatUint(h.Sum64(), 16)
}

// String renders the derivation as nested production applications.
func (n *Node) String() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	if n.prod.Literal != nil {
		if n.prod.Literal.Kind == grammar.LiteralInt {
			b.WriteString(strconv.FormatInt(int64(math.Round(n.value)), 10))
		} else {
			b.WriteString(strconv.FormatFloat(n.value, 'g', 6, 64))
		}
		return
	}
	b.WriteString(n.prod.Name)
	if len(n.children) == 0 {
		return
	}
	b.WriteByte('(')
	for i, c := range n.children {
		if i > 0 {
			b.WriteString(", ")
		}
		c.render(b)
	}
	b.WriteByte(')')
}
