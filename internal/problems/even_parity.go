package problems

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"grammateus/internal/evo"
	"grammateus/internal/grammar"
	"grammateus/internal/tree"
)

func init() {
	mustRegister(EvenParity{Inputs: 3})
}

// EvenParity evolves a boolean circuit computing the even-parity function
// over Inputs variables: true when an even number of inputs is true. The
// fitness is the number of truth-table rows the circuit gets wrong.
type EvenParity struct {
	Inputs int
}

func (EvenParity) Name() string { return "even_parity" }

func (p EvenParity) Description() string {
	return fmt.Sprintf("evolve an even-parity circuit over %d inputs", p.Inputs)
}

func (p EvenParity) Grammar(maxDepth int) (*grammar.Grammar, error) {
	if p.Inputs < 2 {
		return nil, fmt.Errorf("even parity needs at least 2 inputs, got %d", p.Inputs)
	}
	b := grammar.NewBuilder("Bool")
	b.Rule("And", "Bool", "Bool", "Bool")
	b.Rule("Or", "Bool", "Bool", "Bool")
	b.Rule("Nand", "Bool", "Bool", "Bool")
	b.Rule("Nor", "Bool", "Bool", "Bool")
	for i := 0; i < p.Inputs; i++ {
		b.Terminal(fmt.Sprintf("V%d", i), "Bool")
	}
	return b.Compile(maxDepth)
}

func (p EvenParity) Evaluator() evo.Evaluator {
	return evo.EvaluatorFunc(p.Name(), func(_ context.Context, n *tree.Node) (evo.Fitness, error) {
		rows := 1 << p.Inputs
		wrong := 0
		inputs := make([]bool, p.Inputs)
		for row := 0; row < rows; row++ {
			trues := 0
			for i := range inputs {
				inputs[i] = row&(1<<i) != 0
				if inputs[i] {
					trues++
				}
			}
			got, err := evalBool(n, inputs)
			if err != nil {
				return evo.Worst(), err
			}
			if got != (trues%2 == 0) {
				wrong++
			}
		}
		return evo.Scalar(float64(wrong)), nil
	})
}

func (EvenParity) Objectives() evo.Objectives { return evo.MinimizeSingle() }

func evalBool(n *tree.Node, inputs []bool) (bool, error) {
	name := n.Production().Name
	if strings.HasPrefix(name, "V") {
		idx, err := strconv.Atoi(name[1:])
		if err != nil || idx < 0 || idx >= len(inputs) {
			return false, fmt.Errorf("even parity: unknown input %s", name)
		}
		return inputs[idx], nil
	}

	children := n.Children()
	if len(children) != 2 {
		return false, fmt.Errorf("even parity: unknown production %s", name)
	}
	left, err := evalBool(children[0], inputs)
	if err != nil {
		return false, err
	}
	right, err := evalBool(children[1], inputs)
	if err != nil {
		return false, err
	}
	switch name {
	case "And":
		return left && right, nil
	case "Or":
		return left || right, nil
	case "Nand":
		return !(left && right), nil
	case "Nor":
		return !(left || right), nil
	}
	return false, fmt.Errorf("even parity: unknown production %s", name)
}
