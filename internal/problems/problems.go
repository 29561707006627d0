// Package problems hosts the built-in benchmark problems: each one bundles
// a grammar, a fitness evaluator and the objective directions under a
// registered name.
package problems

import (
	"fmt"
	"sort"
	"sync"

	"grammateus/internal/evo"
	"grammateus/internal/grammar"
)

// Problem is a self-contained benchmark definition.
type Problem interface {
	Name() string
	Description() string
	Grammar(maxDepth int) (*grammar.Grammar, error)
	Evaluator() evo.Evaluator
	Objectives() evo.Objectives
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Problem)
)

// Register adds a problem under its name. Registering the same name twice
// is a programming error.
func Register(p Problem) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := p.Name()
	if name == "" {
		return fmt.Errorf("problem name is required")
	}
	if _, exists := registry[name]; exists {
		return fmt.Errorf("problem %q already registered", name)
	}
	registry[name] = p
	return nil
}

// Resolve looks up a registered problem by name.
func Resolve(name string) (Problem, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return p, nil
}

// Names lists the registered problems in lexical order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mustRegister(p Problem) {
	if err := Register(p); err != nil {
		panic(err)
	}
}
