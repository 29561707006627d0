package evo

import (
	"fmt"
	"math/rand"
)

// Selector chooses parents from an evaluated population for replication.
// Implementations must not mutate the population slice.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, population []*Individual) (*Individual, error)
}

// TournamentSelector samples Size individuals uniformly and returns the best
// by fitness, with the smaller-tree tie break. Default selection policy.
type TournamentSelector struct {
	Size       int
	Objectives Objectives
}

func (TournamentSelector) Name() string { return "tournament" }

func (s TournamentSelector) PickParent(rng *rand.Rand, population []*Individual) (*Individual, error) {
	if rng == nil {
		return nil, fmt.Errorf("selection: random source is required")
	}
	if len(population) == 0 {
		return nil, fmt.Errorf("selection: empty population")
	}
	size := s.Size
	if size <= 0 {
		size = 3
	}

	best := population[rng.Intn(len(population))]
	for i := 1; i < size; i++ {
		candidate := population[rng.Intn(len(population))]
		if s.Objectives.BetterIndividual(candidate, best) {
			best = candidate
		}
	}
	return best, nil
}

// LexicaseSelector filters the population through the objective cases in a
// random order, keeping only the individuals elite on each case in turn.
// Requires vector fitness; with a single objective it collapses to picking
// a best individual.
type LexicaseSelector struct {
	Objectives Objectives
}

func (LexicaseSelector) Name() string { return "lexicase" }

func (s LexicaseSelector) PickParent(rng *rand.Rand, population []*Individual) (*Individual, error) {
	if rng == nil {
		return nil, fmt.Errorf("selection: random source is required")
	}
	if len(population) == 0 {
		return nil, fmt.Errorf("selection: empty population")
	}

	pool := make([]*Individual, 0, len(population))
	for _, ind := range population {
		if ind.Fitness.Valid {
			pool = append(pool, ind)
		}
	}
	if len(pool) == 0 {
		// Everyone failed evaluation; selection pressure is meaningless.
		return population[rng.Intn(len(population))], nil
	}

	cases := rng.Perm(s.Objectives.Arity())
	for _, c := range cases {
		if len(pool) == 1 {
			break
		}
		best := objective(pool[0].Fitness, c)
		for _, ind := range pool[1:] {
			if s.Objectives.betterValue(c, objective(ind.Fitness, c), best) {
				best = objective(ind.Fitness, c)
			}
		}
		kept := pool[:0]
		for _, ind := range pool {
			if objective(ind.Fitness, c) == best {
				kept = append(kept, ind)
			}
		}
		pool = kept
	}
	return pool[rng.Intn(len(pool))], nil
}
