package evo

import (
	"fmt"
	"sort"
)

// Rank sorts a population best-first in place, by fitness with the
// smaller-tree tie break. The sort is stable so equally ranked individuals
// keep their arrival order, which keeps runs reproducible.
func Rank(objectives Objectives, population []*Individual) {
	sort.SliceStable(population, func(i, j int) bool {
		return objectives.BetterIndividual(population[i], population[j])
	})
}

// Replace builds the next generation: the eliteCount best of the old
// population survive unchanged, the rest is filled from offspring in order.
// The result always has exactly len(old) individuals.
func Replace(objectives Objectives, old, offspring []*Individual, eliteCount int) ([]*Individual, error) {
	size := len(old)
	if eliteCount < 0 || eliteCount >= size {
		return nil, fmt.Errorf("replacement: elite count %d out of range for population %d", eliteCount, size)
	}
	if len(offspring) < size-eliteCount {
		return nil, fmt.Errorf("replacement: need %d offspring, got %d", size-eliteCount, len(offspring))
	}

	ranked := append([]*Individual(nil), old...)
	Rank(objectives, ranked)

	next := make([]*Individual, 0, size)
	next = append(next, ranked[:eliteCount]...)
	next = append(next, offspring[:size-eliteCount]...)
	return next, nil
}
