package evo

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sourcegraph/conc/pool"

	"grammateus/internal/builder"
	"grammateus/internal/grammar"
	"grammateus/internal/stats"
	"grammateus/internal/tree"
)

// GenerationReport is published to the reporting sink at every generation
// boundary: index, population fitness summary, the generation's best and the
// best individual seen so far.
type GenerationReport struct {
	Generation int
	Summary    stats.Summary
	Failures   int
	Diversity  int
	BestOfGen  *Individual
	Best       *Individual
}

// Reporter consumes per-generation reports. Implementations own the format.
type Reporter interface {
	Generation(r GenerationReport)
}

// Config assembles an evolution run. Zero-value optional fields fall back to
// the documented defaults in New.
type Config struct {
	Grammar   *grammar.Grammar
	Evaluator Evaluator

	Objectives Objectives
	Selector   Selector
	Strategy   builder.Strategy

	PopulationSize int
	EliteCount     int
	NoveltyCount   int
	Workers        int
	Seed           int64

	CrossoverRate float64
	MutationRate  float64

	SizeWeightedMutation bool
	CrossoverAttempts    int

	// Conditions are checked after each generation's evaluation; the run
	// stops when any is met. At least one condition is required.
	Conditions []Condition

	Reporter Reporter
}

// Result carries everything the loop publishes. Best is nil when no
// individual ever evaluated successfully.
type Result struct {
	Best        *Individual
	Generations int
	Evaluations int
	Stopped     bool
	History     []GenerationReport
	Final       []*Individual
}

// Engine drives the generational loop: Initialize, Evaluate, Terminate?,
// Select, Vary, Replace. Strictly sequential between generations; only
// fitness evaluation fans out across workers.
type Engine struct {
	cfg       Config
	rng       *rand.Rand
	build     *builder.Builder
	mutation  *Mutation
	crossover *Crossover
}

func New(cfg Config) (*Engine, error) {
	if cfg.Grammar == nil {
		return nil, fmt.Errorf("engine: grammar is required")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("engine: evaluator is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("engine: population size must be > 0")
	}
	if cfg.EliteCount < 0 || cfg.EliteCount >= cfg.PopulationSize {
		return nil, fmt.Errorf("engine: elite count must be in [0, population size)")
	}
	if cfg.NoveltyCount < 0 || cfg.EliteCount+cfg.NoveltyCount >= cfg.PopulationSize {
		return nil, fmt.Errorf("engine: novelty count must leave room for offspring")
	}
	if cfg.CrossoverRate < 0 || cfg.CrossoverRate > 1 {
		return nil, fmt.Errorf("engine: crossover rate must be in [0, 1]")
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, fmt.Errorf("engine: mutation rate must be in [0, 1]")
	}
	if len(cfg.Conditions) == 0 {
		return nil, fmt.Errorf("engine: at least one termination condition is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Objectives.Arity() == 0 {
		cfg.Objectives = MinimizeSingle()
	}
	if cfg.Selector == nil {
		cfg.Selector = TournamentSelector{Size: 3, Objectives: cfg.Objectives}
	}

	b, err := builder.New(cfg.Grammar, cfg.Strategy)
	if err != nil {
		return nil, err
	}
	mutation, err := NewMutation(cfg.Grammar, b)
	if err != nil {
		return nil, err
	}
	mutation.SizeWeighted = cfg.SizeWeightedMutation
	crossover, err := NewCrossover(cfg.Grammar)
	if err != nil {
		return nil, err
	}
	crossover.MaxAttempts = cfg.CrossoverAttempts

	return &Engine{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		build:     b,
		mutation:  mutation,
		crossover: crossover,
	}, nil
}

// Run executes generations until a termination condition fires or the
// context is canceled. Cancellation is cooperative: it is observed at
// generation boundaries and yields the best individual found so far with
// Stopped set, never an error.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	population, err := e.initialize()
	if err != nil {
		return Result{}, err
	}

	var best *Individual
	evaluations := 0
	history := make([]GenerationReport, 0, 16)
	stopped := false
	generation := 0

	for {
		if ctx.Err() != nil {
			stopped = true
			break
		}

		evaluated, failures := e.evaluate(ctx, population)
		evaluations += evaluated
		Rank(e.cfg.Objectives, population)

		if population[0].Fitness.Valid {
			if best == nil || e.cfg.Objectives.BetterIndividual(population[0], best) {
				best = population[0]
			}
		}
		generation++

		report := e.report(generation, population, failures, best)
		history = append(history, report)
		if e.cfg.Reporter != nil {
			e.cfg.Reporter.Generation(report)
		}

		progress := Progress{
			Generation:  generation,
			Evaluations: evaluations,
			Elapsed:     time.Since(start),
			Best:        best,
		}
		done := false
		for _, cond := range e.cfg.Conditions {
			if cond.Done(progress) {
				done = true
				break
			}
		}
		if done {
			break
		}
		if ctx.Err() != nil {
			stopped = true
			break
		}

		offspring, err := e.vary(population, generation)
		if err != nil {
			return Result{}, err
		}
		population, err = Replace(e.cfg.Objectives, population, offspring, e.cfg.EliteCount)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{
		Best:        best,
		Generations: generation,
		Evaluations: evaluations,
		Stopped:     stopped,
		History:     history,
		Final:       population,
	}, nil
}

func (e *Engine) initialize() ([]*Individual, error) {
	population := make([]*Individual, e.cfg.PopulationSize)
	for i := range population {
		t, err := e.build.BuildRoot(e.rng)
		if err != nil {
			return nil, fmt.Errorf("engine: initialize individual %d: %w", i, err)
		}
		population[i] = NewIndividual(fmt.Sprintf("g1-i%d", i), t, 1)
	}
	return population, nil
}

// evaluate dispatches every unevaluated individual to the evaluator, at most
// Workers at a time, and blocks until the whole generation is scored. A
// failed evaluation marks its individual with sentinel worst fitness.
func (e *Engine) evaluate(ctx context.Context, population []*Individual) (evaluated, failures int) {
	pending := make([]*Individual, 0, len(population))
	for _, ind := range population {
		if !ind.Evaluated {
			pending = append(pending, ind)
		}
	}
	if len(pending) == 0 {
		return 0, 0
	}

	results := make([]Fitness, len(pending))
	failed := make([]bool, len(pending))

	p := pool.New().WithMaxGoroutines(e.cfg.Workers)
	for i, ind := range pending {
		p.Go(func() {
			f, err := e.cfg.Evaluator.Evaluate(ctx, ind.Tree)
			if err != nil || !f.Valid {
				results[i] = Worst()
				failed[i] = true
				return
			}
			results[i] = f
		})
	}
	p.Wait()

	for i, ind := range pending {
		ind.Fitness = results[i]
		ind.Evaluated = true
		if failed[i] {
			failures++
		}
	}
	return len(pending), failures
}

// vary produces the offspring pool for the next generation: optional fresh
// novelty individuals first, then parent selection and operator application.
// Operator choice per offspring pair is an independent weighted coin flip.
func (e *Engine) vary(population []*Individual, generation int) ([]*Individual, error) {
	need := e.cfg.PopulationSize - e.cfg.EliteCount
	offspring := make([]*Individual, 0, need+1)
	nextGen := generation + 1
	idx := 0

	wrap := func(t *tree.Node) {
		offspring = append(offspring, NewIndividual(fmt.Sprintf("g%d-i%d", nextGen, idx), t, nextGen))
		idx++
	}

	for i := 0; i < e.cfg.NoveltyCount && len(offspring) < need; i++ {
		t, err := e.build.BuildRoot(e.rng)
		if err != nil {
			return nil, fmt.Errorf("engine: novelty individual: %w", err)
		}
		wrap(t)
	}

	for len(offspring) < need {
		p1, err := e.cfg.Selector.PickParent(e.rng, population)
		if err != nil {
			return nil, err
		}
		p2, err := e.cfg.Selector.PickParent(e.rng, population)
		if err != nil {
			return nil, err
		}

		t1, t2 := p1.Tree, p2.Tree
		if e.rng.Float64() < e.cfg.CrossoverRate {
			t1, t2, err = e.crossover.Apply(e.rng, t1, t2)
			if err != nil {
				return nil, err
			}
		}
		if e.rng.Float64() < e.cfg.MutationRate {
			t1, err = e.mutation.Apply(e.rng, t1)
			if err != nil {
				return nil, err
			}
		}
		if e.rng.Float64() < e.cfg.MutationRate {
			t2, err = e.mutation.Apply(e.rng, t2)
			if err != nil {
				return nil, err
			}
		}

		wrap(t1)
		if len(offspring) < need {
			wrap(t2)
		}
	}
	return offspring, nil
}

func (e *Engine) report(generation int, ranked []*Individual, failures int, best *Individual) GenerationReport {
	minimize := true
	if e.cfg.Objectives.Arity() > 0 {
		minimize = e.cfg.Objectives.Minimize[0]
	}
	values := make([]float64, 0, len(ranked))
	fingerprints := make(map[string]struct{}, len(ranked))
	for _, ind := range ranked {
		if ind.Fitness.Valid && len(ind.Fitness.Values) > 0 {
			values = append(values, ind.Fitness.Values[0])
		}
		fingerprints[ind.Tree.Fingerprint()] = struct{}{}
	}

	return GenerationReport{
		Generation: generation,
		Summary:    stats.Summarize(values, minimize),
		Failures:   failures,
		Diversity:  len(fingerprints),
		BestOfGen:  ranked[0],
		Best:       best,
	}
}
