package evo

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"grammateus/internal/tree"
)

type recordingReporter struct {
	reports []GenerationReport
}

func (r *recordingReporter) Generation(rep GenerationReport) {
	r.reports = append(r.reports, rep)
}

func sumConfig(t *testing.T, seed int64, conditions ...Condition) Config {
	t.Helper()
	if len(conditions) == 0 {
		conditions = []Condition{GenerationLimit(5)}
	}
	return Config{
		Grammar:        arithmeticGrammar(t, 4),
		Evaluator:      sumToEvaluator(100),
		PopulationSize: 10,
		EliteCount:     2,
		Seed:           seed,
		CrossoverRate:  0.8,
		MutationRate:   0.2,
		Conditions:     conditions,
	}
}

func TestEngineConfigValidation(t *testing.T) {
	base := sumConfig(t, 1)
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing grammar", func(c *Config) { c.Grammar = nil }},
		{"missing evaluator", func(c *Config) { c.Evaluator = nil }},
		{"zero population", func(c *Config) { c.PopulationSize = 0 }},
		{"negative elites", func(c *Config) { c.EliteCount = -1 }},
		{"all elites", func(c *Config) { c.EliteCount = 10 }},
		{"novelty leaves no offspring", func(c *Config) { c.EliteCount = 5; c.NoveltyCount = 5 }},
		{"crossover rate above one", func(c *Config) { c.CrossoverRate = 1.5 }},
		{"negative mutation rate", func(c *Config) { c.MutationRate = -0.1 }},
		{"no conditions", func(c *Config) { c.Conditions = nil }},
	}
	for _, tt := range tests {
		cfg := base
		tt.mutate(&cfg)
		if _, err := New(cfg); err == nil {
			t.Errorf("%s: expected config error", tt.name)
		}
	}
}

func TestEngineDeterministicUnderSeed(t *testing.T) {
	run := func() Result {
		e, err := New(sumConfig(t, 42))
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		res, err := e.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return res
	}

	a, b := run(), run()
	if a.Evaluations != b.Evaluations || a.Generations != b.Generations {
		t.Fatalf("run shape differs: %d/%d vs %d/%d",
			a.Generations, a.Evaluations, b.Generations, b.Evaluations)
	}
	if a.Best.Tree.Fingerprint() != b.Best.Tree.Fingerprint() {
		t.Fatalf("best trees differ: %s vs %s", a.Best.Tree, b.Best.Tree)
	}
	for i := range a.History {
		if a.History[i].Summary != b.History[i].Summary {
			t.Fatalf("generation %d summaries differ: %+v vs %+v",
				i+1, a.History[i].Summary, b.History[i].Summary)
		}
	}
	for i := range a.Final {
		if a.Final[i].Tree.Fingerprint() != b.Final[i].Tree.Fingerprint() {
			t.Fatalf("final population diverges at %d", i)
		}
	}
}

func TestEngineSeedsProduceDifferentRuns(t *testing.T) {
	results := map[string]bool{}
	for _, seed := range []int64{1, 2, 3} {
		e, err := New(sumConfig(t, seed))
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		res, err := e.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		results[res.Best.Tree.Fingerprint()] = true
	}
	if len(results) < 2 {
		t.Fatal("three seeds produced identical best trees")
	}
}

func TestEnginePopulationSizeInvariant(t *testing.T) {
	rep := &recordingReporter{}
	cfg := sumConfig(t, 7, GenerationLimit(6))
	cfg.NoveltyCount = 2
	cfg.Reporter = rep

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Final) != cfg.PopulationSize {
		t.Fatalf("final population size %d, want %d", len(res.Final), cfg.PopulationSize)
	}
	if len(rep.reports) != 6 {
		t.Fatalf("got %d reports, want 6", len(rep.reports))
	}
	// The evaluator never fails, so every individual contributes a value
	// to the summary; the count doubles as a per-generation size check.
	for _, r := range rep.reports {
		if r.Summary.Count != cfg.PopulationSize {
			t.Fatalf("generation %d evaluated %d individuals, want %d",
				r.Generation, r.Summary.Count, cfg.PopulationSize)
		}
		if r.Failures != 0 {
			t.Fatalf("generation %d reported %d failures", r.Generation, r.Failures)
		}
	}
}

func TestEngineBestNeverWorsens(t *testing.T) {
	e, err := New(sumConfig(t, 13, GenerationLimit(8)))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	prev := res.History[0].Best.Fitness.Values[0]
	for _, r := range res.History[1:] {
		cur := r.Best.Fitness.Values[0]
		if cur > prev {
			t.Fatalf("best fitness worsened: %v -> %v at generation %d", prev, cur, r.Generation)
		}
		prev = cur
	}
	for _, ind := range res.Final {
		assertValidTree(t, e.cfg.Grammar, ind.Tree)
	}
}

func TestEngineElitesSurviveReplacement(t *testing.T) {
	rep := &recordingReporter{}
	cfg := sumConfig(t, 3, GenerationLimit(5))
	cfg.Reporter = rep

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// With elitism the per-generation best is at least as good as the
	// previous generation's best.
	for i := 1; i < len(rep.reports); i++ {
		prev := rep.reports[i-1].BestOfGen.Fitness.Values[0]
		cur := rep.reports[i].BestOfGen.Fitness.Values[0]
		if cur > prev {
			t.Fatalf("elite lost between generations %d and %d: %v -> %v",
				rep.reports[i-1].Generation, rep.reports[i].Generation, prev, cur)
		}
	}
}

func TestEngineAllEvaluationsFailing(t *testing.T) {
	cfg := sumConfig(t, 5, GenerationLimit(3))
	cfg.Evaluator = EvaluatorFunc("broken", func(context.Context, *tree.Node) (Fitness, error) {
		return Worst(), fmt.Errorf("external system down")
	})

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run must complete despite failures: %v", err)
	}
	if res.Best != nil {
		t.Fatalf("no individual ever evaluated, best should be nil, got %v", res.Best)
	}
	if res.Generations != 3 {
		t.Fatalf("ran %d generations, want 3", res.Generations)
	}
	for _, ind := range res.Final {
		if ind.Fitness.Valid {
			t.Fatal("sentinel fitness expected on every individual")
		}
	}
	for _, r := range res.History {
		if r.Failures != cfg.PopulationSize-cfg.EliteCount && r.Failures != cfg.PopulationSize {
			t.Fatalf("generation %d failures %d do not match evaluated count", r.Generation, r.Failures)
		}
	}
}

func TestEngineCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := New(sumConfig(t, 1))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, err := e.Run(ctx)
	if err != nil {
		t.Fatalf("cancellation must not error: %v", err)
	}
	if !res.Stopped {
		t.Fatal("expected Stopped on pre-canceled context")
	}
	if res.Generations != 0 || res.Best != nil {
		t.Fatalf("no generation should complete: %+v", res)
	}
}

func TestEngineCancellationReturnsBestSoFar(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int64
	cfg := sumConfig(t, 11, GenerationLimit(1000))
	cfg.Evaluator = EvaluatorFunc("canceling", func(_ context.Context, n *tree.Node) (Fitness, error) {
		if calls.Add(1) == 15 {
			cancel()
		}
		return Scalar(evalSum(n)), nil
	})

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, err := e.Run(ctx)
	if err != nil {
		t.Fatalf("cancellation must not error: %v", err)
	}
	if !res.Stopped {
		t.Fatal("expected Stopped after mid-run cancellation")
	}
	if res.Best == nil {
		t.Fatal("completed generations must yield a best individual")
	}
	if res.Generations == 0 || res.Generations >= 1000 {
		t.Fatalf("unexpected generation count %d", res.Generations)
	}
}

func TestEngineFitnessTargetStopsEarly(t *testing.T) {
	cfg := sumConfig(t, 1, GenerationLimit(50), FitnessTarget(MinimizeSingle(), Scalar(1e6)))
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// The target is trivially satisfiable, so the very first generation
	// meets it.
	if res.Generations != 1 {
		t.Fatalf("ran %d generations, want 1", res.Generations)
	}
	if res.Stopped {
		t.Fatal("a met condition is a normal finish, not a stop")
	}
}

func TestEngineParallelEvaluationMatchesSerial(t *testing.T) {
	run := func(workers int) Result {
		cfg := sumConfig(t, 99, GenerationLimit(4))
		cfg.Workers = workers
		e, err := New(cfg)
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		res, err := e.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return res
	}

	serial, parallel := run(1), run(4)
	if serial.Best.Tree.Fingerprint() != parallel.Best.Tree.Fingerprint() {
		t.Fatal("worker count changed the evolutionary trajectory")
	}
	if serial.Evaluations != parallel.Evaluations {
		t.Fatalf("evaluation counts differ: %d vs %d", serial.Evaluations, parallel.Evaluations)
	}
}
