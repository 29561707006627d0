// Package grammateus is the public entry point: it resolves a problem,
// drives an evolution run and persists its artifacts.
package grammateus

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"grammateus/internal/evo"
	"grammateus/internal/model"
	"grammateus/internal/problems"
	"grammateus/internal/stats"
	"grammateus/internal/storage"
	"grammateus/internal/tree"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultDBPath       = "grammateus.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
}

type Client struct {
	store        storage.Store
	artifactsDir string
	initialized  bool
}

type RunRequest struct {
	Problem     string
	Population  int
	Generations int
	MaxDepth    int
	// Seed 0 means derive one from the clock; the derived value is
	// recorded with the run so it can be replayed.
	Seed                 int64
	Workers              int
	EliteCount           int
	NoveltyCount         int
	CrossoverRate        float64
	MutationRate         float64
	Selection            string
	TournamentSize       int
	SizeWeightedMutation bool
	CacheEvaluations     bool
	TargetFitness        *float64
	EvaluationBudget     int
	TimeBudget           time.Duration
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Problem      string
	Seed         int64
	Generations  int
	Evaluations  int
	Stopped      bool
	BestExpr     string
	BestFitness  []float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Problem      string
	Seed         int64
	Population   int
	Generations  int
	BestExpr     string
	BestFitness  []float64
}

type ProblemItem struct {
	Name        string
	Description string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{store: store, artifactsDir: artifactsDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Problem == "" {
		req.Problem = "sum_to_target"
	}
	if req.Population <= 0 {
		req.Population = 50
	}
	if req.Generations <= 0 {
		req.Generations = 100
	}
	if req.MaxDepth <= 0 {
		req.MaxDepth = 8
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if req.EliteCount <= 0 {
		req.EliteCount = req.Population / 10
		if req.EliteCount < 1 {
			req.EliteCount = 1
		}
	}
	if req.CrossoverRate == 0 {
		req.CrossoverRate = 0.8
	}
	if req.MutationRate == 0 {
		req.MutationRate = 0.2
	}
	if req.Selection == "" {
		req.Selection = "tournament"
	}
	if req.TournamentSize <= 0 {
		req.TournamentSize = 3
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	problem, err := problems.Resolve(req.Problem)
	if err != nil {
		return RunSummary{}, err
	}
	g, err := problem.Grammar(req.MaxDepth)
	if err != nil {
		return RunSummary{}, fmt.Errorf("problem %s: %w", req.Problem, err)
	}
	objectives := problem.Objectives()

	evaluator := problem.Evaluator()
	if req.CacheEvaluations {
		evaluator, err = evo.NewCachingEvaluator(evaluator, 0)
		if err != nil {
			return RunSummary{}, err
		}
	}

	selector, err := selectorFromName(req.Selection, req.TournamentSize, objectives)
	if err != nil {
		return RunSummary{}, err
	}

	conditions := []evo.Condition{evo.GenerationLimit(req.Generations)}
	if req.TargetFitness != nil {
		conditions = append(conditions, evo.FitnessTarget(objectives, evo.Scalar(*req.TargetFitness)))
	}
	if req.EvaluationBudget > 0 {
		conditions = append(conditions, evo.EvaluationBudget(req.EvaluationBudget))
	}
	if req.TimeBudget > 0 {
		conditions = append(conditions, evo.TimeBudget(req.TimeBudget))
	}

	engine, err := evo.New(evo.Config{
		Grammar:              g,
		Evaluator:            evaluator,
		Objectives:           objectives,
		Selector:             selector,
		PopulationSize:       req.Population,
		EliteCount:           req.EliteCount,
		NoveltyCount:         req.NoveltyCount,
		Workers:              req.Workers,
		Seed:                 seed,
		CrossoverRate:        req.CrossoverRate,
		MutationRate:         req.MutationRate,
		SizeWeightedMutation: req.SizeWeightedMutation,
		Conditions:           conditions,
	})
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%s", req.Problem, uuid.NewString())

	result, err := engine.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	run := model.RunRecord{
		VersionedRecord: currentVersion(),
		ID:              runID,
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
		Problem:         req.Problem,
		Seed:            seed,
		PopulationSize:  req.Population,
		Generations:     result.Generations,
		MaxDepth:        req.MaxDepth,
		EliteCount:      req.EliteCount,
		Workers:         req.Workers,
		Evaluations:     result.Evaluations,
		Stopped:         result.Stopped,
	}

	var bestRecord *model.IndividualRecord
	if result.Best != nil {
		record := individualRecord(runID, result.Best)
		bestRecord = &record
		run.BestFitness = append([]float64(nil), result.Best.Fitness.Values...)
		run.BestExpr = result.Best.Tree.String()
	}

	generations := make([]model.GenerationRecord, 0, len(result.History))
	for _, report := range result.History {
		row := model.GenerationRecord{
			Generation: report.Generation,
			Best:       report.Summary.Best,
			Worst:      report.Summary.Worst,
			Mean:       report.Summary.Mean,
			StdDev:     report.Summary.StdDev,
			Failures:   report.Failures,
			Diversity:  report.Diversity,
		}
		if report.BestOfGen != nil {
			row.BestExpr = report.BestOfGen.Tree.String()
		}
		generations = append(generations, row)
	}

	if err := c.persistRun(ctx, run, generations, bestRecord, result.Final); err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Run:         run,
		Generations: generations,
		Best:        bestRecord,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:          runID,
		Problem:        req.Problem,
		PopulationSize: req.Population,
		Generations:    result.Generations,
		Seed:           seed,
		Workers:        req.Workers,
		EliteCount:     req.EliteCount,
		BestFitness:    run.BestFitness,
		BestExpr:       run.BestExpr,
		CreatedAtUTC:   run.CreatedAtUTC,
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Problem:      req.Problem,
		Seed:         seed,
		Generations:  result.Generations,
		Evaluations:  result.Evaluations,
		Stopped:      result.Stopped,
		BestExpr:     run.BestExpr,
		BestFitness:  run.BestFitness,
	}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}

	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunItem{
			RunID:        run.ID,
			CreatedAtUTC: run.CreatedAtUTC,
			Problem:      run.Problem,
			Seed:         run.Seed,
			Population:   run.PopulationSize,
			Generations:  run.Generations,
			BestExpr:     run.BestExpr,
			BestFitness:  run.BestFitness,
		})
	}
	return out, nil
}

// Problems lists the registered benchmark problems.
func (c *Client) Problems() ([]ProblemItem, error) {
	names := problems.Names()
	out := make([]ProblemItem, 0, len(names))
	for _, name := range names {
		p, err := problems.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ProblemItem{Name: p.Name(), Description: p.Description()})
	}
	return out, nil
}

func (c *Client) persistRun(ctx context.Context, run model.RunRecord, generations []model.GenerationRecord, best *model.IndividualRecord, final []*evo.Individual) error {
	if err := c.store.SaveRun(ctx, run); err != nil {
		return err
	}
	if err := c.store.SaveGenerations(ctx, run.ID, generations); err != nil {
		return err
	}
	if best != nil {
		if err := c.store.SaveIndividual(ctx, *best); err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(final))
	for _, ind := range final {
		record := individualRecord(run.ID, ind)
		if err := c.store.SaveIndividual(ctx, record); err != nil {
			return err
		}
		ids = append(ids, record.ID)
	}
	return c.store.SavePopulation(ctx, model.PopulationRecord{
		VersionedRecord: currentVersion(),
		ID:              run.ID + "-final",
		RunID:           run.ID,
		Generation:      run.Generations,
		IndividualIDs:   ids,
	})
}

func selectorFromName(name string, tournamentSize int, objectives evo.Objectives) (evo.Selector, error) {
	switch name {
	case "tournament":
		return evo.TournamentSelector{Size: tournamentSize, Objectives: objectives}, nil
	case "lexicase":
		return evo.LexicaseSelector{Objectives: objectives}, nil
	default:
		return nil, errors.New("unknown selection policy: " + name)
	}
}

func individualRecord(runID string, ind *evo.Individual) model.IndividualRecord {
	return model.IndividualRecord{
		VersionedRecord: currentVersion(),
		// Individual IDs are generation-scoped; prefix with the run so
		// records from different runs never collide in the store.
		ID: runID + "-" + ind.ID,
		RunID:           runID,
		Tree:            tree.ToRecord(ind.Tree),
		Expr:            ind.Tree.String(),
		Fingerprint:     ind.Tree.Fingerprint(),
		Fitness:         append([]float64(nil), ind.Fitness.Values...),
		Valid:           ind.Fitness.Valid,
		Generation:      ind.Generation,
		Depth:           ind.Tree.Depth(),
		Size:            ind.Tree.Size(),
	}
}

func currentVersion() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
}
