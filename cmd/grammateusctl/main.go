package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"grammateus/pkg/grammateus"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath   string
	store        string
	dbPath       string
	artifactsDir string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "grammateusctl",
		Short:         "Drive grammar-guided evolution runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath, "YAML config file")
	root.PersistentFlags().StringVar(&flags.store, "store", "", "store backend: memory|sqlite")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "sqlite database path")
	root.PersistentFlags().StringVar(&flags.artifactsDir, "artifacts", "", "run artifacts directory")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newRunsCmd(flags))
	root.AddCommand(newProblemsCmd(flags))
	return root
}

func (f *rootFlags) load(cmd *cobra.Command) (Config, error) {
	cfg, err := loadConfig(f.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return Config{}, err
	}
	if f.store != "" {
		cfg.Store = f.store
	}
	if f.dbPath != "" {
		cfg.DBPath = f.dbPath
	}
	if f.artifactsDir != "" {
		cfg.ArtifactsDir = f.artifactsDir
	}
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (f *rootFlags) client(cmd *cobra.Command) (*grammateus.Client, Config, error) {
	cfg, err := f.load(cmd)
	if err != nil {
		return nil, Config{}, err
	}
	client, err := grammateus.New(grammateus.Options{
		StoreKind:    cfg.Store,
		DBPath:       cfg.DBPath,
		ArtifactsDir: cfg.ArtifactsDir,
	})
	if err != nil {
		return nil, Config{}, err
	}
	return client, cfg, nil
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var (
		problem        string
		population     int
		generations    int
		maxDepth       int
		seed           int64
		workers        int
		elites         int
		novelty        int
		crossoverRate  float64
		mutationRate   float64
		selection      string
		tournamentSize int
		sizeWeighted   bool
		cache          bool
		target         float64
		evalBudget     int
		timeBudget     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an evolution run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cfg, err := flags.client(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Warn("closing store", "error", err)
				}
			}()

			req := grammateus.RunRequest{
				Problem:              cfg.Problem,
				Population:           cfg.Population,
				Generations:          cfg.Generations,
				MaxDepth:             cfg.MaxDepth,
				Seed:                 cfg.Seed,
				Workers:              cfg.Workers,
				EliteCount:           cfg.EliteCount,
				NoveltyCount:         cfg.NoveltyCount,
				CrossoverRate:        cfg.Crossover,
				MutationRate:         cfg.Mutation,
				Selection:            cfg.Selection,
				TournamentSize:       cfg.TournamentSize,
				SizeWeightedMutation: cfg.SizeWeightedMutation,
				CacheEvaluations:     cfg.CacheEvaluations,
				TargetFitness:        cfg.TargetFitness,
				EvaluationBudget:     cfg.EvaluationBudget,
			}
			req.TimeBudget, err = cfg.timeBudget()
			if err != nil {
				return err
			}

			set := cmd.Flags()
			if set.Changed("problem") {
				req.Problem = problem
			}
			if set.Changed("population") {
				req.Population = population
			}
			if set.Changed("generations") {
				req.Generations = generations
			}
			if set.Changed("max-depth") {
				req.MaxDepth = maxDepth
			}
			if set.Changed("seed") {
				req.Seed = seed
			}
			if set.Changed("workers") {
				req.Workers = workers
			}
			if set.Changed("elites") {
				req.EliteCount = elites
			}
			if set.Changed("novelty") {
				req.NoveltyCount = novelty
			}
			if set.Changed("crossover-rate") {
				req.CrossoverRate = crossoverRate
			}
			if set.Changed("mutation-rate") {
				req.MutationRate = mutationRate
			}
			if set.Changed("selection") {
				req.Selection = selection
			}
			if set.Changed("tournament-size") {
				req.TournamentSize = tournamentSize
			}
			if set.Changed("size-weighted-mutation") {
				req.SizeWeightedMutation = sizeWeighted
			}
			if set.Changed("cache") {
				req.CacheEvaluations = cache
			}
			if set.Changed("target") {
				req.TargetFitness = &target
			}
			if set.Changed("eval-budget") {
				req.EvaluationBudget = evalBudget
			}
			if set.Changed("time-budget") {
				req.TimeBudget = timeBudget
			}

			logger.Info("starting run", "problem", req.Problem, "seed", req.Seed)
			summary, err := client.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run:         %s\n", summary.RunID)
			fmt.Fprintf(out, "problem:     %s\n", summary.Problem)
			fmt.Fprintf(out, "seed:        %d\n", summary.Seed)
			fmt.Fprintf(out, "generations: %d\n", summary.Generations)
			fmt.Fprintf(out, "evaluations: %s\n", humanize.Comma(int64(summary.Evaluations)))
			if summary.Stopped {
				fmt.Fprintln(out, "stopped:     yes (canceled before finishing)")
			}
			if summary.BestExpr != "" {
				fmt.Fprintf(out, "best:        %s\n", summary.BestExpr)
				fmt.Fprintf(out, "fitness:     %v\n", summary.BestFitness)
			} else {
				fmt.Fprintln(out, "best:        none (every evaluation failed)")
			}
			fmt.Fprintf(out, "artifacts:   %s\n", summary.ArtifactsDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&problem, "problem", "sum_to_target", "problem to run")
	cmd.Flags().IntVar(&population, "population", 50, "population size")
	cmd.Flags().IntVar(&generations, "generations", 100, "generation limit")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 8, "derivation tree depth limit")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 derives one from the clock)")
	cmd.Flags().IntVar(&workers, "workers", 4, "parallel fitness evaluations")
	cmd.Flags().IntVar(&elites, "elites", 0, "elites kept each generation (0 picks a default)")
	cmd.Flags().IntVar(&novelty, "novelty", 0, "fresh random individuals injected each generation")
	cmd.Flags().Float64Var(&crossoverRate, "crossover-rate", 0.8, "per-pair crossover probability")
	cmd.Flags().Float64Var(&mutationRate, "mutation-rate", 0.2, "per-offspring mutation probability")
	cmd.Flags().StringVar(&selection, "selection", "tournament", "parent selection: tournament|lexicase")
	cmd.Flags().IntVar(&tournamentSize, "tournament-size", 3, "tournament size")
	cmd.Flags().BoolVar(&sizeWeighted, "size-weighted-mutation", false, "bias mutation points toward larger subtrees")
	cmd.Flags().BoolVar(&cache, "cache", false, "memoize evaluations by tree fingerprint")
	cmd.Flags().Float64Var(&target, "target", 0, "stop once best fitness reaches this value")
	cmd.Flags().IntVar(&evalBudget, "eval-budget", 0, "stop after this many evaluations")
	cmd.Flags().DurationVar(&timeBudget, "time-budget", 0, "stop after this wall-clock time")
	return cmd
}

func newRunsCmd(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := flags.client(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Warn("closing store", "error", err)
				}
			}()

			runs, err := client.Runs(cmd.Context(), grammateus.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			for _, run := range runs {
				age := run.CreatedAtUTC
				if created, err := time.Parse(time.RFC3339Nano, run.CreatedAtUTC); err == nil {
					age = humanize.Time(created)
				}
				fmt.Fprintf(out, "%s  %s  problem=%s seed=%d pop=%d gens=%d",
					run.RunID, age, run.Problem, run.Seed, run.Population, run.Generations)
				if run.BestExpr != "" {
					fmt.Fprintf(out, " best=%s fitness=%v", run.BestExpr, run.BestFitness)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func newProblemsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "problems",
		Short: "List the built-in problems",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := flags.client(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Warn("closing store", "error", err)
				}
			}()

			items, err := client.Problems()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range items {
				fmt.Fprintf(out, "%-22s %s\n", item.Name, item.Description)
			}
			return nil
		},
	}
}
