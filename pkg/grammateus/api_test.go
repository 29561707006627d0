package grammateus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(t.TempDir(), "artifacts"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientRunAndRuns(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Run(context.Background(), RunRequest{
		Problem:     "sum_to_target",
		Population:  10,
		Generations: 3,
		MaxDepth:    4,
		Seed:        42,
		Workers:     2,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if summary.Generations != 3 {
		t.Fatalf("expected 3 generations, got %d", summary.Generations)
	}
	if summary.BestExpr == "" || len(summary.BestFitness) != 1 {
		t.Fatalf("expected a best individual: %+v", summary)
	}
	if summary.Stopped {
		t.Fatal("run finished normally, must not report stopped")
	}

	for _, name := range []string{"run.json", "generations.json", "best.json"} {
		if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	runs, err := client.Runs(context.Background(), RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID {
		t.Fatalf("expected run %s in listing: %+v", summary.RunID, runs)
	}
	if runs[0].Problem != "sum_to_target" || runs[0].Seed != 42 {
		t.Fatalf("listing lost run metadata: %+v", runs[0])
	}
}

func TestClientRunDerivesSeed(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Run(context.Background(), RunRequest{
		Problem:     "sum_to_target",
		Population:  8,
		Generations: 1,
		MaxDepth:    3,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Seed == 0 {
		t.Fatal("expected a recorded clock-derived seed")
	}
}

func TestClientRunSameSeedSameBest(t *testing.T) {
	req := RunRequest{
		Problem:     "sum_to_target",
		Population:  12,
		Generations: 4,
		MaxDepth:    4,
		Seed:        7,
		Workers:     3,
	}

	a, err := newTestClient(t).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := newTestClient(t).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if a.BestExpr != b.BestExpr || a.Evaluations != b.Evaluations {
		t.Fatalf("same seed diverged: %q/%d vs %q/%d",
			a.BestExpr, a.Evaluations, b.BestExpr, b.Evaluations)
	}
}

func TestClientRunUnknownProblem(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Run(context.Background(), RunRequest{Problem: "nonexistent"}); err == nil {
		t.Fatal("expected unknown problem error")
	}
}

func TestClientRunUnknownSelection(t *testing.T) {
	client := newTestClient(t)
	_, err := client.Run(context.Background(), RunRequest{
		Problem:     "sum_to_target",
		Population:  8,
		Generations: 1,
		Selection:   "roulette",
	})
	if err == nil {
		t.Fatal("expected unknown selection error")
	}
}

func TestClientCanceledRunIsStopped(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := client.Run(ctx, RunRequest{
		Problem:     "sum_to_target",
		Population:  8,
		Generations: 5,
		Seed:        1,
	})
	if err != nil {
		t.Fatalf("canceled run must not error: %v", err)
	}
	if !summary.Stopped {
		t.Fatal("expected stopped summary")
	}
}

func TestClientProblems(t *testing.T) {
	client := newTestClient(t)

	items, err := client.Problems()
	if err != nil {
		t.Fatalf("problems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 built-in problems: %+v", items)
	}
	for _, item := range items {
		if item.Name == "" || item.Description == "" {
			t.Fatalf("incomplete problem item: %+v", item)
		}
	}
}

func TestClientRunCachedEvaluator(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Run(context.Background(), RunRequest{
		Problem:          "even_parity",
		Population:       10,
		Generations:      3,
		MaxDepth:         4,
		Seed:             9,
		CacheEvaluations: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.BestExpr == "" {
		t.Fatal("expected a best individual")
	}
}
