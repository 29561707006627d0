package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"grammateus/internal/model"
)

const runIndexFile = "run_index.json"

// RunArtifacts bundles everything a finished run writes to disk: the run
// record, the per-generation summary rows and the best individual found.
type RunArtifacts struct {
	Run         model.RunRecord          `json:"run"`
	Generations []model.GenerationRecord `json:"generations,omitempty"`
	Best        *model.IndividualRecord  `json:"best,omitempty"`
}

// RunIndexEntry is one row of the artifacts directory index, enough for a
// listing without opening each run directory.
type RunIndexEntry struct {
	RunID          string    `json:"run_id"`
	Problem        string    `json:"problem"`
	PopulationSize int       `json:"population_size"`
	Generations    int       `json:"generations"`
	Seed           int64     `json:"seed"`
	Workers        int       `json:"workers"`
	EliteCount     int       `json:"elite_count"`
	BestFitness    []float64 `json:"best_fitness,omitempty"`
	BestExpr       string    `json:"best_expr,omitempty"`
	CreatedAtUTC   string    `json:"created_at_utc"`
}

// WriteRunArtifacts writes one directory per run under baseDir and returns
// its path.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "run.json"), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "generations.json"), artifacts.Generations); err != nil {
		return "", err
	}
	if artifacts.Best != nil {
		if err := writeJSON(filepath.Join(runDir, "best.json"), artifacts.Best); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

// AppendRunIndex upserts an entry into the shared run index under baseDir.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex reads the run index, newest first. A missing index is an
// empty listing, not an error.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAtUTC != entries[j].CreatedAtUTC {
			return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
		}
		return entries[i].RunID < entries[j].RunID
	})
	return entries, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
