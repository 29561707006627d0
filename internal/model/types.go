package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// TreeRecord is the serialized form of a derivation tree: nested production
// applications with literal values where the production carries one.
type TreeRecord struct {
	Production string       `json:"production"`
	Value      *float64     `json:"value,omitempty"`
	Children   []TreeRecord `json:"children,omitempty"`
}

type IndividualRecord struct {
	VersionedRecord
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	Tree        TreeRecord `json:"tree"`
	Expr        string     `json:"expr"`
	Fingerprint string     `json:"fingerprint"`
	Fitness     []float64  `json:"fitness,omitempty"`
	Valid       bool       `json:"valid"`
	Generation  int        `json:"generation"`
	Depth       int        `json:"depth"`
	Size        int        `json:"size"`
}

type PopulationRecord struct {
	VersionedRecord
	ID            string   `json:"id"`
	RunID         string   `json:"run_id"`
	Generation    int      `json:"generation"`
	IndividualIDs []string `json:"individual_ids"`
}

type RunRecord struct {
	VersionedRecord
	ID             string    `json:"id"`
	CreatedAtUTC   string    `json:"created_at_utc"`
	Problem        string    `json:"problem"`
	Seed           int64     `json:"seed"`
	PopulationSize int       `json:"population_size"`
	Generations    int       `json:"generations"`
	MaxDepth       int       `json:"max_depth"`
	EliteCount     int       `json:"elite_count"`
	Workers        int       `json:"workers"`
	Evaluations    int       `json:"evaluations"`
	Stopped        bool      `json:"stopped"`
	BestFitness    []float64 `json:"best_fitness,omitempty"`
	BestExpr       string    `json:"best_expr,omitempty"`
}

// GenerationRecord is one row of the per-generation fitness summary
// published to the reporting sink and persisted with the run.
type GenerationRecord struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Worst      float64 `json:"worst"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Failures   int     `json:"failures"`
	Diversity  int     `json:"diversity"`
	BestExpr   string  `json:"best_expr,omitempty"`
}
