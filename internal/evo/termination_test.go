package evo

import (
	"testing"
	"time"
)

func TestTerminationConditions(t *testing.T) {
	best := digitIndividual(t, "best", Scalar(0.5))
	tests := []struct {
		name string
		cond Condition
		p    Progress
		done bool
	}{
		{"generation limit not reached", GenerationLimit(10), Progress{Generation: 9}, false},
		{"generation limit reached", GenerationLimit(10), Progress{Generation: 10}, true},
		{"evaluation budget not reached", EvaluationBudget(100), Progress{Evaluations: 99}, false},
		{"evaluation budget reached", EvaluationBudget(100), Progress{Evaluations: 100}, true},
		{"time budget not reached", TimeBudget(time.Minute), Progress{Elapsed: time.Second}, false},
		{"time budget reached", TimeBudget(time.Minute), Progress{Elapsed: time.Minute}, true},
		{"fitness target no best yet", FitnessTarget(MinimizeSingle(), Scalar(1)), Progress{}, false},
		{"fitness target met", FitnessTarget(MinimizeSingle(), Scalar(1)), Progress{Best: best}, true},
		{"fitness target missed", FitnessTarget(MinimizeSingle(), Scalar(0.1)), Progress{Best: best}, false},
	}
	for _, tt := range tests {
		if got := tt.cond.Done(tt.p); got != tt.done {
			t.Errorf("%s: Done() = %v, want %v", tt.name, got, tt.done)
		}
	}
}

func TestAnyCondition(t *testing.T) {
	cond := Any(GenerationLimit(50), EvaluationBudget(10))
	if cond.Done(Progress{Generation: 1, Evaluations: 9}) {
		t.Fatal("no wrapped condition is met")
	}
	if !cond.Done(Progress{Generation: 1, Evaluations: 10}) {
		t.Fatal("evaluation budget should trip the combined condition")
	}
	if name := cond.Name(); name != "generations>=50|evaluations>=10" {
		t.Fatalf("combined name: %q", name)
	}
}
