package evo

import (
	"fmt"
	"time"
)

// Progress is the run state a termination condition sees. Conditions are
// checked once per generation boundary, after evaluation.
type Progress struct {
	Generation  int
	Evaluations int
	Elapsed     time.Duration
	Best        *Individual
}

// Condition decides when the generational loop stops.
type Condition interface {
	Name() string
	Done(p Progress) bool
}

type generationLimit struct{ max int }

// GenerationLimit stops after max completed generations.
func GenerationLimit(max int) Condition { return generationLimit{max: max} }

func (c generationLimit) Name() string { return fmt.Sprintf("generations>=%d", c.max) }

func (c generationLimit) Done(p Progress) bool { return p.Generation >= c.max }

type fitnessTarget struct {
	objectives Objectives
	target     Fitness
}

// FitnessTarget stops once the best individual is at least as good as the
// target on every objective.
func FitnessTarget(objectives Objectives, target Fitness) Condition {
	return fitnessTarget{objectives: objectives, target: target}
}

func (c fitnessTarget) Name() string { return fmt.Sprintf("fitness~%v", c.target.Values) }

func (c fitnessTarget) Done(p Progress) bool {
	return p.Best != nil && c.objectives.SatisfiesTarget(p.Best.Fitness, c.target)
}

type evaluationBudget struct{ max int }

// EvaluationBudget stops once the evaluator has been invoked max times,
// counting failed evaluations.
func EvaluationBudget(max int) Condition { return evaluationBudget{max: max} }

func (c evaluationBudget) Name() string { return fmt.Sprintf("evaluations>=%d", c.max) }

func (c evaluationBudget) Done(p Progress) bool { return p.Evaluations >= c.max }

type timeBudget struct{ max time.Duration }

// TimeBudget stops once wall-clock time since Run started exceeds max.
func TimeBudget(max time.Duration) Condition { return timeBudget{max: max} }

func (c timeBudget) Name() string { return fmt.Sprintf("elapsed>=%s", c.max) }

func (c timeBudget) Done(p Progress) bool { return p.Elapsed >= c.max }

type anyCondition struct{ conds []Condition }

// Any stops when any wrapped condition is met.
func Any(conds ...Condition) Condition { return anyCondition{conds: conds} }

func (c anyCondition) Name() string {
	names := ""
	for i, cond := range c.conds {
		if i > 0 {
			names += "|"
		}
		names += cond.Name()
	}
	return names
}

func (c anyCondition) Done(p Progress) bool {
	for _, cond := range c.conds {
		if cond.Done(p) {
			return true
		}
	}
	return false
}
