package alerts

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fisiocore/backend/pkg/model"
)

// Engine runs every rule evaluator over a clinic snapshot and merges the
// results into the store. Evaluators run concurrently; the merge order is
// fixed so repeated runs over the same snapshot are deterministic.
type Engine struct {
	rules  *RuleSet
	store  *Store
	logger *zap.Logger
}

// NewEngine creates a new alert engine
func NewEngine(rules *RuleSet, store *Store, logger *zap.Logger) *Engine {
	return &Engine{
		rules:  rules,
		store:  store,
		logger: logger,
	}
}

// Evaluate purges expired alerts, runs the five evaluators and merges the
// results. Returns the alerts that were newly created in this pass.
func (e *Engine) Evaluate(ctx context.Context, in EvaluationInput) []model.Alert {
	now := in.reference()
	e.store.Purge(now)

	evaluators := []func() []model.Alert{
		func() []model.Alert { return e.rules.EvaluateAbandonmentRisk(ctx, in) },
		func() []model.Alert { return e.rules.EvaluateSpecialAttention(in) },
		func() []model.Alert { return e.rules.EvaluateTreatmentImprovement(in) },
		func() []model.Alert { return e.rules.EvaluateConcerningTrends(in) },
		func() []model.Alert { return e.rules.EvaluateOperational(in) },
	}

	results := make([][]model.Alert, len(evaluators))
	var wg sync.WaitGroup
	for i, evaluate := range evaluators {
		wg.Add(1)
		go func(i int, evaluate func() []model.Alert) {
			defer wg.Done()
			results[i] = evaluate()
		}(i, evaluate)
	}
	wg.Wait()

	var created []model.Alert
	for _, batch := range results {
		for _, alert := range batch {
			if e.store.Upsert(alert) {
				created = append(created, alert)
			}
		}
	}

	e.logger.Info("alert evaluation completed",
		zap.Int("created", len(created)),
		zap.Int("active", len(e.store.Active())),
	)
	return created
}

// Active exposes the ranked active alert list
func (e *Engine) Active() []model.Alert {
	return e.store.Active()
}
