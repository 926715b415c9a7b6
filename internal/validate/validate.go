// Package validate implements C10, the validation engine: it turns a
// Job's ExtractedFields (plus whatever ExpectedFields the submitter
// supplied) into a VerificationResult by composing the per-field checks
// defined in fields.go, abv.go, and netcontents.go, dispatching the
// independent ones concurrently and joining the pair that shares a
// single cache resolution.
package validate

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ttbverify/labelverify/internal/cache"
	"github.com/ttbverify/labelverify/internal/data/repos/beveragerepo"
	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
	"github.com/ttbverify/labelverify/internal/rules"
)

// Engine is C10. It holds no per-job state; Validate is safe to call
// concurrently from multiple Executor workers against the same Engine.
type Engine struct {
	log      *logger.Logger
	cache    *cache.Cache
	rules    *rules.Table
	beverage beveragerepo.Repo
}

func New(log *logger.Logger, c *cache.Cache, rulesTable *rules.Table, beverageRepo beveragerepo.Repo) *Engine {
	return &Engine{log: log.With("service", "validate"), cache: c, rules: rulesTable, beverage: beverageRepo}
}

// collector gathers checks and warnings from concurrently-running checks.
// A plain mutex is enough here: the per-check work (string/number
// comparisons, one cache round trip) is cheap relative to lock
// contention, and the shape mirrors the append-to-a-shared-slice pattern
// the reference pipeline steps use for their own fan-out.
type collector struct {
	mu       sync.Mutex
	checks   []domain.FieldCheck
	warnings []string
}

func (c *collector) add(checks []domain.FieldCheck, warnings ...string) {
	if len(checks) == 0 && len(warnings) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, checks...)
	c.warnings = append(c.warnings, warnings...)
}

// Validate produces a VerificationResult for one job's extracted fields
// and optional submitter-supplied expected values. It only returns an
// error for context cancellation or a propagated cache-resolution
// failure (the registry itself never surfaces errors here — C8 swallows
// those into a miss) — malformed or absent field data surfaces as
// failing FieldChecks, not an error.
func (e *Engine) Validate(ctx context.Context, extracted domain.ExtractedFields, expected domain.ExpectedFields) (domain.VerificationResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	col := &collector{}

	var resolution cache.Resolution
	var abvDeviation float64
	var abvDeviationSet bool
	var mu sync.Mutex

	g.Go(func() error {
		defer catchPanic(e.log, "brand_vs_user_input")
		if expected.BrandName != nil && extracted.Brand != nil {
			col.add([]domain.FieldCheck{checkAgainstUserInput("brand_name", *expected.BrandName, *extracted.Brand)})
		}
		return nil
	})
	g.Go(func() error {
		defer catchPanic(e.log, "class_vs_user_input")
		if expected.ClassType != nil && extracted.ClassType != nil {
			col.add([]domain.FieldCheck{checkAgainstUserInput("class_type", *expected.ClassType, *extracted.ClassType)})
		}
		return nil
	})
	g.Go(func() error {
		defer catchPanic(e.log, "abv_vs_user_input")
		if expected.ExpectedABV != nil && extracted.ABV != nil {
			check, _ := checkABVAgainstUserInput(*expected.ExpectedABV, *extracted.ABV)
			col.add([]domain.FieldCheck{check})
		}
		return nil
	})
	g.Go(func() error {
		defer catchPanic(e.log, "standards_of_identity")
		if extracted.ClassType != nil {
			checks, warnings := e.checkStandardsOfIdentity(*extracted.ClassType)
			col.add(checks, warnings...)
		}
		return nil
	})
	g.Go(func() error {
		defer catchPanic(e.log, "government_warning")
		col.add(e.checkGovernmentWarning(extracted.GovernmentWarning))
		return nil
	})
	g.Go(func() error {
		defer catchPanic(e.log, "net_contents")
		checks, warnings := e.checkNetContents(extracted.NetContents)
		col.add(checks, warnings...)
		return nil
	})
	g.Go(func() error {
		defer catchPanic(e.log, "abv_vs_category_band")
		if extracted.ClassType != nil && extracted.ABV != nil {
			checks, warnings := e.checkCategoryBand(gctx, *extracted.ClassType, *extracted.ABV)
			col.add(checks, warnings...)
		}
		return nil
	})
	g.Go(func() error {
		defer catchPanic(e.log, "field_of_vision")
		col.add([]domain.FieldCheck{checkFieldOfVision(extracted)})
		return nil
	})
	g.Go(func() error {
		defer catchPanic(e.log, "mandatory_presence")
		col.add(checkMandatoryPresence(extracted))
		return nil
	})

	// The cache-dependent pair (brand+class vs cache, ABV vs cache) shares
	// one resolution, so it runs as a single errgroup member instead of
	// two independent ones.
	g.Go(func() error {
		defer catchPanic(e.log, "cache_resolution")
		if extracted.Brand == nil {
			return nil
		}
		class := ""
		if extracted.ClassType != nil {
			class = *extracted.ClassType
		}
		res, err := e.cache.Resolve(gctx, *extracted.Brand, class)
		if err != nil {
			return fmt.Errorf("cache resolve: %w", err)
		}
		mu.Lock()
		resolution = res
		mu.Unlock()
		col.add(nil, res.Warnings...)

		checks, deviation, hasDeviation := checkAgainstCache(*extracted.Brand, extracted.ClassType, extracted.ABV, res)
		col.add(checks)
		if hasDeviation {
			mu.Lock()
			if !abvDeviationSet {
				abvDeviation, abvDeviationSet = deviation, true
			}
			mu.Unlock()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.VerificationResult{}, err
	}

	return aggregate(col.checks, col.warnings, resolution, abvDeviation), nil
}

func catchPanic(log *logger.Logger, check string) {
	if r := recover(); r != nil {
		log.Error("validate: check panicked, excluded from result", "check", check, "panic", r)
	}
}

// aggregate folds the per-field checks into a VerificationResult: passed
// is the conjunction of matches across non-informational checks,
// confidence_score their mean similarity, and the match fields mirror
// the cache resolution outcome.
func aggregate(checks []domain.FieldCheck, warnings []string, resolution cache.Resolution, abvDeviation float64) domain.VerificationResult {
	passed := true
	var simSum float64
	var simCount int

	for _, c := range checks {
		if c.Informational {
			continue
		}
		if !c.Matches {
			passed = false
		}
		simSum += c.SimilarityScore
		simCount++
	}

	confidence := 0.0
	if simCount > 0 {
		confidence = simSum / float64(simCount)
	}

	result := domain.VerificationResult{
		Passed:          passed,
		ConfidenceScore: confidence,
		Checks:          checks,
		Warnings:        warnings,
		MatchType:       resolution.MatchType,
		MatchConfidence:  resolution.Confidence,
		ABVDeviation:    abvDeviation,
	}
	if resolution.Beverage != nil {
		id := resolution.Beverage.ID.String()
		result.MatchedBeverageID = &id
	}
	return result
}
