package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/matching"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
)

const fieldClassVsStandards = "class_vs_standards_of_identity"

// checkStandardsOfIdentity matches the extracted class string against
// the union of accepted standard-of-identity strings. A known
// misspelling is corrected first and reported as a Fuzzy match rather
// than run through the tiered matcher on the raw text. A flavored/
// fanciful designation ("X flavored Y") passes against its recognized
// base standard with its own warning, distinct from a plain spelling
// variation.
func (e *Engine) checkStandardsOfIdentity(class string) ([]domain.FieldCheck, []string) {
	trimmed := strings.TrimSpace(class)

	if modifier, base, ok := e.rules.FlavoredDesignation(trimmed); ok {
		check := domain.FieldCheck{
			FieldName:       fieldClassVsStandards,
			Expected:        base,
			Extracted:       trimmed,
			Matches:         true,
			SimilarityScore: 1.0,
			MatchType:       domain.FieldMatchFuzzy,
			Source:          domain.SourceRegulationStandard,
		}
		warning := fmt.Sprintf("%q is a flavored/fanciful designation of %s and requires a composition statement", modifier, base)
		return []domain.FieldCheck{check}, []string{warning}
	}

	candidate := trimmed
	var warnings []string
	if corrected, ok := e.rules.CorrectMisspelling(trimmed); ok {
		candidate = corrected
	}

	best := matching.Result{Tier: matching.TierMismatch}
	for _, accepted := range e.rules.AllClasses() {
		m := matching.TieredMatch(accepted, candidate)
		if m.Score > best.Score {
			best = m
		}
		if m.Tier == matching.TierExact || m.Tier == matching.TierNormalized {
			break
		}
	}

	if candidate != trimmed && best.Tier != matching.TierMismatch {
		// The correction itself, not the tiered result against the raw
		// text, determines the warning: a corrected misspelling is
		// always reported as a Fuzzy match against the corrected term.
		best.Tier = matching.TierFuzzy
		warnings = append(warnings, fmt.Sprintf("corrected likely misspelling %q to %q", trimmed, candidate))
	} else if best.Tier == matching.TierFuzzy && best.Score < 0.95 {
		warnings = append(warnings, "possible spelling variation in class designation")
	}

	check := domain.FieldCheck{
		FieldName:       fieldClassVsStandards,
		Expected:        candidate,
		Extracted:       trimmed,
		Matches:         best.Tier != matching.TierMismatch,
		SimilarityScore: best.Score,
		MatchType:       tierToFieldMatchType(best.Tier),
		Source:          domain.SourceRegulationStandard,
	}
	return []domain.FieldCheck{check}, warnings
}

// checkCategoryBand resolves the category a class string belongs to and
// checks the extracted ABV against that category's hard and typical
// bands. It is a no-op (no checks, no error) when the class does not
// resolve to a known category — that absence is already covered by the
// standards-of-identity check.
func (e *Engine) checkCategoryBand(ctx context.Context, class string, abv float64) ([]domain.FieldCheck, []string) {
	category, ok := e.rules.CategoryForClass(strings.TrimSpace(class))
	if !ok {
		if corrected, ok2 := e.rules.CorrectMisspelling(class); ok2 {
			category, ok = e.rules.CategoryForClass(corrected)
		}
	}
	if !ok {
		return nil, nil
	}

	rule, err := e.beverage.GetCategoryRule(dbctx.Context{Ctx: ctx}, domain.BeverageCategory(category))
	if err != nil || rule == nil {
		return nil, nil
	}

	check, warning := checkABVAgainstCategoryBand(abv, *rule)
	var warnings []string
	if warning != "" {
		warnings = append(warnings, warning)
	}
	return []domain.FieldCheck{check}, warnings
}
