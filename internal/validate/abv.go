package validate

import (
	"fmt"
	"math"

	"github.com/ttbverify/labelverify/internal/domain"
)

const (
	fieldABVVsUserInput = "abv_vs_user_input"
	fieldABVVsCategory  = "abv_vs_category_band"

	userInputABVTolerance  = 0.3
	registryABVTolerance   = 3.0
)

// checkABVAgainstUserInput compares the extracted ABV to what the
// submitter declared, within the tight tolerance reserved for a value
// the submitter themselves typed in.
func checkABVAgainstUserInput(expected, extracted float64) (domain.FieldCheck, float64) {
	deviation := math.Abs(expected - extracted)
	matches := deviation <= userInputABVTolerance
	return domain.FieldCheck{
		FieldName:       fieldABVVsUserInput,
		Expected:        formatABV(expected),
		Extracted:       formatABV(extracted),
		Matches:         matches,
		SimilarityScore: similarityFromDeviation(deviation, userInputABVTolerance),
		MatchType:       deviationMatchType(matches),
		Source:          domain.SourceUserInput,
	}, deviation
}

// checkABVAgainstCache compares the extracted ABV to the matched
// reference record's ABV. The tolerance widens for a registry-inferred
// value, since inference is coarse by construction.
func checkABVAgainstCache(extracted, referenceABV float64, matchType domain.CacheMatchType, source domain.FieldSource, recordID *string) (domain.FieldCheck, float64) {
	tolerance := userInputABVTolerance
	if matchType == domain.CacheMatchRegistryLookup {
		tolerance = registryABVTolerance
	}
	deviation := math.Abs(extracted - referenceABV)
	matches := deviation <= tolerance
	return domain.FieldCheck{
		FieldName:       fieldABVVsCache,
		Expected:        formatABV(referenceABV),
		Extracted:       formatABV(extracted),
		Matches:         matches,
		SimilarityScore: similarityFromDeviation(deviation, tolerance),
		MatchType:       deviationMatchType(matches),
		Source:          source,
		SourceRecordID:  recordID,
	}, deviation
}

// checkABVAgainstCategoryBand checks the extracted ABV against the
// category's hard band (fails outside it) and typical band (warns when
// outside it but still inside the hard band).
func checkABVAgainstCategoryBand(extracted float64, rule domain.CategoryRule) (domain.FieldCheck, string) {
	citation := rule.Citation
	inHard := rule.InHardBand(extracted)
	check := domain.FieldCheck{
		FieldName:       fieldABVVsCategory,
		Expected:        fmt.Sprintf("%.1f-%.1f%%", rule.MinABV, rule.MaxABV),
		Extracted:       formatABV(extracted),
		Matches:         inHard,
		MatchType:       deviationMatchType(inHard),
		Source:          domain.SourceRegulationCategory,
		Citation:        &citation,
	}
	if inHard {
		check.SimilarityScore = 1.0
	}

	var warning string
	if inHard && !rule.InTypicalBand(extracted) {
		warning = fmt.Sprintf("ABV %.1f%% is outside the typical %s range though within the permitted band", extracted, rule.Category)
	}
	return check, warning
}

func deviationMatchType(matches bool) domain.FieldMatchType {
	if matches {
		return domain.FieldMatchExact
	}
	return domain.FieldMatchMismatch
}

func similarityFromDeviation(deviation, tolerance float64) float64 {
	if tolerance <= 0 {
		if deviation == 0 {
			return 1.0
		}
		return 0.0
	}
	score := 1.0 - deviation/tolerance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func formatABV(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
