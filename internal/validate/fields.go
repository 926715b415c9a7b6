package validate

import (
	"strings"

	"github.com/ttbverify/labelverify/internal/cache"
	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/matching"
)

const (
	fieldBrandClassVsCache = "brand_class_vs_cache"
	fieldABVVsCache        = "abv_vs_cache"
	fieldFieldOfVision     = "same_field_of_vision"
)

// checkAgainstUserInput compares an extracted string field against the
// value the submitter supplied, using the tiered matcher.
func checkAgainstUserInput(fieldName, expected, extracted string) domain.FieldCheck {
	m := matching.TieredMatch(expected, extracted)
	return domain.FieldCheck{
		FieldName:       fieldName,
		Expected:        expected,
		Extracted:       extracted,
		Matches:         m.Tier != matching.TierMismatch,
		SimilarityScore: m.Score,
		MatchType:       tierToFieldMatchType(m.Tier),
		Source:          domain.SourceUserInput,
	}
}

func tierToFieldMatchType(t matching.Tier) domain.FieldMatchType {
	switch t {
	case matching.TierExact:
		return domain.FieldMatchExact
	case matching.TierNormalized:
		return domain.FieldMatchNormalized
	case matching.TierFuzzy:
		return domain.FieldMatchFuzzy
	default:
		return domain.FieldMatchMismatch
	}
}

// cacheSource picks the FieldSource attribution for a cache resolution
// outcome: a local exact/fuzzy hit is a CachedRecord, a registry miss
// that still found something is a RegistryRecord.
func cacheSource(matchType domain.CacheMatchType) domain.FieldSource {
	if matchType == domain.CacheMatchRegistryLookup {
		return domain.SourceRegistryRecord
	}
	return domain.SourceCachedRecord
}

// checkAgainstCache composes the brand+class-vs-cache and ABV-vs-cache
// checks from a single resolution, since both depend on the same cache
// round trip. Returns the checks plus the ABV deviation (and whether one
// was computed) so the caller can surface it on the VerificationResult.
func checkAgainstCache(brand string, class *string, abv *float64, resolution cache.Resolution) ([]domain.FieldCheck, float64, bool) {
	if resolution.Beverage == nil {
		return nil, 0, false
	}

	var checks []domain.FieldCheck
	var recordID *string
	id := resolution.Beverage.ID.String()
	recordID = &id
	source := cacheSource(resolution.MatchType)

	classValue := ""
	if class != nil {
		classValue = *class
	}
	combinedExpected := strings.TrimSpace(brand + " " + classValue)
	combinedExtracted := strings.TrimSpace(resolution.Beverage.Brand + " " + resolution.Beverage.ClassType)
	m := matching.TieredMatch(combinedExpected, combinedExtracted)
	checks = append(checks, domain.FieldCheck{
		FieldName:       fieldBrandClassVsCache,
		Expected:        combinedExtracted,
		Extracted:       combinedExpected,
		Matches:         m.Tier != matching.TierMismatch,
		SimilarityScore: m.Score,
		MatchType:       tierToFieldMatchType(m.Tier),
		Source:          source,
		SourceRecordID:  recordID,
	})

	var deviation float64
	var hasDeviation bool
	if abv != nil && resolution.Beverage.ABV > 0 {
		check, dev := checkABVAgainstCache(*abv, resolution.Beverage.ABV, resolution.MatchType, source, recordID)
		checks = append(checks, check)
		deviation, hasDeviation = dev, true
	}

	return checks, deviation, hasDeviation
}

// checkFieldOfVision is the soft presence check: brand, class, and ABV
// must all be non-empty in the extracted set.
func checkFieldOfVision(extracted domain.ExtractedFields) domain.FieldCheck {
	citation := "27 CFR 5.63"
	present := extracted.Brand != nil && strings.TrimSpace(*extracted.Brand) != "" &&
		extracted.ClassType != nil && strings.TrimSpace(*extracted.ClassType) != "" &&
		extracted.ABV != nil
	score := 0.0
	if present {
		score = 1.0
	}
	return domain.FieldCheck{
		FieldName:       fieldFieldOfVision,
		Expected:        "brand, class, and ABV present",
		Extracted:       presenceSummary(extracted),
		Matches:         present,
		SimilarityScore: score,
		MatchType:       presenceMatchType(present),
		Source:          domain.SourceRegulationStandard,
		Citation:        &citation,
	}
}

func presenceMatchType(present bool) domain.FieldMatchType {
	if present {
		return domain.FieldMatchExact
	}
	return domain.FieldMatchMismatch
}

func presenceSummary(extracted domain.ExtractedFields) string {
	var have []string
	if extracted.Brand != nil && strings.TrimSpace(*extracted.Brand) != "" {
		have = append(have, "brand")
	}
	if extracted.ClassType != nil && strings.TrimSpace(*extracted.ClassType) != "" {
		have = append(have, "class")
	}
	if extracted.ABV != nil {
		have = append(have, "abv")
	}
	if len(have) == 0 {
		return "none"
	}
	return strings.Join(have, ", ")
}

// mandatoryFields lists every field a compliant label must carry,
// independent of anything the submitter expected.
var mandatoryFields = []struct {
	name string
	get  func(domain.ExtractedFields) *string
}{
	{"brand", func(f domain.ExtractedFields) *string { return f.Brand }},
	{"class_type", func(f domain.ExtractedFields) *string { return f.ClassType }},
	{"net_contents", func(f domain.ExtractedFields) *string { return f.NetContents }},
	{"government_warning", func(f domain.ExtractedFields) *string { return f.GovernmentWarning }},
}

// checkMandatoryPresence emits one FieldCheck per required field, each
// citation-less and attributed to RegulationStandard.
func checkMandatoryPresence(extracted domain.ExtractedFields) []domain.FieldCheck {
	checks := make([]domain.FieldCheck, 0, len(mandatoryFields))
	for _, f := range mandatoryFields {
		value := f.get(extracted)
		present := value != nil && strings.TrimSpace(*value) != ""
		extractedValue := ""
		if value != nil {
			extractedValue = *value
		}
		score := 0.0
		if present {
			score = 1.0
		}
		checks = append(checks, domain.FieldCheck{
			FieldName:       "mandatory_presence_" + f.name,
			Expected:        "present",
			Extracted:       extractedValue,
			Matches:         present,
			SimilarityScore: score,
			MatchType:       presenceMatchType(present),
			Source:          domain.SourceRegulationStandard,
		})
	}
	return checks
}
