package validate

import (
	"strings"

	"github.com/ttbverify/labelverify/internal/domain"
)

const (
	fieldWarningPresence      = "government_warning_presence"
	fieldWarningCapitalization = "government_warning_marker_capitalization"
	fieldWarningBody           = "government_warning_body"

	warningCitation = "27 CFR Part 16"
)

// checkGovernmentWarning produces the three distinct checks the
// statutory warning text requires: presence, exact capitalization of
// the leading marker, and word-for-word equivalence of the body
// allowing only whitespace normalization.
func (e *Engine) checkGovernmentWarning(extracted *string) []domain.FieldCheck {
	citation := warningCitation
	raw := ""
	if extracted != nil {
		raw = strings.TrimSpace(*extracted)
	}

	present := raw != ""
	presenceCheck := domain.FieldCheck{
		FieldName: fieldWarningPresence,
		Expected:  "present",
		Extracted: presenceLabel(present),
		Matches:   present,
		MatchType: presenceMatchType(present),
		Source:    domain.SourceRegulationStandard,
		Citation:  &citation,
	}
	if present {
		presenceCheck.SimilarityScore = 1.0
	}
	if !present {
		return []domain.FieldCheck{presenceCheck}
	}

	markerOK := strings.HasPrefix(raw, e.rules.GovernmentWarningMarker)
	markerCheck := domain.FieldCheck{
		FieldName: fieldWarningCapitalization,
		Expected:  e.rules.GovernmentWarningMarker,
		Extracted: leadingMarker(raw, len(e.rules.GovernmentWarningMarker)),
		Matches:   markerOK,
		MatchType: presenceMatchType(markerOK),
		Source:    domain.SourceRegulationStandard,
		Citation:  &citation,
	}
	if markerOK {
		markerCheck.SimilarityScore = 1.0
	}

	body := strings.TrimSpace(strings.TrimPrefix(raw, e.rules.GovernmentWarningMarker))
	expectedBody := collapseWhitespace(e.rules.GovernmentWarningBody)
	actualBody := collapseWhitespace(body)
	bodyOK := expectedBody == actualBody
	bodyCheck := domain.FieldCheck{
		FieldName: fieldWarningBody,
		Expected:  expectedBody,
		Extracted: actualBody,
		Matches:   bodyOK,
		MatchType: presenceMatchType(bodyOK),
		Source:    domain.SourceRegulationStandard,
		Citation:  &citation,
	}
	if bodyOK {
		bodyCheck.SimilarityScore = 1.0
	}

	return []domain.FieldCheck{presenceCheck, markerCheck, bodyCheck}
}

func presenceLabel(present bool) string {
	if present {
		return "present"
	}
	return "absent"
}

func leadingMarker(s string, n int) string {
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
