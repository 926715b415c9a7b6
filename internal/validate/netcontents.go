package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ttbverify/labelverify/internal/domain"
)

const fieldNetContents = "net_contents_format"

var netContentsPattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*(ml|l|fl\s?oz|oz)\s*$`)

// checkNetContents validates the net-contents format and, when it
// parses, converts to milliliters and checks against the standard-of-
// fill list, emitting a non-informational format check and — on a
// non-standard fill size — a warning (not a failure).
func (e *Engine) checkNetContents(raw *string) ([]domain.FieldCheck, []string) {
	value := ""
	if raw != nil {
		value = strings.TrimSpace(*raw)
	}

	m := netContentsPattern.FindStringSubmatch(value)
	valid := m != nil
	var amount float64
	var unit string
	if valid {
		amount, _ = strconv.ParseFloat(m[1], 64)
		unit = strings.ToLower(strings.ReplaceAll(m[2], " ", ""))
		valid = amount > 0
	}

	check := domain.FieldCheck{
		FieldName: fieldNetContents,
		Expected:  "NUMBER followed by mL, L, fl oz, or oz",
		Extracted: value,
		Matches:   valid,
		MatchType: presenceMatchType(valid),
		Source:    domain.SourceRegulationStandard,
	}
	if valid {
		check.SimilarityScore = 1.0
	}

	var warnings []string
	if valid {
		mL := toMilliliters(amount, unit)
		if !e.rules.IsStandardFillSize(mL) {
			warnings = append(warnings, fmt.Sprintf("non-standard fill size: %.0f mL", mL))
		}
	}

	return []domain.FieldCheck{check}, warnings
}

func toMilliliters(amount float64, unit string) float64 {
	switch unit {
	case "l":
		return amount * 1000
	case "floz", "oz":
		return amount * 29.5735
	default: // ml
		return amount
	}
}
