package extractor

import (
	"regexp"
	"strings"

	"github.com/ttbverify/labelverify/internal/domain"
)

// labelLinePatterns maps a field to the line-prefix markers labels
// commonly carry for it. Checked in a line-oriented first pass; anything
// not recovered this way falls through to the regex pass below.
var labelLinePatterns = map[string][]string{
	"brand":            {"BRAND:", "BRAND NAME:"},
	"class_type":       {"CLASS:", "TYPE:", "CLASS/TYPE:", "CLASS AND TYPE:"},
	"net_contents":     {"NET CONTENTS:", "CONTENTS:"},
	"producer_name":    {"PRODUCED BY:", "BOTTLED BY:", "PRODUCER:"},
	"producer_address": {"ADDRESS:"},
	"country_of_origin": {"PRODUCT OF", "COUNTRY OF ORIGIN:"},
	"vintage":          {"VINTAGE:"},
}

var abvPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d{1,2})?)\s*%\s*ALC|ALC(?:OHOL)?\.?\s*(?:BY\s*VOL(?:UME)?\.?)?\s*:?\s*(\d{1,3}(?:\.\d{1,2})?)\s*%?`)

var netContentsPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mL|ml|L|l|fl\s?oz|oz)\b`)

var governmentWarningPattern = regexp.MustCompile(`(?i)GOVERNMENT\s+WARNING\s*:?(.*)`)

// ParseLabelText recovers label fields from raw OCR text by line-oriented
// markers first, then a best-effort regex pass for ABV, net contents, and
// the government warning paragraph. RawText always carries the full
// unparsed text regardless of what else was recovered.
func ParseLabelText(rawText string) domain.ExtractedFields {
	fields := domain.ExtractedFields{RawText: strPtr(rawText)}

	lines := strings.Split(rawText, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		upper := strings.ToUpper(trimmed)
		for field, markers := range labelLinePatterns {
			for _, marker := range markers {
				if !strings.HasPrefix(upper, marker) {
					continue
				}
				value := strings.TrimSpace(trimmed[len(marker):])
				if value == "" {
					continue
				}
				assignLineField(&fields, field, value)
			}
		}
	}

	if fields.ABV == nil {
		if m := abvPattern.FindStringSubmatch(rawText); m != nil {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			if v, ok := parseFloatLoose(raw); ok && v >= 0 && v <= 100 {
				fields.ABV = &v
			}
		}
	}

	if fields.NetContents == nil {
		if m := netContentsPattern.FindString(rawText); m != "" {
			fields.NetContents = strPtr(strings.TrimSpace(m))
		}
	}

	if fields.GovernmentWarning == nil {
		if m := governmentWarningPattern.FindString(rawText); m != "" {
			fields.GovernmentWarning = strPtr(strings.TrimSpace(collapseWhitespace(m)))
		}
	}

	return fields
}

func assignLineField(fields *domain.ExtractedFields, field, value string) {
	switch field {
	case "brand":
		if fields.Brand == nil {
			fields.Brand = strPtr(value)
		}
	case "class_type":
		if fields.ClassType == nil {
			fields.ClassType = strPtr(value)
		}
	case "net_contents":
		if fields.NetContents == nil {
			fields.NetContents = strPtr(value)
		}
	case "producer_name":
		if fields.ProducerName == nil {
			fields.ProducerName = strPtr(value)
		}
	case "producer_address":
		if fields.ProducerAddress == nil {
			fields.ProducerAddress = strPtr(value)
		}
	case "country_of_origin":
		if fields.CountryOfOrigin == nil {
			fields.CountryOfOrigin = strPtr(value)
		}
	case "vintage":
		if fields.Vintage == nil {
			fields.Vintage = strPtr(value)
		}
	}
}

func strPtr(s string) *string { return &s }

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
