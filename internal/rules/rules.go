// Package rules holds the static regulatory reference data the validation
// engine (C9/C10) checks extracted label fields against: standards of
// identity per category, common misspellings, the flavored-designation
// pattern, the government warning text, and standard fill sizes. The data
// is compiled from an embedded YAML file so it reads like reference data
// rather than Go source, the same separation the teacher draws between
// code and its prompt/config assets.
package rules

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed standards.yaml
var standardsYAML []byte

type standardsFile struct {
	Categories map[string][]string `yaml:"categories"`
	Misspellings map[string]string `yaml:"misspellings"`
	GovernmentWarning struct {
		Marker string `yaml:"marker"`
		Body   string `yaml:"body"`
	} `yaml:"government_warning"`
	ABVInference []struct {
		Substring  string  `yaml:"substring"`
		TypicalABV float64 `yaml:"typical_abv"`
	} `yaml:"abv_inference"`
	StandardFillSizesML []float64 `yaml:"standard_fill_sizes_ml"`
}

// abvInferenceEntry is one ordered-map entry in the class-description to
// typical-ABV inference table, sorted longest-substring-first so a more
// specific match (e.g. "DESSERT WINE") wins over a shorter one that would
// also match ("WINE" is not itself an entry, but the principle holds for
// overlapping multi-word entries).
type abvInferenceEntry struct {
	Substring  string
	TypicalABV float64
}

// Table is the parsed, query-ready form of standards.yaml.
type Table struct {
	// classToCategory maps an upper-cased accepted class string to its
	// category, for reverse lookup.
	classToCategory map[string]string
	categories      map[string][]string
	misspellings    map[string]string
	GovernmentWarningMarker string
	GovernmentWarningBody   string
	abvInference            []abvInferenceEntry
	StandardFillSizesML     []float64
}

var flavoredPattern = regexp.MustCompile(`(?i)^(.+?)[\s-]+flavored[\s-]+(.+)$`)

// Load parses the embedded standards table.
func Load() (*Table, error) {
	var f standardsFile
	if err := yaml.Unmarshal(standardsYAML, &f); err != nil {
		return nil, fmt.Errorf("rules: parse standards.yaml: %w", err)
	}
	t := &Table{
		classToCategory: make(map[string]string),
		categories:      make(map[string][]string, len(f.Categories)),
		misspellings:    make(map[string]string, len(f.Misspellings)),
		GovernmentWarningMarker: f.GovernmentWarning.Marker,
		GovernmentWarningBody:   f.GovernmentWarning.Body,
		StandardFillSizesML:     f.StandardFillSizesML,
	}
	for category, classes := range f.Categories {
		upper := make([]string, len(classes))
		for i, c := range classes {
			u := strings.ToUpper(strings.TrimSpace(c))
			upper[i] = u
			t.classToCategory[u] = category
		}
		t.categories[category] = upper
	}
	for wrong, right := range f.Misspellings {
		t.misspellings[strings.ToUpper(strings.TrimSpace(wrong))] = strings.ToUpper(strings.TrimSpace(right))
	}

	for _, e := range f.ABVInference {
		t.abvInference = append(t.abvInference, abvInferenceEntry{
			Substring:  strings.ToUpper(strings.TrimSpace(e.Substring)),
			TypicalABV: e.TypicalABV,
		})
	}
	sort.Slice(t.abvInference, func(i, j int) bool {
		return len(t.abvInference[i].Substring) > len(t.abvInference[j].Substring)
	})

	return t, nil
}

// InferABV returns the typical ABV for a class description by matching
// the longest known substring first, so a more specific entry always
// wins over a shorter one that would also match. The "flavored" modifier
// is stripped first so "DESSERT FLAVORED WINE" still matches the
// "DESSERT WINE" entry. Returns (0, false) when no entry matches.
func (t *Table) InferABV(classDescription string) (float64, bool) {
	upper := stripFlavoredModifier(strings.ToUpper(classDescription))
	for _, e := range t.abvInference {
		if strings.Contains(upper, e.Substring) {
			return e.TypicalABV, true
		}
	}
	return 0, false
}

func stripFlavoredModifier(s string) string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "FLAVORED" {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// ClassesForCategory returns the accepted standards-of-identity strings for
// a category, or nil if the category is unknown.
func (t *Table) ClassesForCategory(category string) []string {
	return t.categories[category]
}

// AllClasses returns every accepted class string across all categories,
// the union set the class check matches against when no category context
// is known yet.
func (t *Table) AllClasses() []string {
	out := make([]string, 0, len(t.classToCategory))
	for class := range t.classToCategory {
		out = append(out, class)
	}
	return out
}

// CategoryForClass returns the category owning an accepted class string
// (already upper-cased canonical form) and whether it was found.
func (t *Table) CategoryForClass(class string) (string, bool) {
	category, ok := t.classToCategory[strings.ToUpper(strings.TrimSpace(class))]
	return category, ok
}

// CorrectMisspelling returns the corrected form of a commonly misspelled
// class string and true, or ("", false) if raw is not a known misspelling.
func (t *Table) CorrectMisspelling(raw string) (string, bool) {
	corrected, ok := t.misspellings[strings.ToUpper(strings.TrimSpace(raw))]
	return corrected, ok
}

// FlavoredDesignation reports whether class matches the "X flavored Y" /
// "X-flavored Y" pattern against a recognized base standard, returning the
// modifier and the base standard class.
func (t *Table) FlavoredDesignation(class string) (modifier, base string, ok bool) {
	m := flavoredPattern.FindStringSubmatch(strings.TrimSpace(class))
	if m == nil {
		return "", "", false
	}
	baseUpper := strings.ToUpper(strings.TrimSpace(m[2]))
	if _, found := t.classToCategory[baseUpper]; !found {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), baseUpper, true
}

// IsStandardFillSize reports whether mL (within a small epsilon) is one of
// the enumerated standard-of-fill sizes.
func (t *Table) IsStandardFillSize(mL float64) bool {
	const epsilon = 0.5
	for _, size := range t.StandardFillSizesML {
		if mL > size-epsilon && mL < size+epsilon {
			return true
		}
	}
	return false
}
