package rules

import "testing"

func TestLoadParsesEmbeddedTable(t *testing.T) {
	tbl, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tbl.ClassesForCategory("spirits")) == 0 {
		t.Fatalf("expected spirits classes to be populated")
	}
	if len(tbl.StandardFillSizesML) == 0 {
		t.Fatalf("expected standard fill sizes to be populated")
	}
}

func TestCategoryForClass(t *testing.T) {
	tbl, _ := Load()
	category, ok := tbl.CategoryForClass("bourbon")
	if !ok || category != "spirits" {
		t.Fatalf("CategoryForClass(bourbon) = %q, %v, want spirits, true", category, ok)
	}
}

func TestCorrectMisspelling(t *testing.T) {
	tbl, _ := Load()
	corrected, ok := tbl.CorrectMisspelling("burbon")
	if !ok || corrected != "BOURBON" {
		t.Fatalf("CorrectMisspelling(burbon) = %q, %v, want BOURBON, true", corrected, ok)
	}
	if _, ok := tbl.CorrectMisspelling("bourbon"); ok {
		t.Fatalf("CorrectMisspelling(bourbon) should not be a known misspelling")
	}
}

func TestFlavoredDesignation(t *testing.T) {
	tbl, _ := Load()
	modifier, base, ok := tbl.FlavoredDesignation("Cherry flavored Vodka")
	if !ok || base != "VODKA" || modifier != "Cherry" {
		t.Fatalf("FlavoredDesignation = %q, %q, %v, want Cherry, VODKA, true", modifier, base, ok)
	}
	if _, _, ok := tbl.FlavoredDesignation("Bourbon"); ok {
		t.Fatalf("plain class should not match flavored pattern")
	}
}

func TestInferABVLongestMatchWins(t *testing.T) {
	tbl, _ := Load()
	abv, ok := tbl.InferABV("DESSERT FLAVORED WINE")
	if !ok || abv != 18.0 {
		t.Fatalf("InferABV(DESSERT FLAVORED WINE) = %v, %v, want 18.0, true", abv, ok)
	}
	if _, ok := tbl.InferABV("UNKNOWN NOVELTY BEVERAGE"); ok {
		t.Fatalf("InferABV should miss on an unrecognized class description")
	}
}

func TestIsStandardFillSize(t *testing.T) {
	tbl, _ := Load()
	if !tbl.IsStandardFillSize(750) {
		t.Fatalf("750mL should be a standard fill size")
	}
	if tbl.IsStandardFillSize(473) {
		t.Fatalf("473mL should not be a standard fill size")
	}
}
