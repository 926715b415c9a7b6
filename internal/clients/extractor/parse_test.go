package extractor

import "testing"

func TestParseLabelTextLineMarkers(t *testing.T) {
	text := "BRAND: Stone Creek\nCLASS: BOURBON\nNET CONTENTS: 750 mL\nALC. 40% BY VOL"
	fields := ParseLabelText(text)

	if fields.Brand == nil || *fields.Brand != "Stone Creek" {
		t.Fatalf("Brand = %v, want Stone Creek", fields.Brand)
	}
	if fields.ClassType == nil || *fields.ClassType != "BOURBON" {
		t.Fatalf("ClassType = %v, want BOURBON", fields.ClassType)
	}
	if fields.ABV == nil || *fields.ABV != 40 {
		t.Fatalf("ABV = %v, want 40", fields.ABV)
	}
}

func TestParseLabelTextABVRegexFallback(t *testing.T) {
	fields := ParseLabelText("Some unrelated text 12.5% ALC by volume more text")
	if fields.ABV == nil {
		t.Fatalf("expected ABV to be recovered by regex fallback")
	}
	if *fields.ABV != 12.5 {
		t.Fatalf("ABV = %v, want 12.5", *fields.ABV)
	}
}

func TestParseLabelTextNoUsableFieldsStillKeepsRawText(t *testing.T) {
	fields := ParseLabelText("random noise with no label structure")
	if fields.RawText == nil || *fields.RawText == "" {
		t.Fatalf("expected RawText to be preserved")
	}
	if !fields.Empty() {
		t.Fatalf("expected Empty() true when no structured fields recovered")
	}
}

func TestParseLabelTextGovernmentWarning(t *testing.T) {
	text := "GOVERNMENT WARNING: (1) According to the Surgeon General..."
	fields := ParseLabelText(text)
	if fields.GovernmentWarning == nil {
		t.Fatalf("expected government warning text to be recovered")
	}
}
