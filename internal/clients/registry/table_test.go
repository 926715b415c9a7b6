package registry

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const sampleResultsPage = `
<html><body>
<div id="ads">unrelated content</div>
<table>
<tr><th>TTB ID</th><th>Permit</th><th>Serial</th><th>Completed Date</th><th>Fanciful Name</th><th>Brand</th><th>Origin Code</th><th>Origin Description</th><th>Class Code</th><th>Class Description</th></tr>
<tr><td>21322001000891</td><td>CA-P-1234</td><td>001</td><td>2025-01-15</td><td>Harveys Bristol Cream</td><td>HARVEYS</td><td>US</td><td>United States</td><td>85</td><td>DESSERT FLAVORED WINE</td></tr>
</table>
</body></html>
`

func TestParseResultsTableFindsByHeaderContent(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(sampleResultsPage))
	if err != nil {
		t.Fatalf("html.Parse: %v", err)
	}
	records, err := parseResultsTable(doc)
	if err != nil {
		t.Fatalf("parseResultsTable: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.Brand != "HARVEYS" || r.ClassDesc != "DESSERT FLAVORED WINE" || r.TTBID != "21322001000891" {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestParseResultsTableNoMatchingTable(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body><table><tr><td>nope</td></tr></table></body></html>`))
	if err != nil {
		t.Fatalf("html.Parse: %v", err)
	}
	if _, err := parseResultsTable(doc); err == nil {
		t.Fatalf("expected error when no results table matches expected headers")
	}
}
