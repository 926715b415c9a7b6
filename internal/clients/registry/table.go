package registry

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// expectedHeaders identifies the results table by its header row's
// content rather than its position on the page, since the surrounding
// markup (ads, navigation, unrelated tables) is not stable.
var expectedHeaders = []string{
	"ttb id", "permit", "serial", "completed", "fanciful", "brand",
	"origin code", "origin", "class code", "class",
}

func parseResultsTable(doc *html.Node) ([]Record, error) {
	table := findResultsTable(doc)
	if table == nil {
		return nil, fmt.Errorf("no results table with expected headers found")
	}

	rows := tableRows(table)
	if len(rows) < 2 {
		return nil, nil
	}

	var out []Record
	for _, row := range rows[1:] {
		cells := rowCells(row)
		if len(cells) < 10 {
			continue
		}
		out = append(out, Record{
			TTBID:         cells[0],
			Permit:        cells[1],
			Serial:        cells[2],
			CompletedDate: cells[3],
			FancifulName:  cells[4],
			Brand:         cells[5],
			OriginCode:    cells[6],
			OriginDesc:    cells[7],
			ClassCode:     cells[8],
			ClassDesc:     cells[9],
		})
	}
	return out, nil
}

func findResultsTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table {
		rows := tableRows(n)
		if len(rows) > 0 && headerRowMatches(rows[0]) {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findResultsTable(c); t != nil {
			return t
		}
	}
	return nil
}

func headerRowMatches(headerRow *html.Node) bool {
	cells := rowCells(headerRow)
	if len(cells) < len(expectedHeaders) {
		return false
	}
	joined := strings.ToLower(strings.Join(cells, " "))
	matched := 0
	for _, want := range expectedHeaders {
		if strings.Contains(joined, want) {
			matched++
		}
	}
	// Require most, not all, expected header fragments: registry markup
	// varies its header wording across deployments.
	return matched >= len(expectedHeaders)-2
}

func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			rows = append(rows, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

func rowCells(row *html.Node) []string {
	var cells []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.Td || c.DataAtom == atom.Th {
			cells = append(cells, strings.TrimSpace(collectText(c)))
		}
	}
	return cells
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
