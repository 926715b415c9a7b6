// Package registry implements C7: looking up a beverage in the public
// TTB Certificate of Label Approval (COLA) registry when it isn't already
// in the local KnownBeverage cache. The registry exposes a form-encoded
// search with HTML table results; there is no JSON API, so this client
// walks the response DOM the way the teacher's HTML extraction code does.
package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ttbverify/labelverify/internal/pkg/logger"
)

// ClassCodeRange is a [min,max] inclusive TTB class/type code range.
type ClassCodeRange struct {
	Min, Max int
}

var (
	WineClassCodes    = ClassCodeRange{Min: 80, Max: 89}
	SpiritsClassCodes = ClassCodeRange{Min: 100, Max: 699}
	MaltClassCodes    = ClassCodeRange{Min: 900, Max: 999}
)

// Record is one parsed row of the registry results table.
type Record struct {
	TTBID           string
	Permit          string
	Serial          string
	CompletedDate   string
	FancifulName    string
	Brand           string
	OriginCode      string
	OriginDesc      string
	ClassCode       string
	ClassDesc       string
}

// Client is the contract the cache (C8) depends on.
type Client interface {
	// Search queries the registry for a brand, returning matching rows
	// within the date window. A transport or parse failure returns a nil
	// slice and a non-nil error; the caller is expected to treat that as
	// a miss and attach a warning, not propagate the error upward.
	Search(ctx context.Context, brand string, window time.Duration, classRange *ClassCodeRange) ([]Record, error)
}

type httpClient struct {
	log      *logger.Logger
	baseURL  string
	http     *http.Client
}

// New constructs a registry Client against baseURL (the COLA public
// search endpoint).
func New(log *logger.Logger, baseURL string) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("registry: logger required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("registry: base URL required")
	}
	return &httpClient{
		log:     log.With("service", "registry"),
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *httpClient) Search(ctx context.Context, brand string, window time.Duration, classRange *ClassCodeRange) ([]Record, error) {
	if window <= 0 {
		window = 365 * 24 * time.Hour
	}
	now := time.Now().UTC()
	from := now.Add(-window)

	form := url.Values{}
	form.Set("brandName", brand)
	form.Set("dateFrom", from.Format("2006-01-02"))
	form.Set("dateTo", now.Format("2006-01-02"))
	if classRange != nil {
		form.Set("classCodeFrom", fmt.Sprintf("%d", classRange.Min))
		form.Set("classCodeTo", fmt.Sprintf("%d", classRange.Max))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("registry: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: unexpected status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("registry: parse response: %w", err)
	}

	records, err := parseResultsTable(doc)
	if err != nil {
		return nil, fmt.Errorf("registry: parse results table: %w", err)
	}
	return records, nil
}
