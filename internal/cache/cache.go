// Package cache implements C8: the read-through resolution the validation
// engine uses to find a reference beverage record for a brand/class pair,
// falling back from the local store to the public registry before giving
// up.
package cache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ttbverify/labelverify/internal/clients/registry"
	"github.com/ttbverify/labelverify/internal/data/repos/beveragerepo"
	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/matching"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
	"github.com/ttbverify/labelverify/internal/rules"
)

const (
	fuzzyBrandThreshold = 0.85
	staleAfter          = 30 * 24 * time.Hour
	registrySearchWindow = 365 * 24 * time.Hour
)

// Resolution is the outcome of a Resolve call.
type Resolution struct {
	Beverage   *domain.KnownBeverage
	MatchType  domain.CacheMatchType
	Confidence float64
	Warnings   []string
}

type Cache struct {
	log      *logger.Logger
	beverage beveragerepo.Repo
	registry registry.Client
	rules    *rules.Table
}

func New(log *logger.Logger, beverageRepo beveragerepo.Repo, registryClient registry.Client, rulesTable *rules.Table) *Cache {
	return &Cache{
		log:      log.With("service", "cache"),
		beverage: beverageRepo,
		registry: registryClient,
		rules:    rulesTable,
	}
}

// Resolve implements the four-step resolution order: local exact, local
// fuzzy by brand, registry miss (upserting whatever it finds), then
// nothing.
func (c *Cache) Resolve(ctx context.Context, brand string, class string) (Resolution, error) {
	dbc := dbctx.Context{Ctx: ctx}

	if class != "" {
		if exact, ok, err := c.resolveExact(dbc, brand, class); err != nil {
			return Resolution{}, err
		} else if ok {
			return exact, nil
		}
	}

	if fuzzy, ok, err := c.resolveFuzzyByBrand(dbc, brand); err != nil {
		return Resolution{}, err
	} else if ok {
		return fuzzy, nil
	}

	registryResult, err := c.resolveFromRegistry(ctx, dbc, brand, class)
	if err != nil {
		// Registry failures are swallowed to a miss, not propagated: a
		// warning is attached instead.
		c.log.Warn("registry lookup failed, treating as miss", "brand", brand, "error", err)
		return Resolution{MatchType: domain.CacheMatchNone, Warnings: []string{"registry lookup failed: " + err.Error()}}, nil
	}
	return registryResult, nil
}

func (c *Cache) resolveExact(dbc dbctx.Context, brand, class string) (Resolution, bool, error) {
	found, err := c.beverage.FindExact(dbc, brand, class)
	if err != nil {
		if isNotFound(err) {
			return Resolution{}, false, nil
		}
		return Resolution{}, false, err
	}
	res := Resolution{Beverage: found, MatchType: domain.CacheMatchExact, Confidence: 1.0}
	attachStaleness(&res, found.UpdatedAt)
	return res, true, nil
}

func (c *Cache) resolveFuzzyByBrand(dbc dbctx.Context, brand string) (Resolution, bool, error) {
	normalizedQuery := matching.Normalize(brand)
	firstToken := firstAlphabeticToken(normalizedQuery)
	if firstToken == "" {
		return Resolution{}, false, nil
	}

	candidates, err := c.beverage.FindByBrandPrefix(dbc, firstToken, 50)
	if err != nil {
		return Resolution{}, false, err
	}

	var best *domain.KnownBeverage
	bestScore := 0.0
	for i := range candidates {
		candidate := candidates[i]
		normalizedCandidate := matching.Normalize(candidate.Brand)
		if firstAlphabeticToken(normalizedCandidate) != firstToken {
			continue
		}
		score := matching.JaroWinkler(normalizedQuery, normalizedCandidate)
		if score >= fuzzyBrandThreshold && score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}
	if best == nil {
		return Resolution{}, false, nil
	}
	res := Resolution{Beverage: best, MatchType: domain.CacheMatchFuzzy, Confidence: bestScore}
	attachStaleness(&res, best.UpdatedAt)
	return res, true, nil
}

func (c *Cache) resolveFromRegistry(ctx context.Context, dbc dbctx.Context, brand, class string) (Resolution, error) {
	records, err := c.registry.Search(ctx, brand, registrySearchWindow, nil)
	if err != nil {
		return Resolution{}, err
	}
	if len(records) == 0 {
		return Resolution{MatchType: domain.CacheMatchNone}, nil
	}

	upserted := make([]*domain.KnownBeverage, 0, len(records))
	completed := make(map[*domain.KnownBeverage]time.Time, len(records))
	for _, rec := range records {
		beverage := recordToBeverage(rec, c.rules)
		if err := c.beverage.Upsert(dbc, beverage); err != nil {
			c.log.Warn("registry upsert failed", "brand", rec.Brand, "error", err)
			continue
		}
		upserted = append(upserted, beverage)
		for _, layout := range []string{"01/02/2006", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(rec.CompletedDate)); err == nil {
				completed[beverage] = t
				break
			}
		}
	}
	if len(upserted) == 0 {
		return Resolution{MatchType: domain.CacheMatchNone}, nil
	}

	normalizedClass := strings.ToUpper(strings.TrimSpace(class))
	if normalizedClass != "" {
		for _, beverage := range upserted {
			if strings.ToUpper(beverage.ClassType) == normalizedClass {
				return Resolution{Beverage: beverage, MatchType: domain.CacheMatchRegistryLookup, Confidence: 0.7}, nil
			}
		}
	}

	sort.SliceStable(upserted, func(i, j int) bool {
		return completed[upserted[i]].After(completed[upserted[j]])
	})
	return Resolution{Beverage: upserted[0], MatchType: domain.CacheMatchRegistryLookup, Confidence: 0.4}, nil
}

func recordToBeverage(rec registry.Record, rulesTable *rules.Table) *domain.KnownBeverage {
	abv := 0.0
	if inferred, ok := rulesTable.InferABV(rec.ClassDesc); ok {
		abv = inferred
	}
	country := strings.ToUpper(strings.TrimSpace(rec.OriginDesc))
	beverage := &domain.KnownBeverage{
		ID:        uuid.New(),
		Brand:     strings.ToUpper(strings.TrimSpace(rec.Brand)),
		ClassType: strings.ToUpper(strings.TrimSpace(rec.ClassDesc)),
		ABV:       abv,
		Source:    "registry",
	}
	if country != "" {
		beverage.Country = &country
	}
	if category, ok := rulesTable.CategoryForClass(beverage.ClassType); ok {
		beverage.Category = domain.BeverageCategory(category)
	}
	return beverage
}

func firstAlphabeticToken(normalized string) string {
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func attachStaleness(res *Resolution, updatedAt time.Time) {
	if time.Since(updatedAt) > staleAfter {
		res.Warnings = append(res.Warnings, "stale cached reference")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
