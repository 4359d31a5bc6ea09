package brief

import (
	"strings"
	"time"

	"horse.fit/trustbrief/internal/globaltime"
	"horse.fit/trustbrief/internal/textnorm"
)

// Calculator builds brief objects. It only carries presentation settings and
// holds no state between calls.
type Calculator struct {
	permalinkBase string
}

func NewCalculator(permalinkBase string) *Calculator {
	return &Calculator{permalinkBase: strings.TrimRight(strings.TrimSpace(permalinkBase), "/")}
}

// Options bounds the sections of a DailyBrief. Zero values fall back to the
// package defaults and Now falls back to the process clock.
type Options struct {
	MaxMovers        int
	MaxDowngrades    int
	MaxNewEntrants   int
	NewEntrantWindow time.Duration
	Now              time.Time
}

// Build computes every section of the daily brief in one call.
func (c *Calculator) Build(records []ServerRecord, prior Snapshot, opts Options) DailyBrief {
	now := opts.Now
	if now.IsZero() {
		now = globaltime.UTC()
	}
	window := opts.NewEntrantWindow
	if window <= 0 {
		window = DefaultNewEntrantWindow
	}

	return DailyBrief{
		Date:         now.UTC().Format("2006-01-02"),
		GeneratedAt:  now.UTC(),
		Movers:       c.TopMovers(records, prior, opts.MaxMovers),
		Downgrades:   c.TopDowngrades(records, prior, opts.MaxDowngrades),
		NewEntrants:  c.NewEntrants(records, now.Add(-window), opts.MaxNewEntrants),
		TierSnapshot: Distribution(records),
	}
}

// Permalink joins base and the normalized slug. The server id stands in for an
// empty slug.
func Permalink(base, slug, serverID string) string {
	segment := textnorm.NormalizeName(slug)
	if segment == "" {
		segment = strings.TrimSpace(serverID)
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "/" + segment
	}
	return base + "/" + segment
}

func (c *Calculator) ref(record ServerRecord) ServerRef {
	return ServerRef{
		ServerID:     record.ServerID,
		ServerName:   record.ServerName,
		ProviderID:   record.ProviderID,
		ProviderName: record.ProviderName,
		Permalink:    Permalink(c.permalinkBase, record.Slug, record.ServerID),
	}
}
