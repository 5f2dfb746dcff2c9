// Package portfolio implements the valuation history pipeline: deciding when
// the local price cache is good enough, refreshing it from the provider when
// it is not, and aggregating per-symbol series into one portfolio value per
// trading day.
package portfolio

import (
	"time"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// Coverage thresholds. Both allow slack for weekends near the window
// boundary; neither accounts for multi-day market holidays, so a cache can
// pass with a real gap around one. Kept as-is for compatibility.
const (
	// MaxLeadingGap is how far after the required start the cached series may begin.
	MaxLeadingGap = 5 * 24 * time.Hour
	// MaxTrailingStaleness is how far before the required end the cached series may stop.
	MaxTrailingStaleness = 2 * 24 * time.Hour
)

// Usable reports whether a cached series covers enough of [requiredFrom,
// requiredTo] to skip a provider refresh. It checks only the series bounds,
// not internal gaps; gaps are resolved later by forward-fill.
func Usable(points []*models.DailyPricePoint, requiredFrom, requiredTo time.Time) bool {
	if len(points) == 0 {
		return false
	}

	earliest, latest := points[0].Date, points[0].Date
	for _, p := range points[1:] {
		if p.Date.Before(earliest) {
			earliest = p.Date
		}
		if p.Date.After(latest) {
			latest = p.Date
		}
	}

	if earliest.Sub(dayStart(requiredFrom)) > MaxLeadingGap {
		return false
	}
	if dayStart(requiredTo).Sub(latest) > MaxTrailingStaleness {
		return false
	}
	return true
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
