package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/calendar"
	"github.com/quantfolio/portfolio-service/internal/models"
)

// ComputeHistory aggregates per-symbol daily price series into one portfolio
// value per trading day over the trailing window named by rng, anchored at
// now. A holding contributes only from its acquisition date onward. Missing
// days take the symbol's most recent known price (forward-fill); days where
// no holding resolves to a price are omitted entirely rather than emitted as
// zero.
func ComputeHistory(holdings []*models.Holding, pricesBySymbol map[string][]*models.DailyPricePoint, rng models.Range, now time.Time) []models.PortfolioHistoryPoint {
	if len(holdings) == 0 {
		return nil
	}

	earliest := dayStart(holdings[0].AddedAt)
	for _, h := range holdings[1:] {
		if d := dayStart(h.AddedAt); d.Before(earliest) {
			earliest = d
		}
	}

	rangeStart := dayStart(rng.Floor(now, earliest))
	if rangeStart.Before(earliest) {
		rangeStart = earliest
	}

	days := calendar.Days(rangeStart, now)

	closes := make(map[string]map[string]decimal.Decimal, len(pricesBySymbol))
	for symbol, points := range pricesBySymbol {
		bySymbol := make(map[string]decimal.Decimal, len(points))
		for _, p := range points {
			bySymbol[p.Day()] = p.Close
		}
		closes[symbol] = bySymbol
	}

	carry := make(map[string]decimal.Decimal, len(pricesBySymbol))

	var series []models.PortfolioHistoryPoint
	for _, day := range days {
		total := decimal.Zero
		for _, h := range holdings {
			if dayStart(h.AddedAt).Format(models.DayFormat) > day {
				continue
			}

			price, ok := closes[h.Symbol][day]
			if ok {
				carry[h.Symbol] = price
			} else if price, ok = carry[h.Symbol]; !ok {
				continue
			}

			total = total.Add(h.Shares.Mul(price))
		}

		if total.IsPositive() {
			series = append(series, models.PortfolioHistoryPoint{Date: day, Value: total})
		}
	}
	return series
}
