package database

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-service/internal/models"
)

func seriesPoint(day string, close float64) *models.DailyPricePoint {
	date, _ := time.Parse(models.DayFormat, day)
	return &models.DailyPricePoint{
		Date:   date,
		Open:   decimal.NewFromFloat(close - 1),
		High:   decimal.NewFromFloat(close + 1),
		Low:    decimal.NewFromFloat(close - 2),
		Close:  decimal.NewFromFloat(close),
		Volume: 1000,
	}
}

func TestPriceCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	day := func(s string) time.Time {
		d, err := time.Parse(models.DayFormat, s)
		require.NoError(t, err)
		return d
	}

	t.Run("GetPriceSeries returns ascending points within the closed interval", func(t *testing.T) {
		testDB.TruncateAll(t)

		points := []*models.DailyPricePoint{
			seriesPoint("2026-01-09", 104),
			seriesPoint("2026-01-05", 100),
			seriesPoint("2026-01-06", 101),
			seriesPoint("2026-01-07", 102),
			seriesPoint("2026-01-08", 103),
		}
		require.NoError(t, testDB.ReplacePriceSeries("AAPL", "alphavantage", points))

		got, err := testDB.GetPriceSeries("AAPL", "alphavantage", day("2026-01-06"), day("2026-01-08"))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "2026-01-06", got[0].Day())
		assert.Equal(t, "2026-01-07", got[1].Day())
		assert.Equal(t, "2026-01-08", got[2].Day())
		assert.True(t, decimal.NewFromFloat(101).Equal(got[0].Close))
	})

	t.Run("GetPriceSeries is scoped to provider", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.ReplacePriceSeries("AAPL", "alphavantage", []*models.DailyPricePoint{
			seriesPoint("2026-01-05", 100),
		}))
		require.NoError(t, testDB.ReplacePriceSeries("AAPL", "finnhub", []*models.DailyPricePoint{
			seriesPoint("2026-01-05", 200),
		}))

		got, err := testDB.GetPriceSeries("AAPL", "finnhub", day("2026-01-01"), day("2026-01-31"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, decimal.NewFromFloat(200).Equal(got[0].Close))
	})

	t.Run("second replace leaves exactly the second set", func(t *testing.T) {
		testDB.TruncateAll(t)

		first := []*models.DailyPricePoint{
			seriesPoint("2026-01-05", 100),
			seriesPoint("2026-01-06", 101),
			seriesPoint("2026-01-07", 102),
		}
		require.NoError(t, testDB.ReplacePriceSeries("AAPL", "alphavantage", first))

		second := []*models.DailyPricePoint{
			seriesPoint("2026-01-06", 201),
			seriesPoint("2026-01-07", 202),
		}
		require.NoError(t, testDB.ReplacePriceSeries("AAPL", "alphavantage", second))

		got, err := testDB.GetPriceSeries("AAPL", "alphavantage", day("2026-01-01"), day("2026-01-31"))
		require.NoError(t, err)
		require.Len(t, got, 2, "no leftover dates from the first set")
		assert.Equal(t, "2026-01-06", got[0].Day())
		assert.True(t, decimal.NewFromFloat(201).Equal(got[0].Close))

		meta, err := testDB.GetSyncMetadata("AAPL", "alphavantage")
		require.NoError(t, err)
		assert.Equal(t, 2, meta.ExpectedCount)
		assert.WithinDuration(t, time.Now(), meta.LastSync, time.Minute)
	})

	t.Run("VerifyIntegrity reports nothing for a healthy cache", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.ReplacePriceSeries("AAPL", "alphavantage", []*models.DailyPricePoint{
			seriesPoint("2026-01-05", 100),
			seriesPoint("2026-01-06", 101),
		}))

		symbols, err := testDB.VerifyIntegrity()
		require.NoError(t, err)
		assert.Empty(t, symbols)
	})

	t.Run("VerifyIntegrity detects a silently deleted row", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.ReplacePriceSeries("AAPL", "alphavantage", []*models.DailyPricePoint{
			seriesPoint("2026-01-05", 100),
			seriesPoint("2026-01-06", 101),
		}))
		require.NoError(t, testDB.ReplacePriceSeries("MSFT", "alphavantage", []*models.DailyPricePoint{
			seriesPoint("2026-01-05", 400),
		}))

		// Simulate external tampering outside the replace path.
		_, err := testDB.RawConn().Exec(
			`DELETE FROM price_data_daily WHERE symbol = 'AAPL' AND date = '2026-01-06'`)
		require.NoError(t, err)

		symbols, err := testDB.VerifyIntegrity()
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL"}, symbols, "only the tampered symbol is reported")

		// Nothing was auto-repaired.
		meta, err := testDB.GetSyncMetadata("AAPL", "alphavantage")
		require.NoError(t, err)
		assert.Equal(t, 2, meta.ExpectedCount)
	})
}
