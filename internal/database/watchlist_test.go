package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-service/internal/models"
)

func TestWatchlist(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("upsert and list", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.UpsertWatchlistEntry(&models.WatchlistEntry{
			Symbol: "msft", Enabled: true, Notes: "cloud",
		}))
		require.NoError(t, testDB.UpsertWatchlistEntry(&models.WatchlistEntry{
			Symbol: "AAPL", Enabled: true,
		}))

		entries, err := testDB.GetWatchlist()
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "AAPL", entries[0].Symbol)
		assert.Equal(t, "MSFT", entries[1].Symbol)
		assert.Equal(t, "cloud", entries[1].Notes)
	})

	t.Run("upsert on same symbol updates in place", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.UpsertWatchlistEntry(&models.WatchlistEntry{
			Symbol: "AAPL", Enabled: true,
		}))
		require.NoError(t, testDB.UpsertWatchlistEntry(&models.WatchlistEntry{
			Symbol: "AAPL", Enabled: false, Notes: "paused",
		}))

		entries, err := testDB.GetWatchlist()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.False(t, entries[0].Enabled)
		assert.Equal(t, "paused", entries[0].Notes)
	})

	t.Run("delete", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.UpsertWatchlistEntry(&models.WatchlistEntry{
			Symbol: "AAPL", Enabled: true,
		}))
		require.NoError(t, testDB.DeleteWatchlistEntry("aapl"))

		entries, err := testDB.GetWatchlist()
		require.NoError(t, err)
		assert.Empty(t, entries)

		require.Error(t, testDB.DeleteWatchlistEntry("AAPL"))
	})
}
