package player_test

import (
	"testing"

	"github.com/clubhq/teamsheet/internal/database"
	"github.com/clubhq/teamsheet/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (player.Store, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	store := player.New(db)
	teardown := func() {
		dbTeardown()
		db.Close()
	}
	return store, teardown
}

func TestAddAndGet(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()

	store.Add("p1", "Alice", 7.5)

	p, err := store.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, 7.5, p.Rating)
	assert.Equal(t, player.DefaultConfidence, p.Confidence)
	assert.True(t, p.Active)

	assert.True(t, store.IsKnown("p1"))
	assert.False(t, store.IsKnown("p2"))

	_, err = store.Get("p2")
	assert.Error(t, err)
}

func TestUpsert(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()

	require.NoError(t, store.Upsert([]player.Info{
		{ID: "p1", Name: "Alice"},
		{ID: "p2", Name: "Bob", Rating: 6.0, Confidence: 0.5},
	}))

	p1, err := store.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, player.DefaultRating, p1.Rating, "zero rating falls back to the default")

	// Re-upserting updates the name but never touches the rating.
	require.NoError(t, store.SetRating("p2", 8.0, 0.4))
	require.NoError(t, store.Upsert([]player.Info{{ID: "p2", Name: "Bobby", Rating: 1.0}}))

	p2, err := store.Get("p2")
	require.NoError(t, err)
	assert.Equal(t, "Bobby", p2.Name)
	assert.Equal(t, 8.0, p2.Rating)
	assert.Equal(t, 0.4, p2.Confidence)
}

func TestGetMany(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()

	store.Add("p1", "Alice", 5)
	store.Add("p2", "Bob", 6)

	players, err := store.GetMany([]string{"p1", "p2", "ghost"})
	require.NoError(t, err)
	assert.Len(t, players, 2, "unknown IDs are omitted")

	players, err = store.GetMany(nil)
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestActiveRoster(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()

	store.Add("p1", "Alice", 5)
	store.Add("p2", "Bob", 6)
	store.Add("p3", "Carol", 7)
	require.NoError(t, store.Deactivate("p2"))

	roster, err := store.ActiveRoster()
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "p1", roster[0].ID)
	assert.Equal(t, "p3", roster[1].ID)

	all, err := store.All()
	require.NoError(t, err)
	assert.Len(t, all, 3, "deactivated players remain in the registry")
}

func TestDeactivateUnknown(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()

	assert.Error(t, store.Deactivate("ghost"))
}

func TestSortedByRating(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()

	store.Add("p1", "Alice", 4)
	store.Add("p2", "Bob", 9)
	store.Add("p3", "Carol", 9)

	players, err := store.SortedByRating()
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, "p2", players[0].ID, "rating ties break by ID")
	assert.Equal(t, "p3", players[1].ID)
	assert.Equal(t, "p1", players[2].ID)
}

func TestSetRating(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()

	store.Add("p1", "Alice", 5)
	require.NoError(t, store.SetRating("p1", 5.3, 0.95))

	p, err := store.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, 5.3, p.Rating)
	assert.Equal(t, 0.95, p.Confidence)

	assert.Error(t, store.SetRating("ghost", 5, 1))
}
