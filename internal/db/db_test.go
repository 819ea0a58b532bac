package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tgienger/stash/internal/errs"
	"github.com/tgienger/stash/internal/models"
)

var base = time.Date(2025, 11, 5, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T, seed bool) *DB {
	t.Helper()
	d, err := New(Options{
		Path:        filepath.Join(t.TempDir(), "stash.db"),
		Logger:      zaptest.NewLogger(t),
		SeedSamples: seed,
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// seedCorpus stores six items in one category. IDs run 1..6 in insertion
// order; only item 2 has been used.
func seedCorpus(t *testing.T, d *DB) int64 {
	t.Helper()
	cat, err := d.CreateCategory("Dev", "")
	require.NoError(t, err)

	inputs := []ItemInput{
		{Label: "pytest run", Content: "pytest -q", Tags: []string{"python", "pytest", "testing"}, ItemType: models.ItemCode},
		{Label: "automation", Content: "invoke deploy", Tags: []string{"python", "automation", "testing"}, ItemType: models.ItemCode},
		{Label: "pytest cov", Content: "pytest --cov", Tags: []string{"python", "pytest"}, ItemType: models.ItemCode},
		{Label: "testing notes", Content: "arrange act assert", Tags: []string{"python", "testing"}},
		{Label: "docs link", Content: "https://docs.python.org", Tags: []string{"docs"}, ItemType: models.ItemURL, IsFavorite: true},
		{Label: "secret", Content: "hunter2", IsSensitive: true, IsArchived: true},
	}
	for i, in := range inputs {
		in.CategoryID = cat
		in.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := d.CreateItem(in)
		require.NoError(t, err)
	}
	require.NoError(t, d.touchItemAt(2, base.Add(48*time.Hour)))
	return cat
}

func itemIDs(items []models.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestNewMigratesToLatest(t *testing.T) {
	d := newTestDB(t, false)

	v, err := d.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, LatestSchemaVersion(), v)
	assert.Equal(t, 2, v)

	for _, table := range []string{"categories", "items", "settings", "tag_groups", "smart_collections"} {
		ok, err := d.tableExists(table)
		require.NoError(t, err)
		assert.True(t, ok, table)
	}

	groups, err := d.ListTagGroups(false)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestSeedSamplesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.db")

	d, err := New(Options{Path: path, Logger: zaptest.NewLogger(t), SeedSamples: true})
	require.NoError(t, err)

	groups, err := d.ListTagGroups(false)
	require.NoError(t, err)
	assert.Len(t, groups, len(sampleGroups))

	collections, err := d.ListCollections(false)
	require.NoError(t, err)
	assert.Len(t, collections, len(sampleCollections))

	commands, err := d.GetCollectionByName("All Commands")
	require.NoError(t, err)
	require.NotNil(t, commands.Filter.ItemType)
	assert.Equal(t, models.ItemCode, *commands.Filter.ItemType)
	assert.Nil(t, commands.Filter.IsFavorite)

	g, err := d.GetTagGroupByName("Git Commands")
	require.NoError(t, err)
	require.NoError(t, d.DeleteTagGroup(g.ID))
	require.NoError(t, d.Close())

	// Reopening does not reseed.
	d, err = New(Options{Path: path, Logger: zaptest.NewLogger(t), SeedSamples: true})
	require.NoError(t, err)
	defer d.Close()

	groups, err = d.ListTagGroups(false)
	require.NoError(t, err)
	assert.Len(t, groups, len(sampleGroups)-1)
}

func TestRollbackAndReapply(t *testing.T) {
	d := newTestDB(t, false)
	_, err := d.CreateTagGroup(TagGroupInput{Name: "Go", Tags: "go"})
	require.NoError(t, err)

	require.NoError(t, d.Rollback(1))

	v, err := d.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	ok, err := d.tableExists("tag_groups")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = d.tableExists("items")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, d.Migrate(false))
	groups, err := d.ListTagGroups(false)
	require.NoError(t, err)
	assert.Empty(t, groups)

	err = d.Rollback(-1)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSettings(t *testing.T) {
	d := newTestDB(t, false)

	v, err := d.GetSetting("last_collection")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, d.SetSetting("last_collection", "3"))
	require.NoError(t, d.SetSetting("last_collection", "4"))

	v, err = d.GetSetting("last_collection")
	require.NoError(t, err)
	assert.Equal(t, "4", v)
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}

func TestStoreErrorsAfterClose(t *testing.T) {
	d := newTestDB(t, false)
	require.NoError(t, d.Close())

	_, err := d.ListTagGroups(false)
	assert.ErrorIs(t, err, errs.ErrStorageUnavailable)

	_, err = d.Evaluator().Evaluate(models.Filter{})
	assert.ErrorIs(t, err, errs.ErrStorageUnavailable)
}
