package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tgienger/stash/internal/errs"
	"github.com/tgienger/stash/internal/filter"
	"github.com/tgienger/stash/internal/models"
)

func TestCreateCollectionRoundTrip(t *testing.T) {
	d := newTestDB(t, false)
	cat := seedCorpus(t, d)

	want := models.Filter{
		TagsInclude:      "python,testing",
		TagsExclude:      "legacy",
		CategoryID:       models.Int64(cat),
		ItemType:         models.Type(models.ItemCode),
		IsFavorite:       models.Bool(false),
		IsArchivedFilter: models.Bool(false),
		SearchText:       "pytest",
		DateFrom:         "2025-01-01",
		DateTo:           "2025-12-31 23:59:59",
	}
	id, err := d.CreateCollection(CollectionInput{Name: "Pytest", Description: "test runners", Filter: want})
	require.NoError(t, err)

	c, err := d.GetCollection(id)
	require.NoError(t, err)
	assert.Equal(t, "Pytest", c.Name)
	assert.Equal(t, defaultCollectionIcon, c.Icon)
	assert.Equal(t, defaultCollectionColor, c.Color)
	assert.True(t, c.IsActive)
	assert.Empty(t, cmp.Diff(want, c.Filter))

	byName, err := d.GetCollectionByName("Pytest")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)
}

func TestCreateCollectionNormalizesTagLists(t *testing.T) {
	d := newTestDB(t, false)

	id, err := d.CreateCollection(CollectionInput{
		Name:   "Spaced",
		Filter: models.Filter{TagsInclude: " python , api,, python", TagsExclude: " , "},
	})
	require.NoError(t, err)

	c, err := d.GetCollection(id)
	require.NoError(t, err)
	assert.Equal(t, "python,api", c.Filter.TagsInclude)
	assert.Empty(t, c.Filter.TagsExclude)
}

func TestCreateCollectionRejects(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d, err := New(Options{Path: filepath.Join(t.TempDir(), "stash.db"), Logger: zap.New(core)})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	_, err = d.CreateCollection(CollectionInput{Name: "Taken"})
	require.NoError(t, err)

	bad := models.ItemType("IMAGE")
	tests := []struct {
		name string
		in   CollectionInput
		want error
	}{
		{"blank name", CollectionInput{Name: " "}, errs.ErrValidation},
		{"bad item type", CollectionInput{Name: "Images", Filter: models.Filter{ItemType: &bad}}, errs.ErrValidation},
		{"unknown category", CollectionInput{Name: "Ghost", Filter: models.Filter{CategoryID: models.Int64(42)}}, errs.ErrValidation},
		{"bad date", CollectionInput{Name: "Dated", Filter: models.Filter{DateFrom: "yesterday"}}, errs.ErrValidation},
		{"duplicate name", CollectionInput{Name: "Taken"}, errs.ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := logs.FilterLevelExact(zap.WarnLevel).Len()
			_, err := d.CreateCollection(tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before+1, logs.FilterLevelExact(zap.WarnLevel).Len(), "every rejection logs a warning")
		})
	}
}

func TestUpdateCollection(t *testing.T) {
	d := newTestDB(t, false)
	cat := seedCorpus(t, d)

	id, err := d.CreateCollection(CollectionInput{
		Name: "Code",
		Filter: models.Filter{
			ItemType:   models.Type(models.ItemCode),
			IsFavorite: models.Bool(true),
			CategoryID: models.Int64(cat),
		},
	})
	require.NoError(t, err)
	other, err := d.CreateCollection(CollectionInput{Name: "Other"})
	require.NoError(t, err)

	include := "pytest"
	require.NoError(t, d.UpdateCollection(id, CollectionUpdate{
		TagsInclude:      &include,
		IsFavorite:       Clear[bool](),
		IsArchivedFilter: Change(false),
		CategoryID:       Clear[int64](),
	}))

	c, err := d.GetCollection(id)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(models.Filter{
		TagsInclude:      "pytest",
		ItemType:         models.Type(models.ItemCode),
		IsArchivedFilter: models.Bool(false),
	}, c.Filter))

	items, err := d.RunCollection(id)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, itemIDs(items))

	t.Run("invalid item type", func(t *testing.T) {
		err := d.UpdateCollection(id, CollectionUpdate{ItemType: Change(models.ItemType("VIDEO"))})
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("unknown category", func(t *testing.T) {
		err := d.UpdateCollection(id, CollectionUpdate{CategoryID: Change(int64(77))})
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("bad date", func(t *testing.T) {
		bad := "05/11/2025"
		err := d.UpdateCollection(id, CollectionUpdate{DateTo: &bad})
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("name clash", func(t *testing.T) {
		name := "Code"
		err := d.UpdateCollection(other, CollectionUpdate{Name: &name})
		assert.ErrorIs(t, err, errs.ErrDuplicateName)
	})

	t.Run("missing collection", func(t *testing.T) {
		err := d.UpdateCollection(999, CollectionUpdate{TagsInclude: &include})
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	// Failed updates leave the row alone.
	after, err := d.GetCollection(id)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(c.Filter, after.Filter))
}

func TestSearchAndDeleteCollections(t *testing.T) {
	d := newTestDB(t, false)
	a, err := d.CreateCollection(CollectionInput{Name: "Recent Code", Description: "snippets from this week"})
	require.NoError(t, err)
	b, err := d.CreateCollection(CollectionInput{Name: "Links"})
	require.NoError(t, err)

	got, err := d.SearchCollections("WEEK")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a, got[0].ID)

	require.NoError(t, d.SoftDeleteCollection(b))
	active, err := d.ListCollections(true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a, active[0].ID)

	stats, err := d.CollectionStats()
	require.NoError(t, err)
	assert.Equal(t, models.CollectionStats{Total: 2, Active: 1, Inactive: 1}, stats)

	require.NoError(t, d.DeleteCollection(a))
	assert.ErrorIs(t, d.DeleteCollection(a), errs.ErrNotFound)
	_, err = d.RunCollection(a)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = d.CountCollection(a)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRunCollectionMatchesMemoryEvaluation(t *testing.T) {
	d := newTestDB(t, false)
	cat := seedCorpus(t, d)
	for i, in := range []ItemInput{
		{Label: "greeting", Content: "echo hi", Tags: []string{`say"hi`}},
		{Label: "scratch", Content: `C:\tmp\scratch`, Tags: []string{`C:\tmp`, "windows"}, ItemType: models.ItemPath},
	} {
		in.CategoryID = cat
		in.CreatedAt = base.Add(time.Duration(10+i) * time.Hour)
		_, err := d.CreateItem(in)
		require.NoError(t, err)
	}

	corpus, err := d.ListItemsMatching(nil)
	require.NoError(t, err)
	require.Len(t, corpus, 8)
	mem := filter.NewEvaluator(filter.MemorySource(corpus), nil)

	filters := map[string]models.Filter{
		"empty":          {},
		"include or":     {TagsInclude: "python,testing", ItemType: models.Type(models.ItemCode)},
		"include one":    {TagsInclude: "testing", ItemType: models.Type(models.ItemCode)},
		"exclude":        {TagsExclude: "pytest"},
		"exclude many":   {TagsExclude: "pytest, automation"},
		"substring":      {TagsInclude: "test"},
		"favorite":       {IsFavorite: models.Bool(true)},
		"not favorite":   {IsFavorite: models.Bool(false)},
		"sensitive":      {IsSensitive: models.Bool(true)},
		"not archived":   {IsArchivedFilter: models.Bool(false)},
		"active":         {IsActiveFilter: models.Bool(true)},
		"search label":   {SearchText: "pytest"},
		"search content": {SearchText: "hunter"},
		"search case":    {SearchText: "PYTEST"},
		"category":       {CategoryID: models.Int64(cat)},
		"date from":      {DateFrom: "2025-11-05 11:00:00"},
		"date to":        {DateTo: "2025-11-05 10:00:00"},
		"date day":       {DateFrom: "2025-11-05", DateTo: "2025-11-06"},
		"quote tag":      {TagsInclude: `say"hi`},
		"backslash tag":  {TagsInclude: `C:\tmp`},
		"exclude path":   {TagsExclude: `C:\tmp`},
		"list syntax":    {TagsInclude: `"`},
		"bracket":        {TagsExclude: `[`},
		"conjunction": {
			TagsInclude: "python",
			TagsExclude: "automation",
			ItemType:    models.Type(models.ItemCode),
			SearchText:  "cov",
		},
	}

	for name, f := range filters {
		t.Run(name, func(t *testing.T) {
			id, err := d.CreateCollection(CollectionInput{Name: name, Filter: f})
			require.NoError(t, err)

			fromDB, err := d.RunCollection(id)
			require.NoError(t, err)
			fromMem, err := mem.Evaluate(f)
			require.NoError(t, err)
			assert.Equal(t, itemIDs(fromMem), itemIDs(fromDB))

			n, err := d.CountCollection(id)
			require.NoError(t, err)
			assert.Equal(t, len(fromDB), n)
		})
	}

	tagged := func(f models.Filter) []int64 {
		items, err := d.Evaluator().Evaluate(f)
		require.NoError(t, err)
		return itemIDs(items)
	}
	assert.Equal(t, []int64{7}, tagged(models.Filter{TagsInclude: `say"hi`}))
	assert.Equal(t, []int64{8}, tagged(models.Filter{TagsInclude: `C:\tmp`}))
	assert.NotContains(t, tagged(models.Filter{TagsExclude: `C:\tmp`}), int64(8))
	assert.Equal(t, []int64{7}, tagged(models.Filter{TagsInclude: `"`}))
	assert.Len(t, tagged(models.Filter{TagsExclude: `[`}), 8)
}

func TestRunCollectionResults(t *testing.T) {
	d := newTestDB(t, false)
	seedCorpus(t, d)

	tests := []struct {
		name string
		f    models.Filter
		want []int64
	}{
		{"include is a disjunction", models.Filter{TagsInclude: "python,testing", ItemType: models.Type(models.ItemCode)}, []int64{2, 3, 1}},
		{"include one tag", models.Filter{TagsInclude: "testing", ItemType: models.Type(models.ItemCode)}, []int64{2, 1}},
		{"exclude drops tagged", models.Filter{TagsExclude: "pytest"}, []int64{2, 6, 5, 4}},
		{"untagged items pass exclusion", models.Filter{TagsExclude: "python,docs"}, []int64{6}},
		{"nothing matches", models.Filter{TagsInclude: "rust"}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := d.CreateCollection(CollectionInput{Name: tt.name, Filter: tt.f})
			require.NoError(t, err)

			items, err := d.RunCollection(id)
			require.NoError(t, err)
			require.NotNil(t, items)
			assert.Equal(t, tt.want, itemIDs(items))

			again, err := d.RunCollection(id)
			require.NoError(t, err)
			assert.Equal(t, itemIDs(items), itemIDs(again))
		})
	}
}

func TestRunCollectionFollowsUsage(t *testing.T) {
	d := newTestDB(t, false)
	seedCorpus(t, d)

	id, err := d.CreateCollection(CollectionInput{Name: "Code", Filter: models.Filter{ItemType: models.Type(models.ItemCode)}})
	require.NoError(t, err)

	items, err := d.RunCollection(id)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 1}, itemIDs(items))

	require.NoError(t, d.touchItemAt(1, base.Add(72*time.Hour)))
	items, err = d.RunCollection(id)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, itemIDs(items))

	// Deleting items never touches the collection itself.
	require.NoError(t, d.DeleteItem(1))
	items, err = d.RunCollection(id)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, itemIDs(items))
}

func TestListCollectionsWithCount(t *testing.T) {
	d := newTestDB(t, false)
	seedCorpus(t, d)

	_, err := d.CreateCollection(CollectionInput{Name: "Code", Filter: models.Filter{ItemType: models.Type(models.ItemCode)}})
	require.NoError(t, err)
	_, err = d.CreateCollection(CollectionInput{Name: "Favorites", Filter: models.Filter{IsFavorite: models.Bool(true)}})
	require.NoError(t, err)
	_, err = d.CreateCollection(CollectionInput{Name: "Nothing", Filter: models.Filter{SearchText: "zzz"}})
	require.NoError(t, err)

	counts, err := d.ListCollectionsWithCount()
	require.NoError(t, err)
	got := map[string]int{}
	for _, c := range counts {
		assert.NoError(t, c.Err)
		got[c.Name] = c.Count
	}
	assert.Equal(t, map[string]int{"Code": 3, "Favorites": 1, "Nothing": 0}, got)

	// With the items table gone every evaluation fails, and each row says so
	// instead of reporting zero.
	_, err = d.Exec("ALTER TABLE items RENAME TO items_moved")
	require.NoError(t, err)

	counts, err = d.ListCollectionsWithCount()
	require.NoError(t, err)
	require.Len(t, counts, 3)
	for _, c := range counts {
		assert.Equal(t, -1, c.Count, c.Name)
		assert.ErrorIs(t, c.Err, errs.ErrStorageUnavailable, c.Name)
	}

	_, err = d.CountCollection(counts[0].ID)
	assert.ErrorIs(t, err, errs.ErrStorageUnavailable)
}
