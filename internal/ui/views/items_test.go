package views

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tgienger/stash/internal/db"
	"github.com/tgienger/stash/internal/models"
)

func newTestStore(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.New(db.Options{
		Path:   filepath.Join(t.TempDir(), "stash.db"),
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	cat, err := d.CreateCategory("Dev", "")
	require.NoError(t, err)
	base := time.Date(2025, 11, 5, 9, 0, 0, 0, time.UTC)
	for i, in := range []db.ItemInput{
		{Label: "git status", Content: "git status -sb", Tags: []string{"git"}, ItemType: models.ItemCode},
		{Label: "git log", Content: "git log --oneline", Tags: []string{"git"}, ItemType: models.ItemCode},
		{Label: "docs", Content: "https://git-scm.com", Tags: []string{"git", "docs"}, ItemType: models.ItemURL},
	} {
		in.CategoryID = cat
		in.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := d.CreateItem(in)
		require.NoError(t, err)
	}
	return d
}

func labels(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// load runs the view's Init command and feeds the result back in
func load(t *testing.T, v *ItemListView) {
	t.Helper()
	v.Update(v.Init()())
	require.True(t, v.loaded)
	require.NoError(t, v.err)
}

func TestItemListViewCopiesAndReorders(t *testing.T) {
	d := newTestStore(t)

	var copied []string
	orig := copyFunc
	copyFunc = func(s string) error { copied = append(copied, s); return nil }
	t.Cleanup(func() { copyFunc = orig })

	id, err := d.CreateCollection(db.CollectionInput{
		Name:   "Git code",
		Filter: models.Filter{TagsInclude: "git", ItemType: models.Type(models.ItemCode)},
	})
	require.NoError(t, err)

	v := NewItemListView(d, zaptest.NewLogger(t), OpenResults{Title: "Git code", CollectionID: id})
	v.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	load(t, v)
	assert.Equal(t, []string{"git log", "git status"}, labels(v.shown))

	// Copy the second row; it moves to the top once reloaded.
	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"git status -sb"}, copied)
	assert.Contains(t, v.View(), `Copied "git status"`)

	v.Update(cmd())
	assert.Equal(t, []string{"git status", "git log"}, labels(v.shown))

	it, err := d.GetItem(1)
	require.NoError(t, err)
	assert.NotNil(t, it.LastUsed)
}

func TestItemListViewClipboardFailure(t *testing.T) {
	d := newTestStore(t)

	orig := copyFunc
	copyFunc = func(string) error { return errors.New("no display") }
	t.Cleanup(func() { copyFunc = orig })

	v := NewItemListView(d, nil, OpenResults{Title: "All"})
	load(t, v)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.True(t, v.statusError)

	it, err := d.GetItem(3)
	require.NoError(t, err)
	assert.Nil(t, it.LastUsed)
}

func TestItemListViewRefine(t *testing.T) {
	d := newTestStore(t)

	v := NewItemListView(d, nil, OpenResults{Title: "Git", Filter: models.Filter{TagsInclude: "git"}})
	load(t, v)
	assert.Len(t, v.shown, 3)

	v.Update(keyRunes("/"))
	require.True(t, v.searching)
	for _, r := range "log" {
		v.Update(keyRunes(string(r)))
	}
	assert.Equal(t, []string{"git log"}, labels(v.shown))

	// Refining is case sensitive, like collection search text.
	v.searchInput.SetValue("LOG")
	v.refine()
	assert.Empty(t, v.shown)

	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, v.searching)
	v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, v.shown, 3)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackToLists{}, cmd())
}

func TestItemListViewStoreFailure(t *testing.T) {
	d := newTestStore(t)
	v := NewItemListView(d, nil, OpenResults{Title: "Broken", Filter: models.Filter{}})
	require.NoError(t, d.Close())

	v.Update(v.Init()())
	assert.Error(t, v.err)
	assert.Contains(t, v.View(), "Could not evaluate")
}
