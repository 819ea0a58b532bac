package filter

import (
	"sort"

	"github.com/tgienger/stash/internal/models"
)

// OrderBy is the SQL ordering of evaluation results: most recently used
// first with never-used items last, then newest first. id breaks ties so
// repeated evaluations return the same sequence.
const OrderBy = "last_used IS NULL, last_used DESC, created_at DESC, id DESC"

// Less reports whether a sorts before b under OrderBy
func Less(a, b models.Item) bool {
	switch {
	case a.LastUsed != nil && b.LastUsed == nil:
		return true
	case a.LastUsed == nil && b.LastUsed != nil:
		return false
	case a.LastUsed != nil && !a.LastUsed.Equal(*b.LastUsed):
		return a.LastUsed.After(*b.LastUsed)
	case !a.CreatedAt.Equal(b.CreatedAt):
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Sort orders items in place under OrderBy
func Sort(items []models.Item) {
	sort.SliceStable(items, func(i, j int) bool { return Less(items[i], items[j]) })
}
