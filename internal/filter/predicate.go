// Package filter compiles a collection's criteria into predicates and
// evaluates them against the item store.
//
// Every present field of a models.Filter contributes conjunctive predicates;
// absent fields contribute none. Each predicate carries a parameterized SQL
// fragment for push-down and an in-memory matcher, and the two agree on every
// item.
//
// Tag matching is substring based over each decoded tag: an include or
// exclude tag "api" also hits an item tagged "apiary". Saved collections rely
// on this, so it is kept. The JSON syntax of the stored list never matches.
package filter

import (
	"encoding/json"
	"strings"

	"github.com/tgienger/stash/internal/models"
	"github.com/tgienger/stash/internal/tags"
)

// Predicate is one atomic condition over an item
type Predicate struct {
	Field string // filter field it was built from
	SQL   string // WHERE fragment over the items table
	Args  []any
	Match func(models.Item) bool
}

// builder turns one filter field into its predicates, or nil when the field
// is absent.
type builder func(models.Filter) []Predicate

// builders run in a fixed order so compiled queries are stable.
var builders = []builder{
	byCategory,
	byItemType,
	byFavorite,
	bySensitive,
	byActive,
	byArchived,
	bySearchText,
	byTagsInclude,
	byTagsExclude,
	byDateFrom,
	byDateTo,
}

// Compile folds the builders over f. An empty filter compiles to no
// predicates and matches every item.
func Compile(f models.Filter) []Predicate {
	var preds []Predicate
	for _, build := range builders {
		preds = append(preds, build(f)...)
	}
	return preds
}

// Where joins preds into a single AND clause and its arguments. It returns
// an empty clause for no predicates.
func Where(preds []Predicate) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}
	clauses := make([]string, len(preds))
	var args []any
	for i, p := range preds {
		clauses[i] = p.SQL
		args = append(args, p.Args...)
	}
	return strings.Join(clauses, " AND "), args
}

// Matches reports whether item satisfies every predicate
func Matches(preds []Predicate, item models.Item) bool {
	for _, p := range preds {
		if !p.Match(item) {
			return false
		}
	}
	return true
}

// Fields names the fields that produced preds, in order
func Fields(preds []Predicate) []string {
	names := make([]string, len(preds))
	for i, p := range preds {
		names[i] = p.Field
	}
	return names
}

func byCategory(f models.Filter) []Predicate {
	if f.CategoryID == nil {
		return nil
	}
	id := *f.CategoryID
	return []Predicate{{
		Field: "category_id",
		SQL:   "category_id = ?",
		Args:  []any{id},
		Match: func(it models.Item) bool { return it.CategoryID == id },
	}}
}

func byItemType(f models.Filter) []Predicate {
	if f.ItemType == nil {
		return nil
	}
	t := *f.ItemType
	return []Predicate{{
		Field: "item_type",
		SQL:   "item_type = ?",
		Args:  []any{string(t)},
		Match: func(it models.Item) bool { return it.ItemType == t },
	}}
}

func byFavorite(f models.Filter) []Predicate {
	return flag("is_favorite", f.IsFavorite, func(it models.Item) bool { return it.IsFavorite })
}

func bySensitive(f models.Filter) []Predicate {
	return flag("is_sensitive", f.IsSensitive, func(it models.Item) bool { return it.IsSensitive })
}

func byActive(f models.Filter) []Predicate {
	return flag("is_active", f.IsActiveFilter, func(it models.Item) bool { return it.IsActive })
}

func byArchived(f models.Filter) []Predicate {
	return flag("is_archived", f.IsArchivedFilter, func(it models.Item) bool { return it.IsArchived })
}

// flag handles the tri-state booleans: nil means unconstrained, not false.
func flag(column string, want *bool, get func(models.Item) bool) []Predicate {
	if want == nil {
		return nil
	}
	v := *want
	return []Predicate{{
		Field: column,
		SQL:   column + " = ?",
		Args:  []any{v},
		Match: func(it models.Item) bool { return get(it) == v },
	}}
}

// bySearchText matches label or content. instr is case-sensitive, unlike
// LIKE, which keeps SQL and strings.Contains in step.
func bySearchText(f models.Filter) []Predicate {
	if f.SearchText == "" {
		return nil
	}
	q := f.SearchText
	return []Predicate{{
		Field: "search_text",
		SQL:   "(instr(label, ?) > 0 OR instr(content, ?) > 0)",
		Args:  []any{q, q},
		Match: func(it models.Item) bool {
			return strings.Contains(it.Label, q) || strings.Contains(it.Content, q)
		},
	}}
}

// byTagsInclude builds one disjunction: the item needs at least one tag.
func byTagsInclude(f models.Filter) []Predicate {
	list := tags.Split(f.TagsInclude)
	if len(list) == 0 {
		return nil
	}
	conds := make([]string, len(list))
	args := make([]any, len(list))
	for i, tag := range list {
		conds[i] = "instr(t.value, ?) > 0"
		args[i] = tag
	}
	return []Predicate{{
		Field: "tags_include",
		SQL:   "EXISTS (SELECT 1 FROM json_each(items.tags) AS t WHERE " + strings.Join(conds, " OR ") + ")",
		Args:  args,
		Match: func(it models.Item) bool {
			for _, tag := range list {
				if hasTag(it, tag) {
					return true
				}
			}
			return false
		},
	}}
}

// byTagsExclude builds one AND-NOT clause per excluded tag. Items without
// tags pass every exclusion.
func byTagsExclude(f models.Filter) []Predicate {
	list := tags.Split(f.TagsExclude)
	if len(list) == 0 {
		return nil
	}
	preds := make([]Predicate, len(list))
	for i, tag := range list {
		preds[i] = Predicate{
			Field: "tags_exclude",
			SQL:   "NOT EXISTS (SELECT 1 FROM json_each(items.tags) AS t WHERE instr(t.value, ?) > 0)",
			Args:  []any{tag},
			Match: func(it models.Item) bool { return !hasTag(it, tag) },
		}
	}
	return preds
}

// hasTag reports whether any of the item's decoded tags contains sub.
// Matching runs on tag values, never on the JSON text around them.
func hasTag(it models.Item, sub string) bool {
	for _, tag := range ItemTags(it) {
		if strings.Contains(tag, sub) {
			return true
		}
	}
	return false
}

// ItemTags decodes the stored JSON tag list of an item. Untagged items and
// unreadable lists yield nil.
func ItemTags(it models.Item) []string {
	if it.Tags == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(it.Tags), &list); err != nil {
		return nil
	}
	return list
}

func byDateFrom(f models.Filter) []Predicate {
	if f.DateFrom == "" {
		return nil
	}
	from := f.DateFrom
	return []Predicate{{
		Field: "date_from",
		SQL:   "created_at >= ?",
		Args:  []any{from},
		Match: func(it models.Item) bool { return createdText(it) >= from },
	}}
}

func byDateTo(f models.Filter) []Predicate {
	if f.DateTo == "" {
		return nil
	}
	to := f.DateTo
	return []Predicate{{
		Field: "date_to",
		SQL:   "created_at <= ?",
		Args:  []any{to},
		Match: func(it models.Item) bool { return createdText(it) <= to },
	}}
}

func createdText(it models.Item) string {
	return it.CreatedAt.UTC().Format(models.TimestampLayout)
}
