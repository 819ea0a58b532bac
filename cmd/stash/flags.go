package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/tgienger/stash/internal/db"
	"github.com/tgienger/stash/internal/models"
)

// filterFlags binds the collection filter fields to command flags. Boolean
// fields only constrain when the flag was given.
type filterFlags struct {
	include, exclude string
	category         string
	itemType         string
	favorite         bool
	sensitive        bool
	activeItems      bool
	archived         bool
	search           string
	from, to         string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.include, "include", "", "items with any of these tags (comma separated)")
	fs.StringVar(&f.exclude, "exclude", "", "drop items with any of these tags")
	fs.StringVar(&f.category, "category", "", "category name or id")
	fs.StringVar(&f.itemType, "type", "", "item type: TEXT, URL, CODE or PATH")
	fs.BoolVar(&f.favorite, "favorite", false, "favorite flag must equal this")
	fs.BoolVar(&f.sensitive, "sensitive", false, "sensitive flag must equal this")
	fs.BoolVar(&f.activeItems, "active-items", false, "item active flag must equal this")
	fs.BoolVar(&f.archived, "archived", false, "archived flag must equal this")
	fs.StringVar(&f.search, "search", "", "label or content contains (case sensitive)")
	fs.StringVar(&f.from, "from", "", "created on or after (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "created on or before (YYYY-MM-DD)")
}

// filter builds the models.Filter for the flags that were set
func (f *filterFlags) filter(cmd *cobra.Command, d *db.DB) (models.Filter, error) {
	out := models.Filter{
		TagsInclude: f.include,
		TagsExclude: f.exclude,
		SearchText:  f.search,
		DateFrom:    f.from,
		DateTo:      f.to,
	}
	if f.category != "" {
		id, err := resolveCategory(d, f.category)
		if err != nil {
			return out, err
		}
		out.CategoryID = &id
	}
	if f.itemType != "" {
		out.ItemType = models.Type(models.ItemType(strings.ToUpper(f.itemType)))
	}

	fs := cmd.Flags()
	if fs.Changed("favorite") {
		out.IsFavorite = models.Bool(f.favorite)
	}
	if fs.Changed("sensitive") {
		out.IsSensitive = models.Bool(f.sensitive)
	}
	if fs.Changed("active-items") {
		out.IsActiveFilter = models.Bool(f.activeItems)
	}
	if fs.Changed("archived") {
		out.IsArchivedFilter = models.Bool(f.archived)
	}
	return out, nil
}

// resolveCategory accepts a category id or an exact name
func resolveCategory(d *db.DB, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}
	cats, err := d.ListCategories()
	if err != nil {
		return 0, err
	}
	for _, c := range cats {
		if c.Name == ref {
			return c.ID, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", ref)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

// printItems renders evaluation results, most recently used first
func printItems(w io.Writer, items []models.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No matching items.")
		return
	}
	t := newTable(w)
	fmt.Fprintln(t, "ID\tTYPE\tLABEL\tTAGS\tLAST USED")
	for _, it := range items {
		used := "never"
		if it.LastUsed != nil {
			used = it.LastUsed.Format(models.TimestampLayout)
		}
		fmt.Fprintf(t, "%d\t%s\t%s\t%s\t%s\n", it.ID, it.ItemType, truncate(it.Label, 30), truncate(it.Tags, 40), used)
	}
	t.Flush()
}
