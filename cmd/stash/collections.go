package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tgienger/stash/internal/db"
	"github.com/tgienger/stash/internal/models"
)

func newCollectionsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"c"},
		Short:   "Manage smart collections",
		Long: `Smart collections are saved filters, evaluated every time they run.

Examples:
  stash collections add "Pytest" --include python,testing --type CODE
  stash collections run Pytest
  stash collections update 2 --clear type --favorite=true`,
	}

	cmd.AddCommand(
		newCollectionsListCommand(e),
		newCollectionsAddCommand(e),
		newCollectionsUpdateCommand(e),
		newCollectionsRemoveCommand(e),
		newCollectionsRunCommand(e),
		newCollectionsCountCommand(e),
		newCollectionsStatsCommand(e),
	)
	return cmd
}

// resolveCollection accepts a collection id or an exact name
func resolveCollection(d *db.DB, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}
	c, err := d.GetCollectionByName(ref)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func newCollectionsListCommand(e *env) *cobra.Command {
	var (
		activeOnly bool
		search     string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List collections with live item counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := e.db.ListCollectionsWithCount()
			if err != nil {
				return err
			}

			var keep map[int64]bool
			if search != "" {
				found, err := e.db.SearchCollections(search)
				if err != nil {
					return err
				}
				keep = make(map[int64]bool, len(found))
				for _, c := range found {
					keep[c.ID] = true
				}
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tITEMS\tACTIVE\tDESCRIPTION")
			for _, r := range rows {
				if activeOnly && !r.IsActive {
					continue
				}
				if keep != nil && !keep[r.ID] {
					continue
				}
				count := strconv.Itoa(r.Count)
				if r.Err != nil {
					count = "error"
				}
				fmt.Fprintf(w, "%d\t%s %s\t%s\t%s\t%s\n",
					r.ID, r.Icon, r.Name, count, yesNo(r.IsActive), truncate(r.Description, 40))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active collections")
	cmd.Flags().StringVarP(&search, "search", "s", "", "match name or description")
	return cmd
}

func newCollectionsAddCommand(e *env) *cobra.Command {
	var (
		in collectionFlags
		ff filterFlags
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Save a new collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filter(cmd, e.db)
			if err != nil {
				return err
			}
			id, err := e.db.CreateCollection(db.CollectionInput{
				Name:        args[0],
				Description: in.description,
				Icon:        in.icon,
				Color:       in.color,
				Filter:      f,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created collection %d\n", id)
			return nil
		},
	}

	in.bind(cmd)
	ff.bind(cmd)
	return cmd
}

// collectionFlags holds the display fields of a collection
type collectionFlags struct {
	name, description, icon, color string
	active                         bool
}

func (c *collectionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.description, "description", "d", "", "description")
	cmd.Flags().StringVar(&c.icon, "icon", "", "icon")
	cmd.Flags().StringVar(&c.color, "color", "", "hex color")
}

func newCollectionsUpdateCommand(e *env) *cobra.Command {
	var (
		in          collectionFlags
		ff          filterFlags
		clearFields []string
	)

	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Change fields of a collection",
		Long: `Only the flags given are changed. --clear removes a constraint:
  stash collections update 4 --clear type,favorite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveCollection(e.db, args[0])
			if err != nil {
				return err
			}
			u, err := buildCollectionUpdate(cmd, e.db, &in, &ff, clearFields)
			if err != nil {
				return err
			}
			if err := e.db.UpdateCollection(id, u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated collection %d\n", id)
			return nil
		},
	}

	in.bind(cmd)
	ff.bind(cmd)
	cmd.Flags().StringVar(&in.name, "name", "", "new name")
	cmd.Flags().BoolVar(&in.active, "active", true, "active state of the collection")
	cmd.Flags().StringSliceVar(&clearFields, "clear", nil,
		"constraints to remove: include, exclude, category, type, favorite, sensitive, active-items, archived, search, from, to")
	return cmd
}

// buildCollectionUpdate maps changed flags onto a CollectionUpdate
func buildCollectionUpdate(cmd *cobra.Command, d *db.DB, in *collectionFlags, ff *filterFlags, clearFields []string) (db.CollectionUpdate, error) {
	var u db.CollectionUpdate
	fs := cmd.Flags()
	empty := ""

	if fs.Changed("name") {
		u.Name = &in.name
	}
	if fs.Changed("description") {
		u.Description = &in.description
	}
	if fs.Changed("icon") {
		u.Icon = &in.icon
	}
	if fs.Changed("color") {
		u.Color = &in.color
	}
	if fs.Changed("active") {
		u.IsActive = &in.active
	}

	f, err := ff.filter(cmd, d)
	if err != nil {
		return u, err
	}
	if fs.Changed("include") {
		u.TagsInclude = &f.TagsInclude
	}
	if fs.Changed("exclude") {
		u.TagsExclude = &f.TagsExclude
	}
	if fs.Changed("search") {
		u.SearchText = &f.SearchText
	}
	if fs.Changed("from") {
		u.DateFrom = &f.DateFrom
	}
	if fs.Changed("to") {
		u.DateTo = &f.DateTo
	}
	if f.CategoryID != nil {
		u.CategoryID = db.Change(*f.CategoryID)
	}
	if f.ItemType != nil {
		u.ItemType = db.Change(*f.ItemType)
	}
	for _, b := range []struct {
		value *bool
		opt   *db.Opt[bool]
	}{
		{f.IsFavorite, &u.IsFavorite},
		{f.IsSensitive, &u.IsSensitive},
		{f.IsActiveFilter, &u.IsActiveFilter},
		{f.IsArchivedFilter, &u.IsArchivedFilter},
	} {
		if b.value != nil {
			*b.opt = db.Change(*b.value)
		}
	}

	for _, field := range clearFields {
		switch strings.TrimSpace(field) {
		case "include":
			u.TagsInclude = &empty
		case "exclude":
			u.TagsExclude = &empty
		case "search":
			u.SearchText = &empty
		case "from":
			u.DateFrom = &empty
		case "to":
			u.DateTo = &empty
		case "category":
			u.CategoryID = db.Clear[int64]()
		case "type":
			u.ItemType = db.Clear[models.ItemType]()
		case "favorite":
			u.IsFavorite = db.Clear[bool]()
		case "sensitive":
			u.IsSensitive = db.Clear[bool]()
		case "active-items":
			u.IsActiveFilter = db.Clear[bool]()
		case "archived":
			u.IsArchivedFilter = db.Clear[bool]()
		default:
			return u, fmt.Errorf("unknown field %q for --clear", field)
		}
	}
	return u, nil
}

func newCollectionsRemoveCommand(e *env) *cobra.Command {
	var soft bool

	cmd := &cobra.Command{
		Use:     "rm <id|name>",
		Aliases: []string{"delete"},
		Short:   "Delete a collection; items are untouched",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveCollection(e.db, args[0])
			if err != nil {
				return err
			}
			if soft {
				err = e.db.SoftDeleteCollection(id)
			} else {
				err = e.db.DeleteCollection(id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed collection %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&soft, "soft", false, "mark inactive instead of deleting")
	return cmd
}

func newCollectionsRunCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "run <id|name>",
		Short: "Evaluate a collection and list its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveCollection(e.db, args[0])
			if err != nil {
				return err
			}
			items, err := e.db.RunCollection(id)
			if err != nil {
				return err
			}
			printItems(cmd.OutOrStdout(), items)
			return nil
		},
	}
}

func newCollectionsCountCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "count <id|name>",
		Short: "Print how many items a collection currently matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveCollection(e.db, args[0])
			if err != nil {
				return err
			}
			n, err := e.db.CountCollection(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newCollectionsStatsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.db.CollectionStats()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total:    %d\nActive:   %d\nInactive: %d\n", s.Total, s.Active, s.Inactive)
			return nil
		},
	}
}
