package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/tgienger/stash/internal/db"
	"github.com/tgienger/stash/internal/models"
	"github.com/tgienger/stash/internal/tags"
)

// copyToClipboard is swapped out in tests
var copyToClipboard = clipboard.WriteAll

func newItemsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"i"},
		Short:   "Add, filter and copy snippets",
	}

	cmd.AddCommand(
		newItemsAddCommand(e),
		newItemsListCommand(e),
		newItemsCopyCommand(e),
		newItemsRemoveCommand(e),
	)
	return cmd
}

func newItemsAddCommand(e *env) *cobra.Command {
	var (
		in       db.ItemInput
		category string
		tagList  string
		itemType string
	)

	cmd := &cobra.Command{
		Use:   "add <label> <content>",
		Short: "Store a snippet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveCategory(e.db, category)
			if err != nil {
				return err
			}
			in.CategoryID = id
			in.Label, in.Content = args[0], args[1]
			in.Tags = tags.Normalize(tagList)
			in.ItemType = models.ItemType(strings.ToUpper(itemType))

			itemID, err := e.db.CreateItem(in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created item %d\n", itemID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category name or id (required)")
	cmd.Flags().StringVarP(&tagList, "tags", "t", "", "comma separated tags")
	cmd.Flags().StringVar(&itemType, "type", string(models.ItemText), "TEXT, URL, CODE or PATH")
	cmd.Flags().BoolVar(&in.IsFavorite, "favorite", false, "mark as favorite")
	cmd.Flags().BoolVar(&in.IsSensitive, "sensitive", false, "hide content in listings")
	cmd.Flags().BoolVar(&in.IsArchived, "archived", false, "store as archived")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newItemsListCommand(e *env) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Evaluate an unsaved filter against all items",
		Long: `Takes the same filter flags as "collections add" without saving
anything, so a collection can be tried out first.

  stash items list --include python,testing --type CODE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filter(cmd, e.db)
			if err != nil {
				return err
			}
			items, err := e.db.Evaluator().Evaluate(f)
			if err != nil {
				return err
			}
			printItems(cmd.OutOrStdout(), items)
			return nil
		},
	}

	ff.bind(cmd)
	return cmd
}

func newItemsCopyCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Copy a snippet to the clipboard and mark it used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			it, err := e.db.GetItem(id)
			if err != nil {
				return err
			}
			if err := copyToClipboard(it.Content); err != nil {
				return fmt.Errorf("clipboard unavailable: %w", err)
			}
			if err := e.db.TouchItem(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %q\n", it.Label)
			return nil
		},
	}
}

func newItemsRemoveCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a snippet",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.db.DeleteItem(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d\n", id)
			return nil
		},
	}
}

func newCategoriesCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage item categories",
	}

	var icon string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := e.db.CreateCategory(args[0], icon)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category %d\n", id)
			return nil
		},
	}
	add.Flags().StringVar(&icon, "icon", "", "icon")

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := e.db.ListCategories()
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME")
			for _, c := range cats {
				fmt.Fprintf(w, "%d\t%s %s\n", c.ID, c.Icon, c.Name)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
