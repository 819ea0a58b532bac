package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tgienger/stash/internal/db"
	"github.com/tgienger/stash/internal/models"
	"github.com/tgienger/stash/internal/tags"
)

func newGroupsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"g"},
		Short:   "Manage tag groups",
		Long: `Tag groups are named bundles of tags.

Examples:
  stash groups add "Python Backend" --tags python,fastapi,api
  stash groups list --active
  stash groups usage 3`,
	}

	cmd.AddCommand(
		newGroupsListCommand(e),
		newGroupsShowCommand(e),
		newGroupsAddCommand(e),
		newGroupsUpdateCommand(e),
		newGroupsRemoveCommand(e),
		newGroupsUsageCommand(e),
		newGroupsValidateCommand(),
		newGroupsStatsCommand(e),
	)
	return cmd
}

func newGroupsListCommand(e *env) *cobra.Command {
	var (
		activeOnly bool
		search     string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tag groups with usage counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []models.TagGroupUsage
			if search != "" {
				groups, err := e.db.SearchTagGroups(search)
				if err != nil {
					return err
				}
				for _, g := range groups {
					n, err := e.db.TagGroupUsage(g.ID)
					if err != nil {
						return err
					}
					rows = append(rows, models.TagGroupUsage{TagGroup: g, Usage: n})
				}
			} else {
				var err error
				if rows, err = e.db.ListTagGroupsWithUsage(); err != nil {
					return err
				}
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tTAGS\tITEMS\tACTIVE")
			for _, r := range rows {
				if activeOnly && !r.IsActive {
					continue
				}
				fmt.Fprintf(w, "%d\t%s %s\t%s\t%d\t%s\n",
					r.ID, r.Icon, r.Name, truncate(tags.Join(r.Tags), 40), r.Usage, yesNo(r.IsActive))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active groups")
	cmd.Flags().StringVarP(&search, "search", "s", "", "match name, description or tags")
	return cmd
}

func newGroupsShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the tags of a group, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, err := e.db.TagGroupTags(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(list, "\n"))
			return nil
		},
	}
}

func newGroupsAddCommand(e *env) *cobra.Command {
	var in db.TagGroupInput

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			id, err := e.db.CreateTagGroup(in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tag group %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Tags, "tags", "t", "", "comma separated tags (required)")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "description")
	cmd.Flags().StringVar(&in.Color, "color", "", "hex color")
	cmd.Flags().StringVar(&in.Icon, "icon", "", "icon")
	_ = cmd.MarkFlagRequired("tags")
	return cmd
}

func newGroupsUpdateCommand(e *env) *cobra.Command {
	var (
		name, tagList, description, color, icon string
		active                                  bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a tag group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var u db.TagGroupUpdate
			fs := cmd.Flags()
			if fs.Changed("name") {
				u.Name = &name
			}
			if fs.Changed("tags") {
				u.Tags = &tagList
			}
			if fs.Changed("description") {
				u.Description = &description
			}
			if fs.Changed("color") {
				u.Color = &color
			}
			if fs.Changed("icon") {
				u.Icon = &icon
			}
			if fs.Changed("active") {
				u.IsActive = &active
			}

			if err := e.db.UpdateTagGroup(id, u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated tag group %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVarP(&tagList, "tags", "t", "", "replace tags")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description")
	cmd.Flags().StringVar(&color, "color", "", "hex color")
	cmd.Flags().StringVar(&icon, "icon", "", "icon")
	cmd.Flags().BoolVar(&active, "active", true, "active state")
	return cmd
}

func newGroupsRemoveCommand(e *env) *cobra.Command {
	var soft bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a tag group; items keep their tags",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if soft {
				err = e.db.SoftDeleteTagGroup(id)
			} else {
				err = e.db.DeleteTagGroup(id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed tag group %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&soft, "soft", false, "mark inactive instead of deleting")
	return cmd
}

func newGroupsUsageCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <id>",
		Short: "Count items carrying any tag of the group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := e.db.TagGroupUsage(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newGroupsValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <tags>",
		Short: "Check a comma separated tag list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, msg := tags.Validate(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			if !ok {
				return fmt.Errorf("invalid tags")
			}
			return nil
		},
	}
}

func newGroupsStatsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize tag groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.db.TagGroupStats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:    %d\nActive:   %d\nInactive: %d\n", s.Total, s.Active, s.Inactive)
			fmt.Fprintf(out, "Unique tags (%d): %s\n", len(s.UniqueTags), strings.Join(s.UniqueTags, ", "))
			return nil
		},
	}
}
