package db

import (
	"database/sql"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tgienger/stash/internal/errs"
	"github.com/tgienger/stash/internal/filter"
	"github.com/tgienger/stash/internal/models"
	"github.com/tgienger/stash/internal/tags"
)

const (
	defaultGroupColor = "#007acc"
	defaultGroupIcon  = "🏷️"

	tagGroupColumns = "id, name, description, tags, color, icon, is_active, created_at, updated_at"
)

// TagGroupInput holds the fields of a new tag group. Tags is the raw comma
// list; nil IsActive means active.
type TagGroupInput struct {
	Name        string
	Tags        string
	Description string
	Color       string
	Icon        string
	IsActive    *bool
}

// TagGroupUpdate lists the fields UpdateTagGroup may change. Nil fields are
// left alone.
type TagGroupUpdate struct {
	Name        *string
	Description *string
	Tags        *string
	Color       *string
	Icon        *string
	IsActive    *bool
}

// CreateTagGroup creates a new tag group and returns its ID. Tags are
// trimmed and deduplicated before storage.
func (db *DB) CreateTagGroup(in TagGroupInput) (int64, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		db.log.Warn("tag group rejected", zap.String("reason", "name is required"))
		return 0, errs.Validation("name is required")
	}

	list, err := tags.Clean(in.Tags)
	if err != nil {
		db.log.Warn("tag group rejected", zap.String("name", name), zap.Error(err))
		return 0, err
	}

	color := in.Color
	if color == "" {
		color = defaultGroupColor
	}
	icon := in.Icon
	if icon == "" {
		icon = defaultGroupIcon
	}
	active := in.IsActive == nil || *in.IsActive

	result, err := db.Exec(`
		INSERT INTO tag_groups (name, description, tags, color, icon, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, name, nullString(in.Description), tags.Join(list), color, icon, active)
	if err != nil {
		if isUniqueViolation(err) {
			db.log.Warn("tag group name already exists", zap.String("name", name))
			return 0, errs.Duplicate("tag group", name)
		}
		db.log.Error("failed to create tag group", zap.String("name", name), zap.Error(err))
		return 0, errs.Storage("create tag group", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errs.Storage("create tag group", err)
	}

	db.log.Info("tag group created", zap.Int64("id", id), zap.String("name", name))
	return id, nil
}

// GetTagGroup retrieves a tag group by ID
func (db *DB) GetTagGroup(id int64) (*models.TagGroup, error) {
	row := db.QueryRow("SELECT "+tagGroupColumns+" FROM tag_groups WHERE id = ?", id)
	g, err := scanTagGroup(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("tag group", id)
	}
	if err != nil {
		return nil, errs.Storage("get tag group", err)
	}
	return g, nil
}

// GetTagGroupByName retrieves a tag group by its exact name
func (db *DB) GetTagGroupByName(name string) (*models.TagGroup, error) {
	row := db.QueryRow("SELECT "+tagGroupColumns+" FROM tag_groups WHERE name = ?", name)
	g, err := scanTagGroup(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("tag group", name)
	}
	if err != nil {
		return nil, errs.Storage("get tag group", err)
	}
	return g, nil
}

// ListTagGroups returns tag groups ordered by name
func (db *DB) ListTagGroups(activeOnly bool) ([]models.TagGroup, error) {
	query := "SELECT " + tagGroupColumns + " FROM tag_groups"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY name"
	return db.queryTagGroups(query)
}

// SearchTagGroups returns groups whose name, description or tags contain
// query, ignoring case. A blank query lists every group.
func (db *DB) SearchTagGroups(query string) ([]models.TagGroup, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return db.ListTagGroups(false)
	}

	p := likePattern(query)
	return db.queryTagGroups(`
		SELECT `+tagGroupColumns+` FROM tag_groups
		WHERE name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\'
		ORDER BY name
	`, p, p, p)
}

func (db *DB) queryTagGroups(query string, args ...any) ([]models.TagGroup, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errs.Storage("list tag groups", err)
	}
	defer rows.Close()

	var groups []models.TagGroup
	for rows.Next() {
		g, err := scanTagGroup(rows)
		if err != nil {
			return nil, errs.Storage("list tag groups", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("list tag groups", err)
	}
	return groups, nil
}

// UpdateTagGroup applies the non-nil fields of u. Supplied tags are
// re-validated and deduplicated; a blank name is ignored.
func (db *DB) UpdateTagGroup(id int64, u TagGroupUpdate) error {
	var (
		sets []string
		args []any
	)

	if u.Name != nil {
		if name := strings.TrimSpace(*u.Name); name != "" {
			sets = append(sets, "name = ?")
			args = append(args, name)
		}
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*u.Description))
	}
	if u.Tags != nil {
		list, err := tags.Clean(*u.Tags)
		if err != nil {
			db.log.Warn("tag group update rejected", zap.Int64("id", id), zap.Error(err))
			return err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags.Join(list))
	}
	if u.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *u.Color)
	}
	if u.Icon != nil {
		sets = append(sets, "icon = ?")
		args = append(args, *u.Icon)
	}
	if u.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *u.IsActive)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	result, err := db.Exec("UPDATE tag_groups SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if isUniqueViolation(err) {
			db.log.Warn("tag group name conflict during update", zap.Int64("id", id))
			return errs.Duplicate("tag group", *u.Name)
		}
		db.log.Error("failed to update tag group", zap.Int64("id", id), zap.Error(err))
		return errs.Storage("update tag group", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFound("tag group", id)
	}

	db.log.Info("tag group updated", zap.Int64("id", id))
	return nil
}

// DeleteTagGroup removes a tag group. Items keep their tags.
func (db *DB) DeleteTagGroup(id int64) error {
	result, err := db.Exec("DELETE FROM tag_groups WHERE id = ?", id)
	if err != nil {
		db.log.Error("failed to delete tag group", zap.Int64("id", id), zap.Error(err))
		return errs.Storage("delete tag group", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		db.log.Warn("tag group not found for deletion", zap.Int64("id", id))
		return errs.NotFound("tag group", id)
	}

	db.log.Info("tag group deleted", zap.Int64("id", id))
	return nil
}

// SoftDeleteTagGroup marks a tag group inactive
func (db *DB) SoftDeleteTagGroup(id int64) error {
	inactive := false
	return db.UpdateTagGroup(id, TagGroupUpdate{IsActive: &inactive})
}

// TagGroupTags returns the individual tags of a group in stored order
func (db *DB) TagGroupTags(id int64) ([]string, error) {
	g, err := db.GetTagGroup(id)
	if err != nil {
		return nil, err
	}
	return g.Tags, nil
}

// TagGroupUsage counts the distinct items whose tags contain any of the
// group's tags as a substring. It scans every item.
func (db *DB) TagGroupUsage(id int64) (int, error) {
	g, err := db.GetTagGroup(id)
	if err != nil {
		return 0, err
	}
	if len(g.Tags) == 0 {
		return 0, nil
	}

	count, err := db.countItemsMatching(filter.Compile(models.Filter{TagsInclude: tags.Join(g.Tags)}))
	if err != nil {
		db.log.Error("failed to count tag group usage", zap.Int64("id", id), zap.Error(err))
		return 0, err
	}
	db.log.Debug("tag group usage counted", zap.Int64("id", id), zap.Int("count", count))
	return count, nil
}

// ListTagGroupsWithUsage returns every tag group with its usage count
func (db *DB) ListTagGroupsWithUsage() ([]models.TagGroupUsage, error) {
	groups, err := db.ListTagGroups(false)
	if err != nil {
		return nil, err
	}

	out := make([]models.TagGroupUsage, len(groups))
	for i, g := range groups {
		usage, err := db.TagGroupUsage(g.ID)
		if err != nil {
			return nil, err
		}
		out[i] = models.TagGroupUsage{TagGroup: g, Usage: usage}
	}
	return out, nil
}

// TagGroupStats summarizes the catalog
func (db *DB) TagGroupStats() (models.TagGroupStats, error) {
	var stats models.TagGroupStats

	err := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0)
		FROM tag_groups
	`).Scan(&stats.Total, &stats.Active)
	if err != nil {
		return stats, errs.Storage("tag group statistics", err)
	}
	stats.Inactive = stats.Total - stats.Active

	active, err := db.ListTagGroups(true)
	if err != nil {
		return stats, err
	}
	seen := map[string]struct{}{}
	for _, g := range active {
		for _, tag := range g.Tags {
			seen[tag] = struct{}{}
		}
	}
	stats.UniqueTags = make([]string, 0, len(seen))
	for tag := range seen {
		stats.UniqueTags = append(stats.UniqueTags, tag)
	}
	sort.Strings(stats.UniqueTags)

	return stats, nil
}

func scanTagGroup(s scanner) (*models.TagGroup, error) {
	var (
		g           models.TagGroup
		description sql.NullString
		rawTags     string
		color, icon sql.NullString
	)
	err := s.Scan(&g.ID, &g.Name, &description, &rawTags, &color, &icon, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Description = description.String
	g.Color = color.String
	g.Icon = icon.String
	g.Tags = tags.Split(rawTags)
	return &g, nil
}
