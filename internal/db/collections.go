package db

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tgienger/stash/internal/errs"
	"github.com/tgienger/stash/internal/models"
	"github.com/tgienger/stash/internal/tags"
)

const (
	defaultCollectionColor = "#00d4ff"
	defaultCollectionIcon  = "🔍"

	collectionColumns = `id, name, description, icon, color,
		tags_include, tags_exclude, category_id, item_type,
		is_favorite, is_sensitive, is_active_filter, is_archived_filter,
		search_text, date_from, date_to, created_at, updated_at, is_active`
)

// dateLayouts are the accepted forms of a collection date bound
var dateLayouts = []string{"2006-01-02", models.TimestampLayout}

// CollectionInput holds the fields of a new collection. Nil IsActive means
// active.
type CollectionInput struct {
	Name        string
	Description string
	Icon        string
	Color       string
	Filter      models.Filter
	IsActive    *bool
}

// Opt is an update to a nullable column. The zero value leaves the column
// alone; Set with a nil Value stores NULL.
type Opt[T any] struct {
	Set   bool
	Value *T
}

// Change returns an Opt storing v
func Change[T any](v T) Opt[T] {
	return Opt[T]{Set: true, Value: &v}
}

// Clear returns an Opt storing NULL
func Clear[T any]() Opt[T] {
	return Opt[T]{Set: true}
}

// CollectionUpdate lists the fields UpdateCollection may change. For the
// string filter fields an empty value clears the constraint.
type CollectionUpdate struct {
	Name        *string
	Description *string
	Icon        *string
	Color       *string
	IsActive    *bool

	TagsInclude *string
	TagsExclude *string
	SearchText  *string
	DateFrom    *string
	DateTo      *string

	CategoryID       Opt[int64]
	ItemType         Opt[models.ItemType]
	IsFavorite       Opt[bool]
	IsSensitive      Opt[bool]
	IsActiveFilter   Opt[bool]
	IsArchivedFilter Opt[bool]
}

// CreateCollection validates and stores a new collection
func (db *DB) CreateCollection(in CollectionInput) (int64, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		err := errs.Validation("name is required")
		db.log.Warn("collection rejected", zap.String("name", in.Name), zap.Error(err))
		return 0, err
	}

	f := in.Filter
	if err := db.validateFilter(f); err != nil {
		db.log.Warn("collection rejected", zap.String("name", name), zap.Error(err))
		return 0, err
	}

	color := in.Color
	if color == "" {
		color = defaultCollectionColor
	}
	icon := in.Icon
	if icon == "" {
		icon = defaultCollectionIcon
	}
	active := in.IsActive == nil || *in.IsActive

	result, err := db.Exec(`
		INSERT INTO smart_collections (name, description, icon, color,
			tags_include, tags_exclude, category_id, item_type,
			is_favorite, is_sensitive, is_active_filter, is_archived_filter,
			search_text, date_from, date_to, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, name, nullString(in.Description), icon, color,
		tagList(f.TagsInclude), tagList(f.TagsExclude), nullInt64(f.CategoryID), nullType(f.ItemType),
		nullBool(f.IsFavorite), nullBool(f.IsSensitive), nullBool(f.IsActiveFilter), nullBool(f.IsArchivedFilter),
		nullString(f.SearchText), nullString(strings.TrimSpace(f.DateFrom)), nullString(strings.TrimSpace(f.DateTo)),
		active)
	if err != nil {
		if isUniqueViolation(err) {
			db.log.Warn("collection name already exists", zap.String("name", name))
			return 0, errs.Duplicate("collection", name)
		}
		db.log.Error("failed to create collection", zap.String("name", name), zap.Error(err))
		return 0, errs.Storage("create collection", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errs.Storage("create collection", err)
	}

	db.log.Info("collection created", zap.Int64("id", id), zap.String("name", name))
	return id, nil
}

// GetCollection retrieves a collection by ID
func (db *DB) GetCollection(id int64) (*models.Collection, error) {
	row := db.QueryRow("SELECT "+collectionColumns+" FROM smart_collections WHERE id = ?", id)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("collection", id)
	}
	if err != nil {
		return nil, errs.Storage("get collection", err)
	}
	return c, nil
}

// GetCollectionByName retrieves a collection by its exact name
func (db *DB) GetCollectionByName(name string) (*models.Collection, error) {
	row := db.QueryRow("SELECT "+collectionColumns+" FROM smart_collections WHERE name = ?", name)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("collection", name)
	}
	if err != nil {
		return nil, errs.Storage("get collection", err)
	}
	return c, nil
}

// ListCollections returns collections ordered by name
func (db *DB) ListCollections(activeOnly bool) ([]models.Collection, error) {
	query := "SELECT " + collectionColumns + " FROM smart_collections"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY name"
	return db.queryCollections(query)
}

// SearchCollections matches query against name and description, ignoring
// case. A blank query lists every collection.
func (db *DB) SearchCollections(query string) ([]models.Collection, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return db.ListCollections(false)
	}

	p := likePattern(query)
	return db.queryCollections(`
		SELECT `+collectionColumns+` FROM smart_collections
		WHERE name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
		ORDER BY name
	`, p, p)
}

func (db *DB) queryCollections(query string, args ...any) ([]models.Collection, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errs.Storage("list collections", err)
	}
	defer rows.Close()

	var out []models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, errs.Storage("list collections", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("list collections", err)
	}
	return out, nil
}

// UpdateCollection applies the set fields of u after validating the
// resulting filter. A blank name is ignored.
func (db *DB) UpdateCollection(id int64, u CollectionUpdate) error {
	var (
		sets  []string
		args  []any
		check models.Filter
	)
	set := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}

	var name string
	if u.Name != nil {
		if name = strings.TrimSpace(*u.Name); name != "" {
			set("name", name)
		}
	}
	if u.Description != nil {
		set("description", nullString(*u.Description))
	}
	if u.Icon != nil {
		set("icon", *u.Icon)
	}
	if u.Color != nil {
		set("color", *u.Color)
	}
	if u.IsActive != nil {
		set("is_active", *u.IsActive)
	}

	if u.TagsInclude != nil {
		set("tags_include", tagList(*u.TagsInclude))
	}
	if u.TagsExclude != nil {
		set("tags_exclude", tagList(*u.TagsExclude))
	}
	if u.SearchText != nil {
		set("search_text", nullString(*u.SearchText))
	}
	if u.DateFrom != nil {
		check.DateFrom = strings.TrimSpace(*u.DateFrom)
		set("date_from", nullString(check.DateFrom))
	}
	if u.DateTo != nil {
		check.DateTo = strings.TrimSpace(*u.DateTo)
		set("date_to", nullString(check.DateTo))
	}
	if u.CategoryID.Set {
		check.CategoryID = u.CategoryID.Value
		set("category_id", nullInt64(u.CategoryID.Value))
	}
	if u.ItemType.Set {
		check.ItemType = u.ItemType.Value
		set("item_type", nullType(u.ItemType.Value))
	}
	for _, o := range []struct {
		column string
		opt    Opt[bool]
	}{
		{"is_favorite", u.IsFavorite},
		{"is_sensitive", u.IsSensitive},
		{"is_active_filter", u.IsActiveFilter},
		{"is_archived_filter", u.IsArchivedFilter},
	} {
		if o.opt.Set {
			set(o.column, nullBool(o.opt.Value))
		}
	}

	if err := db.validateFilter(check); err != nil {
		db.log.Warn("collection update rejected", zap.Int64("id", id), zap.Error(err))
		return err
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	result, err := db.Exec("UPDATE smart_collections SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if isUniqueViolation(err) {
			db.log.Warn("collection name conflict during update", zap.Int64("id", id))
			return errs.Duplicate("collection", name)
		}
		db.log.Error("failed to update collection", zap.Int64("id", id), zap.Error(err))
		return errs.Storage("update collection", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFound("collection", id)
	}

	db.log.Info("collection updated", zap.Int64("id", id))
	return nil
}

// DeleteCollection removes a collection. Items are untouched.
func (db *DB) DeleteCollection(id int64) error {
	result, err := db.Exec("DELETE FROM smart_collections WHERE id = ?", id)
	if err != nil {
		db.log.Error("failed to delete collection", zap.Int64("id", id), zap.Error(err))
		return errs.Storage("delete collection", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFound("collection", id)
	}

	db.log.Info("collection deleted", zap.Int64("id", id))
	return nil
}

// SoftDeleteCollection marks a collection inactive
func (db *DB) SoftDeleteCollection(id int64) error {
	inactive := false
	return db.UpdateCollection(id, CollectionUpdate{IsActive: &inactive})
}

// CollectionStats counts collections by state
func (db *DB) CollectionStats() (models.CollectionStats, error) {
	var stats models.CollectionStats
	err := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0)
		FROM smart_collections
	`).Scan(&stats.Total, &stats.Active)
	if err != nil {
		return stats, errs.Storage("collection statistics", err)
	}
	stats.Inactive = stats.Total - stats.Active
	return stats, nil
}

// ListCollectionsWithCount returns every collection with its live match
// count. A collection that fails to evaluate gets Count -1 and Err set.
func (db *DB) ListCollectionsWithCount() ([]models.CollectionCount, error) {
	list, err := db.ListCollections(false)
	if err != nil {
		return nil, err
	}

	out := make([]models.CollectionCount, len(list))
	for i, c := range list {
		out[i] = models.CollectionCount{Collection: c}
		n, err := db.eval.Count(c.Filter)
		if err != nil {
			db.log.Warn("collection count failed", zap.Int64("id", c.ID), zap.Error(err))
			out[i].Count = -1
			out[i].Err = err
			continue
		}
		out[i].Count = n
	}
	return out, nil
}

// RunCollection looks up a collection and returns its current items
func (db *DB) RunCollection(id int64) ([]models.Item, error) {
	c, err := db.GetCollection(id)
	if err != nil {
		return nil, err
	}
	return db.eval.Evaluate(c.Filter)
}

// CountCollection returns the number of items RunCollection would return
func (db *DB) CountCollection(id int64) (int, error) {
	c, err := db.GetCollection(id)
	if err != nil {
		return 0, err
	}
	return db.eval.Count(c.Filter)
}

// validateFilter checks the enumerated and referenced fields of f. Absent
// fields always pass.
func (db *DB) validateFilter(f models.Filter) error {
	if f.ItemType != nil && !f.ItemType.Valid() {
		return errs.Validation("invalid item type %q", *f.ItemType)
	}
	for _, d := range []string{f.DateFrom, f.DateTo} {
		if d = strings.TrimSpace(d); d != "" && !validDate(d) {
			return errs.Validation("invalid date %q (want YYYY-MM-DD)", d)
		}
	}
	if f.CategoryID != nil {
		if _, err := db.GetCategory(*f.CategoryID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.Validation("category %d does not exist", *f.CategoryID)
			}
			return err
		}
	}
	return nil
}

func validDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// tagList stores a raw tag list in joined form, NULL when it holds no tags
func tagList(raw string) sql.NullString {
	return nullString(tags.Join(tags.Normalize(raw)))
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func nullType(v *models.ItemType) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}

func scanCollection(s scanner) (*models.Collection, error) {
	var (
		c                                 models.Collection
		description, icon, color          sql.NullString
		include, exclude, itemType        sql.NullString
		search, dateFrom, dateTo          sql.NullString
		categoryID                        sql.NullInt64
		favorite, sensitive, active, arch sql.NullBool
	)
	err := s.Scan(&c.ID, &c.Name, &description, &icon, &color,
		&include, &exclude, &categoryID, &itemType,
		&favorite, &sensitive, &active, &arch,
		&search, &dateFrom, &dateTo, &c.CreatedAt, &c.UpdatedAt, &c.IsActive)
	if err != nil {
		return nil, err
	}

	c.Description = description.String
	c.Icon = icon.String
	c.Color = color.String
	c.Filter = models.Filter{
		TagsInclude:      include.String,
		TagsExclude:      exclude.String,
		SearchText:       search.String,
		DateFrom:         dateFrom.String,
		DateTo:           dateTo.String,
		IsFavorite:       boolPtr(favorite),
		IsSensitive:      boolPtr(sensitive),
		IsActiveFilter:   boolPtr(active),
		IsArchivedFilter: boolPtr(arch),
	}
	if categoryID.Valid {
		c.Filter.CategoryID = models.Int64(categoryID.Int64)
	}
	if itemType.Valid {
		c.Filter.ItemType = models.Type(models.ItemType(itemType.String))
	}
	return &c, nil
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return models.Bool(v.Bool)
}
