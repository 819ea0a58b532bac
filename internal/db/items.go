package db

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tgienger/stash/internal/errs"
	"github.com/tgienger/stash/internal/filter"
	"github.com/tgienger/stash/internal/models"
)

const itemColumns = `id, category_id, label, content, tags, item_type,
	is_favorite, is_sensitive, is_active, is_archived, created_at, last_used`

// ItemInput holds the fields of a new item. Zero CreatedAt means now.
type ItemInput struct {
	CategoryID  int64
	Label       string
	Content     string
	Tags        []string
	ItemType    models.ItemType
	IsFavorite  bool
	IsSensitive bool
	IsArchived  bool
	Inactive    bool
	CreatedAt   time.Time
}

// CreateCategory creates a new category
func (db *DB) CreateCategory(name, icon string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errs.Validation("category name is required")
	}
	if icon == "" {
		icon = "📁"
	}

	result, err := db.Exec("INSERT INTO categories (name, icon) VALUES (?, ?)", name, icon)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errs.Duplicate("category", name)
		}
		return 0, errs.Storage("create category", err)
	}
	return result.LastInsertId()
}

// GetCategory retrieves a category by ID
func (db *DB) GetCategory(id int64) (*models.Category, error) {
	c := &models.Category{}
	err := db.QueryRow("SELECT id, name, icon, created_at FROM categories WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("category", id)
	}
	if err != nil {
		return nil, errs.Storage("get category", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name
func (db *DB) ListCategories() ([]models.Category, error) {
	rows, err := db.Query("SELECT id, name, icon, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, errs.Storage("list categories", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.CreatedAt); err != nil {
			return nil, errs.Storage("list categories", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("list categories", err)
	}
	return categories, nil
}

// CreateItem stores a new item. Tags are kept as a JSON list string.
func (db *DB) CreateItem(in ItemInput) (int64, error) {
	if strings.TrimSpace(in.Label) == "" {
		return 0, errs.Validation("label is required")
	}
	if in.ItemType == "" {
		in.ItemType = models.ItemText
	}
	if !in.ItemType.Valid() {
		return 0, errs.Validation("invalid item type %q", in.ItemType)
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}

	if _, err := db.GetCategory(in.CategoryID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return 0, errs.Validation("category %d does not exist", in.CategoryID)
		}
		return 0, err
	}

	tagsJSON, err := encodeTags(in.Tags)
	if err != nil {
		return 0, err
	}

	result, err := db.Exec(`
		INSERT INTO items (category_id, label, content, tags, item_type,
			is_favorite, is_sensitive, is_active, is_archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.CategoryID, strings.TrimSpace(in.Label), in.Content, tagsJSON, string(in.ItemType),
		in.IsFavorite, in.IsSensitive, !in.Inactive, in.IsArchived,
		in.CreatedAt.UTC().Format(models.TimestampLayout))
	if err != nil {
		return 0, errs.Storage("create item", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errs.Storage("create item", err)
	}
	db.log.Debug("item created", zap.Int64("id", id), zap.String("label", in.Label))
	return id, nil
}

// GetItem retrieves an item by ID
func (db *DB) GetItem(id int64) (*models.Item, error) {
	row := db.QueryRow("SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("item", id)
	}
	if err != nil {
		return nil, errs.Storage("get item", err)
	}
	return it, nil
}

// TouchItem marks an item as used now
func (db *DB) TouchItem(id int64) error {
	return db.touchItemAt(id, time.Now())
}

func (db *DB) touchItemAt(id int64, at time.Time) error {
	result, err := db.Exec("UPDATE items SET last_used = ? WHERE id = ?",
		at.UTC().Format(models.TimestampLayout), id)
	if err != nil {
		return errs.Storage("touch item", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFound("item", id)
	}
	return nil
}

// DeleteItem deletes an item
func (db *DB) DeleteItem(id int64) error {
	result, err := db.Exec("DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return errs.Storage("delete item", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFound("item", id)
	}
	return nil
}

// ListItemsMatching returns the items satisfying every predicate, most
// recently used first. It implements filter.Source.
func (db *DB) ListItemsMatching(preds []filter.Predicate) ([]models.Item, error) {
	query := "SELECT " + itemColumns + " FROM items"
	where, args := filter.Where(preds)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + filter.OrderBy

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errs.Storage("list items", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, errs.Storage("list items", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("list items", err)
	}
	return items, nil
}

// countItemsMatching counts distinct items satisfying every predicate
func (db *DB) countItemsMatching(preds []filter.Predicate) (int, error) {
	query := "SELECT COUNT(DISTINCT id) FROM items"
	where, args := filter.Where(preds)
	if where != "" {
		query += " WHERE " + where
	}

	var count int
	if err := db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errs.Storage("count items", err)
	}
	return count, nil
}

// encodeTags renders tags as a JSON list. Filters read it back through
// json_each, so tags may hold any character.
func encodeTags(list []string) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(list); err != nil {
		return sql.NullString{}, errs.Validation("bad tags: %v", err)
	}
	return sql.NullString{String: strings.TrimSpace(buf.String()), Valid: true}, nil
}

func scanItem(s scanner) (*models.Item, error) {
	var (
		it       models.Item
		tags     sql.NullString
		itemType string
		lastUsed sql.NullTime
	)
	err := s.Scan(&it.ID, &it.CategoryID, &it.Label, &it.Content, &tags, &itemType,
		&it.IsFavorite, &it.IsSensitive, &it.IsActive, &it.IsArchived, &it.CreatedAt, &lastUsed)
	if err != nil {
		return nil, err
	}
	it.Tags = tags.String
	it.ItemType = models.ItemType(itemType)
	if lastUsed.Valid {
		t := lastUsed.Time
		it.LastUsed = &t
	}
	return &it, nil
}
