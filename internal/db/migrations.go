package db

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tgienger/stash/internal/errs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migration is one schema step, tracked through PRAGMA user_version.
type migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// catalogVersion creates tag_groups and smart_collections; sample data is
// seeded when it is first applied.
const catalogVersion = 2

func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}

	byVersion := map[int]*migration{}
	for _, e := range entries {
		name := e.Name()
		prefix, rest, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("bad migration file name %q", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("bad migration version in %q: %w", name, err)
		}

		body, err := fs.ReadFile(migrationFiles, "migrations/"+name)
		if err != nil {
			return nil, err
		}

		m := byVersion[version]
		if m == nil {
			m = &migration{Version: version}
			byVersion[version] = m
		}
		switch {
		case strings.HasSuffix(rest, ".up.sql"):
			m.Name = strings.TrimSuffix(rest, ".up.sql")
			m.Up = string(body)
		case strings.HasSuffix(rest, ".down.sql"):
			m.Down = string(body)
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// SchemaVersion returns the applied schema version
func (db *DB) SchemaVersion() (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, errs.Storage("read schema version", err)
	}
	return v, nil
}

// LatestSchemaVersion returns the highest version known to this build
func LatestSchemaVersion() int {
	ms, err := loadMigrations()
	if err != nil || len(ms) == 0 {
		return 0
	}
	return ms[len(ms)-1].Version
}

// Migrate applies pending migrations in order. With seed set, the starter
// catalog is inserted when the catalog tables are created.
func (db *DB) Migrate(seed bool) error {
	ms, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range ms {
		if m.Version <= current {
			continue
		}
		if err := db.apply(m.Version, m.Up); err != nil {
			return errs.Storage(fmt.Sprintf("migration %d_%s", m.Version, m.Name), err)
		}
		db.log.Info("migration applied", zap.Int("version", m.Version), zap.String("name", m.Name))
		applied++

		if m.Version == catalogVersion && seed {
			if err := db.seedSamples(); err != nil {
				return err
			}
		}
	}

	if applied > 0 {
		db.log.Info("schema migrations complete", zap.Int("applied", applied), zap.Int("from", current))
	}
	return nil
}

// Rollback reverts migrations above target, newest first. Rolling back past
// the catalog version drops every tag group and collection.
func (db *DB) Rollback(target int) error {
	if target < 0 {
		return errs.Validation("rollback target must be >= 0")
	}

	ms, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	for i := len(ms) - 1; i >= 0; i-- {
		m := ms[i]
		if m.Version > current || m.Version <= target {
			continue
		}
		if err := db.apply(m.Version-1, m.Down); err != nil {
			return errs.Storage(fmt.Sprintf("rollback %d_%s", m.Version, m.Name), err)
		}
		db.log.Warn("migration rolled back", zap.Int("version", m.Version), zap.String("name", m.Name))
	}
	return nil
}

// apply runs script and records version in one transaction
func (db *DB) apply(version int, script string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return err
	}
	return tx.Commit()
}

// tableExists checks if a table exists in the database
func (db *DB) tableExists(table string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	if err != nil {
		return false, errs.Storage("check table", err)
	}
	return count > 0, nil
}

type sampleGroup struct {
	name, description, tags, color, icon string
}

type sampleCollection struct {
	name, description, icon, color string
	itemType                       string
	favorite                       bool
}

var sampleGroups = []sampleGroup{
	{"Python Backend", "Backend projects with Python/FastAPI", "python,fastapi,api,pydantic,uvicorn,database", "#3776ab", "🐍"},
	{"Laravel API", "APIs with Laravel and PHP", "laravel,php,mysql,api,eloquent,blade", "#ff2d20", "🔴"},
	{"React Frontend", "Frontend projects with React", "react,javascript,jsx,hooks,tailwind,frontend", "#61dafb", "⚛️"},
	{"Docker Deploy", "Deployment with Docker and Kubernetes", "docker,kubernetes,deployment,nginx,production", "#2496ed", "🐳"},
	{"Git Commands", "Git commands", "git,version-control,github,gitlab", "#f05032", "📦"},
}

var sampleCollections = []sampleCollection{
	{name: "All Commands", description: "Every CODE item", icon: "⚡", color: "#ffaa00", itemType: "CODE"},
	{name: "All URLs", description: "Every URL item", icon: "🔗", color: "#00d4ff", itemType: "URL"},
	{name: "Favorites", description: "Every item marked as favorite", icon: "⭐", color: "#ffd700", favorite: true},
}

// seedSamples inserts the starter catalog, skipping names already taken
func (db *DB) seedSamples() error {
	for _, g := range sampleGroups {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO tag_groups (name, description, tags, color, icon)
			VALUES (?, ?, ?, ?, ?)
		`, g.name, g.description, g.tags, g.color, g.icon)
		if err != nil {
			return errs.Storage("seed tag groups", err)
		}
	}

	for _, c := range sampleCollections {
		var favorite any
		if c.favorite {
			favorite = true
		}
		_, err := db.Exec(`
			INSERT OR IGNORE INTO smart_collections (name, description, icon, color, item_type, is_favorite)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.name, c.description, c.icon, c.color, nullString(c.itemType), favorite)
		if err != nil {
			return errs.Storage("seed collections", err)
		}
	}

	db.log.Info("sample data inserted",
		zap.Int("tag_groups", len(sampleGroups)),
		zap.Int("collections", len(sampleCollections)))
	return nil
}
