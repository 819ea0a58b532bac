package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stash/internal/config"
	"github.com/tgienger/stash/internal/errs"
)

// workspace holds a config without sample data and an empty database
type workspace struct {
	config string
	db     string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STASH_LOG_FILE", filepath.Join(dir, "stash.log"))
	t.Setenv("STASH_DB_PATH", "")

	cfg := config.DefaultConfig()
	cfg.SeedSamples = false
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(path))

	return workspace{config: path, db: filepath.Join(dir, "stash.db")}
}

func (w workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, e := newRootCmd()
	defer e.teardown()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", w.config, "--db", w.db}, args...))
	err := root.Execute()
	return out.String(), err
}

func (w workspace) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := w.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestCollectionsEndToEnd(t *testing.T) {
	w := newWorkspace(t)

	w.mustRun(t, "categories", "add", "Dev")
	w.mustRun(t, "items", "add", "pytest run", "pytest -q", "-c", "Dev", "-t", "python,pytest,testing", "--type", "code")
	w.mustRun(t, "items", "add", "automation", "invoke deploy", "-c", "Dev", "-t", "python,automation,testing", "--type", "CODE")
	w.mustRun(t, "items", "add", "pytest cov", "pytest --cov", "-c", "1", "-t", "python,pytest", "--type", "CODE")
	w.mustRun(t, "items", "add", "notes", "arrange act assert", "-c", "Dev", "-t", "python,testing")

	out := w.mustRun(t, "collections", "add", "Pytest", "--include", "testing", "--type", "CODE")
	assert.Contains(t, out, "Created collection 1")

	assert.Equal(t, "2\n", w.mustRun(t, "collections", "count", "Pytest"))

	out = w.mustRun(t, "collections", "run", "1")
	assert.Contains(t, out, "pytest run")
	assert.Contains(t, out, "automation")
	assert.NotContains(t, out, "pytest cov")

	w.mustRun(t, "collections", "update", "Pytest", "--include", "python,testing", "--clear", "type")
	assert.Equal(t, "4\n", w.mustRun(t, "collections", "count", "1"))

	out = w.mustRun(t, "collections", "list")
	assert.Contains(t, out, "Pytest")
	assert.Contains(t, out, "4")

	out = w.mustRun(t, "items", "list", "--exclude", "pytest", "--search", "deploy")
	assert.Contains(t, out, "automation")
	assert.NotContains(t, out, "notes")

	w.mustRun(t, "collections", "rm", "Pytest", "--soft")
	assert.Contains(t, w.mustRun(t, "collections", "stats"), "Inactive: 1")
}

func TestGroupsCommands(t *testing.T) {
	w := newWorkspace(t)

	w.mustRun(t, "categories", "add", "Dev")
	w.mustRun(t, "items", "add", "docker ps", "docker ps -a", "-c", "Dev", "-t", "docker")
	w.mustRun(t, "items", "add", "kubectl", "kubectl get pods", "-c", "Dev", "-t", "kubernetes")

	w.mustRun(t, "groups", "add", "Deploy", "--tags", "docker, kubernetes, docker")
	assert.Equal(t, "docker\nkubernetes\n", w.mustRun(t, "groups", "show", "1"))
	assert.Equal(t, "2\n", w.mustRun(t, "groups", "usage", "1"))

	_, err := w.run(t, "groups", "add", "Deploy", "--tags", "helm")
	assert.ErrorIs(t, err, errs.ErrDuplicateName)

	_, err = w.run(t, "groups", "add", "Empty", "--tags", " , ")
	assert.ErrorIs(t, err, errs.ErrValidation)

	w.mustRun(t, "groups", "update", "1", "--tags", "a, a, b")
	assert.Equal(t, "a\nb\n", w.mustRun(t, "groups", "show", "1"))

	out := w.mustRun(t, "groups", "stats")
	assert.Contains(t, out, "Total:    1")
	assert.Contains(t, out, "Unique tags (2): a, b")

	out, err = w.run(t, "groups", "validate", "x, x")
	assert.Error(t, err)
	assert.Contains(t, out, "Duplicate tags found")
	assert.Equal(t, "2 tags valid\n", w.mustRun(t, "groups", "validate", "x, y"))

	w.mustRun(t, "groups", "rm", "1")
	_, err = w.run(t, "groups", "usage", "1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestItemsCopyMarksUsed(t *testing.T) {
	w := newWorkspace(t)

	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = orig })

	w.mustRun(t, "categories", "add", "Dev")
	w.mustRun(t, "items", "add", "first", "echo one", "-c", "Dev")
	w.mustRun(t, "items", "add", "second", "echo two", "-c", "Dev")

	out := w.mustRun(t, "items", "list")
	assert.Less(t, strings.Index(out, "second"), strings.Index(out, "first"))

	w.mustRun(t, "items", "copy", "1")
	assert.Equal(t, "echo one", copied)

	out = w.mustRun(t, "items", "list")
	assert.Less(t, strings.Index(out, "first"), strings.Index(out, "second"))

	copyToClipboard = func(string) error { return errors.New("no display") }
	_, err := w.run(t, "items", "copy", "2")
	assert.Error(t, err)
}

func TestMigrateRollback(t *testing.T) {
	w := newWorkspace(t)

	assert.Contains(t, w.mustRun(t, "migrate"), "Schema version 2 (latest 2)")
	assert.Contains(t, w.mustRun(t, "migrate", "--rollback", "1"), "Schema version 1 (latest 2)")
	// Opening the database again migrates forward.
	assert.Contains(t, w.mustRun(t, "migrate"), "Schema version 2")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	w := newWorkspace(t)
	t.Setenv("STASH_LOG_LEVEL", "loud")

	_, err := w.run(t, "groups", "list")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestConfigCommandsSkipTheDatabase(t *testing.T) {
	w := newWorkspace(t)

	broken := config.DefaultConfig()
	broken.Logging.Level = "loud"
	require.NoError(t, broken.Save(w.config))

	_, err := w.run(t, "groups", "list")
	assert.ErrorContains(t, err, "unknown log level")

	out := w.mustRun(t, "config", "show")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "warning: unknown log level")
	assert.NoFileExists(t, w.db)

	_, err = w.run(t, "config", "init")
	assert.ErrorContains(t, err, "try --defaults")

	assert.Contains(t, w.mustRun(t, "config", "init", "--defaults"), "Wrote "+w.config)
	assert.NoFileExists(t, w.db)

	w.mustRun(t, "groups", "list")
	assert.FileExists(t, w.db)
}
