package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tgienger/stash/internal/config"
	"github.com/tgienger/stash/internal/db"
	"github.com/tgienger/stash/internal/logging"
	"github.com/tgienger/stash/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// env is the state shared by every subcommand, filled in by setup
type env struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
	db  *db.DB
}

func main() {
	root, e := newRootCmd()
	err := root.Execute()
	e.teardown()
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. The caller runs teardown after
// Execute, whether or not a command failed.
func newRootCmd() (*cobra.Command, *env) {
	e := &env{}

	root := &cobra.Command{
		Use:   "stash",
		Short: "Snippet stash with tag groups and smart collections",
		Long: `stash keeps text, URL, code and path snippets in a local SQLite file.

Tag groups bundle tags you use together. Smart collections are saved
filters evaluated every time they are opened.

Run without arguments to start the interactive interface.`,
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:      true,
		PersistentPreRunE: e.setup,
		RunE:              e.runTUI,
	}

	root.PersistentFlags().StringVar(&e.configPath, "config", config.DefaultPath(), "config file")
	root.PersistentFlags().StringVar(&e.dbPath, "db", "", "database file (overrides config)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newGroupsCommand(e),
		newCollectionsCommand(e),
		newItemsCommand(e),
		newCategoriesCommand(e),
		newMigrateCommand(e),
		newConfigCommand(e),
	)
	return root, e
}

// loadConfig reads the config file and applies the --db override. It does
// not validate, so the config commands can still read a broken file.
func (e *env) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.dbPath != "" {
		cfg.DatabasePath = e.dbPath
	}
	e.cfg = cfg
	return nil
}

// setup loads config, builds the logger and opens the database
func (e *env) setup(cmd *cobra.Command, args []string) error {
	if err := e.loadConfig(cmd, args); err != nil {
		return err
	}
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", e.configPath, err)
	}

	var err error
	if e.log, err = logging.New(cfg.Logging, e.verbose); err != nil {
		return err
	}

	e.db, err = db.New(db.Options{
		Path:        cfg.DatabasePath,
		Logger:      e.log,
		SeedSamples: cfg.SeedSamples,
	})
	if err != nil {
		e.log.Error("failed to open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
		return fmt.Errorf("error initializing database: %w", err)
	}

	e.log.Debug("stash started",
		zap.String("command", cmd.CommandPath()),
		zap.String("db", filepath.Clean(cfg.DatabasePath)))
	return nil
}

func (e *env) teardown() {
	if e.db != nil {
		e.db.Close()
	}
	if e.log != nil {
		_ = e.log.Sync()
	}
}

func (e *env) runTUI(cmd *cobra.Command, args []string) error {
	p := tea.NewProgram(ui.NewApp(e.db, e.log), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running application: %w", err)
	}
	return nil
}
