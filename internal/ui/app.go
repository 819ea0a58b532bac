package ui

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/tgienger/stash/internal/db"
	"github.com/tgienger/stash/internal/ui/views"
)

// lastCollectionKey remembers the collection open when the app last quit
const lastCollectionKey = "last_collection_id"

// View is the currently active screen
type View int

const (
	ViewCollections View = iota
	ViewTagGroups
	ViewResults
)

type App struct {
	db          *db.DB
	log         *zap.Logger
	currentView View
	listView    View // list to return to from results
	collections *views.CollectionListView
	groups      *views.TagGroupListView
	results     *views.ItemListView
	width       int
	height      int
}

// NewApp creates the application model
func NewApp(database *db.DB, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		db:          database,
		log:         log.Named("ui"),
		currentView: ViewCollections,
		listView:    ViewCollections,
		collections: views.NewCollectionListView(database),
		groups:      views.NewTagGroupListView(database),
	}
}

func (a *App) Init() tea.Cmd {
	// Reopen the last collection if it still exists.
	if last, err := a.db.GetSetting(lastCollectionKey); err == nil && last != "" {
		if id, err := strconv.ParseInt(last, 10, 64); err == nil {
			if c, err := a.db.GetCollection(id); err == nil {
				return tea.Batch(a.collections.Init(), a.openResults(views.OpenResults{
					Title:        c.Icon + " " + c.Name,
					CollectionID: c.ID,
					Filter:       c.Filter,
				}))
			}
		}
	}
	return a.collections.Init()
}

func (a *App) openResults(src views.OpenResults) tea.Cmd {
	a.currentView = ViewResults
	a.results = views.NewItemListView(a.db, a.log, src)

	if src.CollectionID != 0 {
		if err := a.db.SetSetting(lastCollectionKey, strconv.FormatInt(src.CollectionID, 10)); err != nil {
			a.log.Warn("failed to remember collection", zap.Error(err))
		}
	}

	return tea.Batch(a.results.Init(), a.resize)
}

func (a *App) resize() tea.Msg {
	return tea.WindowSizeMsg{Width: a.width, Height: a.height}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Both lists persist behind the results view.
		a.collections.Update(msg)
		a.groups.Update(msg)

	case views.OpenResults:
		return a, a.openResults(msg)

	case views.SwitchList:
		if a.currentView == ViewCollections {
			a.currentView, a.listView = ViewTagGroups, ViewTagGroups
			return a, tea.Batch(a.groups.Init(), a.resize)
		}
		a.currentView, a.listView = ViewCollections, ViewCollections
		return a, tea.Batch(a.collections.Init(), a.resize)

	case views.BackToLists:
		a.currentView = a.listView
		if err := a.db.SetSetting(lastCollectionKey, ""); err != nil {
			a.log.Warn("failed to clear last collection", zap.Error(err))
		}
		// Counts and usage may have moved while results were open.
		if a.listView == ViewTagGroups {
			return a, tea.Batch(a.groups.Init(), a.resize)
		}
		return a, tea.Batch(a.collections.Init(), a.resize)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewCollections:
		_, cmd = a.collections.Update(msg)
	case ViewTagGroups:
		_, cmd = a.groups.Update(msg)
	case ViewResults:
		_, cmd = a.results.Update(msg)
	}
	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewTagGroups:
		return a.groups.View()
	case ViewResults:
		if a.results != nil {
			return a.results.View()
		}
	}
	return a.collections.View()
}
