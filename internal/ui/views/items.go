package views

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tgienger/stash/internal/db"
	"github.com/tgienger/stash/internal/errs"
	"github.com/tgienger/stash/internal/filter"
	"github.com/tgienger/stash/internal/models"
	"github.com/tgienger/stash/internal/ui/keys"
	"github.com/tgienger/stash/internal/ui/styles"
)

// copyFunc writes text to the system clipboard
var copyFunc = clipboard.WriteAll

type itemsLoadedMsg struct {
	items []models.Item
	err   error
}

// ItemListView shows the current results of a collection or tag group.
// Enter copies the selected item and marks it used.
type ItemListView struct {
	db     *db.DB
	log    *zap.Logger
	source OpenResults
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	loaded bool
	err    error
	items  []models.Item // evaluated results
	shown  []models.Item // items after the search refinement
	cursor int
	scroll int

	searching   bool
	searchInput textinput.Model

	status      string
	statusError bool

	showHelpPopup bool
}

func NewItemListView(database *db.DB, log *zap.Logger, source OpenResults) *ItemListView {
	search := textinput.New()
	search.Placeholder = "Refine..."
	search.CharLimit = 100

	if log == nil {
		log = zap.NewNop()
	}

	return &ItemListView{
		db:          database,
		log:         log.Named("results"),
		source:      source,
		styles:      styles.NewStyles(),
		keys:        keys.DefaultKeyMap(),
		searchInput: search,
	}
}

func (v *ItemListView) Init() tea.Cmd {
	return v.loadItems
}

// loadItems evaluates the source on every call; saved collections are never
// cached.
func (v *ItemListView) loadItems() tea.Msg {
	var (
		items []models.Item
		err   error
	)
	if v.source.CollectionID != 0 {
		items, err = v.db.RunCollection(v.source.CollectionID)
	} else {
		items, err = v.db.Evaluator().Evaluate(v.source.Filter)
	}
	return itemsLoadedMsg{items: items, err: err}
}

// refine narrows the loaded results to the search text without another
// round trip to the store.
func (v *ItemListView) refine() {
	q := v.searchInput.Value()
	if q == "" {
		v.shown = v.items
	} else {
		shown, _ := filter.NewEvaluator(filter.MemorySource(v.items), v.log).
			Evaluate(models.Filter{SearchText: q})
		v.shown = shown
	}
	v.cursor = clamp(v.cursor, 0, max(len(v.shown)-1, 0))
	v.ensureVisible()
}

func (v *ItemListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ensureVisible()
		return v, nil

	case itemsLoadedMsg:
		v.loaded = true
		v.err = msg.err
		v.items = msg.items
		v.refine()
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.searching {
			return v.updateSearching(msg)
		}
		return v.updateNormal(msg)
	}
	return v, nil
}

func (v *ItemListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	case key.Matches(msg, v.keys.Back):
		if v.searchInput.Value() != "" {
			v.searchInput.Reset()
			v.refine()
			return v, nil
		}
		return v, func() tea.Msg { return BackToLists{} }
	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
	case key.Matches(msg, v.keys.Search):
		v.searching = true
		v.searchInput.Focus()
		return v, textinput.Blink
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.shown)-1 {
			v.cursor++
			v.ensureVisible()
		}
	case msg.String() == "r":
		return v, v.loadItems
	case key.Matches(msg, v.keys.Enter):
		if v.cursor < len(v.shown) {
			return v, v.copyItem(v.shown[v.cursor])
		}
	}
	return v, nil
}

func (v *ItemListView) updateSearching(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter):
		v.searching = false
		v.searchInput.Blur()
		return v, nil
	}

	var cmd tea.Cmd
	v.searchInput, cmd = v.searchInput.Update(msg)
	v.refine()
	return v, cmd
}

// copyItem puts the item's content on the clipboard, records the use and
// reloads so the ordering reflects it.
func (v *ItemListView) copyItem(it models.Item) tea.Cmd {
	if err := copyFunc(it.Content); err != nil {
		v.log.Warn("clipboard write failed", zap.Int64("item", it.ID), zap.Error(err))
		v.status, v.statusError = "Clipboard unavailable", true
		return nil
	}
	if err := v.db.TouchItem(it.ID); err != nil {
		v.log.Error("failed to record item use", zap.Int64("item", it.ID), zap.Error(err))
		v.status, v.statusError = "Copied, but "+errs.Message(err), true
		return nil
	}
	v.status, v.statusError = fmt.Sprintf("Copied %q", it.Label), false
	v.cursor = 0
	return v.loadItems
}

func (v *ItemListView) visibleRows() int {
	// Each row is 2 lines plus a blank separator.
	return max((v.height-10)/3, 1)
}

func (v *ItemListView) ensureVisible() {
	rows := v.visibleRows()
	if v.cursor < v.scroll {
		v.scroll = v.cursor
	}
	if v.cursor >= v.scroll+rows {
		v.scroll = v.cursor - rows + 1
	}
	if v.scroll < 0 {
		v.scroll = 0
	}
}

func (v *ItemListView) View() string {
	if v.showHelpPopup {
		return helpPopup(v.styles, v.width, v.height,
			"↵", "copy item",
			"/", "refine results",
			"r", "re-run",
			"esc", "back",
			"q", "quit",
		)
	}

	s := v.styles
	var b strings.Builder
	b.WriteString(s.Title.Render(v.source.Title))
	if v.loaded && v.err == nil {
		b.WriteString("  ")
		b.WriteString(s.Count.Render(countLabel(len(v.shown))))
	}
	b.WriteString("\n\n")

	searchStyle := s.Input
	if v.searching {
		searchStyle = s.InputFocused
	}
	b.WriteString(searchStyle.Width(clamp(styles.ContentWidth(v.width)-8, 10, 40)).Render(v.searchInput.View()))
	b.WriteString("\n\n")

	switch {
	case !v.loaded:
		b.WriteString(s.TitleMuted.Render("Loading..."))
	case v.err != nil:
		b.WriteString(s.StatusError.Render("Could not evaluate: " + errs.Message(v.err)))
	case len(v.shown) == 0:
		b.WriteString(s.TitleMuted.Render("No matching items."))
	default:
		b.WriteString(v.renderRows())
	}

	if v.status != "" {
		b.WriteString("\n")
		if v.statusError {
			b.WriteString(s.StatusError.Render(v.status))
		} else {
			b.WriteString(s.Status.Render(v.status))
		}
	}
	b.WriteString("\n")
	b.WriteString(helpLine(s, styles.ContentWidth(v.width),
		"↵", "copy", "/", "refine", "r", "re-run", "esc", "back", "q", "quit"))

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *ItemListView) renderRows() string {
	end := min(v.scroll+v.visibleRows(), len(v.shown))
	rows := make([]string, 0, end-v.scroll)
	for i := v.scroll; i < end; i++ {
		rows = append(rows, v.renderItem(v.shown[i], i == v.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *ItemListView) renderItem(it models.Item, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	title := s.ItemType.Render(fmt.Sprintf("%-4s", it.ItemType)) + " " + s.ItemLabel.Render(it.Label)
	if it.IsFavorite {
		title += " " + s.Favorite.Render("★")
	}

	preview := it.Content
	if it.IsSensitive {
		preview = "••••••••"
	}
	preview = strings.ReplaceAll(preview, "\n", " ")
	if len([]rune(preview)) > 40 {
		preview = string([]rune(preview)[:40]) + "…"
	}
	detail := preview
	if it.Tags != "" {
		detail += "  " + s.ItemTags.Render(it.Tags)
	}

	lineStyle := s.ListItem
	if selected {
		lineStyle = s.ListSelected
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lineStyle.Width(width).Render(title),
		lineStyle.Foreground(styles.Current.ForegroundDim).Width(width).Render(detail),
	) + "\n"
}
