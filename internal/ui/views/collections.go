package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stash/internal/db"
	"github.com/tgienger/stash/internal/errs"
	"github.com/tgienger/stash/internal/models"
	"github.com/tgienger/stash/internal/ui/keys"
	"github.com/tgienger/stash/internal/ui/styles"
)

type collectionItem struct {
	row models.CollectionCount
}

func (i collectionItem) Title() string       { return i.row.Icon + " " + i.row.Name }
func (i collectionItem) Description() string { return i.row.Description }
func (i collectionItem) FilterValue() string { return i.row.Name }

type collectionDelegate struct {
	styles *styles.Styles
	width  int
}

func (d collectionDelegate) Height() int                               { return 2 }
func (d collectionDelegate) Spacing() int                              { return 1 }
func (d collectionDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d collectionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	c, ok := item.(collectionItem)
	if !ok {
		return
	}

	width := max(d.width-4, 20)
	lineStyle := d.styles.ListItem
	if index == m.Index() {
		lineStyle = d.styles.ListSelected
	}

	// A failed evaluation shows as an error marker, never as zero.
	count := d.styles.Count.Render(countLabel(c.row.Count))
	if c.row.Err != nil {
		count = d.styles.CountError.Render("unavailable")
	}
	title := c.Title()
	if !c.row.IsActive {
		title += " (inactive)"
	}
	gap := max(width-lipgloss.Width(title)-lipgloss.Width(count)-4, 1)
	top := styles.Swatch(c.row.Color, title) + strings.Repeat(" ", gap) + count

	desc := c.Description()
	if desc == "" {
		desc = describeFilter(c.row.Filter)
	}

	fmt.Fprintf(w, "%s\n%s",
		lineStyle.Width(width).Render(top),
		lineStyle.Foreground(styles.Current.ForegroundDim).Width(width).Render(desc),
	)
}

// describeFilter summarizes the constrained fields of f for the list
func describeFilter(f models.Filter) string {
	var parts []string
	if f.TagsInclude != "" {
		parts = append(parts, "tags: "+f.TagsInclude)
	}
	if f.TagsExclude != "" {
		parts = append(parts, "not: "+f.TagsExclude)
	}
	if f.ItemType != nil {
		parts = append(parts, "type: "+string(*f.ItemType))
	}
	if f.IsFavorite != nil && *f.IsFavorite {
		parts = append(parts, "favorites")
	}
	if f.SearchText != "" {
		parts = append(parts, fmt.Sprintf("search: %q", f.SearchText))
	}
	if len(parts) == 0 {
		return "all items"
	}
	return strings.Join(parts, " • ")
}

type collectionsLoadedMsg struct {
	rows []models.CollectionCount
	err  error
}

const (
	fieldName = iota
	fieldInclude
	fieldExclude
	fieldType
	fieldSearch
	fieldCreate
)

// CollectionListView lists saved collections with live counts
type CollectionListView struct {
	db       *db.DB
	list     list.Model
	delegate *collectionDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	loadErr  error

	creating  bool
	inputs    []textinput.Model
	focusIdx  int
	formError string

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	showHelpPopup bool
}

func NewCollectionListView(database *db.DB) *CollectionListView {
	s := styles.NewStyles()

	placeholders := []string{
		fieldName:    "Collection name",
		fieldInclude: "Tags, any of (python,api)",
		fieldExclude: "Tags to leave out",
		fieldType:    "TEXT, URL, CODE or PATH",
		fieldSearch:  "Label or content contains",
	}
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = p
		inputs[i].CharLimit = 200
	}

	delegate := &collectionDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return &CollectionListView{
		db:       database,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		inputs:   inputs,
	}
}

func (v *CollectionListView) Init() tea.Cmd {
	return v.loadCollections
}

func (v *CollectionListView) loadCollections() tea.Msg {
	rows, err := v.db.ListCollectionsWithCount()
	return collectionsLoadedMsg{rows: rows, err: err}
}

func (v *CollectionListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-8)
		return v, nil

	case collectionsLoadedMsg:
		v.loaded = true
		v.loadErr = msg.err
		items := make([]list.Item, len(msg.rows))
		for i, r := range msg.rows {
			items[i] = collectionItem{row: r}
		}
		return v, v.list.SetItems(items)

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}
		if v.creating {
			return v.updateCreating(msg)
		}
		if v.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Switch):
			return v, func() tea.Msg { return SwitchList{} }
		case key.Matches(msg, v.keys.New):
			v.startCreate()
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(collectionItem); ok {
				return v, func() tea.Msg {
					return OpenResults{
						Title:        item.Title(),
						CollectionID: item.row.ID,
						Filter:       item.row.Filter,
					}
				}
			}
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(collectionItem); ok {
				v.confirmingDelete = true
				v.deleteTargetID = item.row.ID
				v.deleteTargetName = item.row.Name
				return v, nil
			}
		case msg.String() == "x":
			if item, ok := v.list.SelectedItem().(collectionItem); ok {
				active := !item.row.IsActive
				if err := v.db.UpdateCollection(item.row.ID, db.CollectionUpdate{IsActive: &active}); err != nil {
					v.loadErr = err
					return v, nil
				}
				return v, v.loadCollections
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *CollectionListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		if err := v.db.DeleteCollection(v.deleteTargetID); err != nil {
			v.loadErr = err
			return v, nil
		}
		return v, v.loadCollections
	case "n", "N", "esc":
		v.confirmingDelete = false
	}
	return v, nil
}

func (v *CollectionListView) startCreate() {
	v.creating = true
	v.formError = ""
	v.focusIdx = fieldName
	for i := range v.inputs {
		v.inputs[i].Reset()
	}
	v.updateFocus()
}

func (v *CollectionListView) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		return v, nil

	case msg.String() == "ctrl+s":
		return v, v.save()

	case msg.String() == "shift+tab":
		v.focusIdx = (v.focusIdx + fieldCreate) % (fieldCreate + 1)
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % (fieldCreate + 1)
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx < fieldCreate {
			v.focusIdx++
			v.updateFocus()
			return v, nil
		}
		return v, v.save()
	}

	if v.focusIdx >= fieldCreate {
		return v, nil
	}
	var cmd tea.Cmd
	v.inputs[v.focusIdx], cmd = v.inputs[v.focusIdx].Update(msg)
	return v, cmd
}

func (v *CollectionListView) updateFocus() {
	for i := range v.inputs {
		if i == v.focusIdx {
			v.inputs[i].Focus()
		} else {
			v.inputs[i].Blur()
		}
	}
}

// save stores the form as a new collection and opens it
func (v *CollectionListView) save() tea.Cmd {
	in := db.CollectionInput{
		Name: v.inputs[fieldName].Value(),
		Filter: models.Filter{
			TagsInclude: v.inputs[fieldInclude].Value(),
			TagsExclude: v.inputs[fieldExclude].Value(),
			SearchText:  v.inputs[fieldSearch].Value(),
		},
	}
	if t := strings.ToUpper(strings.TrimSpace(v.inputs[fieldType].Value())); t != "" {
		in.Filter.ItemType = models.Type(models.ItemType(t))
	}

	id, err := v.db.CreateCollection(in)
	if err != nil {
		v.formError = errs.Message(err)
		return nil
	}

	v.creating = false
	c, err := v.db.GetCollection(id)
	if err != nil {
		return v.loadCollections
	}
	return tea.Batch(v.loadCollections, func() tea.Msg {
		return OpenResults{Title: c.Icon + " " + c.Name, CollectionID: c.ID, Filter: c.Filter}
	})
}

func (v *CollectionListView) View() string {
	if v.showHelpPopup {
		return helpPopup(v.styles, v.width, v.height,
			"↵", "show items",
			"n", "new collection",
			"x", "toggle active",
			"d", "delete collection",
			"/", "filter list",
			"g", "tag groups",
			"q", "quit",
		)
	}
	if v.confirmingDelete {
		return confirmDelete(v.styles, v.width, v.height, "Collection", v.deleteTargetName)
	}
	if v.creating {
		return v.renderCreateForm()
	}
	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading...")
	}

	s := v.styles
	var b strings.Builder
	b.WriteString(tabs(s, true))
	b.WriteString("\n\n")
	if v.loadErr != nil {
		b.WriteString(s.StatusError.Render(errs.Message(v.loadErr)))
		b.WriteString("\n")
	}
	if len(v.list.Items()) == 0 {
		b.WriteString(s.TitleMuted.Render("No collections. Press 'n' to create one."))
	} else {
		b.WriteString(v.list.View())
	}
	b.WriteString("\n")
	b.WriteString(helpLine(s, styles.ContentWidth(v.width),
		"↵", "open", "n", "new", "d", "del", "g", "groups", "q", "quit"))

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *CollectionListView) renderCreateForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	labels := []string{
		fieldName:    "Name:",
		fieldInclude: "Include tags:",
		fieldExclude: "Exclude tags:",
		fieldType:    "Item type:",
		fieldSearch:  "Search text:",
	}

	rows := []string{s.Title.Render("New Collection"), ""}
	for i, in := range v.inputs {
		style := s.Input
		if i == v.focusIdx {
			style = s.InputFocused
		}
		rows = append(rows, labels[i], style.Width(inputWidth).Render(in.View()))
	}

	btn := s.Button
	if v.focusIdx == fieldCreate {
		btn = s.ButtonFocused
	}
	rows = append(rows, "", btn.Render(" Create "))
	if v.formError != "" {
		rows = append(rows, "", s.HintError.Render(v.formError))
	}
	rows = append(rows, "", s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
	return styles.CenterView(centered, v.width, v.height)
}
