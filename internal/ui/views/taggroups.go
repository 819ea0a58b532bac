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
	"github.com/tgienger/stash/internal/tags"
	"github.com/tgienger/stash/internal/ui/keys"
	"github.com/tgienger/stash/internal/ui/styles"
)

type groupItem struct {
	row models.TagGroupUsage
}

func (i groupItem) Title() string       { return i.row.Icon + " " + i.row.Name }
func (i groupItem) Description() string { return tags.Join(i.row.Tags) }
func (i groupItem) FilterValue() string { return i.row.Name + " " + i.Description() }

type groupDelegate struct {
	styles *styles.Styles
	width  int
}

func (d groupDelegate) Height() int                               { return 2 }
func (d groupDelegate) Spacing() int                              { return 1 }
func (d groupDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d groupDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	g, ok := item.(groupItem)
	if !ok {
		return
	}

	width := max(d.width-4, 20)
	lineStyle := d.styles.ListItem
	if index == m.Index() {
		lineStyle = d.styles.ListSelected
	}

	title := g.Title()
	if !g.row.IsActive {
		title += " (inactive)"
	}
	usage := d.styles.Count.Render(countLabel(g.row.Usage))
	gap := max(width-lipgloss.Width(title)-lipgloss.Width(usage)-4, 1)
	top := styles.Swatch(g.row.Color, title) + strings.Repeat(" ", gap) + usage

	fmt.Fprintf(w, "%s\n%s",
		lineStyle.Width(width).Render(top),
		lineStyle.Foreground(styles.Current.ForegroundDim).Width(width).Render(g.Description()),
	)
}

type groupsLoadedMsg struct {
	rows  []models.TagGroupUsage
	stats models.TagGroupStats
	err   error
}

const (
	groupFieldName = iota
	groupFieldTags
	groupFieldDesc
	groupFieldSave
)

// TagGroupListView lists tag groups with their usage counts
type TagGroupListView struct {
	db       *db.DB
	list     list.Model
	delegate *groupDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	loadErr  error
	stats    models.TagGroupStats

	// Create and edit share the form; editID is zero when creating.
	editing   bool
	editID    int64
	inputs    []textinput.Model
	focusIdx  int
	formError string

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	showHelpPopup bool
}

func NewTagGroupListView(database *db.DB) *TagGroupListView {
	s := styles.NewStyles()

	placeholders := []string{
		groupFieldName: "Group name",
		groupFieldTags: "python,fastapi,api",
		groupFieldDesc: "Description (optional)",
	}
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = p
		inputs[i].CharLimit = 300
	}

	delegate := &groupDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return &TagGroupListView{
		db:       database,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		inputs:   inputs,
	}
}

func (v *TagGroupListView) Init() tea.Cmd {
	return v.loadGroups
}

func (v *TagGroupListView) loadGroups() tea.Msg {
	rows, err := v.db.ListTagGroupsWithUsage()
	if err != nil {
		return groupsLoadedMsg{err: err}
	}
	stats, err := v.db.TagGroupStats()
	return groupsLoadedMsg{rows: rows, stats: stats, err: err}
}

func (v *TagGroupListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-9)
		return v, nil

	case groupsLoadedMsg:
		v.loaded = true
		v.loadErr = msg.err
		v.stats = msg.stats
		items := make([]list.Item, len(msg.rows))
		for i, r := range msg.rows {
			items[i] = groupItem{row: r}
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
		if v.editing {
			return v.updateEditing(msg)
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
			v.startEdit(nil)
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Edit):
			if item, ok := v.list.SelectedItem().(groupItem); ok {
				v.startEdit(&item.row.TagGroup)
				return v, textinput.Blink
			}
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			// Preview the items the group's tags reach without saving a
			// collection.
			if item, ok := v.list.SelectedItem().(groupItem); ok {
				return v, func() tea.Msg {
					return OpenResults{
						Title:  item.Title(),
						Filter: models.Filter{TagsInclude: tags.Join(item.row.Tags)},
					}
				}
			}
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(groupItem); ok {
				v.confirmingDelete = true
				v.deleteTargetID = item.row.ID
				v.deleteTargetName = item.row.Name
				return v, nil
			}
		case msg.String() == "x":
			if item, ok := v.list.SelectedItem().(groupItem); ok {
				var err error
				if item.row.IsActive {
					err = v.db.SoftDeleteTagGroup(item.row.ID)
				} else {
					active := true
					err = v.db.UpdateTagGroup(item.row.ID, db.TagGroupUpdate{IsActive: &active})
				}
				if err != nil {
					v.loadErr = err
					return v, nil
				}
				return v, v.loadGroups
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *TagGroupListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		if err := v.db.DeleteTagGroup(v.deleteTargetID); err != nil {
			v.loadErr = err
			return v, nil
		}
		return v, v.loadGroups
	case "n", "N", "esc":
		v.confirmingDelete = false
	}
	return v, nil
}

// startEdit opens the form, prefilled from g when editing
func (v *TagGroupListView) startEdit(g *models.TagGroup) {
	v.editing = true
	v.editID = 0
	v.formError = ""
	v.focusIdx = groupFieldName
	for i := range v.inputs {
		v.inputs[i].Reset()
	}
	if g != nil {
		v.editID = g.ID
		v.inputs[groupFieldName].SetValue(g.Name)
		v.inputs[groupFieldTags].SetValue(tags.Join(g.Tags))
		v.inputs[groupFieldDesc].SetValue(g.Description)
	}
	v.updateFocus()
}

func (v *TagGroupListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		return v, nil

	case msg.String() == "ctrl+s":
		return v, v.save()

	case msg.String() == "shift+tab":
		v.focusIdx = (v.focusIdx + groupFieldSave) % (groupFieldSave + 1)
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % (groupFieldSave + 1)
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx < groupFieldSave {
			v.focusIdx++
			v.updateFocus()
			return v, nil
		}
		return v, v.save()
	}

	if v.focusIdx >= groupFieldSave {
		return v, nil
	}
	var cmd tea.Cmd
	v.inputs[v.focusIdx], cmd = v.inputs[v.focusIdx].Update(msg)
	return v, cmd
}

func (v *TagGroupListView) updateFocus() {
	for i := range v.inputs {
		if i == v.focusIdx {
			v.inputs[i].Focus()
		} else {
			v.inputs[i].Blur()
		}
	}
}

func (v *TagGroupListView) save() tea.Cmd {
	name := v.inputs[groupFieldName].Value()
	raw := v.inputs[groupFieldTags].Value()
	desc := v.inputs[groupFieldDesc].Value()

	var err error
	if v.editID == 0 {
		_, err = v.db.CreateTagGroup(db.TagGroupInput{Name: name, Tags: raw, Description: desc})
	} else {
		err = v.db.UpdateTagGroup(v.editID, db.TagGroupUpdate{Name: &name, Tags: &raw, Description: &desc})
	}
	if err != nil {
		v.formError = errs.Message(err)
		return nil
	}

	v.editing = false
	return v.loadGroups
}

func (v *TagGroupListView) View() string {
	if v.showHelpPopup {
		return helpPopup(v.styles, v.width, v.height,
			"↵", "preview items",
			"n", "new group",
			"e", "edit group",
			"x", "toggle active",
			"d", "delete group",
			"/", "filter list",
			"g", "collections",
			"q", "quit",
		)
	}
	if v.confirmingDelete {
		return confirmDelete(v.styles, v.width, v.height, "Tag Group", v.deleteTargetName)
	}
	if v.editing {
		return v.renderForm()
	}
	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading...")
	}

	s := v.styles
	var b strings.Builder
	b.WriteString(tabs(s, false))
	b.WriteString("\n")
	b.WriteString(s.TitleMuted.Render(fmt.Sprintf("  %d groups, %d active, %d unique tags",
		v.stats.Total, v.stats.Active, len(v.stats.UniqueTags))))
	b.WriteString("\n\n")
	if v.loadErr != nil {
		b.WriteString(s.StatusError.Render(errs.Message(v.loadErr)))
		b.WriteString("\n")
	}
	if len(v.list.Items()) == 0 {
		b.WriteString(s.TitleMuted.Render("No tag groups. Press 'n' to create one."))
	} else {
		b.WriteString(v.list.View())
	}
	b.WriteString("\n")
	b.WriteString(helpLine(s, styles.ContentWidth(v.width),
		"↵", "preview", "n", "new", "e", "edit", "d", "del", "g", "collections", "q", "quit"))

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TagGroupListView) renderForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	title := "New Tag Group"
	if v.editID != 0 {
		title = "Edit Tag Group"
	}
	labels := []string{
		groupFieldName: "Name:",
		groupFieldTags: "Tags:",
		groupFieldDesc: "Description:",
	}

	rows := []string{s.Title.Render(title), ""}
	for i, in := range v.inputs {
		style := s.Input
		if i == v.focusIdx {
			style = s.InputFocused
		}
		rows = append(rows, labels[i], style.Width(inputWidth).Render(in.View()))
		if i == groupFieldTags && in.Value() != "" {
			ok, hint := tags.Validate(in.Value())
			hintStyle := s.Hint
			if !ok {
				hintStyle = s.HintError
			}
			rows = append(rows, hintStyle.Render(hint))
		}
	}

	btn := s.Button
	if v.focusIdx == groupFieldSave {
		btn = s.ButtonFocused
	}
	rows = append(rows, "", btn.Render(" Save "))
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
