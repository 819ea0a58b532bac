package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stash/internal/models"
	"github.com/tgienger/stash/internal/ui/styles"
)

// OpenResults asks the app to show the items matching Filter. CollectionID
// is zero for unsaved filters such as a tag group preview.
type OpenResults struct {
	Title        string
	CollectionID int64
	Filter       models.Filter
}

// BackToLists returns from the results view
type BackToLists struct{}

// SwitchList toggles between the collection and tag group lists
type SwitchList struct{}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// helpLine renders key/description pairs, or a "? help" hint when the
// terminal is too narrow for them.
func helpLine(s *styles.Styles, width int, pairs ...string) string {
	if width > 0 && width < 50 {
		return s.Help.Render(s.HelpKey.Render("?") + " help")
	}
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, s.HelpKey.Render(pairs[i])+" "+pairs[i+1])
	}
	return s.Help.Render(strings.Join(parts, " • "))
}

// helpPopup renders the full shortcut list in a bordered box
func helpPopup(s *styles.Styles, width, height int, pairs ...string) string {
	lines := []string{s.Title.Render("Keyboard Shortcuts"), ""}
	for i := 0; i+1 < len(pairs); i += 2 {
		lines = append(lines, fmt.Sprintf("%-7s%s", s.HelpKey.Render(pairs[i]), pairs[i+1]))
	}
	lines = append(lines, "", s.TitleMuted.Render("Press any key to close"))

	centered := lipgloss.Place(styles.ContentWidth(width), height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)),
	)
	return styles.CenterView(centered, width, height)
}

// confirmDelete renders the y/n prompt shared by the list views
func confirmDelete(s *styles.Styles, width, height int, kind, name string) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete "+kind+"?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("%q will be removed. Items are kept.", name)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(styles.ContentWidth(width), height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, width, height)
}

// tabs renders the list switcher header
func tabs(s *styles.Styles, collectionsActive bool) string {
	collections, groups := s.Tab, s.TabActive
	if collectionsActive {
		collections, groups = s.TabActive, s.Tab
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		collections.Render("Collections"),
		groups.Render("Tag Groups"),
	)
}

func countLabel(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}
