package ui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Accent  lipgloss.Color
	Border  lipgloss.Color
	Correct lipgloss.Color
	Wrong   lipgloss.Color
	Timer   lipgloss.Color
	Urgent  lipgloss.Color
	Button  lipgloss.Color
	Glamour string // glamour standard style name
}

var palettes = map[string]palette{
	"catppuccin": {
		Text:    lipgloss.Color("#cdd6f4"),
		Muted:   lipgloss.Color("#a6adc8"),
		Accent:  lipgloss.Color("#cba6f7"),
		Border:  lipgloss.Color("#585b70"),
		Correct: lipgloss.Color("#a6e3a1"),
		Wrong:   lipgloss.Color("#f38ba8"),
		Timer:   lipgloss.Color("#94e2d5"),
		Urgent:  lipgloss.Color("#fab387"),
		Button:  lipgloss.Color("#313244"),
		Glamour: "dark",
	},
	"dracula": {
		Text:    lipgloss.Color("#f8f8f2"),
		Muted:   lipgloss.Color("#6272a4"),
		Accent:  lipgloss.Color("#ff79c6"),
		Border:  lipgloss.Color("#44475a"),
		Correct: lipgloss.Color("#50fa7b"),
		Wrong:   lipgloss.Color("#ff5555"),
		Timer:   lipgloss.Color("#8be9fd"),
		Urgent:  lipgloss.Color("#ffb86c"),
		Button:  lipgloss.Color("#343746"),
		Glamour: "dracula",
	},
	"gruvbox": {
		Text:    lipgloss.Color("#ebdbb2"),
		Muted:   lipgloss.Color("#a89984"),
		Accent:  lipgloss.Color("#fabd2f"),
		Border:  lipgloss.Color("#665c54"),
		Correct: lipgloss.Color("#b8bb26"),
		Wrong:   lipgloss.Color("#fb4934"),
		Timer:   lipgloss.Color("#83a598"),
		Urgent:  lipgloss.Color("#fe8019"),
		Button:  lipgloss.Color("#3c3836"),
		Glamour: "dark",
	},
	// Grey buttons with forest green and firebrick answers.
	"classic": {
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#9e9e9e"),
		Accent:  lipgloss.Color("#64b5f6"),
		Border:  lipgloss.Color("#3c3c3c"),
		Correct: lipgloss.Color("#228b22"),
		Wrong:   lipgloss.Color("#b22222"),
		Timer:   lipgloss.Color("#ffffff"),
		Urgent:  lipgloss.Color("#ff7043"),
		Button:  lipgloss.Color("#323232"),
		Glamour: "dark",
	},
}

const defaultTheme = "catppuccin"

func paletteFor(name string) palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[defaultTheme]
}

func themeNames() []string {
	names := make([]string, 0, len(palettes))
	for k := range palettes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func nextThemeName(current string, step int) string {
	names := themeNames()
	if len(names) == 0 {
		return current
	}
	idx := 0
	for i, name := range names {
		if name == current {
			idx = i
			break
		}
	}
	idx = (idx + step) % len(names)
	if idx < 0 {
		idx += len(names)
	}
	return names[idx]
}
