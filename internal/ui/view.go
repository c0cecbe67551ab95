package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/DaanHessen/quizgame/internal/countries"
	"github.com/DaanHessen/quizgame/internal/engine"
)

const (
	defaultWidth  = 100
	minInfoWidth  = 30
	questionWidth = 44
	optionWidth   = questionWidth - 6
)

func (m model) View() string {
	switch m.view {
	case viewLoading:
		return m.renderLoading()
	case viewError:
		return m.renderError()
	case viewHelp:
		return m.renderHelp()
	case viewHistory:
		return m.renderHistory()
	case viewOver:
		return m.renderOver()
	default:
		return m.renderQuestion()
	}
}

func (m model) totalWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m model) infoWidth() int {
	w := m.totalWidth() - questionWidth - 6
	if w < minInfoWidth {
		return minInfoWidth
	}
	return w
}

func (m model) box(width int) lipgloss.Style {
	p := paletteFor(m.theme)
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.Border).Padding(1, 2).Width(width)
}

func (m model) renderLoading() string {
	p := paletteFor(m.theme)
	msg := lipgloss.NewStyle().Foreground(p.Text).Render("Please wait, downloading capital data…")
	return m.box(50).Render(msg)
}

func (m model) renderError() string {
	p := paletteFor(m.theme)
	title := lipgloss.NewStyle().Bold(true).Foreground(p.Wrong).Render("Data Load Error")
	body := fmt.Sprintf("%s\n\n%v\n\nq: quit", title, m.err)
	return m.box(60).Render(body)
}

func (m model) renderTopBar() string {
	p := paletteFor(m.theme)
	total := 0
	score := 0
	if m.game != nil {
		total = m.game.Total()
		score = m.game.Score()
	}
	timer := ""
	if m.game != nil {
		style := lipgloss.NewStyle().Foreground(p.Timer)
		if m.game.Remaining() <= 3 && !m.game.Answered() {
			style = style.Foreground(p.Urgent).Bold(true)
		}
		timer = style.Render(fmt.Sprintf("Time: %d", m.game.Remaining()))
	}
	left := lipgloss.NewStyle().Bold(true).Foreground(p.Accent).Render("Capital → Country Quiz")
	mid := fmt.Sprintf("Question No: %d / %d   Score: %d / %d", m.question.Number, total, score, total)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "   ", lipgloss.NewStyle().Foreground(p.Text).Render(mid), "   ", timer)
}

func (m model) renderBottomBar() string {
	p := paletteFor(m.theme)
	keys := answerKeys(len(m.question.Options)) + " answer"
	if m.game != nil && m.game.Answered() {
		keys = "n/enter next · " + answerKeys(len(m.question.Options)) + " inspect option"
	}
	keys += " · t theme · h history · ? help · q quit"
	line := keys
	if m.status != "" {
		line = m.status + "\n" + keys
	}
	return lipgloss.NewStyle().Foreground(p.Muted).Render(line)
}

func (m model) renderOption(i int, country string) string {
	p := paletteFor(m.theme)
	style := lipgloss.NewStyle().Width(optionWidth).Padding(0, 1).Background(p.Button).Foreground(p.Text)
	label := engine.OptionLabel(i, country)
	if m.result != nil {
		switch {
		case i == m.question.Index(m.result.Answer):
			style = style.Background(p.Correct).Foreground(lipgloss.Color("#ffffff")).Bold(true)
		case i == m.result.Option:
			style = style.Background(p.Wrong).Foreground(lipgloss.Color("#ffffff")).Bold(true)
		}
		label = "ⓘ " + label
	}
	return style.Render(label)
}

func (m model) renderQuestion() string {
	p := paletteFor(m.theme)
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(p.Text).Width(optionWidth).Render(m.question.Prompt()))
	b.WriteString("\n\n")
	for i, o := range m.question.Options {
		b.WriteString(m.renderOption(i, o))
		b.WriteString("\n")
	}
	if m.result != nil {
		b.WriteString("\n")
		if m.result.Correct {
			b.WriteString(lipgloss.NewStyle().Foreground(p.Correct).Render("Correct!"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(p.Wrong).Render("Wrong, it was " + m.result.Answer + "."))
		}
	}
	left := m.box(questionWidth).Render(b.String())
	right := m.box(m.infoWidth()).Render(m.renderInfoPanel())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTopBar(), body, m.renderBottomBar())
}

func (m model) renderInfoPanel() string {
	p := paletteFor(m.theme)
	switch {
	case m.infoFor == "":
		return lipgloss.NewStyle().Foreground(p.Muted).Render("Answer to learn about the country.")
	case m.info == nil:
		return lipgloss.NewStyle().Foreground(p.Muted).Render(fmt.Sprintf("Loading info for %q...", m.infoFor))
	default:
		return m.infoRendered
	}
}

// infoMarkdown lays out the country card.
func infoMarkdown(info countries.Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", info.Country)
	if info.FlagURL != "" {
		fmt.Fprintf(&b, "Flag: %s\n\n", info.FlagURL)
	} else {
		b.WriteString("*No flag available*\n\n")
	}
	fmt.Fprintf(&b, "- %s\n", info.Languages)
	fmt.Fprintf(&b, "- %s\n", info.Currency)
	fmt.Fprintf(&b, "- Capital: %s\n\n", info.Capital)
	b.WriteString(strings.TrimPrefix(info.Summary, "Summary: "))
	b.WriteString("\n")
	return b.String()
}

func renderInfo(info countries.Info, width int, p palette) string {
	md := infoMarkdown(info)
	renderer, err := glamour.NewTermRenderer(glamour.WithStandardStyle(p.Glamour), glamour.WithWordWrap(width-6))
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func (m model) renderOver() string {
	p := paletteFor(m.theme)
	var b strings.Builder
	title := lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	switch m.game.Outcome() {
	case engine.OutcomeTimeout:
		b.WriteString(title.Foreground(p.Wrong).Render("Game Over"))
		b.WriteString("\n\nTime's up!\n")
		fmt.Fprintf(&b, "Score: %d / %d\n\n", m.game.Score(), m.game.Total())
		b.WriteString("Do you want to play again? (y/n)")
	default:
		b.WriteString(title.Render("Quiz Over"))
		fmt.Fprintf(&b, "\n\nQuiz finished!\nYour final score: %d / %d\n\n", m.game.Score(), m.game.Total())
		b.WriteString("Do you want to play again? (y/n)")
	}
	if m.status != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(p.Muted).Render(m.status))
	}
	return m.box(50).Render(b.String())
}

func (m model) renderHistory() string {
	p := paletteFor(m.theme)
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(p.Accent).Render("Recent games"))
	b.WriteString("\n\n")
	if len(m.history) == 0 {
		b.WriteString("(no games recorded)\n")
	}
	for _, g := range m.history {
		fmt.Fprintf(&b, "%s  %2d / %-2d  %-11s  %s\n", g.StartedAt.Local().Format("2006-01-02 15:04"), g.Score, g.Total, g.Outcome, g.Seed)
	}
	b.WriteString("\nesc: back")
	return m.box(70).Render(b.String())
}

// answerKeys names the keys for n options, e.g. "1-4/a-d".
func answerKeys(n int) string {
	if n <= 0 {
		n = engine.DefaultSettings().Options
	}
	return fmt.Sprintf("1-%d/a-%c", n, 'a'+rune(n-1))
}

func (m model) renderHelp() string {
	s := engine.DefaultSettings()
	if m.game != nil {
		s = m.game.Settings()
	}
	help := strings.Join([]string{
		"Capital → Country Quiz",
		"",
		"Each question names a capital; pick the country it belongs to.",
		fmt.Sprintf("You have %d seconds per question. Running out of time ends the game.", s.TimePerQuestion),
		"",
		fmt.Sprintf("%-11s answer (after answering: show that country's info)", answerKeys(s.Options)),
		"n / enter   next question",
		"t           cycle theme",
		"h           recent games",
		"r / y       play again (game over screen)",
		"q / ctrl+c  quit",
		"",
		"esc: back",
	}, "\n")
	return m.box(70).Render(help)
}
