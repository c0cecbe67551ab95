package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/DaanHessen/quizgame/internal/store"
	"github.com/DaanHessen/quizgame/internal/util"
)

// Run boots the TUI program and blocks until it exits. A fatal error shown on
// the error screen, such as a failed capital download, is returned.
func Run(ctx context.Context, src CountrySource, rec store.Recorder, log *zap.Logger, cfg util.Config) error {
	m := initialModel(ctx, src, rec, log, cfg)
	program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return err
	}
	return exitError(final)
}

func exitError(final tea.Model) error {
	if m, ok := final.(model); ok && m.view == viewError {
		return m.err
	}
	return nil
}
