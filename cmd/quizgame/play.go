package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DaanHessen/quizgame/internal/engine"
	"github.com/DaanHessen/quizgame/internal/store"
	"github.com/DaanHessen/quizgame/internal/ui"
	"github.com/DaanHessen/quizgame/internal/util"
)

func newPlayCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the quiz (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.play(cmd.Context())
		},
	}
	d := engine.DefaultSettings()
	f := cmd.Flags()
	f.String("seed", "", "Game seed string (optional; random if omitted)")
	f.String("theme", "catppuccin", "Theme: catppuccin|classic|dracula|gruvbox")
	f.Int("questions", d.Questions, "Questions per game")
	f.Int("options", d.Options, "Answer options per question")
	f.Int("time", d.TimePerQuestion, "Seconds per question")
	return cmd
}

func (a *app) play(ctx context.Context) error {
	cfg := a.config()
	src, err := a.countriesClient(cfg)
	if err != nil {
		return err
	}
	rec, closeRec := a.recorder(ctx, cfg)
	defer closeRec()

	a.log.Info("starting quizgame", zap.Bool("recording", cfg.UseDB))
	if err := ui.Run(ctx, src, rec, a.log, cfg); err != nil {
		return errors.Wrap(err, "run ui")
	}
	return nil
}

// recorder opens the database and applies migrations. Any failure degrades to
// a recorder that keeps nothing, so the quiz stays playable offline.
func (a *app) recorder(ctx context.Context, cfg util.Config) (store.Recorder, func()) {
	if !cfg.UseDB {
		return store.NopRecorder(), func() {}
	}
	mig, err := store.NewMigrator(cfg.DSN)
	if err == nil {
		migCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = mig.Up(migCtx)
		cancel()
		if errors.Is(err, store.ErrNoChange) {
			err = nil
		}
	}
	if err != nil {
		a.log.Warn("migrations failed; games will not be recorded", zap.Error(err))
		return store.NopRecorder(), func() {}
	}
	db, err := store.Open(ctx, cfg)
	if err != nil {
		a.log.Warn("database unavailable; games will not be recorded", zap.Error(err))
		return store.NopRecorder(), func() {}
	}
	return store.NewRecorder(db), func() { _ = db.Close() }
}
