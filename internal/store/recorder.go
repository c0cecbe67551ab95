package store

import (
	"context"

	"github.com/google/uuid"
)

// Recorder is what the game needs from persistence.
type Recorder interface {
	StartGame(ctx context.Context, seed string, total int) (uuid.UUID, error)
	RecordAnswer(ctx context.Context, gameID uuid.UUID, a Answer) error
	FinishGame(ctx context.Context, gameID uuid.UUID, score int, outcome string) error
	RecentGames(ctx context.Context, limit int) ([]Game, error)
	SaveSnapshot(ctx context.Context, capitals map[string]string) error
	LoadSnapshot(ctx context.Context) (map[string]string, error)
}

// NewRecorder returns a Postgres-backed Recorder.
func NewRecorder(db *DB) Recorder {
	return &dbRecorder{
		games:     NewGameRepo(db),
		answers:   NewAnswerRepo(db),
		snapshots: NewSnapshotRepo(db),
	}
}

type dbRecorder struct {
	games     *GameRepo
	answers   *AnswerRepo
	snapshots *SnapshotRepo
}

func (r *dbRecorder) StartGame(ctx context.Context, seed string, total int) (uuid.UUID, error) {
	g, err := r.games.Create(ctx, seed, total)
	return g.ID, err
}

func (r *dbRecorder) RecordAnswer(ctx context.Context, gameID uuid.UUID, a Answer) error {
	return r.answers.Insert(ctx, gameID, a)
}

func (r *dbRecorder) FinishGame(ctx context.Context, gameID uuid.UUID, score int, outcome string) error {
	return r.games.Finish(ctx, gameID, score, outcome)
}

func (r *dbRecorder) RecentGames(ctx context.Context, limit int) ([]Game, error) {
	return r.games.Recent(ctx, limit)
}

func (r *dbRecorder) SaveSnapshot(ctx context.Context, capitals map[string]string) error {
	return r.snapshots.Replace(ctx, capitals)
}

func (r *dbRecorder) LoadSnapshot(ctx context.Context) (map[string]string, error) {
	return r.snapshots.Load(ctx)
}

// NopRecorder discards everything; used when the database is disabled.
func NopRecorder() Recorder { return nopRecorder{} }

type nopRecorder struct{}

func (nopRecorder) StartGame(context.Context, string, int) (uuid.UUID, error) { return uuid.New(), nil }
func (nopRecorder) RecordAnswer(context.Context, uuid.UUID, Answer) error     { return nil }
func (nopRecorder) FinishGame(context.Context, uuid.UUID, int, string) error  { return nil }
func (nopRecorder) RecentGames(context.Context, int) ([]Game, error)          { return nil, nil }
func (nopRecorder) SaveSnapshot(context.Context, map[string]string) error     { return nil }
func (nopRecorder) LoadSnapshot(context.Context) (map[string]string, error)   { return nil, nil }
