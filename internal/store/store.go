package store

import (
	"context"
	"database/sql"
	errs "errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DaanHessen/quizgame/internal/util"
)

var ErrNoChange = errs.New("no change")

// DB wraps gorm.DB for repositories and exposes Close.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
}

func (d *DB) Close() error { return d.sql.Close() }

// Open connects to DB per config.
func Open(ctx context.Context, cfg util.Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("missing DSN")
	}
	// gorm's default logger writes to stdout, which the TUI owns.
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sdb.SetConnMaxLifetime(30 * time.Minute)
	sdb.SetMaxOpenConns(10)
	sdb.SetMaxIdleConns(5)
	if err := sdb.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &DB{gorm: gdb, sql: sdb}, nil
}

// WithTx executes fn within a database transaction.
func (d *DB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(fn)
}

// Game is one recorded quiz round.
type Game struct {
	ID         uuid.UUID
	Seed       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Score      int
	Total      int
	Outcome    string
}

// Answer is one answered question of a game.
type Answer struct {
	QuestionNo int
	Capital    string
	Answer     string
	Chosen     string
	Correct    bool
	Elapsed    time.Duration
}

// GameRepo persists games.
type GameRepo struct{ db *DB }

func NewGameRepo(db *DB) *GameRepo { return &GameRepo{db: db} }

func (r *GameRepo) Create(ctx context.Context, seed string, total int) (Game, error) {
	g := Game{ID: uuid.New(), Seed: seed, StartedAt: time.Now().UTC(), Total: total, Outcome: "in_progress"}
	err := r.db.gorm.WithContext(ctx).Exec(`INSERT INTO games(id, seed, started_at, total, outcome) VALUES (?,?,?,?,?)`,
		g.ID, g.Seed, g.StartedAt, g.Total, g.Outcome).Error
	if err != nil {
		return Game{}, errors.Wrap(err, "insert game")
	}
	return g, nil
}

func (r *GameRepo) Finish(ctx context.Context, id uuid.UUID, score int, outcome string) error {
	res := r.db.gorm.WithContext(ctx).Exec(`UPDATE games SET score = ?, outcome = ?, finished_at = ? WHERE id = ?`,
		score, outcome, time.Now().UTC(), id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "finish game")
	}
	if res.RowsAffected == 0 {
		return errors.Errorf("finish game: %s not found", id)
	}
	return nil
}

// Recent returns the latest games, newest first.
func (r *GameRepo) Recent(ctx context.Context, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.gorm.WithContext(ctx).Raw(`SELECT id, seed, started_at, finished_at, score, total, outcome FROM games ORDER BY started_at DESC LIMIT ?`, limit).Rows()
	if err != nil {
		return nil, errors.Wrap(err, "query games")
	}
	defer rows.Close()
	var out []Game
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.Seed, &g.StartedAt, &g.FinishedAt, &g.Score, &g.Total, &g.Outcome); err != nil {
			return nil, errors.Wrap(err, "scan game")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// AnswerRepo persists answers.
type AnswerRepo struct{ db *DB }

func NewAnswerRepo(db *DB) *AnswerRepo { return &AnswerRepo{db: db} }

func (r *AnswerRepo) Insert(ctx context.Context, gameID uuid.UUID, a Answer) error {
	err := r.db.gorm.WithContext(ctx).Exec(`INSERT INTO answers(id, game_id, question_no, capital, answer, chosen, correct, elapsed_ms) VALUES (?,?,?,?,?,?,?,?)
	ON CONFLICT (game_id, question_no) DO NOTHING`,
		uuid.New(), gameID, a.QuestionNo, a.Capital, a.Answer, a.Chosen, a.Correct, a.Elapsed.Milliseconds()).Error
	return errors.Wrap(err, "insert answer")
}

// SnapshotRepo keeps the last downloaded Country→Capital map for offline play.
type SnapshotRepo struct{ db *DB }

func NewSnapshotRepo(db *DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

type snapshotRow struct {
	Country string
	Capital string
}

func snapshotRows(m map[string]string) []snapshotRow {
	rows := make([]snapshotRow, 0, len(m))
	for country, capital := range m {
		rows = append(rows, snapshotRow{Country: country, Capital: capital})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Country < rows[j].Country })
	return rows
}

// Replace swaps the stored snapshot for m in one transaction.
func (r *SnapshotRepo) Replace(ctx context.Context, m map[string]string) error {
	now := time.Now().UTC()
	return r.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM country_snapshots`).Error; err != nil {
			return errors.Wrap(err, "clear snapshot")
		}
		for _, row := range snapshotRows(m) {
			if err := tx.Exec(`INSERT INTO country_snapshots(country, capital, fetched_at) VALUES (?,?,?)`, row.Country, row.Capital, now).Error; err != nil {
				return errors.Wrapf(err, "insert snapshot %s", row.Country)
			}
		}
		return nil
	})
}

func (r *SnapshotRepo) Load(ctx context.Context) (map[string]string, error) {
	var rows []snapshotRow
	if err := r.db.gorm.WithContext(ctx).Raw(`SELECT country, capital FROM country_snapshots`).Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load snapshot")
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Country] = row.Capital
	}
	return out, nil
}
