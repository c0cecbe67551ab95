package ui

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DaanHessen/quizgame/internal/countries"
	"github.com/DaanHessen/quizgame/internal/engine"
	"github.com/DaanHessen/quizgame/internal/store"
	"github.com/DaanHessen/quizgame/internal/util"
)

const (
	viewLoading  = "loading"
	viewQuestion = "question"
	viewOver     = "over"
	viewHistory  = "history"
	viewHelp     = "help"
	viewError    = "error"
)

var seedEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// CountrySource is what the game needs from the countries client.
type CountrySource interface {
	CapitalMap(ctx context.Context) (map[string]string, error)
	Info(ctx context.Context, country string, capitals map[string]string) countries.Info
}

type capitalsMsg struct {
	capitals map[string]string
	offline  bool
	err      error
}

type tickMsg struct{ id int }

type infoMsg struct {
	question int
	info     countries.Info
}

type model struct {
	ctx context.Context
	cfg util.Config
	src CountrySource
	rec store.Recorder
	log *zap.Logger

	capitals map[string]string
	offline  bool

	game     *engine.Game
	gameID   uuid.UUID
	seedText string
	question engine.Question
	result   *engine.Result

	// info panel
	infoFor      string
	info         *countries.Info
	infoRendered string

	view     string
	prevView string
	status   string
	err      error
	history  []store.Game
	theme    string
	tickID   int
	width    int
	height   int
}

func randomSeedText() string {
	buf := make([]byte, 15)
	if _, err := rand.Read(buf); err != nil {
		return "fallback-seed"
	}
	return strings.ToLower(seedEncoding.EncodeToString(buf))
}

func initialModel(ctx context.Context, src CountrySource, rec store.Recorder, log *zap.Logger, cfg util.Config) model {
	if rec == nil {
		rec = store.NopRecorder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	theme := cfg.Theme
	if _, ok := palettes[theme]; !ok {
		theme = defaultTheme
	}
	return model{
		ctx:      ctx,
		cfg:      cfg,
		src:      src,
		rec:      rec,
		log:      log.Named("ui"),
		view:     viewLoading,
		theme:    theme,
		seedText: strings.TrimSpace(cfg.SeedText),
	}
}

func (m model) settings() engine.Settings {
	return engine.Settings{Questions: m.cfg.Questions, Options: m.cfg.Options, TimePerQuestion: m.cfg.SecondsPerQ}
}

// loadCapitals downloads the map, snapshotting it on success and falling back
// to the last snapshot on failure.
func (m model) loadCapitals() tea.Msg {
	capitals, err := m.src.CapitalMap(m.ctx)
	if err == nil {
		if serr := m.rec.SaveSnapshot(m.ctx, capitals); serr != nil {
			m.log.Warn("saving capital snapshot failed", zap.Error(serr))
		}
		return capitalsMsg{capitals: capitals}
	}
	m.log.Error("capital download failed", zap.Error(err))
	snap, serr := m.rec.LoadSnapshot(m.ctx)
	if serr == nil && len(snap) > 0 {
		m.log.Info("using offline capital snapshot", zap.Int("size", len(snap)))
		return capitalsMsg{capitals: snap, offline: true}
	}
	return capitalsMsg{err: err}
}

func (m model) loadInfo(question int, country string) tea.Cmd {
	src, ctx, capitals := m.src, m.ctx, m.capitals
	return func() tea.Msg {
		return infoMsg{question: question, info: src.Info(ctx, country, capitals)}
	}
}

func (m model) tick() tea.Cmd {
	id := m.tickID
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{id: id} })
}

// startGame builds a new game and loads its first question. The configured
// seed is used for the first game only; restarts draw a fresh one.
func (m *model) startGame() tea.Cmd {
	seedText := m.seedText
	if seedText == "" {
		seedText = randomSeedText()
	}
	m.seedText = ""
	seed, err := engine.NewRunSeed(seedText)
	if err != nil {
		m.fail(err)
		return nil
	}
	g, err := engine.NewGame(engine.PairsFromMap(m.capitals), seed, m.settings())
	if err != nil {
		m.fail(err)
		return nil
	}
	m.game = g
	m.log.Info("starting quiz", zap.String("seed", seedText), zap.Int("questions", g.Total()))
	id, err := m.rec.StartGame(m.ctx, seedText, g.Total())
	if err != nil {
		m.log.Warn("recording game start failed", zap.Error(err))
		m.status = "Not recording: " + err.Error()
		m.rec = store.NopRecorder()
		id, _ = m.rec.StartGame(m.ctx, seedText, g.Total())
	}
	m.gameID = id
	return m.nextQuestion()
}

func (m *model) nextQuestion() tea.Cmd {
	m.result = nil
	m.info = nil
	m.infoFor = ""
	m.infoRendered = ""
	q, ok := m.game.Next()
	if !ok {
		m.finish()
		return nil
	}
	m.question = q
	m.view = viewQuestion
	m.tickID++
	m.log.Debug("loading question", zap.Int("number", q.Number), zap.String("capital", q.Capital))
	return m.tick()
}

// finish records the end of the current game and shows the game-over screen.
func (m *model) finish() {
	if m.game == nil {
		return
	}
	m.tickID++
	outcome := m.game.Outcome()
	m.log.Info("quiz ended", zap.String("outcome", string(outcome)), zap.Int("score", m.game.Score()), zap.Int("total", m.game.Total()))
	if err := m.rec.FinishGame(m.ctx, m.gameID, m.game.Score(), string(outcome)); err != nil {
		m.log.Warn("recording game end failed", zap.Error(err))
	}
	m.view = viewOver
}

func (m *model) fail(err error) {
	m.err = err
	m.view = viewError
	m.log.Error("quiz error", zap.Error(err))
}

// answer handles option i. Before the question is locked it scores; after,
// it only switches the info panel to the chosen country.
func (m *model) answer(i int) tea.Cmd {
	res, err := m.game.Answer(i)
	switch {
	case errors.Is(err, engine.ErrAlreadyAnswered):
		m.log.Debug("inspecting option after answer", zap.String("country", res.Chosen))
		return m.showInfo(res.Chosen)
	case err != nil:
		return nil
	}
	m.result = &res
	m.tickID++
	if res.Correct {
		m.log.Info("correct answer", zap.String("chosen", res.Chosen))
	} else {
		m.log.Warn("wrong answer", zap.String("chosen", res.Chosen), zap.String("correct", res.Answer))
	}
	if err := m.rec.RecordAnswer(m.ctx, m.gameID, store.Answer{
		QuestionNo: m.question.Number,
		Capital:    m.question.Capital,
		Answer:     res.Answer,
		Chosen:     res.Chosen,
		Correct:    res.Correct,
		Elapsed:    time.Duration(res.Elapsed) * time.Second,
	}); err != nil {
		m.log.Warn("recording answer failed", zap.Error(err))
	}
	return m.showInfo(res.Answer)
}

func (m *model) showInfo(country string) tea.Cmd {
	if country == m.infoFor && m.info != nil {
		return nil
	}
	m.infoFor = country
	m.info = nil
	m.infoRendered = ""
	return m.loadInfo(m.question.Number, country)
}

func (m *model) loadHistory() {
	games, err := m.rec.RecentGames(m.ctx, 15)
	if err != nil {
		m.status = "History unavailable: " + err.Error()
		m.history = nil
		return
	}
	m.history = games
}

// questionRunning reports whether a question is on screen or under the help
// or history overlay. The countdown keeps going in both cases.
func (m model) questionRunning() bool {
	switch m.view {
	case viewQuestion:
		return true
	case viewHelp, viewHistory:
		return m.prevView == viewQuestion
	}
	return false
}

func optionIndex(k string) (int, bool) {
	switch k {
	case "1", "a", "A":
		return 0, true
	case "2", "b", "B":
		return 1, true
	case "3", "c", "C":
		return 2, true
	case "4", "d", "D":
		return 3, true
	case "5", "e", "E":
		return 4, true
	case "6", "f", "F":
		return 5, true
	}
	return 0, false
}

// tea.Model implementation ---------------------------------------------------
func (m model) Init() tea.Cmd { return m.loadCapitals }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.info != nil {
			m.infoRendered = renderInfo(*m.info, m.infoWidth(), paletteFor(m.theme))
		}
		return m, nil
	case capitalsMsg:
		if msg.err != nil {
			m.fail(fmt.Errorf("failed to fetch any country-capital pairs; check your Internet connection and try again: %w", msg.err))
			return m, nil
		}
		m.capitals = msg.capitals
		m.offline = msg.offline
		if msg.offline {
			m.status = "Offline: using saved country list"
		}
		cmd := m.startGame()
		return m, cmd
	case tickMsg:
		if msg.id != m.tickID || m.game == nil || !m.questionRunning() {
			return m, nil
		}
		if m.game.Tick() {
			m.log.Warn("time expired", zap.Int("question", m.question.Number))
			m.finish()
			return m, nil
		}
		return m, m.tick()
	case infoMsg:
		if msg.question != m.question.Number || msg.info.Country != m.infoFor {
			return m, nil
		}
		info := msg.info
		m.info = &info
		m.infoRendered = renderInfo(info, m.infoWidth(), paletteFor(m.theme))
		m.log.Info("country info displayed", zap.String("country", info.Country))
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m model) handleKey(k string) (tea.Model, tea.Cmd) {
	if k == "ctrl+c" {
		return m.quit()
	}
	switch m.view {
	case viewHelp, viewHistory:
		if k == "esc" || k == "q" || k == "?" || k == "h" {
			m.view = m.prevView
		}
		return m, nil
	case viewError, viewLoading:
		if k == "q" || k == "esc" {
			return m.quit()
		}
		return m, nil
	}

	switch k {
	case "q":
		return m.quit()
	case "?":
		m.prevView, m.view = m.view, viewHelp
		return m, nil
	case "h":
		m.loadHistory()
		m.prevView, m.view = m.view, viewHistory
		return m, nil
	case "t":
		m.theme = nextThemeName(m.theme, 1)
		if m.info != nil {
			m.infoRendered = renderInfo(*m.info, m.infoWidth(), paletteFor(m.theme))
		}
		return m, nil
	}

	switch m.view {
	case viewQuestion:
		if i, ok := optionIndex(k); ok && i < len(m.question.Options) {
			cmd := m.answer(i)
			return m, cmd
		}
		if (k == "n" || k == "enter") && m.game.Answered() {
			cmd := m.nextQuestion()
			return m, cmd
		}
	case viewOver:
		switch k {
		case "r", "y", "enter":
			cmd := m.startGame()
			return m, cmd
		case "n":
			return m.quit()
		}
	}
	return m, nil
}

func (m model) quit() (tea.Model, tea.Cmd) {
	if m.game != nil && !m.game.Over() {
		m.game.Abandon()
		m.finish()
	}
	return m, tea.Quit
}
