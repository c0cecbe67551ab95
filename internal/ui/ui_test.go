package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaanHessen/quizgame/internal/countries"
	"github.com/DaanHessen/quizgame/internal/engine"
	"github.com/DaanHessen/quizgame/internal/store"
	"github.com/DaanHessen/quizgame/internal/util"
)

type fakeSource struct {
	capitals map[string]string
	err      error
}

func (f fakeSource) CapitalMap(context.Context) (map[string]string, error) {
	return f.capitals, f.err
}

func (f fakeSource) Info(_ context.Context, country string, capitals map[string]string) countries.Info {
	return countries.Info{Country: country, Capital: capitals[country], Languages: "Languages: N/A", Currency: "Currency: N/A", Summary: "summary"}
}

type memRecorder struct {
	store.Recorder
	snapshot map[string]string
	answers  []store.Answer
	finished []string
	saved    int
}

func (r *memRecorder) StartGame(context.Context, string, int) (uuid.UUID, error) { return uuid.New(), nil }
func (r *memRecorder) RecordAnswer(_ context.Context, _ uuid.UUID, a store.Answer) error {
	r.answers = append(r.answers, a)
	return nil
}
func (r *memRecorder) FinishGame(_ context.Context, _ uuid.UUID, score int, outcome string) error {
	r.finished = append(r.finished, fmt.Sprintf("%s:%d", outcome, score))
	return nil
}
func (r *memRecorder) RecentGames(context.Context, int) ([]store.Game, error) { return nil, nil }
func (r *memRecorder) SaveSnapshot(_ context.Context, m map[string]string) error {
	r.saved++
	r.snapshot = m
	return nil
}
func (r *memRecorder) LoadSnapshot(context.Context) (map[string]string, error) { return r.snapshot, nil }

func sampleCapitals(n int) map[string]string {
	m := make(map[string]string, n)
	for i := 0; i < n; i++ {
		m[fmt.Sprintf("Country%02d", i)] = fmt.Sprintf("Capital%02d", i)
	}
	return m
}

func testConfig() util.Config {
	return util.Config{SeedText: "ui-seed", Questions: 3, Options: 4, SecondsPerQ: 2}
}

func key(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out, cmd
}

func started(t *testing.T, rec *memRecorder) model {
	t.Helper()
	m := initialModel(context.Background(), fakeSource{capitals: sampleCapitals(12)}, rec, nil, testConfig())
	msg := m.Init()()
	m, _ = update(t, m, msg)
	require.Equal(t, viewQuestion, m.view)
	return m
}

func TestLoadCapitalsStartsGameAndSnapshots(t *testing.T) {
	rec := &memRecorder{}
	m := started(t, rec)
	assert.Equal(t, 1, rec.saved)
	assert.Equal(t, 1, m.question.Number)
	assert.Len(t, m.question.Options, 4)
	assert.Contains(t, m.View(), m.question.Capital)
}

func TestOfflineSnapshotFallback(t *testing.T) {
	rec := &memRecorder{snapshot: sampleCapitals(8)}
	m := initialModel(context.Background(), fakeSource{err: errors.New("offline")}, rec, nil, testConfig())
	msg := m.Init()()
	m, _ = update(t, m, msg)
	assert.Equal(t, viewQuestion, m.view)
	assert.True(t, m.offline)
}

func TestLoadFailureShowsError(t *testing.T) {
	m := initialModel(context.Background(), fakeSource{err: errors.New("offline")}, nil, nil, testConfig())
	m, _ = update(t, m, m.Init()())
	assert.Equal(t, viewError, m.view)
	assert.Contains(t, m.View(), "Data Load Error")

	m, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	err := exitError(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
}

func TestAnswerThenInspectThenNext(t *testing.T) {
	rec := &memRecorder{}
	m := started(t, rec)
	q := m.question
	correct := q.Index(q.Answer)

	m, cmd := update(t, m, key(fmt.Sprint(correct+1)))
	require.NotNil(t, cmd)
	require.NotNil(t, m.result)
	assert.True(t, m.result.Correct)
	assert.Equal(t, 1, m.game.Score())
	require.Len(t, rec.answers, 1)
	assert.Equal(t, q.Capital, rec.answers[0].Capital)

	m, _ = update(t, m, cmd())
	require.NotNil(t, m.info)
	assert.Equal(t, q.Answer, m.info.Country)

	other := (correct + 1) % len(q.Options)
	m, cmd = update(t, m, key(string(rune('a'+other))))
	require.NotNil(t, cmd)
	assert.Equal(t, q.Options[other], m.infoFor)
	assert.Equal(t, 1, m.game.Score(), "inspecting must not rescore")
	assert.Len(t, rec.answers, 1)

	m, _ = update(t, m, key("n"))
	assert.Equal(t, 2, m.question.Number)
	assert.Nil(t, m.result)
}

func TestStaleInfoIgnored(t *testing.T) {
	m := started(t, &memRecorder{})
	m, _ = update(t, m, infoMsg{question: 99, info: countries.Info{Country: "X"}})
	assert.Nil(t, m.info)
}

func TestTimeoutEndsGame(t *testing.T) {
	rec := &memRecorder{}
	m := started(t, rec)
	m, cmd := update(t, m, tickMsg{id: m.tickID})
	require.NotNil(t, cmd)
	assert.Equal(t, viewQuestion, m.view)

	// stale tick ids are ignored
	m, cmd = update(t, m, tickMsg{id: m.tickID - 1})
	assert.Nil(t, cmd)

	m, _ = update(t, m, tickMsg{id: m.tickID})
	assert.Equal(t, viewOver, m.view)
	assert.Equal(t, engine.OutcomeTimeout, m.game.Outcome())
	assert.Contains(t, m.View(), "Time's up!")
	assert.Equal(t, []string{"timeout:0"}, rec.finished)

	m, _ = update(t, m, key("y"))
	assert.Equal(t, viewQuestion, m.view)
	assert.Equal(t, 1, m.question.Number)
}

func TestFinishAllQuestions(t *testing.T) {
	rec := &memRecorder{}
	m := started(t, rec)
	for i := 0; i < 3; i++ {
		q := m.question
		m, _ = update(t, m, key(fmt.Sprint(q.Index(q.Answer)+1)))
		m, _ = update(t, m, key("n"))
	}
	assert.Equal(t, viewOver, m.view)
	assert.Equal(t, engine.OutcomeFinished, m.game.Outcome())
	assert.True(t, strings.Contains(m.View(), "Your final score: 3 / 3"))
	assert.Equal(t, []string{"finished:3"}, rec.finished)
	assert.NoError(t, exitError(m))
}

func TestQuitAbandonsRunningGame(t *testing.T) {
	rec := &memRecorder{}
	m := started(t, rec)
	_, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"abandoned:0"}, rec.finished)
}

func TestHelpAndHistoryReturn(t *testing.T) {
	m := started(t, &memRecorder{})
	m, _ = update(t, m, key("?"))
	assert.Equal(t, viewHelp, m.view)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewQuestion, m.view)
	m, _ = update(t, m, key("h"))
	assert.Equal(t, viewHistory, m.view)
	assert.Contains(t, m.View(), "no games recorded")
}

func TestThemeCycles(t *testing.T) {
	assert.Equal(t, "classic", nextThemeName("catppuccin", 1))
	assert.Equal(t, "catppuccin", nextThemeName("classic", -1))
	assert.Equal(t, palettes[defaultTheme], paletteFor("nope"))
}

func TestInfoMarkdown(t *testing.T) {
	md := infoMarkdown(countries.Info{Country: "Italy", Capital: "Rome", Languages: "Languages: Italian", Currency: "Currency: Euro", Summary: "Summary: Italy is a country."})
	assert.Contains(t, md, "# Italy")
	assert.Contains(t, md, "- Capital: Rome")
	assert.Contains(t, md, "No flag available")
	assert.Contains(t, md, "Italy is a country.")
	assert.NotContains(t, md, "Summary: ")
}

func TestCountdownKeepsRunningUnderOverlays(t *testing.T) {
	rec := &memRecorder{}
	m := started(t, rec)

	m, _ = update(t, m, key("?"))
	require.Equal(t, viewHelp, m.view)
	m, cmd := update(t, m, tickMsg{id: m.tickID})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, m.game.Remaining())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, viewQuestion, m.view)

	m, _ = update(t, m, key("h"))
	require.Equal(t, viewHistory, m.view)
	m, _ = update(t, m, tickMsg{id: m.tickID})
	assert.Equal(t, viewOver, m.view)
	assert.Equal(t, engine.OutcomeTimeout, m.game.Outcome())
	assert.Equal(t, []string{"timeout:0"}, rec.finished)
}

func TestEveryOptionHasAKey(t *testing.T) {
	cfg := testConfig()
	cfg.Options = 8
	m := initialModel(context.Background(), fakeSource{capitals: sampleCapitals(12)}, &memRecorder{}, nil, cfg)
	m, _ = update(t, m, m.Init()())
	require.Len(t, m.question.Options, engine.MaxOptions)
	for i := range m.question.Options {
		got, ok := optionIndex(string(rune('1' + i)))
		require.True(t, ok)
		assert.Equal(t, i, got)
		got, ok = optionIndex(string(rune('a' + i)))
		require.True(t, ok)
		assert.Equal(t, i, got)
	}
	assert.Contains(t, m.View(), "1-6/a-f answer")

	q := m.question
	m, _ = update(t, m, key(string(rune('1'+q.Index(q.Answer)))))
	require.NotNil(t, m.result)
	assert.True(t, m.result.Correct)
}

func TestAnswerKeys(t *testing.T) {
	assert.Equal(t, "1-4/a-d", answerKeys(4))
	assert.Equal(t, "1-2/a-b", answerKeys(2))
	assert.Equal(t, "1-4/a-d", answerKeys(0))
}
