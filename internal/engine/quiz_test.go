package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePairs(n int) []Pair {
	out := make([]Pair, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Pair{Country: fmt.Sprintf("Country%02d", i), Capital: fmt.Sprintf("Capital%02d", i)})
	}
	return out
}

func newTestGame(t *testing.T, seedText string, n int, s Settings) *Game {
	t.Helper()
	seed, err := NewRunSeed(seedText)
	require.NoError(t, err)
	g, err := NewGame(samplePairs(n), seed, s)
	require.NoError(t, err)
	return g
}

func TestNewGameNeedsEnoughCountries(t *testing.T) {
	seed, _ := NewRunSeed("few")
	_, err := NewGame(samplePairs(3), seed, DefaultSettings())
	require.ErrorIs(t, err, ErrNotEnoughCountries)
}

func TestNewGameSkipsBlankAndDuplicatePairs(t *testing.T) {
	seed, _ := NewRunSeed("dups")
	pairs := []Pair{
		{Country: "A", Capital: "a"},
		{Country: "A", Capital: "a2"},
		{Country: "", Capital: "x"},
		{Country: "B", Capital: ""},
		{Country: "C", Capital: "c"},
		{Country: "D", Capital: "d"},
	}
	_, err := NewGame(pairs, seed, DefaultSettings())
	require.ErrorIs(t, err, ErrNotEnoughCountries)

	pairs = append(pairs, Pair{Country: "E", Capital: "e"})
	g, err := NewGame(pairs, seed, DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 4, g.Total())
}

func TestPoolIsCappedAtQuestionCount(t *testing.T) {
	g := newTestGame(t, "cap", 50, DefaultSettings())
	assert.Equal(t, 10, g.Total())

	small := newTestGame(t, "cap", 6, DefaultSettings())
	assert.Equal(t, 6, small.Total())
}

func TestQuestionsHaveDistinctOptionsIncludingAnswer(t *testing.T) {
	g := newTestGame(t, "options", 30, DefaultSettings())
	capitals := map[string]string{}
	for _, p := range samplePairs(30) {
		capitals[p.Country] = p.Capital
	}
	seen := map[string]bool{}
	for {
		q, ok := g.Next()
		if !ok {
			break
		}
		require.Len(t, q.Options, 4)
		uniq := map[string]bool{}
		for _, o := range q.Options {
			uniq[o] = true
		}
		assert.Len(t, uniq, 4, "options must be distinct: %v", q.Options)
		assert.GreaterOrEqual(t, q.Index(q.Answer), 0)
		assert.False(t, seen[q.Answer], "question repeated: %s", q.Answer)
		seen[q.Answer] = true
		assert.Equal(t, capitals[q.Answer], q.Capital)
		_, err := g.Answer(q.Index(q.Answer))
		require.NoError(t, err)
	}
	assert.Equal(t, OutcomeFinished, g.Outcome())
	assert.Equal(t, 10, g.Score())
}

func TestSameSeedSameQuestions(t *testing.T) {
	a := newTestGame(t, "repeat", 40, DefaultSettings())
	b := newTestGame(t, "repeat", 40, DefaultSettings())
	for i := 0; i < 10; i++ {
		qa, _ := a.Next()
		qb, _ := b.Next()
		assert.Equal(t, qa, qb)
	}
}

func TestAnswerScoresOnceAndLocks(t *testing.T) {
	g := newTestGame(t, "lock", 20, DefaultSettings())
	q, ok := g.Next()
	require.True(t, ok)
	wrong := (q.Index(q.Answer) + 1) % len(q.Options)

	res, err := g.Answer(wrong)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, q.Answer, res.Answer)
	assert.True(t, g.Answered())

	res, err = g.Answer(q.Index(q.Answer))
	require.ErrorIs(t, err, ErrAlreadyAnswered)
	assert.Equal(t, q.Answer, res.Chosen)
	assert.Equal(t, 0, g.Score())
}

func TestAnswerValidation(t *testing.T) {
	g := newTestGame(t, "validate", 20, DefaultSettings())
	_, err := g.Answer(0)
	require.ErrorIs(t, err, ErrNoQuestion)
	g.Next()
	_, err = g.Answer(7)
	require.ErrorIs(t, err, ErrInvalidOption)
}

func TestTickTimesOutUnansweredQuestion(t *testing.T) {
	g := newTestGame(t, "timer", 20, Settings{Questions: 3, Options: 4, TimePerQuestion: 3})
	g.Next()
	assert.False(t, g.Tick())
	assert.False(t, g.Tick())
	assert.Equal(t, 1, g.Remaining())
	assert.True(t, g.Tick())
	assert.Equal(t, OutcomeTimeout, g.Outcome())
	assert.True(t, g.Over())

	_, err := g.Answer(0)
	require.ErrorIs(t, err, ErrGameOver)
	_, ok := g.Next()
	assert.False(t, ok)
}

func TestTickStopsAfterAnswer(t *testing.T) {
	g := newTestGame(t, "stop", 20, Settings{Questions: 3, Options: 4, TimePerQuestion: 2})
	q, _ := g.Next()
	g.Tick()
	res, err := g.Answer(q.Index(q.Answer))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Elapsed)
	assert.False(t, g.Tick())
	assert.Equal(t, OutcomeInProgress, g.Outcome())
}

func TestAbandon(t *testing.T) {
	g := newTestGame(t, "quit", 20, DefaultSettings())
	g.Next()
	g.Abandon()
	assert.Equal(t, OutcomeAbandoned, g.Outcome())
}

func TestOptionLabel(t *testing.T) {
	assert.Equal(t, "A) France", OptionLabel(0, "France"))
	assert.Equal(t, "D) Peru", OptionLabel(3, "Peru"))
}

func TestPairsFromMapSorted(t *testing.T) {
	pairs := PairsFromMap(map[string]string{"Peru": "Lima", "Chad": "N'Djamena", "Italy": "Rome"})
	require.Len(t, pairs, 3)
	assert.Equal(t, "Chad", pairs[0].Country)
	assert.Equal(t, "Peru", pairs[2].Country)
}

func TestOptionsClampedToKeyableRange(t *testing.T) {
	g := newTestGame(t, "many", 20, Settings{Questions: 2, Options: 8, TimePerQuestion: 5})
	assert.Equal(t, MaxOptions, g.Settings().Options)
	q, ok := g.Next()
	require.True(t, ok)
	assert.Len(t, q.Options, MaxOptions)

	g = newTestGame(t, "one", 20, Settings{Questions: 2, Options: 1, TimePerQuestion: 5})
	assert.Equal(t, MinOptions, g.Settings().Options)

	g = newTestGame(t, "unset", 20, Settings{Questions: 2, TimePerQuestion: 5})
	assert.Equal(t, DefaultSettings().Options, g.Settings().Options)
}
