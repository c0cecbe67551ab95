package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotEnoughCountries = errors.New("not enough countries to build options")
	ErrNoQuestion         = errors.New("no question loaded")
	ErrAlreadyAnswered    = errors.New("question already answered")
	ErrInvalidOption      = errors.New("invalid option")
	ErrGameOver           = errors.New("game is over")
)

// Outcome is how a game ended. String backed for DB interoperability.
type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeFinished   Outcome = "finished"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeAbandoned  Outcome = "abandoned"
)

// Settings controls the shape of a game.
type Settings struct {
	Questions       int
	Options         int
	TimePerQuestion int // seconds
}

// MinOptions and MaxOptions bound the answer options per question. Each
// option needs its own key (1-6, a-f).
const (
	MinOptions = 2
	MaxOptions = 6
)

// DefaultSettings: ten questions, four options, ten seconds each.
func DefaultSettings() Settings {
	return Settings{Questions: 10, Options: 4, TimePerQuestion: 10}
}

func (s Settings) normalized() Settings {
	d := DefaultSettings()
	if s.Questions <= 0 {
		s.Questions = d.Questions
	}
	switch {
	case s.Options <= 0:
		s.Options = d.Options
	case s.Options < MinOptions:
		s.Options = MinOptions
	case s.Options > MaxOptions:
		s.Options = MaxOptions
	}
	if s.TimePerQuestion <= 0 {
		s.TimePerQuestion = d.TimePerQuestion
	}
	return s
}

// Pair is one country and its capital.
type Pair struct {
	Country string
	Capital string
}

// PairsFromMap flattens a Country→Capital map into pairs sorted by country.
func PairsFromMap(m map[string]string) []Pair {
	out := make([]Pair, 0, len(m))
	for country, capital := range m {
		out = append(out, Pair{Country: country, Capital: capital})
	}
	sortPairs(out)
	return out
}

func sortPairs(p []Pair) {
	sort.Slice(p, func(i, j int) bool { return p[i].Country < p[j].Country })
}

// Question asks which country a capital belongs to.
type Question struct {
	Number  int // 1-based
	Capital string
	Answer  string
	Options []string
}

// Prompt is the text shown to the player.
func (q Question) Prompt() string {
	return q.Capital + " is the capital of which country?"
}

// Index returns the option index holding country, or -1.
func (q Question) Index(country string) int {
	for i, o := range q.Options {
		if o == country {
			return i
		}
	}
	return -1
}

// OptionLabel renders "A) France" style labels.
func OptionLabel(i int, country string) string {
	return fmt.Sprintf("%c) %s", 'A'+rune(i), country)
}

// Result describes an answer.
type Result struct {
	Option  int
	Chosen  string
	Answer  string
	Correct bool
	Elapsed int // seconds spent before answering
}

// Game holds the state of a single quiz round. It is not safe for concurrent use;
// the UI drives it from its update loop.
type Game struct {
	Seed     RunSeed
	settings Settings
	pairs    []Pair
	pool     []Pair

	loaded    int
	current   *Question
	answered  bool
	remaining int
	score     int
	outcome   Outcome
}

// NewGame shuffles pairs with the seed and picks the question pool.
func NewGame(pairs []Pair, seed RunSeed, settings Settings) (*Game, error) {
	settings = settings.normalized()
	uniq := make([]Pair, 0, len(pairs))
	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		name := strings.TrimSpace(p.Country)
		if name == "" || strings.TrimSpace(p.Capital) == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		uniq = append(uniq, Pair{Country: name, Capital: strings.TrimSpace(p.Capital)})
	}
	if len(uniq) < settings.Options {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughCountries, len(uniq), settings.Options)
	}
	sortPairs(uniq)

	shuffled := make([]Pair, len(uniq))
	copy(shuffled, uniq)
	seed.Stream("pool").Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	n := settings.Questions
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return &Game{
		Seed:     seed,
		settings: settings,
		pairs:    uniq,
		pool:     shuffled[:n],
		outcome:  OutcomeInProgress,
	}, nil
}

// Next loads the following question. It returns false once the pool is exhausted,
// which finishes the game, or when the game already ended.
func (g *Game) Next() (Question, bool) {
	if g.outcome != OutcomeInProgress {
		return Question{}, false
	}
	if g.loaded >= len(g.pool) {
		g.outcome = OutcomeFinished
		g.current = nil
		return Question{}, false
	}
	p := g.pool[g.loaded]
	g.loaded++

	rs := g.Seed.Stream(fmt.Sprintf("question:%d:options", g.loaded))
	opts := []string{p.Country}
	chosen := map[string]struct{}{p.Country: {}}
	for len(opts) < g.settings.Options {
		c := g.pairs[rs.Intn(len(g.pairs))].Country
		if _, dup := chosen[c]; dup {
			continue
		}
		chosen[c] = struct{}{}
		opts = append(opts, c)
	}
	rs.Child("order").Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })

	q := Question{Number: g.loaded, Capital: p.Capital, Answer: p.Country, Options: opts}
	g.current = &q
	g.answered = false
	g.remaining = g.settings.TimePerQuestion
	return q, true
}

// Answer locks the current question with option i. Presses after the first one
// report ErrAlreadyAnswered together with the chosen option, and never change the score.
func (g *Game) Answer(i int) (Result, error) {
	if g.current == nil {
		return Result{}, ErrNoQuestion
	}
	q := g.current
	if i < 0 || i >= len(q.Options) {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidOption, i)
	}
	res := Result{
		Option:  i,
		Chosen:  q.Options[i],
		Answer:  q.Answer,
		Correct: q.Options[i] == q.Answer,
		Elapsed: g.settings.TimePerQuestion - g.remaining,
	}
	if g.answered {
		return res, ErrAlreadyAnswered
	}
	if g.outcome != OutcomeInProgress {
		return Result{}, ErrGameOver
	}
	g.answered = true
	if res.Correct {
		g.score++
	}
	return res, nil
}

// Tick advances the countdown by one second. It reports true when the time ran
// out, which ends the game with OutcomeTimeout.
func (g *Game) Tick() bool {
	if g.current == nil || g.answered || g.outcome != OutcomeInProgress {
		return false
	}
	g.remaining--
	if g.remaining > 0 {
		return false
	}
	g.remaining = 0
	g.outcome = OutcomeTimeout
	return true
}

// Abandon ends a running game.
func (g *Game) Abandon() {
	if g.outcome == OutcomeInProgress {
		g.outcome = OutcomeAbandoned
	}
}

func (g *Game) Answered() bool     { return g.answered }
func (g *Game) Remaining() int     { return g.remaining }
func (g *Game) Score() int         { return g.score }
func (g *Game) Total() int         { return len(g.pool) }
func (g *Game) Outcome() Outcome   { return g.outcome }
func (g *Game) Settings() Settings { return g.settings }

// Over reports whether the game has ended for any reason.
func (g *Game) Over() bool { return g.outcome != OutcomeInProgress }
