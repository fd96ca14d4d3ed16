// internal/game/engine.go
//
// Combat session engine.
// Responsibilities:
//   - Create sessions with an injectable vocabulary, random source and event sink.
//   - Tick: spawn, move, charge misses, check terminal conditions, emit snapshots.
//   - Type: resolve the input buffer against live enemies (first-created wins).
//   - Track phase transitions: playing → level_complete / game_over, and
//     level_complete → playing(level+1) through Advance.
//
// Notes:
//   - GameOver takes precedence when health runs out in the same step the kill
//     target is reached.
//   - The engine never blocks: events go to a Sink that must return immediately.
package game

import (
	"errors"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotComplete = errors.New("level not complete")
	ErrFinalLevel  = errors.New("final level already complete")
)

// Options configures New. All fields are optional.
type Options struct {
	Words  []string   // vocabulary; defaults to the words package list
	Rand   *rand.Rand // random source; defaults to a time-seeded source
	Sink   Sink       // event consumer; defaults to discarding events
	Tuning Tuning
	Level  int // starting level; defaults to 1
}

// New constructs a session in the Playing phase.
func New(opts Options) *Session {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	sink := opts.Sink
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	level := opts.Level
	if level < 1 || level > MaxLevel {
		level = 1
	}
	s := &Session{
		ID:     uuid.NewString(),
		tuning: opts.Tuning.withDefaults(),
		vocab:  opts.Words,
		rng:    rng,
		sink:   sink,
	}
	s.resetLevel(level)
	return s
}

// Tick advances the session by one frame. It is a no-op in terminal phases.
func (s *Session) Tick() Step {
	if s.Phase.Terminal() {
		return Step{Phase: s.Phase}
	}
	s.frame++

	var st Step
	st.Spawned = s.spawnStep()
	st.Missed = s.moveStep()
	s.checkTerminal()

	if s.Phase == PhasePlaying && s.tuning.StatsEvery > 0 && s.frame%s.tuning.StatsEvery == 0 {
		s.emit(EventStatsSnapshot)
	}
	st.Phase = s.Phase
	return st
}

// Type resolves the full input buffer raw against the live enemies.
func (s *Session) Type(raw string) Match {
	if s.Phase.Terminal() {
		return Match{Kind: MatchIgnored}
	}
	input := strings.ToLower(raw)
	if input == "" {
		s.Input = ""
		s.resetTyped()
		return Match{Kind: MatchCleared}
	}

	for i, e := range s.Enemies {
		if !strings.HasPrefix(e.Word, input) {
			continue
		}
		e.Typed = len(input)
		if input != e.Word {
			s.Input = input
			return Match{Kind: MatchPartial, Word: e.Word, Typed: e.Typed}
		}

		s.Enemies = slices.Delete(s.Enemies, i, i+1)
		points := float64(len(e.Word)) * PointsPerLetter * (1 + float64(s.Combo)/ComboDivisor)
		s.Score += points
		s.Combo++
		s.WordsKilled++
		s.Input = ""
		s.checkTerminal()
		return Match{Kind: MatchKill, Word: e.Word, Typed: e.Typed, Points: points}
	}

	// Mistype: streak broken, buffer discarded.
	s.Input = ""
	s.resetTyped()
	s.Combo = 0
	return Match{Kind: MatchMistype}
}

// TypeRune appends r to the input buffer and resolves it.
func (s *Session) TypeRune(r rune) Match {
	return s.Type(s.Input + string(r))
}

// Backspace drops the last rune of the input buffer and resolves the rest.
func (s *Session) Backspace() Match {
	rs := []rune(s.Input)
	if len(rs) > 0 {
		rs = rs[:len(rs)-1]
	}
	return s.Type(string(rs))
}

// Advance moves from LevelComplete to the next level, keeping the score.
func (s *Session) Advance() error {
	if s.Phase != PhaseLevelComplete {
		return ErrNotComplete
	}
	if s.Level >= MaxLevel {
		return ErrFinalLevel
	}
	s.resetLevel(s.Level + 1)
	return nil
}

// Restart discards everything and starts a new session at level 1.
func (s *Session) Restart() {
	s.ID = uuid.NewString()
	s.Score = 0
	s.resetLevel(1)
}

// Accuracy is WordsKilled/TotalSpawned as a percentage in [0,100];
// 100 when nothing has spawned yet.
func (s *Session) Accuracy() float64 {
	if s.TotalSpawned == 0 {
		return 100
	}
	a := float64(s.WordsKilled) / float64(s.TotalSpawned) * 100
	return min(max(a, 0), 100)
}

// Target is the kill count needed to complete the current level.
func (s *Session) Target() int {
	l, _ := LevelFor(s.Level)
	return l.Target
}

// Reward is the token reward for completing the current level.
func (s *Session) Reward() int {
	l, _ := LevelFor(s.Level)
	return l.Reward
}

// Frame is the number of ticks processed in the current level.
func (s *Session) Frame() int { return s.frame }

// checkTerminal applies the terminal transitions. Loss wins over a simultaneous win.
func (s *Session) checkTerminal() {
	if s.Phase != PhasePlaying {
		return
	}
	if s.Health <= 0 {
		s.Health = 0
		s.Phase = PhaseGameOver
		s.emit(EventGameOver)
		return
	}
	if s.WordsKilled >= s.Target() {
		s.Phase = PhaseLevelComplete
		s.emit(EventLevelComplete)
	}
}

func (s *Session) emit(kind EventKind) {
	ev := Event{
		Kind:        kind,
		SessionID:   s.ID,
		Level:       s.Level,
		Score:       s.Score,
		WordsKilled: s.WordsKilled,
		Accuracy:    s.Accuracy(),
	}
	if kind == EventLevelComplete {
		ev.Reward = s.Reward()
	}
	s.sink.Emit(ev)
}

func (s *Session) resetTyped() {
	for _, e := range s.Enemies {
		e.Typed = 0
	}
}

func (s *Session) resetLevel(level int) {
	s.Level = level
	s.Health = MaxHealth
	s.Combo = 0
	s.WordsKilled = 0
	s.TotalSpawned = 0
	s.Phase = PhasePlaying
	s.Enemies = nil
	s.Input = ""
	s.spawnTimer = 0
	s.frame = 0
	s.nextID = 0
}
