package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ events []Event }

func (r *recorder) Emit(e Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func newTestSession(t *testing.T, rec *recorder) *Session {
	t.Helper()
	opts := Options{
		Words: []string{"cyber", "cycle", "plasma", "orbit"},
		Rand:  rand.New(rand.NewSource(1)),
		// Snapshots off unless a test opts in.
		Tuning: Tuning{StatsEvery: -1},
	}
	if rec != nil {
		opts.Sink = rec
	}
	return New(opts)
}

func typeWord(s *Session, word string) Match {
	var m Match
	for i := 1; i <= len(word); i++ {
		m = s.Type(word[:i])
	}
	return m
}

func TestNewSessionDefaults(t *testing.T) {
	s := newTestSession(t, nil)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, MaxHealth, s.Health)
	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Equal(t, 100.0, s.Accuracy())
	assert.Equal(t, 8, s.Target())
	assert.Equal(t, 10, s.Reward())
}

func TestPrefixProgressionThenKill(t *testing.T) {
	s := newTestSession(t, nil)
	e := s.spawn("cyber")

	for i, in := range []string{"c", "cy", "cyb", "cybe"} {
		m := s.Type(in)
		require.Equal(t, MatchPartial, m.Kind)
		assert.Equal(t, i+1, e.Typed)
		assert.Equal(t, in, s.Input)
	}

	m := s.Type("cyber")
	assert.Equal(t, MatchKill, m.Kind)
	assert.Empty(t, s.Enemies)
	assert.Empty(t, s.Input)
	assert.Equal(t, 1, s.WordsKilled)
	assert.Equal(t, 1, s.Combo)
	assert.InDelta(t, 50.0, s.Score, 1e-9)
}

func TestInputIsCaseInsensitive(t *testing.T) {
	s := newTestSession(t, nil)
	s.spawn("cyber")
	assert.Equal(t, MatchPartial, s.Type("CY").Kind)
	assert.Equal(t, MatchKill, s.Type("CyBeR").Kind)
}

func TestTieBreakIsCreationOrder(t *testing.T) {
	s := newTestSession(t, nil)
	first := s.spawn("cyber")
	second := s.spawn("cycle")

	m := s.Type("cy")
	require.Equal(t, MatchPartial, m.Kind)
	assert.Equal(t, "cyber", m.Word)
	assert.Equal(t, 2, first.Typed)
	assert.Equal(t, 0, second.Typed)
}

func TestKillScoreUsesComboBeforeIncrement(t *testing.T) {
	s := newTestSession(t, nil)
	s.Combo = 3
	s.spawn("cyber")

	m := typeWord(s, "cyber")
	require.Equal(t, MatchKill, m.Kind)
	assert.InDelta(t, 65.0, m.Points, 1e-9)
	assert.InDelta(t, 65.0, s.Score, 1e-9)
	assert.Equal(t, 4, s.Combo)
}

func TestMistypeResetsComboAndInput(t *testing.T) {
	s := newTestSession(t, nil)
	a := s.spawn("cyber")
	s.spawn("orbit")
	s.Combo = 7

	s.Type("cy")
	require.Equal(t, 2, a.Typed)

	m := s.Type("cyx")
	assert.Equal(t, MatchMistype, m.Kind)
	assert.Equal(t, 0, s.Combo)
	assert.Empty(t, s.Input)
	for _, e := range s.Enemies {
		assert.Equal(t, 0, e.Typed)
	}
	assert.Equal(t, MaxHealth, s.Health)
}

func TestMistypeWithNoEnemies(t *testing.T) {
	s := newTestSession(t, nil)
	s.Combo = 2
	assert.Equal(t, MatchMistype, s.Type("z").Kind)
	assert.Equal(t, 0, s.Combo)
}

func TestClearedInputKeepsCombo(t *testing.T) {
	s := newTestSession(t, nil)
	e := s.spawn("plasma")
	s.Combo = 4
	s.Type("pla")

	m := s.Type("")
	assert.Equal(t, MatchCleared, m.Kind)
	assert.Equal(t, 0, e.Typed)
	assert.Equal(t, 4, s.Combo)
	assert.Equal(t, MaxHealth, s.Health)
}

func TestTypeRuneAndBackspace(t *testing.T) {
	s := newTestSession(t, nil)
	e := s.spawn("orbit")

	s.TypeRune('o')
	s.TypeRune('r')
	assert.Equal(t, "or", s.Input)
	assert.Equal(t, 2, e.Typed)

	s.Backspace()
	assert.Equal(t, "o", s.Input)
	assert.Equal(t, 1, e.Typed)

	s.Backspace()
	assert.Empty(t, s.Input)
	assert.Equal(t, 0, e.Typed)
}

func TestAccuracy(t *testing.T) {
	s := newTestSession(t, nil)
	assert.Equal(t, 100.0, s.Accuracy())

	s.spawn("cyber")
	s.spawn("orbit")
	assert.Equal(t, 0.0, s.Accuracy())

	typeWord(s, "cyber")
	assert.InDelta(t, 50.0, s.Accuracy(), 1e-9)

	typeWord(s, "orbit")
	assert.InDelta(t, 100.0, s.Accuracy(), 1e-9)
}

func TestLevelOneCompletesAfterEightKills(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, rec)

	for i := 0; i < 8; i++ {
		require.Equal(t, PhasePlaying, s.Phase)
		s.spawn("orbit")
		require.Equal(t, MatchKill, typeWord(s, "orbit").Kind)
	}

	assert.Equal(t, PhaseLevelComplete, s.Phase)
	assert.Equal(t, 8, s.WordsKilled)
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventLevelComplete, rec.events[0].Kind)
	assert.Equal(t, 1, rec.events[0].Level)
	assert.Equal(t, 10, rec.events[0].Reward)

	// Terminal: no more spawns, movement or input.
	frame := s.Frame()
	assert.Equal(t, PhaseLevelComplete, s.Tick().Phase)
	assert.Equal(t, frame, s.Frame())
	assert.Equal(t, MatchIgnored, s.Type("o").Kind)
}

func TestTenMissesEndTheGame(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, rec)

	for i := 0; i < 10; i++ {
		require.Equal(t, PhasePlaying, s.Phase)
		e := s.spawn("cyber")
		e.Y = FieldHeight
		st := s.Tick()
		require.Len(t, st.Missed, 1)
		assert.Equal(t, MaxHealth-(i+1)*MissPenalty, s.Health)
		assert.Equal(t, 0, s.Combo)
	}

	assert.Equal(t, 0, s.Health)
	assert.Equal(t, PhaseGameOver, s.Phase)
	assert.Equal(t, []EventKind{EventGameOver}, rec.kinds())
}

func TestMissResetsCombo(t *testing.T) {
	s := newTestSession(t, nil)
	s.Combo = 5
	e := s.spawn("orbit")
	e.Y = FieldHeight

	s.Tick()
	assert.Equal(t, 0, s.Combo)
	assert.Equal(t, MaxHealth-MissPenalty, s.Health)
	assert.Empty(t, s.Enemies)
}

func TestLossTakesPrecedenceOverWin(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, rec)
	s.Health = MissPenalty
	s.WordsKilled = s.Target()
	s.TotalSpawned = s.Target() + 1
	e := s.spawn("cyber")
	e.Y = FieldHeight

	s.Tick()
	assert.Equal(t, PhaseGameOver, s.Phase)
	assert.Equal(t, []EventKind{EventGameOver}, rec.kinds())
}

func TestSpawnRespectsIntervalAndCap(t *testing.T) {
	s := newTestSession(t, nil)
	interval := SpawnInterval(1)

	for i := 0; i < interval; i++ {
		assert.Nil(t, s.Tick().Spawned)
	}
	spawned := s.Tick().Spawned
	require.NotNil(t, spawned)
	assert.Equal(t, 1, s.TotalSpawned)
	assert.Equal(t, SpawnY+s.tuning.FallSpeed, spawned.Y)
	assert.GreaterOrEqual(t, spawned.X, SpawnMinX-1)
	assert.Contains(t, []string{"cyber", "cycle", "plasma", "orbit"}, spawned.Word)
	assert.Equal(t, float64(len(spawned.Word))*EnemyCharWidth, spawned.Width)

	// Fill to the cap; further intervals spawn nothing.
	for len(s.Enemies) < MaxEnemies(1) {
		s.spawn("orbit")
	}
	for i := 0; i <= interval; i++ {
		assert.Nil(t, s.Tick().Spawned)
	}
}

func TestStatsSnapshotsWhilePlaying(t *testing.T) {
	rec := &recorder{}
	s := New(Options{
		Words:  []string{"orbit"},
		Rand:   rand.New(rand.NewSource(3)),
		Sink:   rec,
		Tuning: Tuning{StatsEvery: 10},
	})

	for i := 0; i < 30; i++ {
		s.Tick()
	}
	assert.Equal(t, []EventKind{EventStatsSnapshot, EventStatsSnapshot, EventStatsSnapshot}, rec.kinds())
	assert.Equal(t, s.ID, rec.events[0].SessionID)
}

func TestAdvance(t *testing.T) {
	s := newTestSession(t, nil)
	assert.ErrorIs(t, s.Advance(), ErrNotComplete)

	for i := 0; i < s.Target(); i++ {
		s.spawn("cyber")
		typeWord(s, "cyber")
	}
	require.Equal(t, PhaseLevelComplete, s.Phase)
	score := s.Score

	require.NoError(t, s.Advance())
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Equal(t, score, s.Score)
	assert.Equal(t, MaxHealth, s.Health)
	assert.Zero(t, s.WordsKilled)
	assert.Zero(t, s.TotalSpawned)
	assert.Zero(t, s.Combo)
	assert.Empty(t, s.Enemies)
	assert.Equal(t, 13, s.Target())
}

func TestAdvancePastFinalLevel(t *testing.T) {
	s := New(Options{Words: []string{"nova"}, Rand: rand.New(rand.NewSource(1)), Level: MaxLevel})
	s.Phase = PhaseLevelComplete
	assert.ErrorIs(t, s.Advance(), ErrFinalLevel)
	assert.Equal(t, MaxLevel, s.Level)
}

func TestRestartLeavesGameOver(t *testing.T) {
	s := newTestSession(t, nil)
	id := s.ID
	s.Score = 500
	s.Level = 4
	s.Health = 0
	s.Phase = PhaseGameOver
	assert.ErrorIs(t, s.Advance(), ErrNotComplete)

	s.Restart()
	assert.NotEqual(t, id, s.ID)
	assert.Equal(t, 1, s.Level)
	assert.Zero(t, s.Score)
	assert.Equal(t, MaxHealth, s.Health)
	assert.Equal(t, PhasePlaying, s.Phase)
}

// Perfect play never kills more than was spawned, and accuracy stays in range.
func TestKillsNeverExceedSpawns(t *testing.T) {
	s := New(Options{
		Words: []string{"cyber", "cycle", "plasma", "orbit", "nova"},
		Rand:  rand.New(rand.NewSource(42)),
	})

	for i := 0; i < 20000; i++ {
		s.Tick()
		if i%40 == 0 && len(s.Enemies) > 0 {
			typeWord(s, s.Enemies[0].Word)
		}
		require.LessOrEqual(t, s.WordsKilled, s.TotalSpawned)
		require.GreaterOrEqual(t, s.Health, 0)
		require.GreaterOrEqual(t, s.Score, 0.0)
		acc := s.Accuracy()
		require.True(t, acc >= 0 && acc <= 100)

		switch s.Phase {
		case PhaseLevelComplete:
			if s.Advance() != nil {
				return
			}
		case PhaseGameOver:
			s.Restart()
		}
	}
}
