// internal/game/types.go
//
// Core type definitions for the combat session engine.
// Defines:
//   - Phase: coarse session state (playing / level complete / game over).
//   - Enemy: a falling word target.
//   - Session: the single mutable record for one play-through.
//   - Match, Step: outcomes of the two drivers (Type and Tick).
//   - Event, Sink: fire-and-forget notifications for telemetry and the claim workflow.

package game

import "math/rand"

// Phase is the coarse state of a session.
type Phase string

const (
	PhasePlaying       Phase = "playing"
	PhaseLevelComplete Phase = "level_complete"
	PhaseGameOver      Phase = "game_over"
)

// Terminal reports whether no further ticks or input are processed in this phase.
func (p Phase) Terminal() bool { return p != PhasePlaying }

// Enemy is a falling word target. Owned by the Session that spawned it.
type Enemy struct {
	ID     int     // creation sequence within the level; lower means older
	Word   string  // lowercase target text
	X, Y   float64 // position in field units (X is the horizontal center, Y the top edge)
	VX, VY float64 // per-tick velocity
	Width  float64 // derived from word length
	Height float64
	Typed  int // length of the prefix currently matched by the input buffer
}

// Session holds the state of a single combat session.
// It is not safe for concurrent use: one host goroutine drives Tick and Type.
type Session struct {
	ID           string   // Unique session identifier (uuid).
	Level        int      // 1..MaxLevel.
	Score        float64  // Cumulative across levels, never negative.
	Health       int      // 0..Tuning.MaxHealth.
	Combo        int      // Current streak; reset by any miss or mistype.
	WordsKilled  int      // Kills in the current level.
	TotalSpawned int      // Spawns in the current level.
	Phase        Phase    // Playing until a terminal transition.
	Enemies      []*Enemy // Live enemies in creation order.
	Input        string   // Partial input since the last reset.

	tuning     Tuning
	vocab      []string
	rng        *rand.Rand
	sink       Sink
	spawnTimer int
	frame      int
	nextID     int
}

// MatchKind classifies the outcome of an input update.
type MatchKind string

const (
	MatchPartial MatchKind = "partial" // input is a strict prefix of an enemy word
	MatchKill    MatchKind = "kill"    // input equals an enemy word; enemy destroyed
	MatchMistype MatchKind = "mistype" // no enemy word starts with the input
	MatchCleared MatchKind = "cleared" // input became empty
	MatchIgnored MatchKind = "ignored" // session is in a terminal phase
)

// Match is the result of Session.Type.
type Match struct {
	Kind   MatchKind
	Word   string  // matched enemy word (partial / kill)
	Typed  int     // matched prefix length (partial / kill)
	Points float64 // points awarded (kill)
}

// Step summarizes one Session.Tick.
type Step struct {
	Spawned *Enemy   // enemy spawned this tick, if any
	Missed  []*Enemy // enemies that crossed the bottom boundary this tick
	Phase   Phase    // phase after the tick
}

// EventKind identifies an engine notification.
type EventKind string

const (
	EventStatsSnapshot EventKind = "stats_snapshot"
	EventLevelComplete EventKind = "level_complete"
	EventGameOver      EventKind = "game_over"
)

// Event is a fire-and-forget notification emitted by the engine.
type Event struct {
	Kind        EventKind
	SessionID   string
	Level       int
	Score       float64
	Reward      int // LevelComplete only: whole-token reward for Level
	WordsKilled int
	Accuracy    float64
}

// Sink receives engine events. Implementations must not block.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }
