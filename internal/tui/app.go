// Package tui hosts a combat session in the terminal: it feeds keystrokes to
// the engine, ticks it at a fixed frame rate, and draws the field with tcell.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/monadtype/internal/api"
	"github.com/robalobadob/monadtype/internal/game"
	"github.com/robalobadob/monadtype/internal/telemetry"
)

// FrameInterval is one engine tick (~60 FPS).
const FrameInterval = 16 * time.Millisecond

// Claimer is the reward side of the telemetry dispatcher.
type Claimer interface {
	Claim(level int) bool
	Claimed(level int) bool
	Balance() string
	Show(v telemetry.View) bool
	Notices() <-chan telemetry.Notice
}

// view is a screen drawn over the field between levels.
type view int

const (
	viewNone view = iota
	viewLeaderboard
	viewAccount
)

type Options struct {
	Screen  tcell.Screen // initialized by the caller
	Session *game.Session
	// Claims is nil when playing offline.
	Claims Claimer
	Sound  Sounds
}

type App struct {
	screen tcell.Screen
	sess   *game.Session
	claims Claimer
	sound  Sounds

	notice     string
	noticeKind telemetry.NoticeKind

	view    view
	board   []api.LeaderboardEntry
	account *telemetry.Account
}

func New(opts Options) *App {
	a := &App{screen: opts.Screen, sess: opts.Session, claims: opts.Claims, sound: opts.Sound}
	if a.sound == nil {
		a.sound = silent{}
	}
	a.notice = "Type the falling words. Esc quits."
	return a
}

// Run drives the frame loop until the player quits or ctx ends.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	var notices <-chan telemetry.Notice
	if a.claims != nil {
		notices = a.claims.Notices()
	}

	a.draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !a.HandleEvent(ev) {
				return nil
			}
		case n := <-notices:
			a.receive(n)
		case <-ticker.C:
			a.Step()
			a.draw()
		}
	}
}

// Step advances the engine one frame and plays cues for what happened.
func (a *App) Step() {
	before := a.sess.Phase
	st := a.sess.Tick()
	if len(st.Missed) > 0 {
		a.sound.Miss()
	}
	a.phaseChanged(before)
}

// HandleEvent applies one terminal event. It returns false when the player quits.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyEscape {
			if a.view != viewNone {
				a.view = viewNone
				return true
			}
			return false
		}
		if a.sess.Phase == game.PhasePlaying {
			a.handleTyping(ev)
			return true
		}
		if ev.Key() == tcell.KeyRune {
			return a.handleMenu(ev.Rune())
		}
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) handleTyping(ev *tcell.EventKey) {
	before := a.sess.Phase
	var m game.Match
	switch ev.Key() {
	case tcell.KeyRune:
		m = a.sess.TypeRune(ev.Rune())
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		m = a.sess.Backspace()
	case tcell.KeyEnter, tcell.KeyCtrlU:
		m = a.sess.Type("")
	default:
		return
	}
	switch m.Kind {
	case game.MatchKill:
		a.sound.Kill()
	case game.MatchMistype:
		a.sound.Mistype()
	}
	a.phaseChanged(before)
}

func (a *App) handleMenu(r rune) bool {
	if a.view != viewNone && r != 'l' && r != 'a' && r != 'q' {
		a.view = viewNone
		return true
	}
	switch r {
	case 'q':
		return false
	case 'l':
		a.request(telemetry.ViewLeaderboard, "Loading leaderboard...")
	case 'a':
		a.request(telemetry.ViewAccount, "Loading account...")
	case 'r':
		if a.sess.Phase == game.PhaseGameOver || a.sess.Level >= game.MaxLevel {
			a.sess.Restart()
			a.setNotice(telemetry.NoticeInfo, "New game. Good luck!")
		}
	case 'n':
		switch err := a.sess.Advance(); {
		case err == nil:
			a.setNotice(telemetry.NoticeInfo, fmt.Sprintf("Level %d", a.sess.Level))
		case errors.Is(err, game.ErrFinalLevel):
			a.setNotice(telemetry.NoticeInfo, "That was the last level. Press r to play again.")
		}
	case 'c':
		if a.sess.Phase != game.PhaseLevelComplete {
			break
		}
		if a.claims == nil {
			a.setNotice(telemetry.NoticeError, "Rewards are unavailable offline")
			break
		}
		if !a.claims.Claim(a.sess.Level) {
			a.setNotice(telemetry.NoticeError, "A claim is already in progress")
		}
	}
	return true
}

func (a *App) phaseChanged(before game.Phase) {
	if before == a.sess.Phase {
		return
	}
	switch a.sess.Phase {
	case game.PhaseLevelComplete:
		a.sound.LevelComplete()
		log.Info().Int("level", a.sess.Level).Float64("score", a.sess.Score).Msg("level complete")
	case game.PhaseGameOver:
		log.Info().Int("level", a.sess.Level).Float64("score", a.sess.Score).Msg("game over")
	}
}

func (a *App) request(v telemetry.View, loading string) {
	if a.claims == nil {
		a.setNotice(telemetry.NoticeError, "The rewards backend is unavailable offline")
		return
	}
	if !a.claims.Show(v) {
		a.setNotice(telemetry.NoticeError, "Still loading, try again")
		return
	}
	a.setNotice(telemetry.NoticeInfo, loading)
}

// receive applies a dispatcher notice. Views only open between levels.
func (a *App) receive(n telemetry.Notice) {
	a.setNotice(n.Kind, n.Text)
	if a.sess.Phase == game.PhasePlaying {
		return
	}
	switch n.Kind {
	case telemetry.NoticeLeaderboard:
		a.board = n.Leaderboard
		a.view = viewLeaderboard
	case telemetry.NoticeAccount:
		a.account = n.Account
		a.view = viewAccount
	}
}

func (a *App) setNotice(kind telemetry.NoticeKind, text string) {
	a.noticeKind = kind
	a.notice = text
}
