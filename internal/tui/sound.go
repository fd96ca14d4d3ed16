package tui

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Sounds are the cues the host plays. Implementations must not block.
type Sounds interface {
	Kill()
	Mistype()
	Miss()
	LevelComplete()
}

type silent struct{}

func (silent) Kill()          {}
func (silent) Mistype()       {}
func (silent) Miss()          {}
func (silent) LevelComplete() {}

// Speaker plays short sine tones through the default audio device. Every
// method is safe to call when Init failed or was never called.
type Speaker struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

func NewSpeaker() *Speaker {
	return &Speaker{mixer: &beep.Mixer{}}
}

// Init opens the audio device. Failure is not fatal to the game.
func (s *Speaker) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	speaker.Play(s.mixer)
	s.initialized = true
	return nil
}

func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	s.mixer.Clear()
	speaker.Close()
	s.initialized = false
}

func (s *Speaker) Kill()          { s.tone(880, 50*time.Millisecond) }
func (s *Speaker) Mistype()       { s.tone(180, 90*time.Millisecond) }
func (s *Speaker) Miss()          { s.tone(110, 200*time.Millisecond) }
func (s *Speaker) LevelComplete() { s.tone(660, 250*time.Millisecond) }

func (s *Speaker) tone(freq float64, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	// The speaker lock guards the mixer while it is being played.
	speaker.Lock()
	s.mixer.Add(&effects.Volume{Streamer: beep.Take(sampleRate.N(d), sine), Base: 2, Volume: -2})
	speaker.Unlock()
}
