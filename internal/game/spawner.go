package game

import "github.com/robalobadob/monadtype/internal/words"

// spawnStep advances the spawn timer and spawns one enemy when the level's
// interval has elapsed and the population is under its cap.
func (s *Session) spawnStep() *Enemy {
	s.spawnTimer++
	if s.spawnTimer <= SpawnInterval(s.Level) || len(s.Enemies) >= MaxEnemies(s.Level) {
		return nil
	}
	s.spawnTimer = 0
	return s.spawn(s.randomWord())
}

// spawn appends a new enemy for word and counts it in TotalSpawned.
func (s *Session) spawn(word string) *Enemy {
	jitter := s.tuning.Jitter * (1 + JitterPerLevel*float64(s.Level-1))
	e := &Enemy{
		ID:     s.nextID,
		Word:   word,
		X:      SpawnMinX + s.rng.Float64()*SpawnSpanX,
		Y:      SpawnY,
		VX:     (s.rng.Float64() - 0.5) * jitter,
		VY:     s.tuning.FallSpeed,
		Width:  float64(len(word)) * EnemyCharWidth,
		Height: EnemyHeight,
	}
	s.nextID++
	s.Enemies = append(s.Enemies, e)
	s.TotalSpawned++
	return e
}

func (s *Session) randomWord() string {
	if len(s.vocab) == 0 {
		return words.Random(s.rng)
	}
	return s.vocab[s.rng.Intn(len(s.vocab))]
}

// moveStep applies one tick of kinematics and removes enemies that fell past
// the bottom of the field, charging the miss penalty for each.
func (s *Session) moveStep() []*Enemy {
	var missed []*Enemy
	kept := s.Enemies[:0]
	for _, e := range s.Enemies {
		e.X += e.VX
		e.Y += e.VY
		if e.Y > FieldHeight {
			missed = append(missed, e)
			s.Health = max(0, s.Health-MissPenalty)
			s.Combo = 0
			continue
		}
		kept = append(kept, e)
	}
	clear(s.Enemies[len(kept):])
	s.Enemies = kept
	return missed
}
