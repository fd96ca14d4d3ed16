package game

// Field and balance constants, in field units and ticks.
const (
	FieldWidth        = 800.0
	FieldHeight       = 600.0
	SpawnMinX         = 100.0
	SpawnSpanX        = 600.0
	SpawnY            = -50.0
	EnemyCharWidth    = 22.0
	EnemyHeight       = 65.0
	DefaultFallSpeed  = 0.5  // per tick; constant across levels
	DefaultJitter     = 0.02 // horizontal drift amplitude at level 1
	JitterPerLevel    = 0.1  // extra drift amplitude per level above 1, as a fraction
	MissPenalty       = 10
	MaxHealth         = 100
	PointsPerLetter   = 10.0
	ComboDivisor      = 10.0
	DefaultStatsEvery = 300 // 5 s at 60 Hz
)

// Tuning holds the per-session knobs. The zero value of a field means "use the default".
type Tuning struct {
	FallSpeed  float64
	Jitter     float64
	StatsEvery int // ticks between stats snapshots; negative disables them
}

// DefaultTuning returns the shipped balance.
func DefaultTuning() Tuning {
	return Tuning{
		FallSpeed:  DefaultFallSpeed,
		Jitter:     DefaultJitter,
		StatsEvery: DefaultStatsEvery,
	}
}

func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.FallSpeed <= 0 {
		t.FallSpeed = d.FallSpeed
	}
	if t.Jitter <= 0 {
		t.Jitter = d.Jitter
	}
	if t.StatsEvery == 0 {
		t.StatsEvery = d.StatsEvery
	}
	return t
}
