package game

// Level is one row of the level table.
type Level struct {
	Number int
	Target int // kills needed to complete the level
	Reward int // whole tokens paid by the rewards contract
}

// MaxLevel is the last playable level.
const MaxLevel = 10

const (
	fallbackTarget = 10
	fallbackReward = 10
)

var levelTable = [MaxLevel]Level{
	{Number: 1, Target: 8, Reward: 10},
	{Number: 2, Target: 13, Reward: 20},
	{Number: 3, Target: 18, Reward: 30},
	{Number: 4, Target: 23, Reward: 50},
	{Number: 5, Target: 28, Reward: 100},
	{Number: 6, Target: 33, Reward: 150},
	{Number: 7, Target: 38, Reward: 200},
	{Number: 8, Target: 43, Reward: 300},
	{Number: 9, Target: 48, Reward: 400},
	{Number: 10, Target: 53, Reward: 500},
}

// LevelFor returns the table row for level n.
func LevelFor(n int) (Level, bool) {
	if n < 1 || n > MaxLevel {
		return Level{Number: n, Target: fallbackTarget, Reward: fallbackReward}, false
	}
	return levelTable[n-1], true
}

// Levels returns a copy of the whole table.
func Levels() []Level {
	out := make([]Level, MaxLevel)
	copy(out, levelTable[:])
	return out
}

// SpawnInterval is the number of ticks between spawns at a level, floored at 90.
func SpawnInterval(level int) int {
	return max(180-level*10, 90)
}

// MaxEnemies is the on-screen population cap at a level, capped at 4.
func MaxEnemies(level int) int {
	return min(2+level/3, 4)
}
