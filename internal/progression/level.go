package progression

import (
	"math"

	"github.com/ugcstudio/api/internal/model"
)

const (
	MaxLevel       = 10
	baseThreshold  = 100
	highQualityMin = 70
	over90Min      = 90
)

// LevelInfo describes where a cumulative XP total sits on the level curve
type LevelInfo struct {
	Level       int `json:"level"`
	CurrentXP   int `json:"currentXp"`
	NextLevelXP int `json:"nextLevelXp"`
}

// MaxedOut reports whether the level cap has been reached.
func (l LevelInfo) MaxedOut() bool {
	return l.Level >= MaxLevel
}

// Percent is the progress through the current level, 0..100.
func (l LevelInfo) Percent() int {
	if l.MaxedOut() {
		return 100
	}
	if l.NextLevelXP <= 0 {
		return 0
	}
	return int(math.Round(float64(l.CurrentXP) / float64(l.NextLevelXP) * 100))
}

// LevelFromXP walks the doubling threshold curve (100, 200, 400, ...).
// At the cap NextLevelXP is 0 and CurrentXP keeps growing past the level 10 floor.
func LevelFromXP(xp int) LevelInfo {
	if xp < 0 {
		xp = 0
	}

	level := 1
	threshold := baseThreshold
	accumulated := 0

	for xp >= accumulated+threshold && level < MaxLevel {
		accumulated += threshold
		level++
		threshold *= 2
	}

	info := LevelInfo{
		Level:       level,
		CurrentXP:   xp - accumulated,
		NextLevelXP: threshold,
	}
	if info.MaxedOut() {
		info.NextLevelXP = 0
	}
	return info
}

// XPGain is the experience earned for unitCount videos of the given quality.
func XPGain(quality, unitCount int, id model.ModelID) int {
	return int(math.Round(float64(quality) * float64(unitCount) * multiplier(id)))
}

func multiplier(id model.ModelID) float64 {
	if m, ok := model.LookupModel(id); ok {
		return m.XPMultiplier
	}
	return 1.0
}

// QualityTier buckets a score for display.
func QualityTier(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 50:
		return "good"
	case score >= 25:
		return "fair"
	default:
		return "weak"
	}
}
