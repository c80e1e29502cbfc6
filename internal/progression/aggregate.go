package progression

import (
	"math"

	"github.com/ugcstudio/api/internal/model"
)

// ApplyCompletion folds one completed job's score into prev and returns the
// new stats. prev is not modified.
//
// Streak only ever grows: a failed job does not reset it.
func ApplyCompletion(prev model.UserStats, score int, id model.ModelID) model.UserStats {
	scores := make([]int, 0, len(prev.PromptScores)+1)
	scores = append(scores, prev.PromptScores...)
	scores = append(scores, score)

	next := model.UserStats{
		TotalVideos:      prev.TotalVideos + 1,
		HighQualityCount: prev.HighQualityCount,
		Over90Count:      prev.Over90Count,
		AvgQuality:       mean(scores),
		Streak:           prev.Streak + 1,
		XP:               prev.XP + XPGain(score, 1, id),
		PromptScores:     scores,
	}
	if score > highQualityMin {
		next.HighQualityCount++
	}
	if score > over90Min {
		next.Over90Count++
	}
	next.Level = LevelFromXP(next.XP).Level
	return next
}

func mean(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return int(math.Round(float64(sum) / float64(len(scores))))
}
