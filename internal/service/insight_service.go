package service

import (
	"github.com/ugcstudio/api/internal/model"
	"github.com/ugcstudio/api/internal/progression"
	"github.com/ugcstudio/api/internal/scoring"
)

// ScoreBrief rates a brief for live feedback while it is being written.
func ScoreBrief(b *model.Brief) *model.ScoreResponse {
	bd := scoring.Evaluate(*b)
	return &model.ScoreResponse{
		Score:     bd.Total,
		Tier:      progression.QualityTier(bd.Total),
		Breakdown: bd.Map(),
	}
}

// Progress derives the level bar and badge shelf for stats.
func Progress(stats *model.UserStats) *model.ProgressResponse {
	info := progression.LevelFromXP(stats.XP)
	return &model.ProgressResponse{
		Level:       info.Level,
		CurrentXP:   info.CurrentXP,
		NextLevelXP: info.NextLevelXP,
		Percent:     info.Percent(),
		Badges:      progression.Badges(*stats),
	}
}
