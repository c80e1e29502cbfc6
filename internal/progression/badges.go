package progression

import "github.com/ugcstudio/api/internal/model"

type badgeDef struct {
	badge  model.Badge
	earned func(s *model.UserStats) bool
}

var badgeDefs = []badgeDef{
	{
		badge: model.Badge{
			ID:          model.BadgeNovice,
			Name:        "Novice Creator",
			Description: "Generated your first video",
			Icon:        "🥉",
			Tier:        model.TierBronze,
		},
		earned: func(s *model.UserStats) bool { return s.TotalVideos >= 1 },
	},
	{
		badge: model.Badge{
			ID:          model.BadgeCrafter,
			Name:        "Content Crafter",
			Description: "5 high-quality prompts (score > 70)",
			Icon:        "🥈",
			Tier:        model.TierSilver,
		},
		earned: func(s *model.UserStats) bool { return s.HighQualityCount >= 5 },
	},
	{
		badge: model.Badge{
			ID:          model.BadgeAlchemist,
			Name:        "Ad Alchemist",
			Description: "15 videos + 3 prompts scoring > 90",
			Icon:        "🥇",
			Tier:        model.TierGold,
		},
		earned: func(s *model.UserStats) bool { return s.TotalVideos >= 15 && s.Over90Count >= 3 },
	},
	{
		badge: model.Badge{
			ID:          model.BadgeVisionary,
			Name:        "Viral Visionary",
			Description: "30 videos + average score > 85",
			Icon:        "💎",
			Tier:        model.TierDiamond,
		},
		earned: func(s *model.UserStats) bool { return s.TotalVideos >= 30 && s.AvgQuality > 85 },
	},
	{
		badge: model.Badge{
			ID:          model.BadgePromptMaster,
			Name:        "Prompt Master",
			Description: "5 consecutive prompts scoring > 95",
			Icon:        "🎯",
			Tier:        model.TierSpecial,
		},
		earned: lastFiveAbove95,
	},
}

func lastFiveAbove95(s *model.UserStats) bool {
	if len(s.PromptScores) < 5 {
		return false
	}
	for _, score := range s.PromptScores[len(s.PromptScores)-5:] {
		if score <= 95 {
			return false
		}
	}
	return true
}

// Badges evaluates every badge against stats, in display order.
func Badges(stats model.UserStats) []model.Badge {
	out := make([]model.Badge, 0, len(badgeDefs))
	for _, def := range badgeDefs {
		b := def.badge
		b.Earned = def.earned(&stats)
		out = append(out, b)
	}
	return out
}

// Earned returns only the badges stats currently qualify for.
func Earned(stats model.UserStats) []model.Badge {
	var out []model.Badge
	for _, b := range Badges(stats) {
		if b.Earned {
			out = append(out, b)
		}
	}
	return out
}
