package model

// UserStats is the running gamification record of one user
type UserStats struct {
	TotalVideos      int   `json:"totalVideos" validate:"gte=0"`
	HighQualityCount int   `json:"highQualityCount" validate:"gte=0,ltefield=TotalVideos"` // scores > 70
	Over90Count      int   `json:"over90Count" validate:"gte=0,ltefield=TotalVideos"`      // scores > 90
	AvgQuality       int   `json:"avgQuality" validate:"gte=0,lte=100"`
	Streak           int   `json:"streak" validate:"gte=0"`
	XP               int   `json:"xp" validate:"gte=0"`
	Level            int   `json:"level"`
	PromptScores     []int `json:"promptScores" validate:"dive,gte=0,lte=100"`
}

// DefaultStats is the zero state of a new user.
func DefaultStats() UserStats {
	return UserStats{
		Level:        1,
		PromptScores: []int{},
	}
}

// Badge is an achievement with its earned flag evaluated against some stats
type Badge struct {
	ID          BadgeID   `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Tier        BadgeTier `json:"tier"`
	Earned      bool      `json:"earned"`
}
