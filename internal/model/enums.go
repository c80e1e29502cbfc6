package model

// ModelID identifies the video generation pipeline a brief is rendered with.
type ModelID string

const (
	ModelNanoVeo ModelID = "Nano + Veo 3.1"
	ModelSora    ModelID = "Sora 2"
)

// ModelOption describes a selectable generation pipeline
type ModelOption struct {
	ID           ModelID `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Speed        string  `json:"speed"`
	Quality      int     `json:"quality"`
	XPMultiplier float64 `json:"xpMultiplier"`
}

var Models = []ModelOption{
	{
		ID:           ModelNanoVeo,
		Name:         "Nano + Veo",
		Description:  "NanoBanana image generation + Veo video. Highest quality.",
		Speed:        "Balanced",
		Quality:      5,
		XPMultiplier: 1.2,
	},
	{
		ID:           ModelSora,
		Name:         "Sora 2",
		Description:  "OpenAI Sora image-to-video. Premium cinematic style.",
		Speed:        "Premium",
		Quality:      5,
		XPMultiplier: 1.5,
	},
}

// LookupModel returns the option registered for id.
func LookupModel(id ModelID) (ModelOption, bool) {
	for _, m := range Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelOption{}, false
}

// Job states as observed by the client
type JobState string

const (
	JobStateIdle       JobState = "idle"
	JobStateSubmitting JobState = "submitting"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
)

// Terminal reports whether no further transition happens without a reset.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Upstream workflow statuses
const (
	UpstreamStatusQueued   = "queued"
	UpstreamStatusReady    = "Ready"
	UpstreamStatusFinished = "Finished"
)

// Badge identifiers
type BadgeID string

const (
	BadgeNovice       BadgeID = "novice"
	BadgeCrafter      BadgeID = "crafter"
	BadgeAlchemist    BadgeID = "alchemist"
	BadgeVisionary    BadgeID = "visionary"
	BadgePromptMaster BadgeID = "promptMaster"
)

// Badge tiers
type BadgeTier string

const (
	TierBronze  BadgeTier = "bronze"
	TierSilver  BadgeTier = "silver"
	TierGold    BadgeTier = "gold"
	TierDiamond BadgeTier = "diamond"
	TierSpecial BadgeTier = "special"
)
