package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/ugcstudio/api/internal/model"
)

const (
	maxLengthPoints   = 25
	maxDetailPoints   = 30
	maxFeaturePoints  = 15
	pointsPerDetail   = 6
	pointsPerFeature  = 5
	minCombinedLength = 20
	maxCombinedLength = 500
)

// detailKeywords rewards descriptive, visual language
var detailKeywords = []string{
	"close-up", "bright", "energetic", "authentic", "natural",
	"morning", "evening", "outdoor", "indoor", "casual",
	"professional", "lifestyle", "vibrant", "warm", "cozy",
	"modern", "minimal", "clean", "dynamic", "candid",
}

// Breakdown holds the points each signal contributed to a score
type Breakdown struct {
	Length   int `json:"length"`
	Detail   int `json:"detail"`
	Audience int `json:"audience"`
	Features int `json:"features"`
	Setting  int `json:"setting"`
	Total    int `json:"total"`
}

// Map returns the per-signal points keyed by signal name.
func (b Breakdown) Map() map[string]int {
	return map[string]int{
		"length":   b.Length,
		"detail":   b.Detail,
		"audience": b.Audience,
		"features": b.Features,
		"setting":  b.Setting,
	}
}

// Score rates how descriptive a brief is, from 0 to 100.
func Score(b model.Brief) int {
	return Evaluate(b).Total
}

// Evaluate scores a brief and reports every signal.
func Evaluate(b model.Brief) Breakdown {
	combined := strings.ToLower(strings.Join([]string{
		b.Product, b.TargetAudience, b.ProductFeatures, b.VideoSetting,
	}, " "))

	bd := Breakdown{
		Length:   lengthPoints(combined),
		Detail:   detailPoints(combined),
		Audience: audiencePoints(b.TargetAudience),
		Features: featurePoints(b.ProductFeatures),
		Setting:  settingPoints(b.VideoSetting),
	}
	bd.Total = clamp(bd.Length+bd.Detail+bd.Audience+bd.Features+bd.Setting, 0, 100)
	return bd
}

func lengthPoints(combined string) int {
	n := utf8.RuneCountInString(combined)
	if n <= minCombinedLength || n > maxCombinedLength {
		return 0
	}
	return min(maxLengthPoints, n/20)
}

func detailPoints(combined string) int {
	found := 0
	for _, kw := range detailKeywords {
		if strings.Contains(combined, kw) {
			found++
		}
	}
	return min(maxDetailPoints, found*pointsPerDetail)
}

func audiencePoints(audience string) int {
	points := 0
	if utf8.RuneCountInString(audience) > 10 {
		points += 10
	}
	// age ranges
	if strings.ContainsAny(audience, "0123456789") {
		points += 5
	}
	// compound descriptions
	if strings.Contains(audience, ",") || strings.Contains(audience, "and") {
		points += 5
	}
	return points
}

func featurePoints(features string) int {
	count := 0
	for _, f := range strings.FieldsFunc(features, func(r rune) bool { return r == ',' || r == ';' }) {
		if utf8.RuneCountInString(strings.TrimSpace(f)) > 2 {
			count++
		}
	}
	return min(maxFeaturePoints, count*pointsPerFeature)
}

func settingPoints(setting string) int {
	points := 0
	if utf8.RuneCountInString(setting) > 15 {
		points += 5
	}
	if len(strings.Fields(setting)) > 3 {
		points += 5
	}
	return points
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
