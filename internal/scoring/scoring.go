// Package scoring blends skill matches and semantic similarity into a 0–100 score.
package scoring

import "math"

const (
	foundWeight    = 10
	foundCap       = 60
	missingWeight  = 3
	missingCap     = 20
	semanticWeight = 40

	minScore = 0
	maxScore = 100
)

// Details itemizes the contributions to Score.
type Details struct {
	FoundScore    int     `json:"found_score"`
	Penalty       int     `json:"penalty"`
	SemanticScore float64 `json:"semantic_score"`
}

// Breakdown is the final score with its components.
type Breakdown struct {
	Score   int     `json:"score"`
	Details Details `json:"details"`
}

// Score computes
//
//	found_score    = min(found*10, 60)
//	penalty        = min(notFound*3, 20)
//	semantic_score = similarity*40
//	score          = round(clamp(found_score + semantic_score - penalty, 0, 100))
//
// Rounding is half-to-even, so 42.5 becomes 42 and 43.5 becomes 44.
// Details.SemanticScore is reported to two decimals, also half-to-even; the total uses the exact value.
func Score(found, notFound int, similarity float64) Breakdown {
	foundScore := min(max(found, 0)*foundWeight, foundCap)
	penalty := min(max(notFound, 0)*missingWeight, missingCap)
	semantic := similarity * semanticWeight

	total := float64(foundScore) + semantic - float64(penalty)
	total = math.Max(minScore, math.Min(total, maxScore))

	return Breakdown{
		Score: int(math.RoundToEven(total)),
		Details: Details{
			FoundScore:    foundScore,
			Penalty:       penalty,
			SemanticScore: math.RoundToEven(semantic*100) / 100,
		},
	}
}
