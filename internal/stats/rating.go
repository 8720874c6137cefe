package stats

import (
	"math"

	"github.com/clubhq/teamsheet/internal/player"
)

// Rating update rule, version 1.
//
// An Elo-style adjustment on the club's 0-10 rating scale, weighted by the
// margin of victory. For each match:
//
//	expectedA = 1 / (1 + 10^((avgB-avgA)/ratingSpread))
//	delta_i   = kBase * confidence_i * (score - expected) * ln(1 + margin)
//
// where score is 1/0.5/0 for win/draw/loss and margin is the goal
// difference (draws skip the margin factor). A player's confidence decays
// by confidenceDecay per processed match down to confidenceFloor, so
// established ratings move less. The rule is a pure function of the
// pre-match ratings and the final score; nothing here is stochastic.
const (
	ratingRuleVersion = 1

	ratingSpread    = 4.0
	kBase           = 0.12
	confidenceDecay = 0.95
	confidenceFloor = 0.25
)

// RatingRuleVersion identifies the rating update rule in effect.
func RatingRuleVersion() int { return ratingRuleVersion }

// updateRatings computes the rating adjustment for every participant of a
// match. sideA and sideB carry the pre-match ratings; goalsA and goalsB are
// the recorded team scores.
func updateRatings(sideA, sideB []player.Info, goalsA, goalsB int) []RatingChange {
	if len(sideA) == 0 || len(sideB) == 0 {
		return nil
	}

	avgA := averageRating(sideA)
	avgB := averageRating(sideB)

	expectedA := 1 / (1 + math.Pow(10, (avgB-avgA)/ratingSpread))
	expectedB := 1 - expectedA

	var scoreA float64
	switch {
	case goalsA > goalsB:
		scoreA = 1
	case goalsA < goalsB:
		scoreA = 0
	default:
		scoreA = 0.5
	}
	scoreB := 1 - scoreA

	margin := goalsA - goalsB
	if margin < 0 {
		margin = -margin
	}
	weight := 1.0
	if margin > 0 {
		weight = math.Log(1 + float64(margin))
	}

	changes := make([]RatingChange, 0, len(sideA)+len(sideB))
	for _, p := range sideA {
		changes = append(changes, adjust(p, scoreA, expectedA, weight))
	}
	for _, p := range sideB {
		changes = append(changes, adjust(p, scoreB, expectedB, weight))
	}
	return changes
}

func adjust(p player.Info, score, expected, weight float64) RatingChange {
	delta := kBase * p.Confidence * (score - expected) * weight
	newConf := p.Confidence * confidenceDecay
	if newConf < confidenceFloor {
		newConf = confidenceFloor
	}
	return RatingChange{
		PlayerID:      p.ID,
		Old:           p.Rating,
		New:           p.Rating + delta,
		OldConfidence: p.Confidence,
		NewConfidence: newConf,
	}
}

func averageRating(side []player.Info) float64 {
	sum := 0.0
	for _, p := range side {
		sum += p.Rating
	}
	return sum / float64(len(side))
}
