// Package elo computes rating deltas for N-entrant matches. It is pure
// computation: no I/O, no state, deterministic for a given input.
package elo

import (
	"math"

	"grouprank/internal/constants"
)

// Entrant is one competitor in a match: an individual player, or a team
// represented by its mean rating and mean games played.
type Entrant struct {
	Key         string // uid in individual mode, team id in team mode
	Rating      int
	GamesPlayed float64
	Placement   int
	IsTied      bool
}

// Result is the computed outcome for one entrant.
type Result struct {
	Key          string
	Placement    int
	IsTied       bool
	RatingBefore int
	RatingAfter  int
	Delta        int
}

// ExpectedScore is the probability-like expected result of a against b.
func ExpectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}

// KFactor decays smoothly with experience so established ratings move less:
// 32 at zero games, 16 at thirty, approaching zero as games grow.
func KFactor(gamesPlayed float64) float64 {
	return constants.KBase / (1.0 + gamesPlayed/constants.KDecayGames)
}

// ComputeDeltas runs one pairwise pass over every ordered pair of entrants.
// For entrant i against j: actual is 1 for a better placement, 0 for a worse
// one, 0.5 for a tie. The delta is K * (sum of actual - sum of expected),
// rounded to the nearest integer with ties away from zero (math.Round).
// A 2-entrant match degenerates to standard pairwise Elo.
func ComputeDeltas(entrants []Entrant) []Result {
	results := make([]Result, len(entrants))
	for i, e := range entrants {
		var actualSum, expectedSum float64
		for j, opp := range entrants {
			if i == j {
				continue
			}
			expectedSum += ExpectedScore(float64(e.Rating), float64(opp.Rating))
			switch {
			case e.Placement < opp.Placement:
				actualSum += 1.0
			case e.Placement == opp.Placement:
				actualSum += 0.5
			}
		}

		delta := int(math.Round(KFactor(e.GamesPlayed) * (actualSum - expectedSum)))
		results[i] = Result{
			Key:          e.Key,
			Placement:    e.Placement,
			IsTied:       e.IsTied,
			RatingBefore: e.Rating,
			RatingAfter:  e.Rating + delta,
			Delta:        delta,
		}
	}
	return results
}

// TeamRating is the arithmetic mean of member ratings, rounded to nearest.
func TeamRating(memberRatings []int) int {
	if len(memberRatings) == 0 {
		return constants.RatingInit
	}
	sum := 0
	for _, r := range memberRatings {
		sum += r
	}
	return int(math.Round(float64(sum) / float64(len(memberRatings))))
}

// TeamGamesPlayed is the mean games played across members, used for the
// team-level K-factor.
func TeamGamesPlayed(memberGames []int) float64 {
	if len(memberGames) == 0 {
		return 0
	}
	sum := 0
	for _, g := range memberGames {
		sum += g
	}
	return float64(sum) / float64(len(memberGames))
}
