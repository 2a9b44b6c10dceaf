package rating

import (
	"math"

	"github.com/okian/sailrank/internal/domain/model"
)

// Pairwise model constants.
const (
	eloSpread         = 400.0
	minPlaceDivisor   = 5.0
	fleetDivisorScale = 4.0
	win               = 1.0
	tie               = 0.5
	loss              = 0.0
)

// Pairing holds one participant's view of a comparison against one opponent
// in the same division.
type Pairing struct {
	Rating         float64
	OpponentRating float64
	Place          model.Place
	OpponentPlace  model.Place
	K              int
	FleetSize      int
	EventWeight    float64
	DivisionWeight float64
	SeasonWeight   float64
}

// Outcome scores a head-to-head result: lower place wins.
func Outcome(place, opponentPlace int) float64 {
	switch {
	case place < opponentPlace:
		return win
	case place == opponentPlace:
		return tie
	default:
		return loss
	}
}

// Expected is the logistic win probability of rating against opponent.
func Expected(rating, opponent float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponent-rating)/eloSpread))
}

// PlaceWeight discounts comparisons far down the fleet. The curve flattens
// as the fleet grows so small fleets are not over-discounted.
func PlaceWeight(place, fleetSize int) float64 {
	divisor := math.Max(minPlaceDivisor, float64(fleetSize)/fleetDivisorScale)
	return 1.0 / (1.0 + math.Exp(float64(place-1)/divisor))
}

// PairwiseDelta computes the rating change for the first participant of p.
// A comparison with a non-numeric place on either side contributes nothing.
//
// The opponent's delta is computed separately from their own perspective:
// K and place weight differ per side, so the exchange is not zero-sum.
func PairwiseDelta(p Pairing) float64 {
	place, ok := p.Place.Int()
	if !ok {
		return 0
	}
	opponentPlace, ok := p.OpponentPlace.Int()
	if !ok {
		return 0
	}

	outcome := Outcome(place, opponentPlace)
	expected := Expected(p.Rating, p.OpponentRating)
	weight := p.EventWeight * p.DivisionWeight * p.SeasonWeight * PlaceWeight(place, p.FleetSize)

	return float64(p.K) * weight * (outcome - expected)
}
