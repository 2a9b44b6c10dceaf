package season

import "errors"

// Sentinel kinds for season errors.
var (
	ErrInvalidSeason = errors.New("invalid season")
	ErrFutureSeason  = errors.New("season is after the reference season")
)
