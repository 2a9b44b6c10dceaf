// Package season models half-year competitive seasons ("f24", "s25") and the
// recency weight applied to results from past seasons.
package season

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Term is the half of the year a season belongs to.
type Term byte

// Season terms. Fall runs August through December, spring January through July.
const (
	Fall   Term = 'f'
	Spring Term = 's'
)

// Weight decay parameters.
const (
	weightPerSeason = 0.1
	minWeight       = 0.1
	firstFallMonth  = time.August
)

// ID identifies a season by term and two-digit year. The zero value means
// "no season given"; engine entry points substitute the clock's season.
type ID struct {
	term Term
	year int
}

// New builds a season ID. year is reduced to its last two digits.
func New(term Term, year int) (ID, error) {
	if term != Fall && term != Spring {
		return ID{}, fmt.Errorf("%w: term %q", ErrInvalidSeason, string(term))
	}
	if year < 0 {
		return ID{}, fmt.Errorf("%w: negative year %d", ErrInvalidSeason, year)
	}
	return ID{term: term, year: year % 100}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Parse reads a season label of the form {f|s}{yy}.
func Parse(s string) (ID, error) {
	if len(s) != 3 {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidSeason, s)
	}
	term := Term(s[0])
	if term != Fall && term != Spring {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidSeason, s)
	}
	if s[1] < '0' || s[1] > '9' || s[2] < '0' || s[2] > '9' {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidSeason, s)
	}
	year, err := strconv.Atoi(s[1:])
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidSeason, s)
	}
	return ID{term: term, year: year}, nil
}

// Current derives the season containing now.
func Current(now time.Time) ID {
	term := Spring
	if now.Month() >= firstFallMonth {
		term = Fall
	}
	return ID{term: term, year: now.Year() % 100}
}

// Term returns the season's term.
func (id ID) Term() Term { return id.term }

// Year returns the two-digit year.
func (id ID) Year() int { return id.year }

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id.term == 0 }

// String renders the label, e.g. "f24".
func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return fmt.Sprintf("%c%02d", id.term, id.year)
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = ID{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// After reports whether id falls strictly later than other.
func (id ID) After(other ID) bool {
	if id.year != other.year {
		return id.year > other.year
	}
	return id.term == Fall && other.term == Spring
}

func (id ID) validate() error {
	if id.term != Fall && id.term != Spring {
		return fmt.Errorf("%w: %q", ErrInvalidSeason, id.String())
	}
	return nil
}

// Distance counts how many seasons of recency s has lost relative to ref.
//
// The count is asymmetric: a spring season measured from a fall reference in a
// later year is one season closer than the plain year difference suggests.
// A season later than ref is rejected with ErrFutureSeason.
func Distance(s, ref ID) (int, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	if err := ref.validate(); err != nil {
		return 0, fmt.Errorf("reference: %w", err)
	}
	if s.After(ref) {
		return 0, fmt.Errorf("%w: %s > %s", ErrFutureSeason, s, ref)
	}

	switch {
	case ref.year > s.year:
		years := ref.year - s.year
		if ref.term == Fall && s.term == Spring {
			return 2*years - 1, nil
		}
		return 2 * years, nil
	case ref.year == s.year && ref.term == Fall && s.term == Spring:
		return 1, nil
	}
	return 0, nil
}

// WeightForDistance maps a season distance to its influence: 0.1 lost per
// season, floored at 0.1.
func WeightForDistance(distance int) float64 {
	return math.Max(minWeight, 1.0-weightPerSeason*float64(distance))
}

// Weight returns the influence of results from season s when ratings are
// computed as of ref. ref itself weighs 1.0.
func Weight(s, ref ID) (float64, error) {
	d, err := Distance(s, ref)
	if err != nil {
		return 0, err
	}
	return WeightForDistance(d), nil
}
