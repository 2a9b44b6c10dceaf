package standings

import "math/rand/v2"

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithRand sets the source of treap priorities. Tests use a seeded source to
// get a reproducible tree shape.
func WithRand(r *rand.Rand) Option {
	return func(t *Table) {
		if r != nil {
			t.rng = r
		}
	}
}
