// Package repository provides the storage collaborators of the rating engine:
// an in-memory store and a bolt-backed persistent store.
package repository

import (
	"context"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/rating"
)

// Change describes what an upsert did.
type Change int

// Upsert outcomes.
const (
	Unchanged Change = iota
	Added
	Updated
)

// Counts summarizes store contents.
type Counts struct {
	Participants int `json:"participants"`
	Events       int `json:"events"`
	Affiliations int `json:"affiliations"`
	Results      int `json:"results"`
}

// Store is the full persistence contract: the engine's view plus the writes
// the ingestion path needs.
type Store interface {
	rating.Store

	// UpsertParticipant creates p if its id is unknown. An existing
	// participant keeps its rating. Returns Added or Unchanged.
	UpsertParticipant(ctx context.Context, p model.Participant) (Change, error)

	// UpsertEvent stores ev, assigning Seq on first insert and preserving it
	// afterwards. Returns the stored event.
	UpsertEvent(ctx context.Context, ev model.Event) (model.Event, error)

	// UpsertResult inserts r, or changes the place of the result with the
	// same key. The stored rating change is preserved.
	UpsertResult(ctx context.Context, r model.Result) (Change, error)

	Counts(ctx context.Context) (Counts, error)

	Close() error
}
