// Package standings keeps participants ordered by rating for leaderboard and
// rank queries.
package standings

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/pkg/metrics"
)

// Treap-based ranked index.
//
// Ordering: rating DESC, then participant id ASC (deterministic). "less"
// means ranks earlier, so in-order traversal yields the leaderboard from
// best to worst. Each node tracks its subtree size so the number of
// participants rated strictly higher than a given rating is O(log n).

// Entry is one leaderboard row.
type Entry struct {
	Rank        int     `json:"rank"`
	Participant string  `json:"participant_id"`
	Name        string  `json:"name"`
	Affiliation string  `json:"affiliation"`
	Rating      float64 `json:"rating"`
}

// Filter selects which participants a TopN call returns.
type Filter func(model.Participant) bool

type node struct {
	id     string
	rating float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aRating, aID) ranks before (bRating, bID).
func less(aRating float64, aID string, bRating float64, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n, fresh *node) *node {
	if n == nil {
		return fresh
	}
	if less(fresh.rating, fresh.id, n.rating, n.id) {
		n.left = insert(n.left, fresh)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, fresh)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, rating float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id && n.rating == rating:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, rating)
		}
	case less(rating, id, n.rating, n.id):
		n.left = deleteNode(n.left, id, rating)
	default:
		n.right = deleteNode(n.right, id, rating)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes hold a rating strictly above rating.
func countAbove(n *node, rating float64) int {
	count := 0
	for n != nil {
		if n.rating > rating {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// walk visits nodes in rank order until visit returns false.
func walk(n *node, visit func(*node) bool) bool {
	if n == nil {
		return true
	}
	if !walk(n.left, visit) {
		return false
	}
	if !visit(n) {
		return false
	}
	return walk(n.right, visit)
}

// Table is a concurrency-safe ranked index of participants.
type Table struct {
	mu   sync.RWMutex
	root *node
	byID map[string]model.Participant
	rng  *rand.Rand
}

// New creates an empty table.
func New(opts ...Option) *Table {
	t := &Table{
		byID: make(map[string]model.Participant),
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Set inserts p or moves it to its new rating.
func (t *Table) Set(p model.Participant) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(p)
	metrics.UpdateParticipantsTotal(len(t.byID))
}

func (t *Table) set(p model.Participant) {
	if old, ok := t.byID[p.ID]; ok {
		t.root = deleteNode(t.root, old.ID, old.Rating)
	}
	t.byID[p.ID] = p
	t.root = insert(t.root, &node{id: p.ID, rating: p.Rating, prio: t.rng.Uint64(), size: 1})
}

// Remove drops a participant. It reports whether the participant was present.
func (t *Table) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, ok := t.byID[id]
	if !ok {
		return false
	}
	t.root = deleteNode(t.root, old.ID, old.Rating)
	delete(t.byID, id)
	metrics.UpdateParticipantsTotal(len(t.byID))
	return true
}

// Rebuild replaces the whole table with participants.
func (t *Table) Rebuild(participants []model.Participant) {
	start := time.Now()
	t.mu.Lock()
	t.root = nil
	t.byID = make(map[string]model.Participant, len(participants))
	for _, p := range participants {
		t.set(p)
	}
	n := len(t.byID)
	t.mu.Unlock()

	metrics.UpdateParticipantsTotal(n)
	metrics.RecordStandingsRebuild(float64(time.Since(start).Microseconds()) / 1000)
}

// Rank returns the entry of one participant. Ties share a rank and the next
// rank skips accordingly (1, 2, 2, 4).
func (t *Table) Rank(_ context.Context, id string) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return t.entry(p), nil
}

// TopN returns up to n entries in rank order. A nil filter keeps everyone.
// Filtered entries keep their overall rank.
func (t *Table) TopN(_ context.Context, n int, filter Filter) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(t.byID)))
	walk(t.root, func(nd *node) bool {
		p := t.byID[nd.id]
		if filter == nil || filter(p) {
			out = append(out, t.entry(p))
		}
		return len(out) < n
	})
	return out, nil
}

// Count returns the number of ranked participants.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

func (t *Table) entry(p model.Participant) Entry {
	return Entry{
		Rank:        countAbove(t.root, p.Rating) + 1,
		Participant: p.ID,
		Name:        p.Name,
		Affiliation: p.Affiliation,
		Rating:      p.Rating,
	}
}
