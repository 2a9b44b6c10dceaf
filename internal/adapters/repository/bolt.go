package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/rating"
)

var (
	participantsBucket = []byte("participants")
	eventsBucket       = []byte("events")
	resultsBucket      = []byte("results")
	byParticipant      = []byte("results_by_participant")
)

// BoltStore persists participants, events and results in a bolt file.
// Results are keyed by ResultKey.String(), so the results of one event are a
// contiguous key range. A second bucket indexes result keys by participant.
type BoltStore struct {
	db          *bolt.DB
	path        string
	openTimeout time.Duration
	fileMode    os.FileMode
}

var _ Store = (*BoltStore)(nil)

// OpenBolt opens or creates the database at path.
func OpenBolt(path string, opts ...BoltOption) (*BoltStore, error) {
	s := &BoltStore{path: path, openTimeout: time.Second, fileMode: 0o600}
	for _, opt := range opts {
		opt(s)
	}

	db, err := bolt.Open(path, s.fileMode, &bolt.Options{Timeout: s.openTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{participantsBucket, eventsBucket, resultsBucket, byParticipant} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "unable to create bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

// Path returns the database file path.
func (s *BoltStore) Path() string { return s.path }

// Close closes the database.
func (s *BoltStore) Close() error {
	return errors.Wrap(s.db.Close(), "unable to close database")
}

// Participant returns a participant by id.
func (s *BoltStore) Participant(_ context.Context, id string) (model.Participant, error) {
	var p model.Participant
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(participantsBucket), []byte(id), &p, "participant")
	})
	return p, err
}

// Participants returns all participants ordered by id.
func (s *BoltStore) Participants(_ context.Context) ([]model.Participant, error) {
	var out []model.Participant
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(participantsBucket).ForEach(func(_, v []byte) error {
			var p model.Participant
			if err := json.Unmarshal(v, &p); err != nil {
				return errors.Wrap(err, "unable to unmarshal participant")
			}
			out = append(out, p)
			return nil
		})
	})
	return out, err
}

// Event returns an event by id.
func (s *BoltStore) Event(_ context.Context, id string) (model.Event, error) {
	var ev model.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(eventsBucket), []byte(id), &ev, "event")
	})
	return ev, err
}

// Events returns all events in replay order.
func (s *BoltStore) Events(_ context.Context) ([]model.Event, error) {
	var out []model.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(eventsBucket).ForEach(func(_, v []byte) error {
			var ev model.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return errors.Wrap(err, "unable to unmarshal event")
			}
			out = append(out, ev)
			return nil
		})
	})
	model.SortEvents(out)
	return out, err
}

// EventResults returns the results of one event ordered by key.
func (s *BoltStore) EventResults(_ context.Context, eventID string) ([]model.Result, error) {
	var out []model.Result
	err := s.db.View(func(tx *bolt.Tx) error {
		prefix := []byte(eventID + model.KeySeparator)
		c := tx.Bucket(resultsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var r model.Result
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrap(err, "unable to unmarshal result")
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// ParticipantResults returns every result of one participant ordered by key.
func (s *BoltStore) ParticipantResults(_ context.Context, participantID string) ([]model.Result, error) {
	var out []model.Result
	err := s.db.View(func(tx *bolt.Tx) error {
		results := tx.Bucket(resultsBucket)
		prefix := []byte(participantID + model.KeySeparator)
		c := tx.Bucket(byParticipant).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			var r model.Result
			if err := getJSON(results, k[len(prefix):], &r, "result"); err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// ApplyDivision writes a division's deltas in one transaction.
func (s *BoltStore) ApplyDivision(_ context.Context, u rating.DivisionUpdate) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		participants := tx.Bucket(participantsBucket)
		for id, delta := range u.Deltas {
			var p model.Participant
			if err := getJSON(participants, []byte(id), &p, "participant"); err != nil {
				return err
			}
			p.Rating += delta
			if err := putJSON(participants, []byte(id), p); err != nil {
				return err
			}
		}

		results := tx.Bucket(resultsBucket)
		prefix := []byte(u.EventID + model.KeySeparator + u.Division + model.KeySeparator)
		c := results.Cursor()
		var stamped []model.Result
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var r model.Result
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrap(err, "unable to unmarshal result")
			}
			if delta, ok := u.Deltas[r.ParticipantID]; ok {
				r.RatingChange = delta
				stamped = append(stamped, r)
			}
		}
		// Writes happen after the scan; bolt cursors are not stable across Put.
		for _, r := range stamped {
			if err := putJSON(results, []byte(r.Key().String()), r); err != nil {
				return err
			}
		}
		return nil
	})
}

// ResetRatings restores every rating and clears recorded changes.
func (s *BoltStore) ResetRatings(_ context.Context, value float64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := rewrite(tx.Bucket(participantsBucket), func(p *model.Participant) { p.Rating = value }); err != nil {
			return err
		}
		return rewrite(tx.Bucket(resultsBucket), func(r *model.Result) { r.RatingChange = 0 })
	})
}

// ScaleRatings multiplies the ratings of ids by factor in one transaction.
func (s *BoltStore) ScaleRatings(_ context.Context, ids []string, factor float64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(participantsBucket)
		for _, id := range ids {
			var p model.Participant
			if err := getJSON(b, []byte(id), &p, "participant"); err != nil {
				return err
			}
			p.Rating *= factor
			if err := putJSON(b, []byte(id), p); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertParticipant creates p when its id is new.
func (s *BoltStore) UpsertParticipant(_ context.Context, p model.Participant) (Change, error) {
	change := Unchanged
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(participantsBucket)
		if b.Get([]byte(p.ID)) != nil {
			return nil
		}
		change = Added
		return putJSON(b, []byte(p.ID), p)
	})
	return change, err
}

// UpsertEvent stores ev, taking the bucket sequence on first insert.
func (s *BoltStore) UpsertEvent(_ context.Context, ev model.Event) (model.Event, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(eventsBucket)
		var old model.Event
		err := getJSON(b, []byte(ev.ID), &old, "event")
		switch {
		case err == nil:
			ev.Seq = old.Seq
		case errors.Is(err, ErrNotFound):
			seq, err := b.NextSequence()
			if err != nil {
				return errors.Wrap(err, "unable to allocate event sequence")
			}
			ev.Seq = seq
		default:
			return err
		}
		return putJSON(b, []byte(ev.ID), ev)
	})
	if err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// UpsertResult inserts r or updates the place of an existing result.
func (s *BoltStore) UpsertResult(_ context.Context, r model.Result) (Change, error) {
	change := Unchanged
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(resultsBucket)
		key := []byte(r.Key().String())
		var old model.Result
		err := getJSON(b, key, &old, "result")
		switch {
		case errors.Is(err, ErrNotFound):
			r.RatingChange = 0
			change = Added
			if err := putJSON(b, key, r); err != nil {
				return err
			}
			idx := append([]byte(r.ParticipantID+model.KeySeparator), key...)
			return errors.Wrap(tx.Bucket(byParticipant).Put(idx, nil), "unable to index result")
		case err != nil:
			return err
		case old.Place == r.Place:
			return nil
		}
		old.Place = r.Place
		change = Updated
		return putJSON(b, key, old)
	})
	return change, err
}

// Counts summarizes the store.
func (s *BoltStore) Counts(_ context.Context) (Counts, error) {
	var c Counts
	err := s.db.View(func(tx *bolt.Tx) error {
		affiliations := make(map[string]struct{})
		err := tx.Bucket(participantsBucket).ForEach(func(_, v []byte) error {
			var p model.Participant
			if err := json.Unmarshal(v, &p); err != nil {
				return errors.Wrap(err, "unable to unmarshal participant")
			}
			c.Participants++
			affiliations[p.Affiliation] = struct{}{}
			return nil
		})
		if err != nil {
			return err
		}
		c.Affiliations = len(affiliations)
		c.Events = tx.Bucket(eventsBucket).Stats().KeyN
		c.Results = tx.Bucket(resultsBucket).Stats().KeyN
		return nil
	})
	return c, err
}

func getJSON(b *bolt.Bucket, key []byte, v any, kind string) error {
	data := b.Get(key)
	if data == nil {
		return errors.Wrapf(ErrNotFound, "%s %s", kind, key)
	}
	return errors.Wrapf(json.Unmarshal(data, v), "unable to unmarshal %s", kind)
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "unable to marshal")
	}
	return errors.Wrap(b.Put(key, data), "unable to put")
}

// rewrite decodes every value of b as T, applies fn and stores it back.
func rewrite[T any](b *bolt.Bucket, fn func(*T)) error {
	type entry struct {
		key []byte
		val T
	}
	var entries []entry
	err := b.ForEach(func(k, v []byte) error {
		var val T
		if err := json.Unmarshal(v, &val); err != nil {
			return errors.Wrap(err, "unable to unmarshal")
		}
		fn(&val)
		entries = append(entries, entry{key: append([]byte(nil), k...), val: val})
		return nil
	})
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := putJSON(b, e.key, e.val); err != nil {
			return err
		}
	}
	return nil
}
