package session

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketSessions = []byte("sessions")
	bucketValues   = []byte("values")
	bucketEvents   = []byte("events")
)

// BoltStore keeps sessions in a single BoltDB file: one nested bucket per
// session holding a values bucket and a sequence-keyed events bucket.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func sessionBucket(tx *bolt.Tx, id string, create bool) (*bolt.Bucket, error) {
	root := tx.Bucket(bucketSessions)
	if !create {
		return root.Bucket([]byte(id)), nil
	}
	b, err := root.CreateBucketIfNotExists([]byte(id))
	if err != nil {
		return nil, err
	}
	if _, err := b.CreateBucketIfNotExists(bucketValues); err != nil {
		return nil, err
	}
	if _, err := b.CreateBucketIfNotExists(bucketEvents); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BoltStore) Set(_ context.Context, id, key string, value any) error {
	if err := checkID(id); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := sessionBucket(tx, id, true)
		if err != nil {
			return err
		}
		return b.Bucket(bucketValues).Put([]byte(key), raw)
	})
}

func (s *BoltStore) Get(_ context.Context, id, key string, out any) (bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b, _ := sessionBucket(tx, id, false)
		if b == nil {
			return nil
		}
		if v := b.Bucket(bucketValues).Get([]byte(key)); v != nil {
			// v is only valid inside the transaction
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return false, err
	}
	return true, decode(raw, out)
}

// Append reads and rewrites the list inside one write transaction; bolt
// serializes writers.
func (s *BoltStore) Append(_ context.Context, id, key string, item any) error {
	if err := checkID(id); err != nil {
		return err
	}
	raw, err := encode(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := sessionBucket(tx, id, true)
		if err != nil {
			return err
		}
		values := b.Bucket(bucketValues)
		list, err := appendItem(values.Get([]byte(key)), raw)
		if err != nil {
			return err
		}
		return values.Put([]byte(key), list)
	})
}

func (s *BoltStore) AddEvent(_ context.Context, id string, ev Event) error {
	if err := checkID(id); err != nil {
		return err
	}
	data, err := json.Marshal(stamp(ev))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := sessionBucket(tx, id, true)
		if err != nil {
			return err
		}
		events := b.Bucket(bucketEvents)
		seq, err := events.NextSequence()
		if err != nil {
			return err
		}
		var k [8]byte
		binary.BigEndian.PutUint64(k[:], seq)
		return events.Put(k[:], data)
	})
}

func (s *BoltStore) Snapshot(_ context.Context, id string) (State, error) {
	var out State
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b, _ := sessionBucket(tx, id, false)
		if b == nil {
			return nil
		}
		found = true
		out = State{ID: id, Values: make(map[string]json.RawMessage), Events: []Event{}}
		if err := b.Bucket(bucketValues).ForEach(func(k, v []byte) error {
			out.Values[string(k)] = append(json.RawMessage(nil), v...)
			return nil
		}); err != nil {
			return err
		}
		return b.Bucket(bucketEvents).ForEach(func(_, v []byte) error {
			var ev Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			out.Events = append(out.Events, ev)
			return nil
		})
	})
	if err != nil {
		return State{}, err
	}
	if !found {
		return State{}, ErrNotFound
	}
	return out, nil
}

// Close releases the underlying DB handle.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
