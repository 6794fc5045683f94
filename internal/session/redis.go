package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a hash of values plus a list of events,
// both expiring ttl after the last write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore connects and pings the server before returning.
func NewRedisStore(ctx context.Context, opts *redis.Options, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return &RedisStore{client: client, ttl: ttl, prefix: "session:"}, nil
}

func (s *RedisStore) valuesKey(id string) string { return s.prefix + id + ":values" }
func (s *RedisStore) eventsKey(id string) string { return s.prefix + id + ":events" }

func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, id string) {
	if s.ttl <= 0 {
		return
	}
	pipe.Expire(ctx, s.valuesKey(id), s.ttl)
	pipe.Expire(ctx, s.eventsKey(id), s.ttl)
}

func (s *RedisStore) Set(ctx context.Context, id, key string, value any) error {
	if err := checkID(id); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.valuesKey(id), key, []byte(raw))
		s.touch(ctx, pipe, id)
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, id, key string, out any) (bool, error) {
	raw, err := s.client.HGet(ctx, s.valuesKey(id), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, decode(raw, out)
}

// maxAppendRetries bounds optimistic retries when another writer touches the
// values hash between WATCH and EXEC.
const maxAppendRetries = 20

// Append uses WATCH/MULTI so a concurrent write to the hash aborts and
// retries the read-modify-write instead of overwriting it.
func (s *RedisStore) Append(ctx context.Context, id, key string, item any) error {
	if err := checkID(id); err != nil {
		return err
	}
	raw, err := encode(item)
	if err != nil {
		return err
	}

	hash := s.valuesKey(id)
	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, hash, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		list, err := appendItem(cur, raw)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hash, key, []byte(list))
			s.touch(ctx, pipe, id)
			return nil
		})
		return err
	}

	for i := 0; i < maxAppendRetries; i++ {
		err = s.client.Watch(ctx, txf, hash)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("append to %s: too much contention: %w", key, err)
}

func (s *RedisStore) AddEvent(ctx context.Context, id string, ev Event) error {
	if err := checkID(id); err != nil {
		return err
	}
	data, err := json.Marshal(stamp(ev))
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.eventsKey(id), data)
		s.touch(ctx, pipe, id)
		return nil
	})
	return err
}

func (s *RedisStore) Snapshot(ctx context.Context, id string) (State, error) {
	var (
		valuesCmd *redis.MapStringStringCmd
		eventsCmd *redis.StringSliceCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		valuesCmd = pipe.HGetAll(ctx, s.valuesKey(id))
		eventsCmd = pipe.LRange(ctx, s.eventsKey(id), 0, -1)
		return nil
	})
	if err != nil {
		return State{}, err
	}

	values := valuesCmd.Val()
	events := eventsCmd.Val()
	if len(values) == 0 && len(events) == 0 {
		return State{}, ErrNotFound
	}

	out := State{ID: id, Values: make(map[string]json.RawMessage, len(values)), Events: make([]Event, 0, len(events))}
	for k, v := range values {
		out.Values[k] = json.RawMessage(v)
	}
	for _, raw := range events {
		var ev Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return State{}, fmt.Errorf("decoding event: %w", err)
		}
		out.Events = append(out.Events, ev)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
