package session

import (
	"ProjectIVR/internal/entity"
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix        = "ivr:session:"
	donePrefix       = "ivr:done:"
	indexKey         = "ivr:sessions"
	maxUpdateRetries = 32
)

// RedisStore shares live sessions between instances. Updates use
// WATCH/MULTI, so a mutator may run more than once when two writers race
// on the same call and must not have side effects outside the session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    Clock
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return NewRedisStoreWithClock(client, ttl, utcNow)
}

func NewRedisStoreWithClock(client *redis.Client, ttl time.Duration, now Clock) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if now == nil {
		now = utcNow
	}
	return &RedisStore{client: client, ttl: ttl, now: now}
}

func sessionKey(callID string) string {
	return keyPrefix + callID
}

// doneKey marks a completed call for ttl so it cannot be created again.
func doneKey(callID string) string {
	return donePrefix + callID
}

func (r *RedisStore) Create(ctx context.Context, callID, callerID string) (entity.CallSession, error) {
	s := entity.NewCallSession(callID, callerID, r.now())
	data, err := jsoniter.Marshal(s)
	if err != nil {
		return entity.CallSession{}, fmt.Errorf("encode session: %w", err)
	}

	var created bool
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		done, err := tx.Exists(ctx, doneKey(callID)).Result()
		if err != nil {
			return err
		}
		if done > 0 {
			return ErrNotFound
		}

		var setNX *redis.BoolCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			setNX = pipe.SetNX(ctx, sessionKey(callID), data, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		created = setNX.Val()
		return nil
	}, doneKey(callID))
	if errors.Is(err, ErrNotFound) {
		return entity.CallSession{}, ErrNotFound
	}
	if errors.Is(err, redis.TxFailedErr) {
		// completed between the check and the write
		return entity.CallSession{}, ErrNotFound
	}
	if err != nil {
		return entity.CallSession{}, fmt.Errorf("create session: %w", err)
	}
	if !created {
		return entity.CallSession{}, ErrAlreadyExists
	}

	if err := r.client.SAdd(ctx, indexKey, callID).Err(); err != nil {
		return entity.CallSession{}, fmt.Errorf("index session: %w", err)
	}
	return s, nil
}

func (r *RedisStore) GetOrCreate(ctx context.Context, callID, callerID string) (entity.CallSession, bool, error) {
	s, err := r.Create(ctx, callID, callerID)
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, ErrAlreadyExists) {
		return entity.CallSession{}, false, err
	}

	s, err = r.Get(ctx, callID)
	return s, false, err
}

func (r *RedisStore) Get(ctx context.Context, callID string) (entity.CallSession, error) {
	data, err := r.client.Get(ctx, sessionKey(callID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.CallSession{}, ErrNotFound
	}
	if err != nil {
		return entity.CallSession{}, fmt.Errorf("get session: %w", err)
	}
	return decodeSession(data)
}

func (r *RedisStore) Update(ctx context.Context, callID string, fn Mutator) (entity.CallSession, error) {
	key := sessionKey(callID)
	var out entity.CallSession

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		next, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(&next); err != nil {
			return err
		}
		next.CallID = callID
		next.UpdatedAt = r.now()

		encoded, err := jsoniter.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = next
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return entity.CallSession{}, err
	}
	return entity.CallSession{}, fmt.Errorf("update session %s: too much contention", callID)
}

func (r *RedisStore) Complete(ctx context.Context, callID string) (entity.CallSession, error) {
	var getDel *redis.StringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		getDel = pipe.GetDel(ctx, sessionKey(callID))
		pipe.Set(ctx, doneKey(callID), 1, r.ttl)
		pipe.SRem(ctx, indexKey, callID)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return entity.CallSession{}, fmt.Errorf("complete session: %w", err)
	}

	data, err := getDel.Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.CallSession{}, ErrNotFound
	}
	if err != nil {
		return entity.CallSession{}, fmt.Errorf("complete session: %w", err)
	}

	s, err := decodeSession(data)
	if err != nil {
		return entity.CallSession{}, err
	}
	s.Status = entity.SessionCompleted
	s.UpdatedAt = r.now()
	return s, nil
}

func (r *RedisStore) Stale(ctx context.Context, olderThan time.Duration) ([]string, error) {
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	cutoff := r.now().Add(-olderThan)
	var stale []string
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// key expired through its TTL
			r.client.SRem(ctx, indexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if s.UpdatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	return stale, nil
}

func (r *RedisStore) ActiveCount(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return int(n), nil
}

func decodeSession(data []byte) (entity.CallSession, error) {
	var s entity.CallSession
	if err := jsoniter.Unmarshal(data, &s); err != nil {
		return entity.CallSession{}, fmt.Errorf("decode session: %w", err)
	}
	if s.Retries == nil {
		s.Retries = map[entity.Stage]int{}
	}
	if s.Turns == nil {
		s.Turns = []entity.Turn{}
	}
	return s, nil
}
