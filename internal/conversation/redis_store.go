package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultSessionTTL  = 30 * 24 * time.Hour
	maxAppendAttempts  = 5
	redisSessionPrefix = "session:"
)

// RedisStore keeps each session as one JSON document with a sliding TTL.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	now    func() time.Time
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		now:    time.Now,
		tracer: otel.Tracer("curelink.internal.conversation.sessions"),
	}
}

func sessionKey(id string) string {
	return redisSessionPrefix + id
}

func (s *RedisStore) GetOrCreate(ctx context.Context, id, owner string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.get_or_create_session")
	defer span.End()

	id = newSessionID(id)
	now := s.now().UTC()
	fresh, err := json.Marshal(&Session{ID: id, Owner: owner, Turns: []Turn{}, Context: map[string]any{}, CreatedAt: now, LastActivity: now})
	if err != nil {
		return nil, fmt.Errorf("conversation: encode session: %w", err)
	}
	if err := s.redis.SetNX(ctx, sessionKey(id), fresh, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: create session: %w", err)
	}

	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: decode session: %w", err)
	}
	if sess.Turns == nil {
		sess.Turns = []Turn{}
	}
	return &sess, nil
}

// Append rewrites the session document inside a WATCH transaction and
// retries when another writer touched the key first.
func (s *RedisStore) Append(ctx context.Context, id string, turns ...Turn) error {
	ctx, span := s.tracer.Start(ctx, "conversation.append_turns")
	defer span.End()

	for _, t := range turns {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	key := sessionKey(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return fmt.Errorf("conversation: decode session: %w", err)
		}
		sess.Turns = appendTruncated(sess.Turns, turns)
		sess.LastActivity = s.now().UTC()
		updated, err := json.Marshal(&sess)
		if err != nil {
			return fmt.Errorf("conversation: encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		err := s.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			span.RecordError(err)
			return fmt.Errorf("conversation: append turns: %w", err)
		}
		return err
	}
	return fmt.Errorf("conversation: append turns: too much contention on %s", key)
}
