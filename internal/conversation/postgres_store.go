package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type sessionsDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps sessions in the conversation_sessions table with the
// turn list as JSONB.
type PostgresStore struct {
	db     sessionsDB
	now    func() time.Time
	tracer trace.Tracer
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("conversation: pgx pool cannot be nil")
	}
	return NewPostgresStoreWithDB(pool)
}

// NewPostgresStoreWithDB accepts any pgx-compatible handle, such as pgxmock.
func NewPostgresStoreWithDB(db sessionsDB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now, tracer: otel.Tracer("curelink.internal.conversation.sessions")}
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, id, owner string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.get_or_create_session")
	defer span.End()

	id = newSessionID(id)
	now := s.now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO conversation_sessions (session_id, owner, turns, context, created_at, last_activity)
		VALUES ($1, NULLIF($2, ''), '[]'::jsonb, '{}'::jsonb, $3, $3)
		ON CONFLICT (session_id) DO NOTHING
	`, id, owner, now)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: create session: %w", err)
	}

	var (
		sess        Session
		turnsJSON   []byte
		contextJSON []byte
	)
	err = s.db.QueryRow(ctx, `
		SELECT session_id, COALESCE(owner, ''), turns, context, created_at, last_activity
		FROM conversation_sessions
		WHERE session_id = $1
	`, id).Scan(&sess.ID, &sess.Owner, &turnsJSON, &contextJSON, &sess.CreatedAt, &sess.LastActivity)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}
	if err := json.Unmarshal(turnsJSON, &sess.Turns); err != nil {
		return nil, fmt.Errorf("conversation: decode turns: %w", err)
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &sess.Context); err != nil {
			return nil, fmt.Errorf("conversation: decode context: %w", err)
		}
	}
	if sess.Turns == nil {
		sess.Turns = []Turn{}
	}
	return &sess, nil
}

// Append locks the session row for the duration of one short transaction.
func (s *PostgresStore) Append(ctx context.Context, id string, turns ...Turn) (err error) {
	ctx, span := s.tracer.Start(ctx, "conversation.append_turns")
	defer span.End()

	for _, t := range turns {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: begin append: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var turnsJSON []byte
	err = tx.QueryRow(ctx, `
		SELECT turns FROM conversation_sessions
		WHERE session_id = $1
		FOR UPDATE
	`, id).Scan(&turnsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: lock session: %w", err)
	}

	var existing []Turn
	if err = json.Unmarshal(turnsJSON, &existing); err != nil {
		return fmt.Errorf("conversation: decode turns: %w", err)
	}
	merged, err := json.Marshal(appendTruncated(existing, turns))
	if err != nil {
		return fmt.Errorf("conversation: encode turns: %w", err)
	}

	if _, err = tx.Exec(ctx, `
		UPDATE conversation_sessions
		SET turns = $2::jsonb, last_activity = $3
		WHERE session_id = $1
	`, id, string(merged), s.now().UTC()); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: update turns: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: commit append: %w", err)
	}
	return nil
}
