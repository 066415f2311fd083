// Package postgres provides a PostgreSQL-backed conversation store for
// deployments that need thread history to survive process restarts.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerochat/aerochat/internal/convo"
	"github.com/aerochat/aerochat/pkg/types"
)

var _ convo.Store = (*Store)(nil)

// schema is idempotent and applied on every startup. Message order within
// a thread is the insertion order of the bigserial seq column.
const schema = `
CREATE TABLE IF NOT EXISTS thread_messages (
    seq          BIGSERIAL PRIMARY KEY,
    thread_id    TEXT        NOT NULL,
    role         TEXT        NOT NULL,
    content      TEXT        NOT NULL DEFAULT '',
    tool_calls   JSONB,
    tool_call_id TEXT        NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_thread_messages_thread
    ON thread_messages (thread_id, seq);
`

// Store persists thread history in a thread_messages table. All methods
// are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection and
// ensures the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("convo store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("convo store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("convo store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Append(ctx context.Context, threadID string, msgs ...types.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	const q = `
		INSERT INTO thread_messages (thread_id, role, content, tool_calls, tool_call_id)
		VALUES ($1, $2, $3, $4, $5)`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("convo store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range msgs {
		var toolCalls []byte
		if len(m.ToolCalls) > 0 {
			toolCalls, err = json.Marshal(m.ToolCalls)
			if err != nil {
				return fmt.Errorf("convo store: encode tool calls: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, q, threadID, string(m.Role), m.Content, toolCalls, m.ToolCallID); err != nil {
			return fmt.Errorf("convo store: append: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("convo store: commit: %w", err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, threadID string) ([]types.Message, error) {
	const q = `
		SELECT role, content, tool_calls, tool_call_id
		FROM   thread_messages
		WHERE  thread_id = $1
		ORDER  BY seq`

	rows, err := s.pool.Query(ctx, q, threadID)
	if err != nil {
		return nil, fmt.Errorf("convo store: history: %w", err)
	}

	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Message, error) {
		var (
			m         types.Message
			role      string
			toolCalls []byte
		)
		if err := row.Scan(&role, &m.Content, &toolCalls, &m.ToolCallID); err != nil {
			return types.Message{}, err
		}
		m.Role = types.Role(role)
		if len(toolCalls) > 0 {
			if err := json.Unmarshal(toolCalls, &m.ToolCalls); err != nil {
				return types.Message{}, err
			}
		}
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("convo store: scan rows: %w", err)
	}
	if msgs == nil {
		msgs = []types.Message{}
	}
	return msgs, nil
}
