package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    path TEXT PRIMARY KEY,
    value JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const notifyChannel = "zonehunt_records"

// PostgresStore implements Store on PostgreSQL. Leaf values live in a
// single records table; change fan-out rides LISTEN/NOTIFY on a dedicated
// connection, so multiple server processes sharing one database see each
// other's writes.
type PostgresStore struct {
	pool     *pgxpool.Pool
	listener *pgx.Conn

	mu     sync.Mutex
	subs   map[int]*pgSub
	nextID int

	done chan struct{}
}

type pgSub struct {
	path string
	ch   chan json.RawMessage
}

// NewPostgresStore connects, initializes the schema, and starts the
// notification listener.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}

	listener, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := listener.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		listener.Close(ctx)
		pool.Close()
		return nil, err
	}

	s := &PostgresStore{
		pool:     pool,
		listener: listener,
		subs:     make(map[int]*pgSub),
		done:     make(chan struct{}),
	}
	go s.listen()
	return s, nil
}

// Read returns the subtree value at path, or nil when absent.
func (s *PostgresStore) Read(ctx context.Context, path string) (json.RawMessage, error) {
	leaves, err := s.loadSubtree(ctx, path)
	if err != nil {
		return nil, err
	}
	return assemble(path, leaves), nil
}

// Write replaces the value at path and notifies subscribers.
func (s *PostgresStore) Write(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if isNull(raw) {
		return s.Delete(ctx, path)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// A leaf write shadows any children previously written below it.
	if _, err := tx.Exec(ctx,
		`DELETE FROM records WHERE path LIKE $1 || '/%'`, path); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO records (path, value) VALUES ($1, $2)
		 ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		path, raw); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, path); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes path and everything under it, then notifies.
func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM records WHERE path = $1 OR path LIKE $1 || '/%'`, path); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, path); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Subscribe streams subtree snapshots for path, starting with the current
// state.
func (s *PostgresStore) Subscribe(ctx context.Context, path string) (<-chan json.RawMessage, func(), error) {
	initial, err := s.Read(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	sub := &pgSub{path: path, ch: make(chan json.RawMessage, 16)}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	sub.ch <- initial
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub.ch)
		}
		s.mu.Unlock()
	}
	return sub.ch, cancel, nil
}

// Close stops the listener and releases database resources.
func (s *PostgresStore) Close() error {
	close(s.done)
	s.listener.Close(context.Background())
	s.pool.Close()
	return nil
}

// listen waits for change notifications and refreshes affected
// subscriptions.
func (s *PostgresStore) listen() {
	ctx := context.Background()
	for {
		n, err := s.listener.WaitForNotification(ctx)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			slog.Error("postgres store: listener failed", "error", err)
			return
		}
		s.dispatch(ctx, n.Payload)
	}
}

func (s *PostgresStore) dispatch(ctx context.Context, changed string) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id, sub := range s.subs {
		if related(sub.path, changed) {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.mu.Lock()
		sub, ok := s.subs[id]
		s.mu.Unlock()
		if !ok {
			continue // cancelled while we were reading
		}

		snap, err := s.Read(ctx, sub.path)
		if err != nil {
			slog.Error("postgres store: snapshot read failed", "path", sub.path, "error", err)
			continue
		}

		s.mu.Lock()
		if _, ok := s.subs[id]; !ok {
			s.mu.Unlock()
			continue
		}
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snap:
			default:
				slog.Warn("postgres store: subscriber not keeping up", "path", sub.path)
			}
		}
		s.mu.Unlock()
	}
}

func (s *PostgresStore) loadSubtree(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT path, value FROM records WHERE path = $1 OR path LIKE $1 || '/%'`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leaves := make(map[string]json.RawMessage)
	for rows.Next() {
		var p string
		var v json.RawMessage
		if err := rows.Scan(&p, &v); err != nil {
			return nil, err
		}
		leaves[p] = v
	}
	return leaves, rows.Err()
}
