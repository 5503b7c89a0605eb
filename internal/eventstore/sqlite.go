package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lucenthq/lucent/dbopen"
	"github.com/lucenthq/lucent/internal/bandit"
	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/ids"

	_ "modernc.org/sqlite"
)

// schema is the durable event log, indexed by (userId, timestamp) per
// spec.md §9's own naming of the schema it expects a durable backend to
// use. Grounded on veille/internal/store/schema.go's
// "const Schema + ApplySchema" shape.
const schema = `
CREATE TABLE IF NOT EXISTS events (
    id         TEXT PRIMARY KEY,
    userId     TEXT NOT NULL,
    timestamp  INTEGER NOT NULL,
    type       TEXT NOT NULL,
    sourceId   TEXT NOT NULL DEFAULT '',
    queryId    TEXT NOT NULL DEFAULT '',
    meta_json  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_user_time ON events(userId, timestamp);
`

// SQLiteStore is the optional durable Store backend. The event log
// survives a restart; each user's bandit is rebuilt in memory by replaying
// that user's click events on first access after start-up (pending
// impressions are not durable — they self-resolve via the normal timeout
// sweep either way, so losing unresolved ones on restart costs nothing
// beyond a little exploration).
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	bandits map[string]*bandit.Bandit

	genID    func() string
	now      func() time.Time
	pendingT time.Duration
}

// OpenSQLiteStore opens (and migrates) a durable event store at path.
// pendingTimeout is the pending-impression sweep window; zero uses
// bandit.DefaultPendingTimeout.
func OpenSQLiteStore(path string, pendingTimeout time.Duration) (*SQLiteStore, error) {
	if pendingTimeout <= 0 {
		pendingTimeout = bandit.DefaultPendingTimeout
	}
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("eventstore: open: %w", err)
	}
	return &SQLiteStore{
		db:       db,
		bandits:  make(map[string]*bandit.Bandit),
		genID:    ids.Default,
		now:      time.Now,
		pendingT: pendingTimeout,
	}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, event engine.UserEvent) error {
	event = stampEvent(event, s.now(), s.genID)

	metaJSON := ""
	if event.Meta != nil {
		b, err := json.Marshal(event.Meta)
		if err != nil {
			return fmt.Errorf("eventstore: marshal meta: %w", err)
		}
		metaJSON = string(b)
	}

	// Load (and on first access, replay) the bandit before inserting, so
	// the replay does not already include this event.
	userBandit := s.Bandit(event.UserID)

	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO events (id, userId, timestamp, type, sourceId, queryId, meta_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, event.Timestamp.UnixMilli(), string(event.EventType),
		event.SourceID, event.QueryID, metaJSON)
	if err != nil {
		return fmt.Errorf("eventstore: insert event: %w", err)
	}

	applyClickEvidence(userBandit, event)
	return nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, userID string) ([]engine.UserEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, userId, timestamp, type, sourceId, queryId, meta_json
		FROM events WHERE userId = ? ORDER BY timestamp ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list events: %w", err)
	}
	defer rows.Close()

	var out []engine.UserEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// Bandit returns the user's in-memory bandit, rebuilding it from the
// durable event log on first access.
func (s *SQLiteStore) Bandit(userID string) *bandit.Bandit {
	s.mu.Lock()
	if b, ok := s.bandits[userID]; ok {
		s.mu.Unlock()
		return b
	}
	b := bandit.New(s.pendingT)
	s.bandits[userID] = b
	s.mu.Unlock()

	events, err := s.ListEvents(context.Background(), userID)
	if err != nil {
		return b
	}
	for _, event := range events {
		applyClickEvidence(b, event)
	}
	return b
}

func (s *SQLiteStore) Preferences(ctx context.Context, userID string) ([]bandit.ArmScore, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE userId = ?`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("eventstore: count events: %w", err)
	}
	return s.Bandit(userID).TopK(topArmsLimit), total, nil
}

func (s *SQLiteStore) Reset(ctx context.Context, userID string) error {
	_, err := dbopen.Exec(ctx, s.db, `DELETE FROM events WHERE userId = ?`, userID)
	if err != nil {
		return fmt.Errorf("eventstore: reset: %w", err)
	}
	s.mu.Lock()
	delete(s.bandits, userID)
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanEvent(rows *sql.Rows) (engine.UserEvent, error) {
	var (
		event    engine.UserEvent
		ms       int64
		eventT   string
		metaJSON string
	)
	if err := rows.Scan(&event.ID, &event.UserID, &ms, &eventT, &event.SourceID, &event.QueryID, &metaJSON); err != nil {
		return engine.UserEvent{}, fmt.Errorf("eventstore: scan event: %w", err)
	}
	event.Timestamp = time.UnixMilli(ms)
	event.EventType = engine.EventType(eventT)
	if metaJSON != "" {
		var meta engine.EventMeta
		if err := json.Unmarshal([]byte(metaJSON), &meta); err == nil {
			event.Meta = &meta
		}
	}
	return event, nil
}
