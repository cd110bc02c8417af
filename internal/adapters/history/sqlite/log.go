package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pairings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	members    TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

type Log struct {
	db    *sql.DB
	clock ports.Clock
}

var _ ports.HistoryLog = (*Log)(nil)

func Open(ctx context.Context, path string, clock ports.Clock) (*Log, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: history path is empty", domain.ErrInvalidConfig)
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// One run owns the store; a single connection also keeps :memory: stable.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}

	return &Log{db: db, clock: clock}, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) Entries(ctx context.Context) ([]domain.HistoryEntry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id, members FROM pairings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query pairings: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.Raw); err != nil {
			return nil, fmt.Errorf("scan pairing: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pairings: %w", err)
	}

	return entries, nil
}

func (l *Log) Append(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty entry", domain.ErrHistoryCorruption)
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO pairings (members, created_at) VALUES (?, ?)`,
		raw, l.clock.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert pairing: %w", err)
	}
	return nil
}

// Remove deletes by row id, or the oldest row with the same members when the
// entry carries no id.
func (l *Log) Remove(ctx context.Context, entry domain.HistoryEntry) error {
	var (
		result sql.Result
		err    error
	)
	if entry.ID != 0 {
		result, err = l.db.ExecContext(ctx, `DELETE FROM pairings WHERE id = ?`, entry.ID)
	} else {
		result, err = l.db.ExecContext(ctx,
			`DELETE FROM pairings WHERE id = (SELECT MIN(id) FROM pairings WHERE members = ?)`,
			strings.TrimSpace(entry.Raw),
		)
	}
	if err != nil {
		return fmt.Errorf("delete pairing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pairing: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: entry %d %q not stored", domain.ErrHistoryCorruption, entry.ID, entry.Raw)
	}

	return nil
}
