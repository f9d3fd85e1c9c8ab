package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/evanschultz/scorecard/internal/app"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// savedAtLayout is fixed-width so saved_at sorts as text.
const savedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// memorySeq gives each in-memory repository its own database.
var memorySeq atomic.Int64

// Repository stores board snapshots in one sqlite database.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	return openDSN(path)
}

// OpenInMemory opens a private in-memory database, mostly for tests.
func OpenInMemory() (*Repository, error) {
	return openDSN(fmt.Sprintf("file:scorecard-mem-%d?mode=memory&cache=shared", memorySeq.Add(1)))
}

func openDSN(dsn string) (*Repository, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the snapshot table.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS board_snapshots (
			name TEXT PRIMARY KEY,
			version TEXT NOT NULL,
			node_count INTEGER NOT NULL DEFAULT 0,
			connection_count INTEGER NOT NULL DEFAULT 0,
			payload_json TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_board_snapshots_saved_at ON board_snapshots(saved_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// SaveSnapshot inserts or replaces a snapshot by name.
func (r *Repository) SaveSnapshot(ctx context.Context, snap app.Snapshot) error {
	name := strings.TrimSpace(snap.Name)
	if name == "" {
		return app.ErrInvalidName
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot payload: %w", err)
	}
	info := snap.Info()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO board_snapshots(name, version, node_count, connection_count, payload_json, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			node_count = excluded.node_count,
			connection_count = excluded.connection_count,
			payload_json = excluded.payload_json,
			saved_at = excluded.saved_at
	`, name, snap.Version, info.Nodes, info.Connections, string(payload), ts(snap.SavedAt))
	return err
}

// GetSnapshot returns one snapshot by name.
func (r *Repository) GetSnapshot(ctx context.Context, name string) (app.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT payload_json
		FROM board_snapshots
		WHERE name = ?
	`, name)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return app.Snapshot{}, app.ErrNotFound
		}
		return app.Snapshot{}, err
	}
	var snap app.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return app.Snapshot{}, fmt.Errorf("decode board_snapshots.payload_json: %w", err)
	}
	snap.Name = name
	return snap, nil
}

// ListSnapshots lists snapshot summaries, newest first.
func (r *Repository) ListSnapshots(ctx context.Context) ([]app.SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, node_count, connection_count, saved_at
		FROM board_snapshots
		ORDER BY saved_at DESC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]app.SnapshotInfo, 0)
	for rows.Next() {
		var (
			info     app.SnapshotInfo
			savedRaw string
		)
		if err := rows.Scan(&info.Name, &info.Nodes, &info.Connections, &savedRaw); err != nil {
			return nil, err
		}
		info.SavedAt = parseTS(savedRaw)
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes one snapshot by name.
func (r *Repository) DeleteSnapshot(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM board_snapshots WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// translateNoRows maps a zero-row delete to app.ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

func ts(t time.Time) string {
	return t.UTC().Format(savedAtLayout)
}

// parseTS reads a stored saved_at, zero on garbage.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
