package backup

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Catalog records completed backups in a small sqlite database next to the
// archives. It is pure history: losing it loses nothing but bookkeeping,
// the archives themselves stay authoritative.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens (and if needed initializes) the catalog database.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS backups (
			id TEXT PRIMARY KEY,
			instance TEXT NOT NULL,
			archive TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			file_count INTEGER NOT NULL,
			trigger_kind TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			duration_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_backups_instance ON backups(instance, started_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize backup catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Add inserts one backup record.
func (c *Catalog) Add(rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := c.db.Exec(`
		INSERT INTO backups (id, instance, archive, size_bytes, file_count, trigger_kind, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Instance, rec.Archive, rec.SizeBytes, rec.FileCount, rec.Trigger,
		rec.StartedAt, rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to insert backup record: %w", err)
	}
	return nil
}

// History returns the most recent records for an instance, newest first.
// An empty instance returns records across all instances.
func (c *Catalog) History(instance string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, instance, archive, size_bytes, file_count, trigger_kind, started_at, duration_ms
		FROM backups
	`
	args := []any{}
	if instance != "" {
		query += " WHERE instance = ?"
		args = append(args, instance)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backup history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var durationMs int64
		if err := rows.Scan(&rec.ID, &rec.Instance, &rec.Archive, &rec.SizeBytes,
			&rec.FileCount, &rec.Trigger, &rec.StartedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan backup record: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}
