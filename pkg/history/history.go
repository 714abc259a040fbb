package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
	"github.com/radwatch/gammacore/pkg/models"
)

// Store persists analysis records so the exporting layer can list past
// runs. The full record is kept as a JSON payload next to a few indexed
// summary columns.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	const schema = `
    CREATE TABLE IF NOT EXISTS analyses (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL,
        detector TEXT,
        top_isotope TEXT,
        confidence REAL,
        payload TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
    `
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create history tables: %w", err)
	}
	return nil
}

// Save appends one analysis record.
func (s *Store) Save(record models.AnalysisRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal analysis record: %w", err)
	}
	topIso, topConf := "", 0.0
	if top, ok := record.TopIsotope(); ok {
		topIso, topConf = top.Isotope, top.Confidence
	}
	_, err = s.db.Exec(
		`INSERT INTO analyses (request_id, created_at, detector, top_isotope, confidence, payload)
         VALUES (?, ?, ?, ?, ?, ?)`,
		record.RequestID, record.Timestamp, record.Detector, topIso, topConf, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]models.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT payload FROM analyses ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.AnalysisRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		var record models.AnalysisRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("unmarshal history payload: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
