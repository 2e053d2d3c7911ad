package documents

import (
	"context"
	"database/sql"
	"fmt"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	category TEXT NOT NULL,
	uploaded_at TIMESTAMP NOT NULL,
	uploaded_by TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_case_idx ON documents (case_id);
`

// SQLiteStore persists documents in a local SQLite database. The caller owns
// the *sql.DB lifecycle; open it with the sqlite3 driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over the given database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate creates the documents table if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, documentsSchema); err != nil {
		return fmt.Errorf("migrate document store: %w", err)
	}
	return nil
}

// Insert stores the document.
func (s *SQLiteStore) Insert(ctx context.Context, doc *Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, case_id, filename, category, uploaded_at, uploaded_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.CaseID, doc.Filename, doc.Category, doc.UploadedAt, doc.UploadedBy)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// List returns the case's documents in upload order, filtered by category
// when one is given.
func (s *SQLiteStore) List(ctx context.Context, caseID string, category Category) ([]*Document, error) {
	query := `
		SELECT id, case_id, filename, category, uploaded_at, uploaded_by
		FROM documents
		WHERE case_id = ?
	`
	args := []any{caseID}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY uploaded_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(&d.ID, &d.CaseID, &d.Filename, &d.Category, &d.UploadedAt, &d.UploadedBy); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
