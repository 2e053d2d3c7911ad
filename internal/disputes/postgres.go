package disputes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const disputesSchema = `
CREATE TABLE IF NOT EXISTS dispute_cases (
	id TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	transaction_id TEXT NOT NULL,
	dispute_type TEXT NOT NULL,
	amount NUMERIC(18,2) NOT NULL,
	currency_code CHAR(3) NOT NULL,
	transaction_date TIMESTAMPTZ NOT NULL,
	reason TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	last_seq BIGINT NOT NULL,
	last_event_at TIMESTAMPTZ NOT NULL,
	last_hash TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS dispute_cases_customer_idx ON dispute_cases (customer_id);

CREATE TABLE IF NOT EXISTS dispute_events (
	id UUID PRIMARY KEY,
	case_id TEXT NOT NULL REFERENCES dispute_cases (id),
	seq BIGINT NOT NULL,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	party TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	prev_hash TEXT NOT NULL,
	hash TEXT NOT NULL,
	UNIQUE (case_id, seq)
);
`

// PostgresStore is the durable Store. The unique (case_id, seq) key backs up
// the optimistic sequence check: a lost race surfaces either as zero rows
// updated or as SQLSTATE 23505, both reported as ConcurrentModificationError.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the dispute tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, disputesSchema); err != nil {
		return fmt.Errorf("migrate dispute store: %w", err)
	}
	return nil
}

// CreateCase inserts the case row and its first event in one transaction.
func (s *PostgresStore) CreateCase(ctx context.Context, c *Case, created *TimelineEvent) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin create case: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO dispute_cases (
			id, customer_id, transaction_id, dispute_type, amount, currency_code,
			transaction_date, reason, status, created_at, last_seq, last_event_at, last_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.CustomerID, c.TransactionID, c.DisputeType, c.Amount, c.CurrencyCode,
		c.TransactionDate, c.Reason, c.Status, c.CreatedAt, created.Seq, created.CreatedAt, created.Hash)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}

	if err := insertEvent(ctx, tx, created); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create case: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, e *TimelineEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO dispute_events (id, case_id, seq, kind, title, description, party, created_at, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.CaseID, e.Seq, e.Kind, e.Title, e.Description, e.Party, e.CreatedAt, e.PrevHash, e.Hash)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetCase returns the current case snapshot.
func (s *PostgresStore) GetCase(ctx context.Context, caseID string) (*Case, error) {
	c := &Case{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, transaction_id, dispute_type, amount, currency_code,
		       transaction_date, reason, status, created_at
		FROM dispute_cases
		WHERE id = $1
	`, caseID).Scan(
		&c.ID, &c.CustomerID, &c.TransactionID, &c.DisputeType, &c.Amount, &c.CurrencyCode,
		&c.TransactionDate, &c.Reason, &c.Status, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{CaseID: caseID}
		}
		return nil, fmt.Errorf("query case: %w", err)
	}
	return c, nil
}

// ListCases returns matching cases, newest first.
func (s *PostgresStore) ListCases(ctx context.Context, filter CaseFilter) ([]*Case, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, customer_id, transaction_id, dispute_type, amount, currency_code,
		       transaction_date, reason, status, created_at
		FROM dispute_cases
		WHERE 1=1
	`)

	args := []any{}
	argCount := 1

	if filter.CustomerID != "" {
		fmt.Fprintf(&b, " AND customer_id = $%d", argCount)
		args = append(args, filter.CustomerID)
		argCount++
	}
	if filter.Status != "" {
		fmt.Fprintf(&b, " AND status = $%d", argCount)
		args = append(args, filter.Status)
		argCount++
	}
	if !filter.CreatedAfter.IsZero() {
		fmt.Fprintf(&b, " AND created_at >= $%d", argCount)
		args = append(args, filter.CreatedAfter)
		argCount++
	}
	if !filter.CreatedUntil.IsZero() {
		fmt.Fprintf(&b, " AND created_at <= $%d", argCount)
		args = append(args, filter.CreatedUntil)
		argCount++
	}

	b.WriteString(" ORDER BY created_at DESC")

	if filter.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT $%d", argCount)
		args = append(args, filter.Limit)
		argCount++
	}
	if filter.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var cases []*Case
	for rows.Next() {
		c := &Case{}
		if err := rows.Scan(
			&c.ID, &c.CustomerID, &c.TransactionID, &c.DisputeType, &c.Amount, &c.CurrencyCode,
			&c.TransactionDate, &c.Reason, &c.Status, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// Head returns the case's write cursor.
func (s *PostgresStore) Head(ctx context.Context, caseID string) (*Head, error) {
	h := &Head{}
	var lastEventAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT status, last_seq, last_event_at, last_hash
		FROM dispute_cases
		WHERE id = $1
	`, caseID).Scan(&h.Status, &h.Seq, &lastEventAt, &h.LastHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{CaseID: caseID}
		}
		return nil, fmt.Errorf("query case head: %w", err)
	}
	h.LastEventAt = lastEventAt
	return h, nil
}

// AppendEvents commits the batch if the case cursor still matches expectedSeq.
func (s *PostgresStore) AppendEvents(ctx context.Context, caseID string, expectedSeq uint64, newStatus Status, events []*TimelineEvent) error {
	if len(events) == 0 {
		return fmt.Errorf("append to case %s: no events", caseID)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	last := events[len(events)-1]
	tag, err := tx.Exec(ctx, `
		UPDATE dispute_cases
		SET status = $1, last_seq = $2, last_event_at = $3, last_hash = $4
		WHERE id = $5 AND last_seq = $6
	`, newStatus, last.Seq, last.CreatedAt, last.Hash, caseID, expectedSeq)
	if err != nil {
		return fmt.Errorf("update case cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM dispute_cases WHERE id = $1)`, caseID).Scan(&exists); err != nil {
			return fmt.Errorf("check case existence: %w", err)
		}
		if !exists {
			return &NotFoundError{CaseID: caseID}
		}
		return &ConcurrentModificationError{CaseID: caseID, ExpectedSeq: expectedSeq}
	}

	for _, e := range events {
		if err := insertEvent(ctx, tx, e); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return &ConcurrentModificationError{CaseID: caseID, ExpectedSeq: expectedSeq}
			}
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// Events returns the case's timeline in sequence order.
func (s *PostgresStore) Events(ctx context.Context, caseID string) ([]*TimelineEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, case_id, seq, kind, title, description, party, created_at, prev_hash, hash
		FROM dispute_events
		WHERE case_id = $1
		ORDER BY seq ASC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*TimelineEvent
	for rows.Next() {
		e := &TimelineEvent{}
		if err := rows.Scan(
			&e.ID, &e.CaseID, &e.Seq, &e.Kind, &e.Title, &e.Description, &e.Party,
			&e.CreatedAt, &e.PrevHash, &e.Hash,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(events) == 0 {
		if _, err := s.GetCase(ctx, caseID); err != nil {
			return nil, err
		}
	}
	return events, nil
}
