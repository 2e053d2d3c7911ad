package refunds

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const refundsSchema = `
CREATE TABLE IF NOT EXISTS refund_entries (
	id UUID PRIMARY KEY,
	case_id TEXT NOT NULL,
	customer_id TEXT NOT NULL,
	amount NUMERIC(18,2) NOT NULL,
	currency_code CHAR(3) NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS refund_entries_customer_idx ON refund_entries (customer_id);
`

// PostgresJournal stores refund entries in PostgreSQL.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal creates a journal over the given pool.
func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

// Migrate creates the journal table if it does not exist.
func (j *PostgresJournal) Migrate(ctx context.Context) error {
	if _, err := j.pool.Exec(ctx, refundsSchema); err != nil {
		return fmt.Errorf("migrate refund journal: %w", err)
	}
	return nil
}

// Record inserts the entry, assigning an ID if the caller left it empty.
func (j *PostgresJournal) Record(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := j.pool.Exec(ctx, `
		INSERT INTO refund_entries (id, case_id, customer_id, amount, currency_code, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.CaseID, entry.CustomerID, entry.Amount, entry.CurrencyCode, entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert refund entry: %w", err)
	}
	return nil
}

// ListByCustomer returns the customer's refunds ordered by time.
func (j *PostgresJournal) ListByCustomer(ctx context.Context, customerID string) ([]*Entry, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT id, case_id, customer_id, amount, currency_code, occurred_at
		FROM refund_entries
		WHERE customer_id = $1
		ORDER BY occurred_at ASC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query refund entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.CaseID, &e.CustomerID, &e.Amount, &e.CurrencyCode, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan refund entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
