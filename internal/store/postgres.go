package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tournevent/courierhub/pkg/courier"
)

const schema = `
CREATE TABLE IF NOT EXISTS quotations (
	id            TEXT PRIMARY KEY,
	provider_code TEXT NOT NULL,
	doc_type      TEXT NOT NULL,
	doc_id        TEXT NOT NULL,
	amount        DOUBLE PRECISION NOT NULL,
	currency      TEXT NOT NULL,
	issued_at     TIMESTAMPTZ NOT NULL,
	expires_at    TIMESTAMPTZ,
	valid         BOOLEAN NOT NULL,
	raw           JSONB
);
CREATE INDEX IF NOT EXISTS quotations_doc_idx ON quotations (doc_type, doc_id, provider_code, issued_at DESC);

CREATE TABLE IF NOT EXISTS orders (
	id            TEXT PRIMARY KEY,
	provider_code TEXT NOT NULL,
	quotation_id  TEXT,
	doc_type      TEXT NOT NULL,
	doc_id        TEXT NOT NULL,
	status        TEXT NOT NULL,
	amount        DOUBLE PRECISION NOT NULL,
	currency      TEXT NOT NULL,
	driver        JSONB,
	vehicle       JSONB,
	raw           JSONB,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_doc_idx ON orders (doc_type, doc_id, created_at DESC);
`

// PostgresStore is the production Store backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) SaveQuotation(ctx context.Context, q *courier.Quotation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quotations (id, provider_code, doc_type, doc_id, amount, currency, issued_at, expires_at, valid, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount, currency = EXCLUDED.currency,
			expires_at = EXCLUDED.expires_at, valid = EXCLUDED.valid, raw = EXCLUDED.raw`,
		q.ID, q.ProviderCode, q.SourceDocumentType, q.SourceDocumentID,
		q.Price.Amount, q.Price.Currency, q.IssuedAt, q.ExpiresAt, q.Valid, rawOrNull(q.Raw))
	if err != nil {
		return fmt.Errorf("saving quotation %s: %w", q.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetQuotation(ctx context.Context, id string) (*courier.Quotation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, provider_code, doc_type, doc_id, amount, currency, issued_at, expires_at, valid, raw
		FROM quotations WHERE id = $1`, id)
	return scanQuotation(row)
}

func (s *PostgresStore) LatestQuotation(ctx context.Context, docType, docID, providerCode string) (*courier.Quotation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, provider_code, doc_type, doc_id, amount, currency, issued_at, expires_at, valid, raw
		FROM quotations
		WHERE doc_type = $1 AND doc_id = $2 AND provider_code = $3
		ORDER BY issued_at DESC LIMIT 1`, docType, docID, providerCode)
	return scanQuotation(row)
}

func (s *PostgresStore) InvalidateQuotation(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE quotations SET valid = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("invalidating quotation %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) SaveOrder(ctx context.Context, o *courier.Order) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (id, provider_code, quotation_id, doc_type, doc_id, status, amount, currency, driver, vehicle, raw, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, amount = EXCLUDED.amount, currency = EXCLUDED.currency,
			driver = EXCLUDED.driver, vehicle = EXCLUDED.vehicle, raw = EXCLUDED.raw,
			updated_at = EXCLUDED.updated_at`,
		o.ID, o.ProviderCode, o.QuotationID, o.SourceDocumentType, o.SourceDocumentID,
		o.Status, o.Price.Amount, o.Price.Currency, o.Driver, o.Vehicle, rawOrNull(o.Raw),
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving order %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*courier.Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, provider_code, quotation_id, doc_type, doc_id, status, amount, currency, driver, vehicle, raw, created_at, updated_at
		FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (s *PostgresStore) UpdateOrder(ctx context.Context, o *courier.Order) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $2, amount = $3, currency = $4, driver = $5, vehicle = $6, raw = $7, updated_at = $8
		WHERE id = $1`,
		o.ID, o.Status, o.Price.Amount, o.Price.Currency, o.Driver, o.Vehicle, rawOrNull(o.Raw), o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RekeyOrder(ctx context.Context, oldID, newID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE orders SET id = $2 WHERE id = $1`, oldID, newID)
	if err != nil {
		return fmt.Errorf("rekeying order %s to %s: %w", oldID, newID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) OrdersByDocument(ctx context.Context, docType, docID string) ([]*courier.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, provider_code, quotation_id, doc_type, doc_id, status, amount, currency, driver, vehicle, raw, created_at, updated_at
		FROM orders WHERE doc_type = $1 AND doc_id = $2
		ORDER BY created_at DESC`, docType, docID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %s/%s: %w", docType, docID, err)
	}
	defer rows.Close()

	var out []*courier.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuotation(row rowScanner) (*courier.Quotation, error) {
	var q courier.Quotation
	err := row.Scan(&q.ID, &q.ProviderCode, &q.SourceDocumentType, &q.SourceDocumentID,
		&q.Price.Amount, &q.Price.Currency, &q.IssuedAt, &q.ExpiresAt, &q.Valid, &q.Raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning quotation: %w", err)
	}
	return &q, nil
}

func scanOrder(row rowScanner) (*courier.Order, error) {
	var o courier.Order
	err := row.Scan(&o.ID, &o.ProviderCode, &o.QuotationID, &o.SourceDocumentType, &o.SourceDocumentID,
		&o.Status, &o.Price.Amount, &o.Price.Currency, &o.Driver, &o.Vehicle, &o.Raw,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning order: %w", err)
	}
	return &o, nil
}

// rawOrNull keeps empty payloads out of the JSONB columns.
func rawOrNull(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

var _ Store = (*PostgresStore)(nil)
