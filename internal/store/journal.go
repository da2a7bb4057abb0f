package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/qir/internal/queryir"
	"github.com/roach88/qir/internal/wire"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("query record not found")

// Record is one journaled query.
type Record struct {
	ID          string // UUIDv7 unless WithIDGenerator is used
	Seq         int64  // 1-based append order
	Namespace   string // root namespace; empty for DESCRIBE
	Fingerprint string
	Payload     []byte // wire encoding
	Dump        string
}

// Query decodes the record's payload.
func (r Record) Query() (*queryir.Query, error) {
	q, err := wire.Decode(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode record %s: %w", r.ID, err)
	}
	return q, nil
}

// Append encodes q and writes it as the next journal record.
//
// Identical queries may be appended any number of times; each gets its own
// id and seq and shares the fingerprint.
func (s *Store) Append(ctx context.Context, q *queryir.Query) (Record, error) {
	payload, err := wire.Encode(q)
	if err != nil {
		return Record{}, fmt.Errorf("append query: %w", err)
	}
	fp, err := q.Fingerprint()
	if err != nil {
		return Record{}, fmt.Errorf("append query: %w", err)
	}
	rec := Record{
		ID:          s.ids.Generate(),
		Namespace:   q.Namespace,
		Fingerprint: fp,
		Payload:     payload,
		Dump:        q.Dump(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("append query: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM queries`).Scan(&rec.Seq); err != nil {
		return Record{}, fmt.Errorf("append query: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO queries (id, seq, namespace, fingerprint, payload, dump)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Seq, rec.Namespace, rec.Fingerprint, rec.Payload, rec.Dump)
	if err != nil {
		return Record{}, fmt.Errorf("append query: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("append query: commit: %w", err)
	}

	s.logger.Debug("query journaled",
		"id", rec.ID,
		"seq", rec.Seq,
		"namespace", rec.Namespace,
		"bytes", len(rec.Payload))
	return rec, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, namespace, fingerprint, payload, dump
		FROM queries
		WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	return rec, nil
}

// List returns every record in append order.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.list(ctx, `
		SELECT id, seq, namespace, fingerprint, payload, dump
		FROM queries
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// ListByFingerprint returns every record with the given fingerprint in
// append order.
func (s *Store) ListByFingerprint(ctx context.Context, fingerprint string) ([]Record, error) {
	return s.list(ctx, `
		SELECT id, seq, namespace, fingerprint, payload, dump
		FROM queries
		WHERE fingerprint = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, fingerprint)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	if err := row.Scan(&rec.ID, &rec.Seq, &rec.Namespace, &rec.Fingerprint, &rec.Payload, &rec.Dump); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}
