package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

// PgJournalStore keeps journals as JSONB rows, one row per key
type PgJournalStore struct {
	db       *pgxpool.Pool
	defaults domain.Defaulter
	logger   *zap.Logger
}

// NewPgJournalStore creates a new PgJournalStore
func NewPgJournalStore(db *pgxpool.Pool, defaults domain.Defaulter, logger *zap.Logger) *PgJournalStore {
	return &PgJournalStore{db: db, defaults: defaults, logger: logger}
}

// Read returns the journal for key, inserting a default row when none exists
func (r *PgJournalStore) Read(ctx context.Context, key string) (*domain.Document, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `
		SELECT document
		FROM journals
		WHERE key = $1
	`, key).Scan(&raw)

	if errors.Is(err, pgx.ErrNoRows) {
		doc := r.defaults.DefaultDocument(key)
		if err := r.Write(ctx, key, doc); err != nil {
			return nil, err
		}
		r.logger.Info("journal created", zap.String("journal", key))
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal %s: %w", key, err)
	}

	doc, err := decodeDocument(raw, key, r.defaults)
	if err != nil {
		r.logger.Error("failed to parse journal, using defaults", zap.String("journal", key), zap.Error(err))
		doc = r.defaults.DefaultDocument(key)
		if werr := r.Write(ctx, key, doc); werr != nil {
			r.logger.Error("corrective journal write failed", zap.String("journal", key), zap.Error(werr))
		}
	}
	return doc, nil
}

// Write upserts the whole document
func (r *PgJournalStore) Write(ctx context.Context, key string, doc *domain.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO journals (key, document, updated_at)
		VALUES ($1, $2::jsonb, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = CURRENT_TIMESTAMP
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to write journal %s: %w", key, err)
	}
	return nil
}

// Keys lists the journals present in the table
func (r *PgJournalStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT key FROM journals ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list journals: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
