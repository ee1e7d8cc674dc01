// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/technophere/applinks/internal/app/domain/appmeta"
	"github.com/technophere/applinks/internal/app/storage"
)

// Store implements the registry and cache interfaces over database/sql.
type Store struct {
	db *sql.DB
}

var _ storage.RegistryStore = (*Store)(nil)
var _ storage.CacheStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the backing tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS app_registry (
			store      TEXT        NOT NULL,
			app_id     TEXT        NOT NULL,
			added_at   TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (store, app_id)
		);
		CREATE TABLE IF NOT EXISTS app_metadata_cache (
			store        TEXT        NOT NULL,
			app_id       TEXT        NOT NULL,
			name         TEXT        NOT NULL,
			developer    TEXT        NOT NULL DEFAULT '',
			price        TEXT        NOT NULL DEFAULT '',
			icon_url     TEXT        NOT NULL DEFAULT '',
			rating       DOUBLE PRECISION NOT NULL DEFAULT 0,
			review_count TEXT        NOT NULL DEFAULT '',
			store_url    TEXT        NOT NULL DEFAULT '',
			last_updated TEXT        NOT NULL DEFAULT '',
			expires_at   TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (store, app_id)
		);
	`)
	return err
}

// --- RegistryStore ----------------------------------------------------------

func (s *Store) RegisterApp(ctx context.Context, entry appmeta.RegistryEntry) (appmeta.RegistryEntry, bool, error) {
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO app_registry (store, app_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (store, app_id) DO NOTHING
	`, entry.Store, entry.ID, entry.AddedAt)
	if err != nil {
		return appmeta.RegistryEntry{}, false, err
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		return entry, true, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT added_at FROM app_registry WHERE store = $1 AND app_id = $2
	`, entry.Store, entry.ID)
	if err := row.Scan(&entry.AddedAt); err != nil {
		return appmeta.RegistryEntry{}, false, err
	}
	return entry, false, nil
}

func (s *Store) ListRegistrations(ctx context.Context) ([]appmeta.RegistryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT store, app_id, added_at
		FROM app_registry
		ORDER BY store, app_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []appmeta.RegistryEntry
	for rows.Next() {
		var entry appmeta.RegistryEntry
		if err := rows.Scan(&entry.Store, &entry.ID, &entry.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) DeleteRegistration(ctx context.Context, store appmeta.Store, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM app_registry WHERE store = $1 AND app_id = $2
	`, store, id)
	return err
}

// --- CacheStore -------------------------------------------------------------

func (s *Store) GetCached(ctx context.Context, store appmeta.Store, id string) (appmeta.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT store, app_id, name, developer, price, icon_url, rating, review_count, store_url, last_updated
		FROM app_metadata_cache
		WHERE store = $1 AND app_id = $2 AND expires_at > now()
	`, store, id)

	var rec appmeta.Record
	err := row.Scan(&rec.Store, &rec.ID, &rec.Name, &rec.Developer, &rec.Price,
		&rec.IconURL, &rec.Rating, &rec.ReviewCount, &rec.StoreURL, &rec.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return appmeta.Record{}, false, nil
	}
	if err != nil {
		return appmeta.Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) PutCached(ctx context.Context, rec appmeta.Record, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_metadata_cache
			(store, app_id, name, developer, price, icon_url, rating, review_count, store_url, last_updated, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (store, app_id) DO UPDATE SET
			name = EXCLUDED.name,
			developer = EXCLUDED.developer,
			price = EXCLUDED.price,
			icon_url = EXCLUDED.icon_url,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			store_url = EXCLUDED.store_url,
			last_updated = EXCLUDED.last_updated,
			expires_at = EXCLUDED.expires_at
	`, rec.Store, rec.ID, rec.Name, rec.Developer, rec.Price, rec.IconURL,
		rec.Rating, rec.ReviewCount, rec.StoreURL, rec.LastUpdated, expiresAt)
	return err
}

func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM app_metadata_cache WHERE expires_at <= now()
	`)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}
