// Package clientdata provides persistent caching for derived and fetched
// payloads. Entries are msgpack blobs in cache.db with expiration
// timestamps for cache-first behavior.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Repository provides cache operations over the client_cache table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Store saves a value under key with expiration = now + ttl, replacing any
// prior entry.
func (r *Repository) Store(key string, value interface{}, ttl time.Duration) error {
	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	now := time.Now().Unix()
	_, err = r.db.Exec(`
		INSERT OR REPLACE INTO client_cache (cache_key, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?)`,
		key, blob, now, time.Now().Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

// GetIfFresh decodes the entry into dst only when it has not expired.
// Returns false when the key is missing or stale.
func (r *Repository) GetIfFresh(key string, dst interface{}) (bool, error) {
	var blob []byte
	err := r.db.QueryRow(
		"SELECT payload FROM client_cache WHERE cache_key = ? AND expires_at > ?",
		key, time.Now().Unix(),
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}

	if err := msgpack.Unmarshal(blob, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

// Get decodes the entry regardless of expiration. Stale data is better
// than no data when the provider is down. Returns false when missing.
func (r *Repository) Get(key string, dst interface{}) (bool, error) {
	var blob []byte
	err := r.db.QueryRow(
		"SELECT payload FROM client_cache WHERE cache_key = ?", key,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}

	if err := msgpack.Unmarshal(blob, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

// Delete removes one entry.
func (r *Repository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM client_cache WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes all stale entries and returns the count.
func (r *Repository) DeleteExpired() (int64, error) {
	res, err := r.db.Exec("DELETE FROM client_cache WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
