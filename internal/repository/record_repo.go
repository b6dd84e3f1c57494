package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"mindspark/internal/database"
)

// RecordStore is a durable string key/value store
type RecordStore interface {
	// Get returns the value for key; ok is false when the key is absent
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SQLRecordStore keeps records in the kv_records table
type SQLRecordStore struct {
	db *database.DB
}

func NewSQLRecordStore(db *database.DB) *SQLRecordStore {
	return &SQLRecordStore{db: db}
}

// Get retrieves a record value by key
func (r *SQLRecordStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT record_value FROM kv_records WHERE record_key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get record %s: %w", key, err)
	}
	return value, true, nil
}

// Set updates or inserts a record
func (r *SQLRecordStore) Set(ctx context.Context, key, value string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Dialect.UpsertRecordQuery(), key, value); err != nil {
		return fmt.Errorf("failed to set record %s: %w", key, err)
	}
	return nil
}

// Delete removes a record. Deleting a missing key is not an error.
func (r *SQLRecordStore) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_records WHERE record_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// RedisRecordStore keeps records as plain Redis strings under a key prefix
type RedisRecordStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRecordStore creates a store over client. prefix may be empty.
func NewRedisRecordStore(client *redis.Client, prefix string) *RedisRecordStore {
	return &RedisRecordStore{client: client, prefix: prefix}
}

func (r *RedisRecordStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get record %s: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisRecordStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set record %s: %w", key, err)
	}
	return nil
}

func (r *RedisRecordStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// MemoryRecordStore is a process-local store used by tests and the memory driver
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]string
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string]string)}
}

func (m *MemoryRecordStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.records[key]
	return v, ok, nil
}

func (m *MemoryRecordStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = value
	return nil
}

func (m *MemoryRecordStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}
