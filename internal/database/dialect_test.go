package database

import (
	"strings"
	"testing"
)

func TestDialectNames(t *testing.T) {
	tests := []struct {
		name       string
		dialect    Dialect
		driver     string
		migrations string
	}{
		{"sqlite", NewSQLiteDialect(), "sqlite3", "sqlite"},
		{"postgres", NewPostgresDialect(), "postgres", "postgres"},
		{"mysql", NewMySQLDialect(), "mysql", "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %v, want %v", got, tt.driver)
			}
			if got := tt.dialect.MigrationsSubdir(); got != tt.migrations {
				t.Errorf("MigrationsSubdir() = %v, want %v", got, tt.migrations)
			}
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT record_value FROM kv_records WHERE record_key = ?",
			expected: "SELECT record_value FROM kv_records WHERE record_key = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "DELETE FROM kv_records WHERE record_key = ?",
			expected: "DELETE FROM kv_records WHERE record_key = $1",
		},
		{
			name:     "PostgreSQL upsert",
			dialect:  NewPostgresDialect(),
			query:    NewPostgresDialect().UpsertRecordQuery(),
			expected: "VALUES ($1, $2, CURRENT_TIMESTAMP)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "INSERT INTO migrations (filename) VALUES (?)",
			expected: "INSERT INTO migrations (filename) VALUES (?)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if !strings.Contains(result, tt.expected) {
				t.Errorf("RewriteQuery() = %v, want it to contain %v", result, tt.expected)
			}
		})
	}
}

func TestEmbeddedMigrationsPerDialect(t *testing.T) {
	for _, d := range []Dialect{NewSQLiteDialect(), NewPostgresDialect(), NewMySQLDialect()} {
		content, err := migrationFiles.ReadFile("migrations/" + d.MigrationsSubdir() + "/001_kv_records.sql")
		if err != nil {
			t.Fatalf("%s: %v", d.DriverName(), err)
		}
		if !strings.Contains(string(content), "kv_records") {
			t.Errorf("%s migration does not create kv_records", d.DriverName())
		}
	}
}
