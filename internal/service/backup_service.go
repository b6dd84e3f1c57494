package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"mindspark/internal/logger"
	"mindspark/internal/models"
	"mindspark/internal/repository"
)

const backupVersion = "1.0"

var ErrUnsupportedBackup = errors.New("unsupported backup version")

// BackupData is the complete local user directory as written to disk
type BackupData struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	StoreType  string        `json:"store_type"`
	Users      []models.User `json:"users"`
}

// ImportStats summarises an import
type ImportStats struct {
	Added    int
	Replaced int
	Skipped  int
}

// BackupService exports and restores the local user directory
type BackupService struct {
	store     *repository.LocalStore
	storeType string
	log       *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(store *repository.LocalStore, storeType string, log *logger.Logger) *BackupService {
	if log == nil {
		log = logger.Nop()
	}
	return &BackupService{store: store, storeType: storeType, log: log.With("service", "BackupService")}
}

// Export writes a backup of the directory to outputPath
func (s *BackupService) Export(ctx context.Context, outputPath string) (*BackupData, error) {
	s.log.Info("starting export", "path", outputPath)

	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(ctx, file)
	if err != nil {
		return nil, err
	}

	results := 0
	for _, u := range backup.Users {
		results += len(u.History)
	}
	s.log.Info("export complete", "path", outputPath, "users", len(backup.Users), "results", results)
	return backup, nil
}

// ExportToWriter encodes a backup of the directory to w
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (*BackupData, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}

	backup := &BackupData{
		Version:    backupVersion,
		ExportedAt: time.Now(),
		StoreType:  s.storeType,
		Users:      users,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

// Import restores a backup file. With clear the directory is replaced,
// otherwise users are merged by id.
func (s *BackupService) Import(ctx context.Context, inputPath string, clear bool) (*ImportStats, error) {
	s.log.Info("starting import", "path", inputPath, "clear", clear)

	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file, clear)
}

// ImportFromReader restores a backup from reader
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader, clear bool) (*ImportStats, error) {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackup, backup.Version)
	}

	s.log.Info("backup loaded", "version", backup.Version, "exported_at", backup.ExportedAt, "users", len(backup.Users))

	var (
		merged []models.User
		stats  *ImportStats
	)
	if clear {
		merged, stats = s.dedupe(backup.Users)
	} else {
		existing, err := s.store.Users(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load users: %w", err)
		}
		merged, stats = s.merge(existing, backup.Users)
	}

	if err := s.store.ReplaceUsers(ctx, merged); err != nil {
		return nil, fmt.Errorf("failed to import users: %w", err)
	}

	s.log.Info("import complete", "added", stats.Added, "replaced", stats.Replaced, "skipped", stats.Skipped)
	return stats, nil
}

func (s *BackupService) dedupe(incoming []models.User) ([]models.User, *ImportStats) {
	return s.merge(nil, incoming)
}

// merge overlays incoming on existing. A user whose email belongs to a
// different id is skipped.
func (s *BackupService) merge(existing, incoming []models.User) ([]models.User, *ImportStats) {
	stats := &ImportStats{}
	out := append([]models.User(nil), existing...)

	for _, u := range incoming {
		if u.ID == "" || strings.TrimSpace(u.Email) == "" {
			s.log.Warn("skipping user without id or email", "id", u.ID)
			stats.Skipped++
			continue
		}

		idx, conflict := -1, false
		for i := range out {
			if out[i].ID == u.ID {
				idx = i
			} else if strings.EqualFold(out[i].Email, u.Email) {
				conflict = true
			}
		}
		if conflict {
			s.log.Warn("skipping user with duplicate email", "id", u.ID, "email", u.Email)
			stats.Skipped++
			continue
		}

		if u.History == nil {
			u.History = []models.QuizResult{}
		}
		if idx >= 0 {
			out[idx] = u
			stats.Replaced++
		} else {
			out = append(out, u)
			stats.Added++
		}
	}
	return out, stats
}
