package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"mindspark/internal/models"
	"mindspark/internal/security"
)

// Record keys
const (
	UsersKey       = "mindspark_users"
	CurrentUserKey = "mindspark_current_user"
	TokenKey       = "mindspark_auth_token"
)

var ErrUserNotFound = errors.New("user not found")

// LocalStore keeps the user directory, the current-session pointer and the
// auth token slot in a RecordStore
type LocalStore struct {
	records RecordStore
	mu      sync.Mutex
}

// NewLocalStore creates a new local store
func NewLocalStore(records RecordStore) *LocalStore {
	return &LocalStore{records: records}
}

// Users returns the full user directory. A missing directory is empty.
func (s *LocalStore) Users(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users(ctx)
}

func (s *LocalStore) users(ctx context.Context) ([]models.User, error) {
	raw, ok, err := s.records.Get(ctx, UsersKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []models.User{}, nil
	}
	var users []models.User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("failed to decode user directory: %w", err)
	}
	return users, nil
}

func (s *LocalStore) saveUsers(ctx context.Context, users []models.User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to encode user directory: %w", err)
	}
	return s.records.Set(ctx, UsersKey, string(data))
}

// ReplaceUsers overwrites the whole directory and drops the session pointer
func (s *LocalStore) ReplaceUsers(ctx context.Context, users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if users == nil {
		users = []models.User{}
	}
	if err := s.saveUsers(ctx, users); err != nil {
		return err
	}
	return s.records.Delete(ctx, CurrentUserKey)
}

// FindByEmail returns the user with a case-insensitive email match, or nil
func (s *LocalStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexByEmail(users, email); i >= 0 {
		return &users[i], nil
	}
	return nil, nil
}

// EmailTaken reports whether email belongs to a user other than excludeID
func (s *LocalStore) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return u != nil && u.ID != excludeID, nil
}

// AddUser appends a user to the directory
func (s *LocalStore) AddUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	if user.History == nil {
		user.History = []models.QuizResult{}
	}
	users = append(users, *user)
	if err := s.saveUsers(ctx, users); err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	return nil
}

// UpdateUser replaces the stored record with the same id and refreshes the
// session pointer when it refers to that user
func (s *LocalStore) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateUser(ctx, user)
}

func (s *LocalStore) updateUser(ctx context.Context, user *models.User) error {
	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	i := indexByID(users, user.ID)
	if i < 0 {
		return ErrUserNotFound
	}
	users[i] = *user
	if err := s.saveUsers(ctx, users); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	current, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	if current != nil && current.ID == user.ID {
		return s.setCurrentUser(ctx, user)
	}
	return nil
}

// CurrentUser returns the logged-in user, or nil when nobody is logged in
func (s *LocalStore) CurrentUser(ctx context.Context) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentUser(ctx)
}

func (s *LocalStore) currentUser(ctx context.Context) (*models.User, error) {
	raw, ok, err := s.records.Get(ctx, CurrentUserKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to decode current user: %w", err)
	}
	return &user, nil
}

// SetCurrentUser establishes the session pointer
func (s *LocalStore) SetCurrentUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCurrentUser(ctx, user)
}

func (s *LocalStore) setCurrentUser(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode current user: %w", err)
	}
	return s.records.Set(ctx, CurrentUserKey, string(data))
}

// Login checks credentials and, on success, establishes the session pointer.
// Returns nil, nil when the credentials do not match.
func (s *LocalStore) Login(ctx context.Context, email, password string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	i := indexByEmail(users, email)
	if i < 0 || !security.CheckPassword(password, users[i].PasswordHash) {
		return nil, nil
	}
	user := users[i]
	if err := s.setCurrentUser(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout removes the session pointer
func (s *LocalStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Delete(ctx, CurrentUserKey)
}

// AddQuizResult prepends result to the user's history and returns the updated user
func (s *LocalStore) AddQuizResult(ctx context.Context, userID string, result models.QuizResult) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	i := indexByID(users, userID)
	if i < 0 {
		return nil, ErrUserNotFound
	}
	user := users[i]
	user.History = append([]models.QuizResult{result}, user.History...)
	if err := s.updateUser(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Token returns the stored auth token, empty when none
func (s *LocalStore) Token(ctx context.Context) (string, error) {
	value, _, err := s.records.Get(ctx, TokenKey)
	return value, err
}

// SetToken stores the auth token
func (s *LocalStore) SetToken(ctx context.Context, token string) error {
	return s.records.Set(ctx, TokenKey, token)
}

// ClearToken removes the auth token
func (s *LocalStore) ClearToken(ctx context.Context) error {
	return s.records.Delete(ctx, TokenKey)
}

func indexByID(users []models.User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

func indexByEmail(users []models.User, email string) int {
	email = strings.TrimSpace(email)
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return i
		}
	}
	return -1
}
