package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mindspark/internal/generator"
	"mindspark/internal/logger"
	"mindspark/internal/models"
	"mindspark/internal/repository"
	"mindspark/internal/security"
	"mindspark/internal/validation"
)

const dashboardLimit = 10

// Local serves the session from the local store and generates quizzes on the client
type Local struct {
	store     *repository.LocalStore
	generator generator.Generator
	adminCode string
	log       *logger.Logger
}

func NewLocal(store *repository.LocalStore, gen generator.Generator, adminCode string, log *logger.Logger) *Local {
	if log == nil {
		log = logger.Nop()
	}
	return &Local{store: store, generator: gen, adminCode: adminCode, log: log}
}

func (l *Local) Mode() Mode { return ModeLocal }

func (l *Local) Restore(ctx context.Context) (*models.User, error) {
	return l.store.CurrentUser(ctx)
}

func (l *Local) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := l.store.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (l *Local) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	taken, err := l.store.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = usernameFromEmail(email)
	}
	role := models.RoleUser
	if l.adminCode != "" && in.AdminCode == l.adminCode {
		role = models.RoleAdmin
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		History:      []models.QuizResult{},
	}
	if err := l.store.AddUser(ctx, user); err != nil {
		return nil, err
	}
	if err := l.store.SetCurrentUser(ctx, user); err != nil {
		return nil, err
	}
	l.log.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (l *Local) Logout(ctx context.Context) error {
	return l.store.Logout(ctx)
}

func (l *Local) GenerateQuiz(ctx context.Context, user *models.User, req QuizRequest) (*GeneratedQuiz, error) {
	userID := ""
	if user != nil {
		userID = user.ID
	}
	quiz, err := l.generator.GenerateQuiz(ctx, generator.Request{
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Count:      req.Count,
		Language:   req.Language,
		UserID:     userID,
	})
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		l.log.Error("generator returned no quiz", "topic", req.Topic)
		return nil, generator.ErrGenerationFailed
	}
	if err := quiz.Validate(req.Count); err != nil {
		l.log.Error("generated quiz rejected", "topic", req.Topic, "error", err)
		return nil, generator.ErrGenerationFailed
	}
	return &GeneratedQuiz{Quiz: quiz}, nil
}

// SubmitQuiz records the locally computed result in the user's history
func (l *Local) SubmitQuiz(ctx context.Context, user *models.User, sub Submission) (*Submitted, error) {
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	updated, err := l.store.AddQuizResult(ctx, user.ID, sub.Local)
	if err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	return &Submitted{Result: sub.Local, User: updated}, nil
}

func (l *Local) FetchHistory(ctx context.Context, user *models.User) ([]models.QuizResult, error) {
	stored, err := l.storedUser(ctx, user)
	if err != nil {
		return nil, err
	}
	return stored.History, nil
}

func (l *Local) UpdateProfile(ctx context.Context, user *models.User, update models.ProfileUpdate) (*models.User, error) {
	stored, err := l.storedUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return stored, nil
	}

	if name := strings.TrimSpace(update.Name); name != "" {
		if err := validation.ValidateName(name); err != nil {
			return nil, err
		}
		stored.Name = name
	}
	if email := strings.TrimSpace(update.Email); email != "" && !strings.EqualFold(email, stored.Email) {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, err
		}
		taken, err := l.store.EmailTaken(ctx, email, stored.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailTaken
		}
		stored.Email = email
	}
	if update.Password != "" {
		if err := validation.ValidatePassword(update.Password); err != nil {
			return nil, err
		}
		hash, err := security.HashPassword(update.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		stored.PasswordHash = hash
	}
	if update.AvatarPath != "" {
		stored.Avatar = update.AvatarPath
	}

	if err := l.store.UpdateUser(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (l *Local) Stats(ctx context.Context, user *models.User) (*models.UserStats, error) {
	stored, err := l.storedUser(ctx, user)
	if err != nil {
		return nil, err
	}
	stats := models.ComputeUserStats(stored.History)
	return &stats, nil
}

func (l *Local) AdminDashboard(ctx context.Context, user *models.User) (*models.AdminDashboard, error) {
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	users, err := l.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	dash := models.ComputeAdminDashboard(users, dashboardLimit)
	return &dash, nil
}

func (l *Local) storedUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	users, err := l.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == user.ID {
			return &users[i], nil
		}
	}
	return nil, repository.ErrUserNotFound
}
