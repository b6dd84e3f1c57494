package backend

import (
	"context"
	"errors"

	"mindspark/internal/models"
)

// Mode selects which data source serves the session
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

var (
	ErrInvalidCredentials = errors.New("Invalid email or password.")
	ErrEmailTaken         = errors.New("User already exists with this email.")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrForbidden          = errors.New("admin access required")
	ErrNoRemoteQuiz       = errors.New("quiz was not created on the server")
)

// QuizRequest is a user's request for a new quiz
type QuizRequest struct {
	Topic      string
	Difficulty models.Difficulty
	Count      int
	Language   models.Language
}

// GeneratedQuiz is a quiz ready to be played. RemoteID is zero outside remote mode.
type GeneratedQuiz struct {
	Quiz     *models.QuizData
	RemoteID int64
}

// Submission is a finished quiz handed to the backend
type Submission struct {
	RemoteID int64
	Answers  []models.PendingAnswer
	// Local is the result computed on the client
	Local models.QuizResult
}

// Submitted is the outcome of a submission. User is set when the backend
// changed the user's stored history.
type Submitted struct {
	Result models.QuizResult
	User   *models.User
}

// QuizLister is implemented by backends that keep the quizzes a user generated
type QuizLister interface {
	MyQuizzes(ctx context.Context) ([]models.QuizData, error)
}

// Backend is the data source behind the session controller
type Backend interface {
	Mode() Mode
	// Restore returns the previously authenticated user, or nil
	Restore(ctx context.Context) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, in models.RegisterInput) (*models.User, error)
	Logout(ctx context.Context) error
	GenerateQuiz(ctx context.Context, user *models.User, req QuizRequest) (*GeneratedQuiz, error)
	SubmitQuiz(ctx context.Context, user *models.User, sub Submission) (*Submitted, error)
	FetchHistory(ctx context.Context, user *models.User) ([]models.QuizResult, error)
	UpdateProfile(ctx context.Context, user *models.User, update models.ProfileUpdate) (*models.User, error)
	Stats(ctx context.Context, user *models.User) (*models.UserStats, error)
	AdminDashboard(ctx context.Context, user *models.User) (*models.AdminDashboard, error)
}
