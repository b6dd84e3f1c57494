package backend

import (
	"context"
	"fmt"
	"strings"

	"mindspark/internal/apiclient"
	"mindspark/internal/models"
)

// Remote serves the session from the REST API
type Remote struct {
	client *apiclient.Client
}

var _ QuizLister = (*Remote)(nil)

func NewRemote(client *apiclient.Client) *Remote {
	return &Remote{client: client}
}

func (r *Remote) Mode() Mode { return ModeRemote }

func (r *Remote) Restore(ctx context.Context) (*models.User, error) {
	payload, err := r.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	return payload.ToUser(), nil
}

func (r *Remote) Login(ctx context.Context, email, password string) (*models.User, error) {
	resp, err := r.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	return resp.User.ToUser(), nil
}

func (r *Remote) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	resp, err := r.client.Register(ctx, apiclient.RegisterRequest{
		Username:  usernameFromEmail(email),
		Email:     email,
		Password:  in.Password,
		FirstName: strings.TrimSpace(in.Name),
		AdminCode: in.AdminCode,
	})
	if err != nil {
		return nil, err
	}
	return resp.User.ToUser(), nil
}

func (r *Remote) Logout(ctx context.Context) error {
	return r.client.Logout(ctx)
}

func (r *Remote) GenerateQuiz(ctx context.Context, _ *models.User, req QuizRequest) (*GeneratedQuiz, error) {
	payload, err := r.client.GenerateQuiz(ctx, apiclient.GenerateRequest{
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Count:      req.Count,
		Language:   req.Language,
	})
	if err != nil {
		return nil, err
	}
	quiz := payload.ToQuizData()
	if quiz.Difficulty == "" {
		quiz.Difficulty = req.Difficulty
	}
	if err := quiz.Validate(0); err != nil {
		return nil, fmt.Errorf("server returned an invalid quiz: %w", err)
	}
	return &GeneratedQuiz{Quiz: quiz, RemoteID: payload.ID}, nil
}

// SubmitQuiz grades the answers on the server. The caller falls back to
// sub.Local when this fails.
func (r *Remote) SubmitQuiz(ctx context.Context, _ *models.User, sub Submission) (*Submitted, error) {
	if sub.RemoteID == 0 {
		return nil, ErrNoRemoteQuiz
	}
	attempt, err := r.client.SubmitQuiz(ctx, sub.RemoteID, sub.Answers)
	if err != nil {
		return nil, err
	}
	result := attempt.ToResult()
	if result.Topic == "" {
		result.Topic = sub.Local.Topic
	}
	if result.Difficulty == "" {
		result.Difficulty = sub.Local.Difficulty
	}
	if result.Language == "" {
		result.Language = sub.Local.Language
	}
	return &Submitted{Result: result}, nil
}

func (r *Remote) FetchHistory(ctx context.Context, _ *models.User) ([]models.QuizResult, error) {
	attempts, err := r.client.History(ctx)
	if err != nil {
		return nil, err
	}
	history := make([]models.QuizResult, 0, len(attempts))
	for i := range attempts {
		history = append(history, attempts[i].ToResult())
	}
	return history, nil
}

func (r *Remote) UpdateProfile(ctx context.Context, user *models.User, update models.ProfileUpdate) (*models.User, error) {
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	payload, err := r.client.UpdateProfile(ctx, update)
	if err != nil {
		return nil, err
	}
	updated := payload.ToUser()
	updated.History = user.History
	return updated, nil
}

func (r *Remote) Stats(ctx context.Context, _ *models.User) (*models.UserStats, error) {
	return r.client.Stats(ctx)
}

func (r *Remote) AdminDashboard(ctx context.Context, user *models.User) (*models.AdminDashboard, error) {
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	payload, err := r.client.AdminDashboard(ctx)
	if err != nil {
		return nil, err
	}
	dash := payload.ToDashboard()
	return &dash, nil
}

// MyQuizzes lists the quizzes the user generated on the server
func (r *Remote) MyQuizzes(ctx context.Context) ([]models.QuizData, error) {
	payloads, err := r.client.MyQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	quizzes := make([]models.QuizData, 0, len(payloads))
	for i := range payloads {
		quizzes = append(quizzes, *payloads[i].ToQuizData())
	}
	return quizzes, nil
}

func usernameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
