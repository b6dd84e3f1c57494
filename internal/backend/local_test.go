package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindspark/internal/generator"
	"mindspark/internal/models"
	"mindspark/internal/repository"
)

type stubGenerator struct {
	quiz *models.QuizData
	err  error
	last generator.Request
}

func (s *stubGenerator) GenerateQuiz(_ context.Context, req generator.Request) (*models.QuizData, error) {
	s.last = req
	return s.quiz, s.err
}

func newLocal(t *testing.T) (*Local, *repository.LocalStore, *stubGenerator) {
	t.Helper()
	store := repository.NewLocalStore(repository.NewMemoryRecordStore())
	gen := &stubGenerator{}
	return NewLocal(store, gen, "admin123", nil), store, gen
}

func TestLocalRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	b, store, _ := newLocal(t)

	user, err := b.Register(ctx, models.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	current, err := b.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, user.ID, current.ID)

	_, err = b.Register(ctx, models.RegisterInput{Name: "Other", Email: "ANA@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, "User already exists with this email.", err.Error())

	require.NoError(t, b.Logout(ctx))
	current, _ = b.Restore(ctx)
	assert.Nil(t, current)

	_, err = b.Login(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Invalid email or password.", err.Error())

	logged, err := b.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	users, _ := store.Users(ctx)
	assert.Len(t, users, 1)
}

func TestLocalRegisterAdminCode(t *testing.T) {
	b, _, _ := newLocal(t)

	admin, err := b.Register(context.Background(), models.RegisterInput{Name: "Root", Email: "root@example.com", Password: "secret1", AdminCode: "admin123"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	user, err := b.Register(context.Background(), models.RegisterInput{Name: "Ben", Email: "ben@example.com", Password: "secret1", AdminCode: "guess"})
	require.NoError(t, err)
	assert.False(t, user.IsAdmin())
}

func TestLocalSubmitPrependsHistory(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newLocal(t)
	user, err := b.Register(ctx, models.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	for i, topic := range []string{"First", "Second"} {
		res := models.QuizResult{ID: topic, Topic: topic, Date: time.Now().Add(time.Duration(i) * time.Minute), TotalQuestions: 5, CorrectAnswers: 3, ScorePercentage: 60}
		out, err := b.SubmitQuiz(ctx, user, Submission{Local: res})
		require.NoError(t, err)
		require.NotNil(t, out.User)
		user = out.User
	}

	history, err := b.FetchHistory(ctx, user)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Second", history[0].Topic)
	assert.Equal(t, "First", history[1].Topic)

	stats, err := b.Stats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalQuizzesTaken)
	assert.Equal(t, 60, stats.BestScore)
}

func validQuiz(topic string, n int) *models.QuizData {
	quiz := &models.QuizData{Topic: topic}
	for i := 0; i < n; i++ {
		quiz.Questions = append(quiz.Questions, models.Question{
			ID:       int64(i + 1),
			Question: "Which planet?",
			Options:  []string{"Mars", "Venus", "Earth", "Jupiter"},
		})
	}
	return quiz
}

func TestLocalGeneratePassesUser(t *testing.T) {
	b, _, gen := newLocal(t)
	gen.quiz = validQuiz("Space", 3)

	out, err := b.GenerateQuiz(context.Background(), &models.User{ID: "u1"}, QuizRequest{Topic: "Space", Difficulty: models.DifficultyEasy, Count: 3, Language: models.LanguageHindi})
	require.NoError(t, err)
	assert.Zero(t, out.RemoteID)
	assert.Equal(t, "u1", gen.last.UserID)
	assert.Equal(t, models.LanguageHindi, gen.last.Language)
}

func TestLocalGenerateRejectsUnusableQuiz(t *testing.T) {
	broken := validQuiz("Space", 3)
	broken.Questions[1].Options = broken.Questions[1].Options[:3]

	tests := []struct {
		name string
		quiz *models.QuizData
	}{
		{"nil quiz", nil},
		{"no questions", &models.QuizData{Topic: "Space"}},
		{"wrong count", validQuiz("Space", 2)},
		{"three options", broken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _, gen := newLocal(t)
			gen.quiz = tt.quiz

			out, err := b.GenerateQuiz(context.Background(), &models.User{ID: "u1"}, QuizRequest{Topic: "Space", Difficulty: models.DifficultyEasy, Count: 3})
			assert.ErrorIs(t, err, generator.ErrGenerationFailed)
			assert.Nil(t, out)
		})
	}
}

func TestLocalUpdateProfileKeepsHistory(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newLocal(t)
	user, _ := b.Register(ctx, models.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	b.Register(ctx, models.RegisterInput{Name: "Ben", Email: "ben@example.com", Password: "secret1"})
	out, err := b.SubmitQuiz(ctx, user, Submission{Local: models.QuizResult{ID: "r1", Topic: "Space"}})
	require.NoError(t, err)

	_, err = b.UpdateProfile(ctx, out.User, models.ProfileUpdate{Email: "ben@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	updated, err := b.UpdateProfile(ctx, out.User, models.ProfileUpdate{Name: "Ana Maria", Password: "newpass1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	require.Len(t, updated.History, 1)

	_, err = b.Login(ctx, "ana@example.com", "newpass1")
	assert.NoError(t, err)
}

func TestLocalAdminDashboard(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newLocal(t)
	user, _ := b.Register(ctx, models.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	admin, _ := b.Register(ctx, models.RegisterInput{Name: "Root", Email: "root@example.com", Password: "secret1", AdminCode: "admin123"})
	b.SubmitQuiz(ctx, user, Submission{Local: models.QuizResult{ID: "r1", ScorePercentage: 80}})

	_, err := b.AdminDashboard(ctx, user)
	assert.ErrorIs(t, err, ErrForbidden)

	dash, err := b.AdminDashboard(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, dash.TotalUsers)
	assert.Equal(t, 1, dash.TotalQuizzes)
	assert.Equal(t, 80, dash.AverageScore)
}
