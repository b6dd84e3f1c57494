package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindspark/internal/apiclient"
	"mindspark/internal/backend"
	"mindspark/internal/generator"
	"mindspark/internal/models"
	"mindspark/internal/repository"
)

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Fire runs the oldest pending timer and reports whether one ran
func (s *manualScheduler) Fire() bool {
	s.mu.Lock()
	var next *manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			next = t
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	s.mu.Unlock()
	if next == nil {
		return false
	}
	next.f()
	return true
}

// RunStale fires every unfired timer, including stopped ones, as a late runtime timer would
func (s *manualScheduler) RunStale() {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		if !t.fired {
			t.fired = true
			t.f()
		}
	}
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeBackend struct {
	mode      backend.Mode
	user      *models.User
	quiz      *models.QuizData
	remoteID  int64
	genErr    error
	submitErr error
	submitted *backend.Submission
	result    *models.QuizResult
	loggedOut bool
	lastReq   backend.QuizRequest
}

func (f *fakeBackend) Mode() backend.Mode { return f.mode }

func (f *fakeBackend) Restore(context.Context) (*models.User, error) { return f.user, nil }

func (f *fakeBackend) Login(_ context.Context, email, password string) (*models.User, error) {
	if f.user == nil || f.user.Email != email || password != "secret1" {
		return nil, backend.ErrInvalidCredentials
	}
	return f.user, nil
}

func (f *fakeBackend) Register(context.Context, models.RegisterInput) (*models.User, error) {
	return f.user, nil
}

func (f *fakeBackend) Logout(context.Context) error {
	f.loggedOut = true
	return nil
}

func (f *fakeBackend) GenerateQuiz(_ context.Context, _ *models.User, req backend.QuizRequest) (*backend.GeneratedQuiz, error) {
	f.lastReq = req
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &backend.GeneratedQuiz{Quiz: f.quiz, RemoteID: f.remoteID}, nil
}

func (f *fakeBackend) SubmitQuiz(_ context.Context, _ *models.User, sub backend.Submission) (*backend.Submitted, error) {
	f.submitted = &sub
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.result != nil {
		return &backend.Submitted{Result: *f.result}, nil
	}
	return &backend.Submitted{Result: sub.Local}, nil
}

func (f *fakeBackend) FetchHistory(context.Context, *models.User) ([]models.QuizResult, error) {
	return []models.QuizResult{{ID: "h1"}}, nil
}

func (f *fakeBackend) UpdateProfile(_ context.Context, u *models.User, upd models.ProfileUpdate) (*models.User, error) {
	out := u.Clone()
	out.Name = upd.Name
	out.History = nil
	return out, nil
}

func (f *fakeBackend) Stats(context.Context, *models.User) (*models.UserStats, error) {
	return &models.UserStats{}, nil
}

func (f *fakeBackend) AdminDashboard(_ context.Context, u *models.User) (*models.AdminDashboard, error) {
	if !u.IsAdmin() {
		return nil, backend.ErrForbidden
	}
	return &models.AdminDashboard{}, nil
}

func sampleQuiz(n int) *models.QuizData {
	q := &models.QuizData{Topic: "Photosynthesis", Difficulty: models.DifficultyMedium}
	for i := 0; i < n; i++ {
		q.Questions = append(q.Questions, models.Question{
			ID:           int64(i + 1),
			Question:     "Question",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 0,
		})
	}
	return q
}

func newController(b backend.Backend) (*SessionController, *manualScheduler) {
	sched := &manualScheduler{}
	c := NewSessionController(b, SessionOptions{
		AdvanceDelay:  time.Second,
		FinalizeDelay: 500 * time.Millisecond,
		Scheduler:     sched,
	})
	return c, sched
}

func ana() *models.User {
	return &models.User{ID: "u1", Name: "Ana", Email: "ana@example.com", Role: models.RoleUser}
}

func TestInitializeRestoresToHome(t *testing.T) {
	c, _ := newController(&fakeBackend{mode: backend.ModeLocal})
	c.Initialize(context.Background())
	assert.Equal(t, models.ViewAuth, c.Snapshot().View)

	admin := ana()
	admin.Role = models.RoleAdmin
	c, _ = newController(&fakeBackend{mode: backend.ModeLocal, user: admin})
	c.Initialize(context.Background())
	snap := c.Snapshot()
	assert.Equal(t, models.ViewHome, snap.View)
	assert.Equal(t, admin.ID, snap.User.ID)
}

func TestLoginRoutesAdminToDashboard(t *testing.T) {
	admin := ana()
	admin.Role = models.RoleAdmin
	c, _ := newController(&fakeBackend{mode: backend.ModeLocal, user: admin})

	require.NoError(t, c.Login(context.Background(), "ana@example.com", "secret1"))
	assert.Equal(t, models.ViewAdmin, c.Snapshot().View)
}

func TestLoginFailureKeepsAuthView(t *testing.T) {
	c, _ := newController(&fakeBackend{mode: backend.ModeLocal, user: ana()})

	err := c.Login(context.Background(), "ana@example.com", "bad")
	require.ErrorIs(t, err, backend.ErrInvalidCredentials)
	snap := c.Snapshot()
	assert.Equal(t, models.ViewAuth, snap.View)
	assert.Equal(t, "Invalid email or password.", snap.AuthError)

	require.NoError(t, c.Login(context.Background(), " ana@example.com ", "secret1"))
	snap = c.Snapshot()
	assert.Equal(t, models.ViewHome, snap.View)
	assert.Empty(t, snap.AuthError)
}

func TestFullQuizScoresAndSubmitsRemote(t *testing.T) {
	fb := &fakeBackend{mode: backend.ModeRemote, user: ana(), quiz: sampleQuiz(5), remoteID: 42}
	c, sched := newController(fb)
	c.Initialize(context.Background())

	require.NoError(t, c.GenerateQuiz(context.Background(), "Photosynthesis", models.DifficultyMedium, 5))
	snap := c.Snapshot()
	assert.Equal(t, models.PhaseQuiz, snap.Phase)
	assert.Equal(t, int64(42), snap.RemoteQuizID)

	picks := []int{0, 1, 0, 2, 0}
	for i, pick := range picks {
		correct, err := c.RecordAnswer(pick)
		require.NoError(t, err)
		assert.Equal(t, pick == 0, correct)

		_, err = c.RecordAnswer(pick)
		assert.ErrorIs(t, err, ErrAnswerPending)

		assert.Equal(t, i, c.Snapshot().QuestionIndex)
		require.True(t, sched.Fire())
	}

	snap = c.Snapshot()
	assert.Equal(t, models.PhaseResult, snap.Phase)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 3, snap.Result.CorrectAnswers)
	assert.Equal(t, 5, snap.Result.TotalQuestions)
	assert.Equal(t, 60, snap.Result.ScorePercentage)

	require.NotNil(t, fb.submitted)
	assert.Equal(t, int64(42), fb.submitted.RemoteID)
	require.Len(t, fb.submitted.Answers, 5)
	assert.Equal(t, models.PendingAnswer{QuestionID: 2, SelectedOption: 1}, fb.submitted.Answers[1])
}

func TestSchedulerDelays(t *testing.T) {
	c, sched := newController(&fakeBackend{mode: backend.ModeLocal, user: ana(), quiz: sampleQuiz(3)})
	c.Initialize(context.Background())
	require.NoError(t, c.GenerateQuiz(context.Background(), "Space", models.DifficultyEasy, 3))

	c.RecordAnswer(0)
	sched.Fire()
	c.RecordAnswer(0)
	sched.Fire()
	c.RecordAnswer(0)

	require.Len(t, sched.timers, 3)
	assert.Equal(t, time.Second, sched.timers[0].d)
	assert.Equal(t, 500*time.Millisecond, sched.timers[2].d)
}

func TestRemoteSubmissionFailureFallsBackToLocal(t *testing.T) {
	fb := &fakeBackend{mode: backend.ModeRemote, user: ana(), quiz: sampleQuiz(3), remoteID: 7, submitErr: errors.New("boom")}
	c, sched := newController(fb)
	c.Initialize(context.Background())
	require.NoError(t, c.GenerateQuiz(context.Background(), "Space", models.DifficultyEasy, 3))

	for _, pick := range []int{0, 0, 3} {
		_, err := c.RecordAnswer(pick)
		require.NoError(t, err)
		sched.Fire()
	}

	res := c.CurrentResult()
	require.NotNil(t, res)
	assert.Equal(t, models.PhaseResult, c.Snapshot().Phase)
	assert.Equal(t, 2, res.CorrectAnswers)
	assert.Equal(t, 67, res.ScorePercentage)
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.HasDetails())
}

func TestRetryCancelsPendingTransition(t *testing.T) {
	c, sched := newController(&fakeBackend{mode: backend.ModeLocal, user: ana(), quiz: sampleQuiz(3)})
	c.Initialize(context.Background())
	require.NoError(t, c.GenerateQuiz(context.Background(), "Space", models.DifficultyEasy, 3))

	_, err := c.RecordAnswer(0)
	require.NoError(t, err)
	c.Retry()
	assert.Equal(t, 0, sched.Pending())

	sched.RunStale()
	snap := c.Snapshot()
	assert.Equal(t, models.PhaseInput, snap.Phase)
	assert.Nil(t, snap.Quiz)
	assert.Zero(t, snap.QuestionIndex)
	assert.Zero(t, snap.Score)
}

func TestStaleFinalizeNeverShowsResult(t *testing.T) {
	fb := &fakeBackend{mode: backend.ModeLocal, user: ana(), quiz: sampleQuiz(3)}
	c, sched := newController(fb)
	c.Initialize(context.Background())
	require.NoError(t, c.GenerateQuiz(context.Background(), "Space", models.DifficultyEasy, 3))
	c.RecordAnswer(0)
	sched.Fire()
	c.RecordAnswer(0)
	sched.Fire()
	c.RecordAnswer(0)

	require.NoError(t, c.GenerateQuiz(context.Background(), "Oceans", models.DifficultyEasy, 3))
	sched.RunStale()

	snap := c.Snapshot()
	assert.Equal(t, models.PhaseQuiz, snap.Phase)
	assert.Zero(t, snap.QuestionIndex)
	assert.Nil(t, snap.Result)
	assert.Nil(t, fb.submitted)
}

func TestLogoutClearsSession(t *testing.T) {
	fb := &fakeBackend{mode: backend.ModeRemote, user: ana(), quiz: sampleQuiz(3), remoteID: 9}
	c, sched := newController(fb)
	c.Initialize(context.Background())
	require.NoError(t, c.GenerateQuiz(context.Background(), "Space", models.DifficultyEasy, 3))
	c.RecordAnswer(1)

	require.NoError(t, c.Logout(context.Background()))
	sched.RunStale()

	snap := c.Snapshot()
	assert.True(t, fb.loggedOut)
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Quiz)
	assert.Empty(t, snap.Pending)
	assert.Zero(t, snap.RemoteQuizID)
	assert.Equal(t, models.ViewAuth, snap.View)
	assert.Equal(t, models.PhaseInput, snap.Phase)
}

func TestGenerateQuizErrors(t *testing.T) {
	fb := &fakeBackend{mode: backend.ModeLocal, user: ana(), genErr: generator.ErrGenerationFailed}
	c, _ := newController(fb)

	assert.ErrorIs(t, c.GenerateQuiz(context.Background(), "Space", models.DifficultyEasy, 5), ErrNotAuthenticated)

	c.Initialize(context.Background())
	assert.ErrorIs(t, c.GenerateQuiz(context.Background(), "   ", models.DifficultyEasy, 5), ErrEmptyTopic)
	assert.Error(t, c.GenerateQuiz(context.Background(), "Space", models.DifficultyEasy, 50))

	err := c.GenerateQuiz(context.Background(), "Space", models.DifficultyEasy, 5)
	require.ErrorIs(t, err, generator.ErrGenerationFailed)
	snap := c.Snapshot()
	assert.Equal(t, models.PhaseInput, snap.Phase)
	assert.Equal(t, generator.ErrGenerationFailed.Error(), snap.Error)

	c.DismissError()
	assert.Empty(t, c.Snapshot().Error)
}

func TestGenerateQuizWithoutQuizReturnsToInput(t *testing.T) {
	store := repository.NewLocalStore(repository.NewMemoryRecordStore())
	c, _ := newController(backend.NewLocal(store, &staticGenerator{}, "admin123", nil))
	require.NoError(t, c.Register(context.Background(), models.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"}))

	err := c.GenerateQuiz(context.Background(), "Space", models.DifficultyEasy, 3)
	require.ErrorIs(t, err, generator.ErrGenerationFailed)
	snap := c.Snapshot()
	assert.Equal(t, models.PhaseInput, snap.Phase)
	assert.Nil(t, snap.Quiz)
	assert.Equal(t, generator.ErrGenerationFailed.Error(), snap.Error)

	c, _ = newController(&fakeBackend{mode: backend.ModeRemote, user: ana()})
	c.Initialize(context.Background())
	require.Error(t, c.GenerateQuiz(context.Background(), "Space", models.DifficultyEasy, 3))
	assert.Equal(t, models.PhaseInput, c.Snapshot().Phase)
}

func TestSetLanguageAppliesToNextQuiz(t *testing.T) {
	ctx := context.Background()
	fb := &fakeBackend{mode: backend.ModeLocal, user: ana(), quiz: sampleQuiz(3)}
	c, sched := newController(fb)
	c.Initialize(ctx)

	require.NoError(t, c.GenerateQuiz(ctx, "Space", models.DifficultyEasy, 3))
	assert.Equal(t, models.LanguageEnglish, fb.lastReq.Language)

	c.SetLanguage(models.LanguageHindi)
	assert.Equal(t, models.LanguageHindi, c.Snapshot().Language)
	for i := 0; i < 3; i++ {
		_, err := c.RecordAnswer(0)
		require.NoError(t, err)
		require.True(t, sched.Fire())
	}
	require.NotNil(t, fb.submitted)
	assert.Equal(t, models.LanguageEnglish, fb.submitted.Local.Language)

	c.Retry()
	require.NoError(t, c.GenerateQuiz(ctx, "Space", models.DifficultyEasy, 3))
	assert.Equal(t, models.LanguageHindi, fb.lastReq.Language)

	c.SetLanguage("fr")
	assert.Equal(t, models.LanguageEnglish, c.Snapshot().Language)
}

func TestGeneratedQuizzes(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/auth/login/":
			w.Write([]byte(`{"token":"t1","user":{"id":3,"name":"Ana","email":"ana@example.com"}}`))
		case "/quizzes/my_quizzes/":
			assert.Equal(t, "Token t1", req.Header.Get("Authorization"))
			w.Write([]byte(`[{"id":7,"topic":"Space","difficulty":"Easy","language":"en","questions":[
				{"id":1,"question_text":"Q","options":["a","b","c","d"],"correct_option":2,"explanation":"e"}]}]`))
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	tokens := repository.NewLocalStore(repository.NewMemoryRecordStore())
	c, _ := newController(backend.NewRemote(apiclient.NewClient(srv.URL, 5*time.Second, tokens, nil)))

	_, err := c.GeneratedQuizzes(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, c.Login(ctx, "ana@example.com", "secret1"))
	quizzes, err := c.GeneratedQuizzes(ctx)
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, "Space", quizzes[0].Topic)
	assert.Equal(t, 2, quizzes[0].Questions[0].CorrectIndex)

	local, _ := newController(&fakeBackend{mode: backend.ModeLocal, user: ana()})
	local.Initialize(ctx)
	quizzes, err = local.GeneratedQuizzes(ctx)
	require.NoError(t, err)
	assert.Empty(t, quizzes)
}

func TestRecordAnswerOutsideQuiz(t *testing.T) {
	c, _ := newController(&fakeBackend{mode: backend.ModeLocal, user: ana()})
	c.Initialize(context.Background())

	_, err := c.RecordAnswer(0)
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestNavigate(t *testing.T) {
	c, _ := newController(&fakeBackend{mode: backend.ModeLocal, user: ana()})
	c.Initialize(context.Background())

	assert.ErrorIs(t, c.Navigate(context.Background(), models.ViewAdmin), backend.ErrForbidden)
	assert.ErrorIs(t, c.Navigate(context.Background(), models.ViewReview), ErrInvalidView)

	require.NoError(t, c.Navigate(context.Background(), models.ViewProfile))
	snap := c.Snapshot()
	assert.Equal(t, models.ViewProfile, snap.View)
	require.Len(t, snap.User.History, 1)
}

func TestReviewRequiresDetails(t *testing.T) {
	c, _ := newController(&fakeBackend{mode: backend.ModeRemote, user: ana()})
	c.Initialize(context.Background())

	assert.False(t, c.Review(&models.QuizResult{ID: "r1"}))

	withDetails := &models.QuizResult{
		ID:    "r2",
		Topic: "Space",
		Details: []models.AnswerDetail{
			{QuestionID: 1, Question: models.Question{ID: 1, Options: []string{"a", "b", "c", "d"}}, SelectedOption: 0, IsCorrect: true},
		},
	}
	require.True(t, c.Review(withDetails))
	snap := c.Snapshot()
	assert.Equal(t, models.ViewReview, snap.View)
	require.NotNil(t, snap.Review)
	assert.Equal(t, "Space", snap.Review.Topic)
}

func TestUpdateProfileKeepsHistory(t *testing.T) {
	u := ana()
	u.History = []models.QuizResult{{ID: "r1"}}
	c, _ := newController(&fakeBackend{mode: backend.ModeRemote, user: u})
	c.Initialize(context.Background())

	require.NoError(t, c.UpdateProfile(context.Background(), models.ProfileUpdate{Name: "Ana Maria"}))
	user := c.CurrentUser()
	assert.Equal(t, "Ana Maria", user.Name)
	assert.Len(t, user.History, 1)
}

func TestLocalModeHistoryOrder(t *testing.T) {
	ctx := context.Background()
	store := repository.NewLocalStore(repository.NewMemoryRecordStore())
	gen := &staticGenerator{quiz: sampleQuiz(3)}
	c, sched := newController(backend.NewLocal(store, gen, "admin123", nil))

	require.NoError(t, c.Register(ctx, models.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"}))

	for _, topic := range []string{"First", "Second"} {
		gen.quiz = sampleQuiz(3)
		gen.quiz.Topic = topic
		require.NoError(t, c.GenerateQuiz(ctx, topic, models.DifficultyEasy, 3))
		for i := 0; i < 3; i++ {
			_, err := c.RecordAnswer(0)
			require.NoError(t, err)
			require.True(t, sched.Fire())
		}
		require.Equal(t, models.PhaseResult, c.Snapshot().Phase)
	}

	history, err := c.FetchHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Second", history[0].Topic)
	assert.Equal(t, "First", history[1].Topic)
	assert.Equal(t, 100, history[0].ScorePercentage)

	require.NoError(t, c.Logout(ctx))
	require.NoError(t, c.Login(ctx, "ana@example.com", "secret1"))
	assert.Len(t, c.CurrentUser().History, 2)
}

type staticGenerator struct {
	quiz *models.QuizData
}

func (s *staticGenerator) GenerateQuiz(context.Context, generator.Request) (*models.QuizData, error) {
	return s.quiz, nil
}
