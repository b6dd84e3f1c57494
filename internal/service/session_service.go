package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"mindspark/internal/backend"
	"mindspark/internal/logger"
	"mindspark/internal/models"
	"mindspark/internal/observability"
	"mindspark/internal/validation"
)

var (
	ErrEmptyTopic       = errors.New("Please enter a topic.")
	ErrInvalidPhase     = errors.New("action not allowed right now")
	ErrAnswerPending    = errors.New("this question has already been answered")
	ErrInvalidOption    = errors.New("option out of range")
	ErrInvalidView      = errors.New("view cannot be opened directly")
	ErrNotAuthenticated = backend.ErrNotAuthenticated
)

const generateFallbackMessage = "Failed to generate quiz"

// AnswerFeedback describes the answer given to the visible question
type AnswerFeedback struct {
	Selected     int
	CorrectIndex int
	Correct      bool
}

// Snapshot is a read-only copy of the session state for rendering
type Snapshot struct {
	Mode          backend.Mode
	View          models.View
	Phase         models.Phase
	User          *models.User
	Quiz          *models.QuizData
	RemoteQuizID  int64
	QuestionIndex int
	Score         int
	Pending       []models.PendingAnswer
	Error         string
	AuthError     string
	Result        *models.QuizResult
	Review        *models.Review
	LastAnswer    *AnswerFeedback
	Language      models.Language
}

// CurrentQuestion returns the visible question while a quiz is in progress
func (s Snapshot) CurrentQuestion() (models.Question, bool) {
	if s.Phase != models.PhaseQuiz || s.Quiz == nil || s.QuestionIndex >= len(s.Quiz.Questions) {
		return models.Question{}, false
	}
	return s.Quiz.Questions[s.QuestionIndex], true
}

// SessionOptions configures a SessionController
type SessionOptions struct {
	AdvanceDelay  time.Duration
	FinalizeDelay time.Duration
	Language      models.Language
	Scheduler     Scheduler
	Log           *logger.Logger
	// OnChange is called after every state change, outside the lock
	OnChange func(Snapshot)
}

// SessionController owns the quiz lifecycle and routes data access through a backend
type SessionController struct {
	backend       backend.Backend
	sched         Scheduler
	advanceDelay  time.Duration
	finalizeDelay time.Duration
	language      models.Language
	log           *logger.Logger
	onChange      func(Snapshot)

	mu         sync.Mutex
	view       models.View
	phase      models.Phase
	user       *models.User
	quiz       *models.QuizData
	remoteID   int64
	quizLang   models.Language
	index      int
	score      int
	answers    []models.PendingAnswer
	errMsg     string
	authErr    string
	result     *models.QuizResult
	review     *models.Review
	lastAnswer *AnswerFeedback

	// gen invalidates scheduled transitions and in-flight generations
	gen   uint64
	timer Timer
}

// NewSessionController creates a controller in the logged-out state
func NewSessionController(b backend.Backend, opts SessionOptions) *SessionController {
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Language == "" {
		opts.Language = models.LanguageEnglish
	}
	return &SessionController{
		backend:       b,
		sched:         opts.Scheduler,
		advanceDelay:  opts.AdvanceDelay,
		finalizeDelay: opts.FinalizeDelay,
		language:      opts.Language,
		log:           opts.Log,
		onChange:      opts.OnChange,
		view:          models.ViewAuth,
		phase:         models.PhaseInput,
	}
}

// SetLanguage switches the language used for the next generated quiz.
// A quiz already in progress keeps the language it was generated in.
func (c *SessionController) SetLanguage(lang models.Language) {
	defer c.notify()

	c.mu.Lock()
	defer c.mu.Unlock()
	if lang != models.LanguageHindi {
		lang = models.LanguageEnglish
	}
	c.language = lang
}

// Mode returns the backend mode
func (c *SessionController) Mode() backend.Mode {
	return c.backend.Mode()
}

// Initialize restores a previous session, if any. A restored user of any
// role starts on the home view.
func (c *SessionController) Initialize(ctx context.Context) {
	defer c.notify()

	user, err := c.backend.Restore(ctx)
	if err != nil {
		c.log.Warn("failed to restore session", "error", err)
		user = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setUserLocked(user)
	if user != nil {
		c.view = models.ViewHome
	}
}

// Login authenticates with the backend. Failures leave the view unchanged.
func (c *SessionController) Login(ctx context.Context, email, password string) error {
	defer c.notify()

	user, err := c.backend.Login(ctx, strings.TrimSpace(email), password)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.authErr = err.Error()
		return err
	}
	c.setUserLocked(user)
	return nil
}

// Register creates an account and logs it in
func (c *SessionController) Register(ctx context.Context, in models.RegisterInput) error {
	defer c.notify()

	user, err := c.backend.Register(ctx, in)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.authErr = err.Error()
		return err
	}
	c.setUserLocked(user)
	return nil
}

func (c *SessionController) setUserLocked(user *models.User) {
	c.user = user
	c.authErr = ""
	if user == nil {
		c.view = models.ViewAuth
		return
	}
	c.view = models.LandingView(user)
}

// GenerateQuiz discards any previous quiz and requests a new one
func (c *SessionController) GenerateQuiz(ctx context.Context, topic string, difficulty models.Difficulty, count int) error {
	defer c.notify()

	topic = strings.TrimSpace(topic)

	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	if topic == "" {
		c.mu.Unlock()
		return ErrEmptyTopic
	}
	if err := validation.ValidateCount(count); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.phase == models.PhaseLoading {
		c.mu.Unlock()
		return ErrInvalidPhase
	}

	c.resetQuizLocked()
	c.errMsg = ""
	c.view = models.ViewHome
	c.phase = models.PhaseLoading
	gen := c.gen
	user := c.user
	lang := c.language
	c.mu.Unlock()
	c.notify()

	ctx, span := observability.Tracer().Start(ctx, "session.GenerateQuiz")
	span.SetAttributes(
		attribute.String("backend.mode", string(c.backend.Mode())),
		attribute.String("quiz.topic", topic),
		attribute.Int("quiz.count", count),
	)
	out, err := c.backend.GenerateQuiz(ctx, user, backend.QuizRequest{
		Topic:      topic,
		Difficulty: difficulty,
		Count:      count,
		Language:   lang,
	})
	if err == nil && (out == nil || out.Quiz == nil) {
		err = errors.New(generateFallbackMessage)
	}
	if err != nil {
		span.RecordError(err)
	}
	span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.log.Debug("discarding stale quiz generation", "topic", topic)
		return nil
	}
	if err != nil {
		c.errMsg = err.Error()
		if c.errMsg == "" {
			c.errMsg = generateFallbackMessage
		}
		c.phase = models.PhaseInput
		return err
	}

	c.quiz = out.Quiz
	c.remoteID = out.RemoteID
	c.quizLang = lang
	c.index = 0
	c.score = 0
	c.phase = models.PhaseQuiz
	c.log.Info("quiz started", "topic", out.Quiz.Topic, "questions", len(out.Quiz.Questions), "remote_id", out.RemoteID)
	return nil
}

// finalization carries the state captured when the last question was answered
type finalization struct {
	gen      uint64
	user     *models.User
	quiz     *models.QuizData
	remoteID int64
	language models.Language
	score    int
	answers  []models.PendingAnswer
}

// RecordAnswer scores the visible question and schedules the next transition
func (c *SessionController) RecordAnswer(selected int) (bool, error) {
	defer c.notify()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != models.PhaseQuiz || c.quiz == nil {
		return false, ErrInvalidPhase
	}
	if c.lastAnswer != nil {
		return false, ErrAnswerPending
	}
	if selected < 0 || selected >= models.OptionCount {
		return false, ErrInvalidOption
	}

	q := c.quiz.Questions[c.index]
	correct := selected == q.CorrectIndex
	if correct {
		c.score++
	}
	if c.backend.Mode() == backend.ModeRemote {
		c.answers = append(c.answers, models.PendingAnswer{QuestionID: q.ID, SelectedOption: selected})
	}
	c.lastAnswer = &AnswerFeedback{Selected: selected, CorrectIndex: q.CorrectIndex, Correct: correct}

	gen := c.gen
	if c.index < len(c.quiz.Questions)-1 {
		c.timer = c.sched.AfterFunc(c.advanceDelay, func() { c.advance(gen) })
		return correct, nil
	}

	fin := finalization{
		gen:      gen,
		user:     c.user,
		quiz:     c.quiz,
		remoteID: c.remoteID,
		language: c.quizLang,
		score:    c.score,
		answers:  append([]models.PendingAnswer(nil), c.answers...),
	}
	c.timer = c.sched.AfterFunc(c.finalizeDelay, func() { c.finalize(fin) })
	return correct, nil
}

func (c *SessionController) advance(gen uint64) {
	defer c.notify()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.phase != models.PhaseQuiz {
		return
	}
	c.index++
	c.lastAnswer = nil
	c.timer = nil
}

func (c *SessionController) finalize(fin finalization) {
	defer c.notify()

	c.mu.Lock()
	stale := fin.gen != c.gen || c.phase != models.PhaseQuiz
	c.mu.Unlock()
	if stale {
		return
	}

	ctx, span := observability.Tracer().Start(context.Background(), "session.Finalize")
	defer span.End()

	total := len(fin.quiz.Questions)
	correct := fin.score
	if correct > total {
		correct = total
	}
	local := models.QuizResult{
		ID:              uuid.NewString(),
		Topic:           fin.quiz.Topic,
		Difficulty:      fin.quiz.Difficulty,
		Date:            time.Now(),
		TotalQuestions:  total,
		CorrectAnswers:  correct,
		ScorePercentage: models.ScorePercentage(correct, total),
		Language:        fin.language,
	}

	result := local
	var updatedUser *models.User
	out, err := c.backend.SubmitQuiz(ctx, fin.user, backend.Submission{
		RemoteID: fin.remoteID,
		Answers:  fin.answers,
		Local:    local,
	})
	if err != nil {
		span.RecordError(err)
		c.log.Warn("quiz submission failed, showing local result", "mode", c.backend.Mode(), "error", err)
	} else {
		result = out.Result
		updatedUser = out.User
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if fin.gen != c.gen {
		return
	}
	c.result = &result
	if updatedUser != nil && c.user != nil && c.user.ID == updatedUser.ID {
		c.user = updatedUser
	}
	c.phase = models.PhaseResult
	c.lastAnswer = nil
	c.timer = nil
	c.log.Info("quiz finished", "topic", result.Topic, "correct", result.CorrectAnswers, "total", result.TotalQuestions)
}

// cancelPendingLocked stops any scheduled transition and invalidates in-flight work
func (c *SessionController) cancelPendingLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *SessionController) resetQuizLocked() {
	c.cancelPendingLocked()
	c.quiz = nil
	c.remoteID = 0
	c.index = 0
	c.score = 0
	c.answers = nil
	c.result = nil
	c.review = nil
	c.lastAnswer = nil
}

// Retry abandons the current quiz or result and returns to topic input
func (c *SessionController) Retry() {
	defer c.notify()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetQuizLocked()
	c.errMsg = ""
	c.phase = models.PhaseInput
}

// Logout ends the session. Local state is cleared even when the backend fails.
func (c *SessionController) Logout(ctx context.Context) error {
	defer c.notify()

	c.mu.Lock()
	c.cancelPendingLocked()
	c.mu.Unlock()

	err := c.backend.Logout(ctx)
	if err != nil {
		c.log.Warn("logout failed", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetQuizLocked()
	c.user = nil
	c.errMsg = ""
	c.authErr = ""
	c.view = models.ViewAuth
	c.phase = models.PhaseInput
	return err
}

// GeneratedQuizzes lists the quizzes the user generated. Backends that do not
// keep generated quizzes return an empty list.
func (c *SessionController) GeneratedQuizzes(ctx context.Context) ([]models.QuizData, error) {
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	lister, ok := c.backend.(backend.QuizLister)
	if !ok {
		return nil, nil
	}
	quizzes, err := lister.MyQuizzes(ctx)
	if err != nil {
		c.log.Error("failed to list generated quizzes", "error", err)
		return nil, err
	}
	return quizzes, nil
}

// FetchHistory reloads the user's past results
func (c *SessionController) FetchHistory(ctx context.Context) ([]models.QuizResult, error) {
	defer c.notify()

	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	history, err := c.backend.FetchHistory(ctx, user)
	if err != nil {
		c.log.Error("failed to fetch history", "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user != nil && c.user.ID == user.ID {
		updated := c.user.Clone()
		updated.History = history
		c.user = updated
	}
	return history, nil
}

// Review opens the review view for result. It returns false when the result
// carries no per-question details.
func (c *SessionController) Review(result *models.QuizResult) bool {
	review, ok := models.NewReview(result)
	if !ok {
		return false
	}
	defer c.notify()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.review = review
	c.view = models.ViewReview
	return true
}

// Navigate switches the top-level view
func (c *SessionController) Navigate(ctx context.Context, view models.View) error {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	switch view {
	case models.ViewHome:
		c.resetQuizLocked()
		c.errMsg = ""
	case models.ViewAdmin:
		if !c.user.IsAdmin() {
			c.mu.Unlock()
			return backend.ErrForbidden
		}
		c.cancelPendingLocked()
	case models.ViewProfile:
		c.cancelPendingLocked()
	default:
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidView, view)
	}
	c.view = view
	c.phase = models.PhaseInput
	c.lastAnswer = nil
	c.mu.Unlock()
	c.notify()

	if view == models.ViewProfile {
		if _, err := c.FetchHistory(ctx); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProfile applies a partial profile edit. History is preserved.
func (c *SessionController) UpdateProfile(ctx context.Context, update models.ProfileUpdate) error {
	defer c.notify()

	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if user == nil {
		return ErrNotAuthenticated
	}
	if update.IsEmpty() {
		return nil
	}

	updated, err := c.backend.UpdateProfile(ctx, user, update)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user != nil && c.user.ID == user.ID {
		if updated.History == nil {
			updated.History = c.user.History
		}
		c.user = updated
	}
	return nil
}

// Stats returns the user's aggregate statistics
func (c *SessionController) Stats(ctx context.Context) (*models.UserStats, error) {
	user := c.currentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return c.backend.Stats(ctx, user)
}

// AdminDashboard returns usage statistics across all users
func (c *SessionController) AdminDashboard(ctx context.Context) (*models.AdminDashboard, error) {
	user := c.currentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return c.backend.AdminDashboard(ctx, user)
}

// CurrentResult returns the result of the last finished quiz, or nil
func (c *SessionController) CurrentResult() *models.QuizResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil
	}
	r := *c.result
	return &r
}

// CurrentUser returns a copy of the authenticated user, or nil
func (c *SessionController) CurrentUser() *models.User {
	return c.currentUser()
}

func (c *SessionController) currentUser() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user.Clone()
}

// DismissError clears the error banners
func (c *SessionController) DismissError() {
	defer c.notify()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""
	c.authErr = ""
}

// Snapshot returns a copy of the current state
func (c *SessionController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *SessionController) snapshotLocked() Snapshot {
	s := Snapshot{
		Mode:          c.backend.Mode(),
		View:          c.view,
		Phase:         c.phase,
		User:          c.user.Clone(),
		Quiz:          c.quiz,
		RemoteQuizID:  c.remoteID,
		QuestionIndex: c.index,
		Score:         c.score,
		Pending:       append([]models.PendingAnswer(nil), c.answers...),
		Error:         c.errMsg,
		AuthError:     c.authErr,
		Review:        c.review,
		Language:      c.language,
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	if c.lastAnswer != nil {
		a := *c.lastAnswer
		s.LastAnswer = &a
	}
	return s
}

func (c *SessionController) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.Snapshot())
}
