package apiclient

import (
	"math"
	"strconv"
	"time"

	"mindspark/internal/models"
)

// UserPayload is the user object returned by the auth endpoints
type UserPayload struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	Avatar  string `json:"avatar"`
}

// ToUser converts the payload to the domain user. History is left empty.
func (p *UserPayload) ToUser() *models.User {
	role := models.RoleUser
	if p.IsAdmin {
		role = models.RoleAdmin
	}
	return &models.User{
		ID:      strconv.FormatInt(p.ID, 10),
		Name:    p.Name,
		Email:   p.Email,
		Role:    role,
		Avatar:  p.Avatar,
		History: []models.QuizResult{},
	}
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string      `json:"token"`
	User  UserPayload `json:"user"`
}

type profileResponse struct {
	User UserPayload `json:"user"`
}

// RegisterRequest is the registration body
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	AdminCode string `json:"admin_code,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GenerateRequest asks the server to generate and store a quiz
type GenerateRequest struct {
	Topic      string            `json:"topic"`
	Difficulty models.Difficulty `json:"difficulty"`
	Count      int               `json:"count"`
	Language   models.Language   `json:"language"`
}

// QuestionPayload is a question as serialized by the server
type QuestionPayload struct {
	ID            int64    `json:"id"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Explanation   string   `json:"explanation"`
}

func (q QuestionPayload) toQuestion() models.Question {
	return models.Question{
		ID:           q.ID,
		Question:     q.QuestionText,
		Options:      q.Options,
		CorrectIndex: q.CorrectOption,
		Explanation:  q.Explanation,
	}
}

// QuizPayload is a stored quiz
type QuizPayload struct {
	ID         int64             `json:"id"`
	Topic      string            `json:"topic"`
	Difficulty models.Difficulty `json:"difficulty"`
	Language   models.Language   `json:"language"`
	Questions  []QuestionPayload `json:"questions"`
}

// ToQuizData converts the payload to the domain quiz
func (q *QuizPayload) ToQuizData() *models.QuizData {
	questions := make([]models.Question, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, question.toQuestion())
	}
	return &models.QuizData{Topic: q.Topic, Difficulty: q.Difficulty, Questions: questions}
}

// SubmitRequest is the answer submission body
type SubmitRequest struct {
	QuizID  int64                  `json:"quiz_id"`
	Answers []models.PendingAnswer `json:"answers"`
}

// AnswerPayload is one graded answer of an attempt
type AnswerPayload struct {
	ID              int64           `json:"id"`
	Question        int64           `json:"question"`
	QuestionDetails QuestionPayload `json:"question_details"`
	SelectedOption  *int            `json:"selected_option"`
	IsCorrect       bool            `json:"is_correct"`
}

// AttemptPayload is a graded attempt as returned by submit and history
type AttemptPayload struct {
	ID              int64           `json:"id"`
	Username        string          `json:"username"`
	QuizTopic       string          `json:"quiz_topic"`
	QuizDifficulty  string          `json:"quiz_difficulty"`
	Score           int             `json:"score"`
	TotalQuestions  int             `json:"total_questions"`
	ScorePercentage float64         `json:"score_percentage"`
	CompletedAt     time.Time       `json:"completed_at"`
	Answers         []AnswerPayload `json:"answers"`
}

// ToResult converts the attempt to a domain result with review details
func (a *AttemptPayload) ToResult() models.QuizResult {
	details := make([]models.AnswerDetail, 0, len(a.Answers))
	for _, ans := range a.Answers {
		selected := -1
		if ans.SelectedOption != nil {
			selected = *ans.SelectedOption
		}
		qid := ans.QuestionDetails.ID
		if qid == 0 {
			qid = ans.Question
		}
		details = append(details, models.AnswerDetail{
			QuestionID:     qid,
			Question:       ans.QuestionDetails.toQuestion(),
			SelectedOption: selected,
			IsCorrect:      ans.IsCorrect,
		})
	}

	date := a.CompletedAt
	if date.IsZero() {
		date = time.Now()
	}
	return models.QuizResult{
		ID:              strconv.FormatInt(a.ID, 10),
		Topic:           a.QuizTopic,
		Difficulty:      models.Difficulty(a.QuizDifficulty),
		Date:            date,
		TotalQuestions:  a.TotalQuestions,
		CorrectAnswers:  a.Score,
		ScorePercentage: int(math.Round(a.ScorePercentage)),
		Details:         details,
	}
}

// PerformerPayload is one leaderboard row of the admin dashboard
type PerformerPayload struct {
	Username          string  `json:"username"`
	TotalQuizzesTaken int     `json:"total_quizzes_taken"`
	AverageScore      float64 `json:"average_score"`
	BestScore         float64 `json:"best_score"`
}

// DashboardPayload is the admin dashboard response
type DashboardPayload struct {
	TotalUsers     int                `json:"total_users"`
	TotalQuizzes   int                `json:"total_quizzes"`
	TotalAttempts  int                `json:"total_attempts"`
	RecentAttempts []AttemptPayload   `json:"recent_attempts"`
	TopPerformers  []PerformerPayload `json:"top_performers"`
}

// ToDashboard converts the payload to the domain dashboard
func (d *DashboardPayload) ToDashboard() models.AdminDashboard {
	dash := models.AdminDashboard{
		TotalUsers:    d.TotalUsers,
		TotalQuizzes:  d.TotalQuizzes,
		TotalAttempts: d.TotalAttempts,
	}
	sum := 0
	for i := range d.RecentAttempts {
		r := d.RecentAttempts[i].ToResult()
		sum += r.ScorePercentage
		dash.RecentAttempts = append(dash.RecentAttempts, models.AttemptSummary{UserName: d.RecentAttempts[i].Username, Result: r})
	}
	if n := len(d.RecentAttempts); n > 0 {
		dash.AverageScore = int(math.Round(float64(sum) / float64(n)))
	}
	for _, p := range d.TopPerformers {
		dash.TopPerformers = append(dash.TopPerformers, models.Performer{
			UserName:  p.Username,
			BestScore: int(math.Round(p.BestScore)),
			Average:   p.AverageScore,
		})
	}
	return dash
}
