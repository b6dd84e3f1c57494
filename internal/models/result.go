package models

import (
	"math"
	"time"
)

// QuizResult is the scored outcome of one completed attempt. Never mutated after creation.
type QuizResult struct {
	ID              string         `json:"id"`
	Topic           string         `json:"topic"`
	Difficulty      Difficulty     `json:"difficulty"`
	Date            time.Time      `json:"date"`
	TotalQuestions  int            `json:"totalQuestions"`
	CorrectAnswers  int            `json:"correctAnswers"`
	ScorePercentage int            `json:"scorePercentage"`
	Details         []AnswerDetail `json:"details,omitempty"`
	Language        Language       `json:"language,omitempty"`
}

// HasDetails reports whether the result can be reviewed
func (r *QuizResult) HasDetails() bool {
	return r != nil && len(r.Details) > 0
}

// AnswerDetail records how one question was answered. SelectedOption is -1 when unanswered.
type AnswerDetail struct {
	QuestionID     int64    `json:"questionId"`
	Question       Question `json:"question"`
	SelectedOption int      `json:"selectedOption"`
	IsCorrect      bool     `json:"isCorrect"`
}

// PendingAnswer is one entry of the answer buffer awaiting remote submission
type PendingAnswer struct {
	QuestionID     int64 `json:"question_id"`
	SelectedOption int   `json:"selected_option"`
}

// ReviewItem is one row of the review view
type ReviewItem struct {
	Question       Question
	SelectedOption int
	IsCorrect      bool
}

// Review is a past attempt prepared for display
type Review struct {
	Topic           string
	Date            time.Time
	ScorePercentage int
	Items           []ReviewItem
}

// ScorePercentage returns round(100 * correct / total). Zero when total is not positive.
func ScorePercentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	if correct > total {
		correct = total
	}
	if correct < 0 {
		correct = 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// NewReview builds the review structure. ok is false when r has no details.
func NewReview(r *QuizResult) (review *Review, ok bool) {
	if !r.HasDetails() {
		return nil, false
	}
	items := make([]ReviewItem, 0, len(r.Details))
	for _, d := range r.Details {
		items = append(items, ReviewItem{
			Question:       d.Question,
			SelectedOption: d.SelectedOption,
			IsCorrect:      d.IsCorrect,
		})
	}
	return &Review{
		Topic:           r.Topic,
		Date:            r.Date,
		ScorePercentage: r.ScorePercentage,
		Items:           items,
	}, true
}
