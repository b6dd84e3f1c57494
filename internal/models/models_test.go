package models

import (
	"errors"
	"testing"
	"time"
)

func TestScorePercentage(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		want    int
	}{
		{"three of five", 3, 5, 60},
		{"all correct", 5, 5, 100},
		{"none correct", 0, 5, 0},
		{"rounds up", 2, 3, 67},
		{"rounds down", 1, 3, 33},
		{"zero total", 0, 0, 0},
		{"clamps overflow", 7, 5, 100},
		{"clamps negative", -1, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScorePercentage(tt.correct, tt.total); got != tt.want {
				t.Errorf("ScorePercentage(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
			}
		})
	}
}

func TestQuestionValidate(t *testing.T) {
	opts := []string{"a", "b", "c", "d"}
	tests := []struct {
		name    string
		q       Question
		wantErr error
	}{
		{"valid", Question{Question: "2+2?", Options: opts, CorrectIndex: 1}, nil},
		{"empty text", Question{Question: "  ", Options: opts}, ErrEmptyQuestion},
		{"three options", Question{Question: "q", Options: opts[:3]}, ErrWrongOptionCount},
		{"index too high", Question{Question: "q", Options: opts, CorrectIndex: 4}, ErrCorrectOutOfRange},
		{"negative index", Question{Question: "q", Options: opts, CorrectIndex: -1}, ErrCorrectOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuizDataValidate(t *testing.T) {
	q := Question{Question: "q", Options: []string{"a", "b", "c", "d"}}
	quiz := &QuizData{Topic: "Space", Difficulty: DifficultyEasy, Questions: []Question{q, q}}

	if err := quiz.Validate(2); err != nil {
		t.Fatalf("Validate(2) = %v", err)
	}
	if err := quiz.Validate(0); err != nil {
		t.Fatalf("Validate(0) = %v", err)
	}
	if err := quiz.Validate(3); !errors.Is(err, ErrWrongQuestionCount) {
		t.Errorf("Validate(3) = %v, want ErrWrongQuestionCount", err)
	}
	if err := (&QuizData{}).Validate(0); !errors.Is(err, ErrNoQuestions) {
		t.Errorf("empty quiz = %v, want ErrNoQuestions", err)
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"easy", DifficultyEasy, false},
		{"MEDIUM", DifficultyMedium, false},
		{" Hard ", DifficultyHard, false},
		{"extreme", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDifficulty(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDifficulty(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDifficulty(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLanguageDisplayName(t *testing.T) {
	if got := ParseLanguage("HI").DisplayName(); got != "Hindi (Devanagari script)" {
		t.Errorf("hi display = %q", got)
	}
	if got := ParseLanguage("fr").DisplayName(); got != "English" {
		t.Errorf("fallback display = %q", got)
	}
}

func TestNewReview(t *testing.T) {
	q := Question{ID: 7, Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2}
	r := &QuizResult{
		Topic:           "Photosynthesis",
		ScorePercentage: 60,
		Details:         []AnswerDetail{{QuestionID: 7, Question: q, SelectedOption: 1, IsCorrect: false}},
	}

	review, ok := NewReview(r)
	if !ok {
		t.Fatal("NewReview() ok = false, want true")
	}
	if len(review.Items) != 1 || review.Items[0].SelectedOption != 1 || review.Items[0].Question.CorrectIndex != 2 {
		t.Errorf("unexpected review items: %+v", review.Items)
	}

	if _, ok := NewReview(&QuizResult{Topic: "Local"}); ok {
		t.Error("NewReview() without details ok = true, want false")
	}
	if _, ok := NewReview(nil); ok {
		t.Error("NewReview(nil) ok = true, want false")
	}
}

func TestComputeAdminDashboard(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	users := []User{
		{Name: "Ana", History: []QuizResult{
			{Topic: "old", ScorePercentage: 40, Date: now.Add(-48 * time.Hour)},
			{Topic: "new", ScorePercentage: 90, Date: now},
		}},
		{Name: "Ben", History: []QuizResult{{Topic: "mid", ScorePercentage: 50, Date: now.Add(-time.Hour)}}},
		{Name: "Cy"},
	}

	dash := ComputeAdminDashboard(users, 2)

	if dash.TotalUsers != 3 || dash.TotalQuizzes != 3 {
		t.Fatalf("totals = %d users, %d quizzes", dash.TotalUsers, dash.TotalQuizzes)
	}
	if dash.AverageScore != 60 {
		t.Errorf("AverageScore = %d, want 60", dash.AverageScore)
	}
	if len(dash.RecentAttempts) != 2 || dash.RecentAttempts[0].Result.Topic != "new" || dash.RecentAttempts[1].Result.Topic != "mid" {
		t.Errorf("RecentAttempts not sorted newest first: %+v", dash.RecentAttempts)
	}
	if dash.TopPerformers[0].UserName != "Ana" {
		t.Errorf("top performer = %q, want Ana", dash.TopPerformers[0].UserName)
	}
}

func TestComputeUserStats(t *testing.T) {
	stats := ComputeUserStats([]QuizResult{{ScorePercentage: 60}, {ScorePercentage: 100}})
	if stats.TotalQuizzesTaken != 2 || stats.BestScore != 100 || stats.AverageScore != 80 {
		t.Errorf("ComputeUserStats() = %+v", stats)
	}
	if empty := ComputeUserStats(nil); empty.TotalQuizzesTaken != 0 || empty.AverageScore != 0 {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestLandingView(t *testing.T) {
	if got := LandingView(&User{Role: RoleAdmin}); got != ViewAdmin {
		t.Errorf("admin landing = %q", got)
	}
	if got := LandingView(&User{Role: RoleUser}); got != ViewHome {
		t.Errorf("user landing = %q", got)
	}
}
