package models

import (
	"errors"
	"fmt"
	"strings"
)

// OptionCount is the fixed number of options per question
const OptionCount = 4

// Difficulty of a generated quiz
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty accepts any casing of Easy, Medium or Hard
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// Language of generated quiz content
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// ParseLanguage maps a language tag to a supported Language, defaulting to English
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageHindi)) {
		return LanguageHindi
	}
	return LanguageEnglish
}

// DisplayName is the name used when instructing the model
func (l Language) DisplayName() string {
	if l == LanguageHindi {
		return "Hindi (Devanagari script)"
	}
	return "English"
}

var (
	ErrWrongOptionCount   = errors.New("question must have exactly 4 options")
	ErrCorrectOutOfRange  = errors.New("correct index must be between 0 and 3")
	ErrEmptyQuestion      = errors.New("question text is required")
	ErrWrongQuestionCount = errors.New("unexpected number of questions")
	ErrNoQuestions        = errors.New("quiz has no questions")
)

// Question is a single multiple-choice question. Immutable once generated.
type Question struct {
	ID           int64    `json:"id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// Validate checks the option count and correct index invariants
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(q.Options) != OptionCount {
		return ErrWrongOptionCount
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
		return ErrCorrectOutOfRange
	}
	return nil
}

// QuizData is the content of one active quiz
type QuizData struct {
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
	Questions  []Question `json:"questions"`
}

// Validate checks every question and, when count > 0, the number of questions
func (q *QuizData) Validate(count int) error {
	if len(q.Questions) == 0 {
		return ErrNoQuestions
	}
	if count > 0 && len(q.Questions) != count {
		return fmt.Errorf("%w: got %d, want %d", ErrWrongQuestionCount, len(q.Questions), count)
	}
	for i, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}
