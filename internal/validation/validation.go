package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinQuestionCount = 3
	MaxQuestionCount = 20
	MaxTopicLength   = 200
	MinPasswordLen   = 6
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLen {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLen)}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateTopic checks a quiz topic
func ValidateTopic(topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ValidationError{Field: "topic", Message: "topic is required"}
	}
	if utf8.RuneCountInString(topic) > MaxTopicLength {
		return ValidationError{Field: "topic", Message: fmt.Sprintf("topic must be at most %d characters", MaxTopicLength)}
	}
	return nil
}

// ValidateCount checks the requested number of questions
func ValidateCount(count int) error {
	if count < MinQuestionCount || count > MaxQuestionCount {
		return ValidationError{Field: "count", Message: fmt.Sprintf("count must be between %d and %d", MinQuestionCount, MaxQuestionCount)}
	}
	return nil
}
