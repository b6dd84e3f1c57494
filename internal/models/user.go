package models

// Role distinguishes regular users from administrators
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an account and the quiz history it owns
type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"passwordHash,omitempty"`
	Role         Role         `json:"role"`
	Avatar       string       `json:"avatar,omitempty"`
	History      []QuizResult `json:"history"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Clone returns a copy whose history slice is not shared with u
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.History = append([]QuizResult(nil), u.History...)
	return &c
}

// ProfileUpdate carries a partial profile edit. Empty fields are left unchanged.
type ProfileUpdate struct {
	Name       string
	Email      string
	Password   string
	AvatarPath string
}

// IsEmpty reports whether the update would change nothing
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == "" && p.Email == "" && p.Password == "" && p.AvatarPath == ""
}

// RegisterInput holds the fields collected by the registration form
type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	AdminCode string
}
