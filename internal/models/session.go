package models

// Phase is the quiz lifecycle stage
type Phase string

const (
	PhaseInput   Phase = "input"
	PhaseLoading Phase = "loading"
	PhaseQuiz    Phase = "quiz"
	PhaseResult  Phase = "result"
)

// View is the screen the user is on
type View string

const (
	ViewAuth    View = "auth"
	ViewHome    View = "home"
	ViewProfile View = "profile"
	ViewAdmin   View = "admin"
	ViewReview  View = "review"
)

// LandingView is where a freshly authenticated user is routed
func LandingView(u *User) View {
	if u.IsAdmin() {
		return ViewAdmin
	}
	return ViewHome
}
