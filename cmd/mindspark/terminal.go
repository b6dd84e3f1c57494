package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mindspark/internal/models"
	"mindspark/internal/service"
)

var errQuit = errors.New("quit")

// snapshotFeed returns a channel that always holds the newest snapshot and the
// OnChange hook that fills it
func snapshotFeed() (<-chan service.Snapshot, func(service.Snapshot)) {
	updates := make(chan service.Snapshot, 1)
	return updates, func(s service.Snapshot) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	}
}

type terminal struct {
	in           *bufio.Scanner
	out          io.Writer
	session      *service.SessionController
	certs        *service.CertificateService
	defaultCount int
	updates      <-chan service.Snapshot
}

func newTerminal(in io.Reader, out io.Writer, session *service.SessionController, certs *service.CertificateService, defaultCount int, updates <-chan service.Snapshot) *terminal {
	return &terminal{
		in:           bufio.NewScanner(in),
		out:          out,
		session:      session,
		certs:        certs,
		defaultCount: defaultCount,
		updates:      updates,
	}
}

// Run drives the session until the user quits or input ends
func (t *terminal) Run(ctx context.Context) error {
	t.session.Initialize(ctx)
	t.printf("MindSpark (%s mode)\n", t.session.Mode())

	for ctx.Err() == nil {
		snap := t.session.Snapshot()
		var err error
		switch snap.View {
		case models.ViewAuth:
			err = t.auth(ctx, snap)
		case models.ViewHome:
			err = t.home(ctx, snap)
		case models.ViewProfile:
			err = t.profile(ctx, snap)
		case models.ViewAdmin:
			err = t.admin(ctx, snap)
		case models.ViewReview:
			err = t.review(ctx, snap)
		}
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *terminal) printf(format string, args ...interface{}) {
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) prompt(label string) (string, error) {
	t.printf("%s", label)
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(t.in.Text()), nil
}

func (t *terminal) fail(err error) {
	if err != nil {
		t.printf("! %s\n", err)
	}
}

func (t *terminal) auth(ctx context.Context, snap service.Snapshot) error {
	choice, err := t.prompt("\n[l]ogin  [r]egister  [q]uit > ")
	if err != nil {
		return err
	}
	switch strings.ToLower(choice) {
	case "l", "login":
		email, err := t.prompt("Email: ")
		if err != nil {
			return err
		}
		password, err := t.prompt("Password: ")
		if err != nil {
			return err
		}
		t.fail(t.session.Login(ctx, email, password))
	case "r", "register":
		var in models.RegisterInput
		fields := []struct {
			label string
			dst   *string
		}{
			{"Name: ", &in.Name},
			{"Email: ", &in.Email},
			{"Password: ", &in.Password},
			{"Admin code (optional): ", &in.AdminCode},
		}
		for _, f := range fields {
			if *f.dst, err = t.prompt(f.label); err != nil {
				return err
			}
		}
		t.fail(t.session.Register(ctx, in))
	case "q", "quit":
		return errQuit
	}
	return nil
}

func (t *terminal) home(ctx context.Context, snap service.Snapshot) error {
	switch snap.Phase {
	case models.PhaseQuiz:
		return t.question(ctx, snap)
	case models.PhaseResult:
		return t.result(ctx, snap)
	case models.PhaseLoading:
		t.waitFor(ctx, func(s service.Snapshot) bool { return s.Phase != models.PhaseLoading })
		return nil
	}

	if snap.Error != "" {
		t.printf("! %s\n", snap.Error)
		t.session.DismissError()
	}
	topic, err := t.prompt("\nTopic (:profile :admin :lang :logout :quit) > ")
	if err != nil {
		return err
	}
	if strings.HasPrefix(topic, ":") {
		if handled, err := t.command(ctx, topic); handled || err != nil {
			return err
		}
	}
	if topic == "" {
		t.fail(service.ErrEmptyTopic)
		return nil
	}

	level, err := t.prompt("Difficulty [1] Easy [2] Medium [3] Hard (default 2) > ")
	if err != nil {
		return err
	}
	difficulty := models.DifficultyMedium
	switch level {
	case "1":
		difficulty = models.DifficultyEasy
	case "3":
		difficulty = models.DifficultyHard
	default:
		if d, err := models.ParseDifficulty(level); err == nil {
			difficulty = d
		}
	}

	count := t.defaultCount
	raw, err := t.prompt(fmt.Sprintf("Questions (default %d) > ", count))
	if err != nil {
		return err
	}
	if n, convErr := strconv.Atoi(raw); convErr == nil {
		count = n
	}

	t.printf("Generating a %s quiz on %q...\n", difficulty, topic)
	if err := t.session.GenerateQuiz(ctx, topic, difficulty, count); err != nil && !errors.Is(err, service.ErrInvalidPhase) {
		s := t.session.Snapshot()
		if s.Error == "" {
			t.fail(err)
		}
	}
	return nil
}

// command handles the navigation shortcuts shared by every prompt
func (t *terminal) command(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case ":lang":
		lang := models.LanguageHindi
		if len(fields) > 1 {
			lang = models.ParseLanguage(fields[1])
		} else if t.session.Snapshot().Language == models.LanguageHindi {
			lang = models.LanguageEnglish
		}
		t.session.SetLanguage(lang)
		t.printf("Quiz language: %s\n", lang.DisplayName())
	case ":profile", "p":
		t.fail(t.session.Navigate(ctx, models.ViewProfile))
	case ":admin", "a":
		t.fail(t.session.Navigate(ctx, models.ViewAdmin))
	case ":home", "h":
		t.fail(t.session.Navigate(ctx, models.ViewHome))
	case ":logout", "l":
		t.fail(t.session.Logout(ctx))
	case ":quit", "q":
		return true, errQuit
	default:
		return false, nil
	}
	return true, nil
}

func (t *terminal) question(ctx context.Context, snap service.Snapshot) error {
	q, ok := snap.CurrentQuestion()
	if !ok {
		return nil
	}
	if snap.LastAnswer != nil {
		t.waitForNext(ctx, snap.QuestionIndex)
		return nil
	}

	t.printf("\n%s · Question %d of %d · Score %d\n%s\n", snap.Quiz.Topic, snap.QuestionIndex+1, len(snap.Quiz.Questions), snap.Score, q.Question)
	for i, opt := range q.Options {
		t.printf("  %d) %s\n", i+1, opt)
	}

	choice, err := t.prompt("Answer 1-4 (:abandon) > ")
	if err != nil {
		return err
	}
	if choice == ":abandon" {
		t.session.Retry()
		return nil
	}
	n, convErr := strconv.Atoi(choice)
	if convErr != nil {
		t.fail(service.ErrInvalidOption)
		return nil
	}

	correct, err := t.session.RecordAnswer(n - 1)
	if err != nil {
		t.fail(err)
		return nil
	}
	if correct {
		t.printf("Correct!\n")
	} else {
		t.printf("Wrong. The answer was %d) %s\n", q.CorrectIndex+1, q.Options[q.CorrectIndex])
	}
	if q.Explanation != "" {
		t.printf("%s\n", q.Explanation)
	}
	t.waitForNext(ctx, snap.QuestionIndex)
	return nil
}

func (t *terminal) waitForNext(ctx context.Context, index int) {
	t.waitFor(ctx, func(s service.Snapshot) bool {
		return s.Phase != models.PhaseQuiz || s.QuestionIndex != index || s.LastAnswer == nil
	})
}

// waitFor blocks until done holds for the current state
func (t *terminal) waitFor(ctx context.Context, done func(service.Snapshot) bool) {
	for !done(t.session.Snapshot()) {
		select {
		case <-t.updates:
		case <-ctx.Done():
			return
		}
	}
}

func (t *terminal) result(ctx context.Context, snap service.Snapshot) error {
	r := snap.Result
	if r == nil {
		t.session.Retry()
		return nil
	}
	t.printf("\nQuiz complete: %s (%s)\nScore: %d/%d (%d%%)\n", r.Topic, r.Difficulty, r.CorrectAnswers, r.TotalQuestions, r.ScorePercentage)

	choice, err := t.prompt("[r]etry  [c]ertificate  [v]iew answers  [p]rofile  [q]uit > ")
	if err != nil {
		return err
	}
	switch strings.ToLower(choice) {
	case "r":
		t.session.Retry()
	case "c":
		t.certificate(ctx, r)
	case "v":
		if !t.session.Review(r) {
			t.printf("Answer details are not available for this quiz.\n")
		}
	default:
		_, err := t.command(ctx, choice)
		return err
	}
	return nil
}

func (t *terminal) certificate(ctx context.Context, r *models.QuizResult) {
	if t.certs == nil {
		t.printf("Certificates are not available.\n")
		return
	}
	issued, err := t.certs.Issue(ctx, t.session.CurrentUser(), r)
	if err != nil {
		t.fail(err)
		return
	}
	t.printf("Certificate saved to %s\n", issued.Path)
	if issued.URL != "" {
		t.printf("Share link: %s\n", issued.URL)
	}
	if issued.Emailed {
		t.printf("A copy was sent to your e-mail.\n")
	}
}

func (t *terminal) profile(ctx context.Context, snap service.Snapshot) error {
	u := snap.User
	if u == nil {
		return nil
	}
	t.printf("\n%s <%s>", u.Name, u.Email)
	if u.IsAdmin() {
		t.printf(" [admin]")
	}
	t.printf("\n")

	if stats, err := t.session.Stats(ctx); err == nil {
		t.printf("Quizzes: %d · Average: %.1f%% · Best: %d%%\n", stats.TotalQuizzesTaken, stats.AverageScore, stats.BestScore)
	}
	for i, r := range u.History {
		marker := ""
		if r.HasDetails() {
			marker = " *"
		}
		t.printf("  %2d. %s  %-30s %-6s %3d%%%s\n", i+1, r.Date.Format("2006-01-02"), r.Topic, r.Difficulty, r.ScorePercentage, marker)
	}
	if quizzes, err := t.session.GeneratedQuizzes(ctx); err == nil && len(quizzes) > 0 {
		t.printf("My quizzes:\n")
		for _, q := range quizzes {
			t.printf("  - %-30s %-6s %d questions\n", q.Topic, q.Difficulty, len(q.Questions))
		}
	}

	choice, err := t.prompt("[#] review  [e]dit  [h]ome  [a]dmin  [l]ogout  [q]uit > ")
	if err != nil {
		return err
	}
	if n, convErr := strconv.Atoi(choice); convErr == nil {
		if n < 1 || n > len(u.History) {
			t.printf("No such quiz.\n")
			return nil
		}
		if !t.session.Review(&u.History[n-1]) {
			t.printf("Answer details are not available for this quiz.\n")
		}
		return nil
	}
	if strings.ToLower(choice) == "e" {
		return t.editProfile(ctx)
	}
	_, err = t.command(ctx, choice)
	return err
}

func (t *terminal) editProfile(ctx context.Context) error {
	var update models.ProfileUpdate
	fields := []struct {
		label string
		dst   *string
	}{
		{"New name (blank to keep): ", &update.Name},
		{"New email (blank to keep): ", &update.Email},
		{"New password (blank to keep): ", &update.Password},
		{"Avatar image path (blank to keep): ", &update.AvatarPath},
	}
	for _, f := range fields {
		v, err := t.prompt(f.label)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	if err := t.session.UpdateProfile(ctx, update); err != nil {
		t.fail(err)
		return nil
	}
	t.printf("Profile updated.\n")
	return nil
}

func (t *terminal) admin(ctx context.Context, snap service.Snapshot) error {
	dash, err := t.session.AdminDashboard(ctx)
	if err != nil {
		t.fail(err)
	} else {
		t.printf("\nUsers: %d · Quizzes: %d · Attempts: %d · Average: %d%%\n", dash.TotalUsers, dash.TotalQuizzes, dash.TotalAttempts, dash.AverageScore)
		t.printf("Recent attempts:\n")
		for _, a := range dash.RecentAttempts {
			t.printf("  %-20s %-30s %3d%%\n", a.UserName, a.Result.Topic, a.Result.ScorePercentage)
		}
		t.printf("Top performers:\n")
		for _, p := range dash.TopPerformers {
			t.printf("  %-20s best %3d%%  avg %.1f%%\n", p.UserName, p.BestScore, p.Average)
		}
	}

	choice, err := t.prompt("[h]ome  [p]rofile  [l]ogout  [q]uit > ")
	if err != nil {
		return err
	}
	if handled, err := t.command(ctx, choice); handled || err != nil {
		return err
	}
	return nil
}

func (t *terminal) review(ctx context.Context, snap service.Snapshot) error {
	rv := snap.Review
	if rv != nil {
		t.printf("\nReview: %s · %s · %d%%\n", rv.Topic, rv.Date.Format("2006-01-02"), rv.ScorePercentage)
		for i, item := range rv.Items {
			t.printf("\n%d. %s\n", i+1, item.Question.Question)
			for j, opt := range item.Question.Options {
				mark := "   "
				switch {
				case j == item.Question.CorrectIndex:
					mark = " ✓ "
				case j == item.SelectedOption:
					mark = " ✗ "
				}
				t.printf("%s%d) %s\n", mark, j+1, opt)
			}
			if item.SelectedOption < 0 {
				t.printf("   (not answered)\n")
			}
			if item.Question.Explanation != "" {
				t.printf("   %s\n", item.Question.Explanation)
			}
		}
	}

	if _, err := t.prompt("\nPress Enter to go back > "); err != nil {
		return err
	}
	t.fail(t.session.Navigate(ctx, models.ViewProfile))
	return nil
}
