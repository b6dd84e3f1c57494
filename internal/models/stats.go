package models

import (
	"math"
	"sort"
)

// UserStats summarizes one user's attempts
type UserStats struct {
	TotalQuizzesTaken int     `json:"total_quizzes_taken"`
	AverageScore      float64 `json:"average_score"`
	BestScore         int     `json:"best_score"`
}

// AttemptSummary is one row of the admin activity feed
type AttemptSummary struct {
	UserName string     `json:"user_name"`
	Result   QuizResult `json:"result"`
}

// Performer is one row of the admin leaderboard
type Performer struct {
	UserName  string  `json:"user_name"`
	BestScore int     `json:"best_score"`
	Average   float64 `json:"average_score"`
}

// AdminDashboard aggregates usage across all users
type AdminDashboard struct {
	TotalUsers     int              `json:"total_users"`
	TotalQuizzes   int              `json:"total_quizzes"`
	TotalAttempts  int              `json:"total_attempts"`
	AverageScore   int              `json:"average_score"`
	RecentAttempts []AttemptSummary `json:"recent_attempts"`
	TopPerformers  []Performer      `json:"top_performers"`
}

// ComputeUserStats derives stats from a history list
func ComputeUserStats(history []QuizResult) UserStats {
	stats := UserStats{TotalQuizzesTaken: len(history)}
	if len(history) == 0 {
		return stats
	}
	sum := 0
	for _, r := range history {
		sum += r.ScorePercentage
		if r.ScorePercentage > stats.BestScore {
			stats.BestScore = r.ScorePercentage
		}
	}
	stats.AverageScore = float64(sum) / float64(len(history))
	return stats
}

// ComputeAdminDashboard aggregates a user directory. limit caps the recent and top lists.
func ComputeAdminDashboard(users []User, limit int) AdminDashboard {
	dash := AdminDashboard{TotalUsers: len(users)}
	sum := 0
	for _, u := range users {
		for _, r := range u.History {
			dash.TotalQuizzes++
			sum += r.ScorePercentage
			dash.RecentAttempts = append(dash.RecentAttempts, AttemptSummary{UserName: u.Name, Result: r})
		}
		if len(u.History) > 0 {
			s := ComputeUserStats(u.History)
			dash.TopPerformers = append(dash.TopPerformers, Performer{
				UserName:  u.Name,
				BestScore: s.BestScore,
				Average:   s.AverageScore,
			})
		}
	}
	dash.TotalAttempts = dash.TotalQuizzes
	if dash.TotalQuizzes > 0 {
		dash.AverageScore = int(math.Round(float64(sum) / float64(dash.TotalQuizzes)))
	}

	sort.SliceStable(dash.RecentAttempts, func(i, j int) bool {
		return dash.RecentAttempts[i].Result.Date.After(dash.RecentAttempts[j].Result.Date)
	})
	sort.SliceStable(dash.TopPerformers, func(i, j int) bool {
		return dash.TopPerformers[i].BestScore > dash.TopPerformers[j].BestScore
	})
	if limit > 0 {
		if len(dash.RecentAttempts) > limit {
			dash.RecentAttempts = dash.RecentAttempts[:limit]
		}
		if len(dash.TopPerformers) > limit {
			dash.TopPerformers = dash.TopPerformers[:limit]
		}
	}
	return dash
}
