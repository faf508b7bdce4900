package service

import (
	"edutheo_backend/internal/model"
	"edutheo_backend/internal/repository"
	"edutheo_backend/pkg/logger"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

const defaultInsightsWindow = 30

type AnalyticsService struct {
	ActivityRepo *repository.ActivityRepository
	QuestionRepo *repository.QuestionRepository
	Hub          *EventHub
}

func NewAnalyticsService(activityRepo *repository.ActivityRepository, questionRepo *repository.QuestionRepository, hub *EventHub) *AnalyticsService {
	return &AnalyticsService{
		ActivityRepo: activityRepo,
		QuestionRepo: questionRepo,
		Hub:          hub,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// percentage computes n/d*100, with 0/0 defined as 0.
func percentage(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

// GetUserStats aggregates the user's full history: totals, accuracy, time,
// and counts by difficulty and chapter.
func (s *AnalyticsService) GetUserStats(userID uint) (*model.UserStats, error) {
	rows, err := s.ActivityRepo.ListJoinedByUser(userID)
	if err != nil {
		return nil, err
	}

	stats := &model.UserStats{
		QuestionsByDifficulty: map[string]int{},
		QuestionsByChapter:    map[string]int{},
	}

	for _, row := range rows {
		stats.TotalQuestionsAttempted++
		if row.Activity.IsCorrect != nil && *row.Activity.IsCorrect {
			stats.CorrectAnswers++
		}
		if row.Activity.TimeSpent != nil {
			stats.TotalTimeSpent += *row.Activity.TimeSpent
		}
		stats.QuestionsByDifficulty[string(row.Question.DifficultyLevel)]++
		chapterKey := fmt.Sprintf("Ch%d: %s", row.Question.ChapterNumber, row.Question.ChapterName)
		stats.QuestionsByChapter[chapterKey]++
	}

	stats.AccuracyPercentage = round2(percentage(stats.CorrectAnswers, stats.TotalQuestionsAttempted))
	if stats.TotalQuestionsAttempted > 0 {
		stats.AverageTimePerQuestion = round2(float64(stats.TotalTimeSpent) / float64(stats.TotalQuestionsAttempted))
	}

	return stats, nil
}

// GetChapterProgress reports every active chapter that has at least one
// catalog question, zero-filled for chapters the user never attempted.
func (s *AnalyticsService) GetChapterProgress(userID uint) ([]model.ChapterProgress, error) {
	chapters, err := s.QuestionRepo.ChapterSummary()
	if err != nil {
		return nil, err
	}

	rows, err := s.ActivityRepo.ListJoinedByUser(userID)
	if err != nil {
		return nil, err
	}

	type tally struct{ attempted, correct int }
	byChapter := make(map[int]*tally)
	for _, row := range rows {
		t := byChapter[row.Question.ChapterNumber]
		if t == nil {
			t = &tally{}
			byChapter[row.Question.ChapterNumber] = t
		}
		t.attempted++
		if row.Activity.IsCorrect != nil && *row.Activity.IsCorrect {
			t.correct++
		}
	}

	progress := make([]model.ChapterProgress, 0, len(chapters))
	for _, ch := range chapters {
		attempted, correct := 0, 0
		if t := byChapter[ch.ChapterNumber]; t != nil {
			attempted, correct = t.attempted, t.correct
		}
		progress = append(progress, model.ChapterProgress{
			ChapterNumber:      ch.ChapterNumber,
			ChapterName:        ch.ChapterName,
			TotalQuestions:     ch.TotalQuestions,
			AttemptedQuestions: attempted,
			CorrectAnswers:     correct,
			AccuracyPercentage: round2(percentage(correct, attempted)),
		})
	}

	return progress, nil
}

// GetRealTimeStats is today's snapshot plus the current streak: the run of
// consecutive correct answers counted from the most recent submission back,
// broken by the first answer that is not correct.
func (s *AnalyticsService) GetRealTimeStats(userID uint) (*model.RealTimeStats, error) {
	activities, err := s.ActivityRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	today := now.Format("2006-01-02")

	stats := &model.RealTimeStats{}
	totalCorrect := 0
	for _, a := range activities {
		stats.TotalAttempted++
		correct := a.IsCorrect != nil && *a.IsCorrect
		if correct {
			totalCorrect++
		}
		if a.CompletedAt.UTC().Format("2006-01-02") == today {
			stats.QuestionsToday++
			if correct {
				stats.CorrectToday++
			}
			if a.TimeSpent != nil {
				stats.TimeSpentToday += *a.TimeSpent
			}
		}
	}

	stats.AccuracyPercentage = round2(percentage(totalCorrect, stats.TotalAttempted))
	stats.AccuracyToday = round2(percentage(stats.CorrectToday, stats.QuestionsToday))
	stats.CurrentStreak = currentStreak(activities)

	return stats, nil
}

// currentStreak counts most-recent-first; rows are ordered oldest first.
func currentStreak(activities []model.UserActivity) int {
	streak := 0
	for i := len(activities) - 1; i >= 0; i-- {
		if activities[i].IsCorrect == nil || !*activities[i].IsCorrect {
			break
		}
		streak++
	}
	return streak
}

// GetTrends buckets the user's activity by completion date over the
// requested window; days without activity do not appear.
func (s *AnalyticsService) GetTrends(userID uint, days int) ([]model.TrendPoint, error) {
	if days <= 0 {
		days = defaultInsightsWindow
	}

	activities, err := s.ActivityRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	buckets := make(map[string]*model.TrendPoint)
	var order []string

	for _, a := range activities {
		if a.CompletedAt.Before(cutoff) {
			continue
		}
		date := a.CompletedAt.UTC().Format("2006-01-02")
		point := buckets[date]
		if point == nil {
			point = &model.TrendPoint{Date: date}
			buckets[date] = point
			order = append(order, date)
		}
		point.Attempts++
		if a.IsCorrect != nil && *a.IsCorrect {
			point.Correct++
		}
		if a.TimeSpent != nil {
			point.TimeSpent += *a.TimeSpent
		}
	}

	sort.Strings(order)
	trends := make([]model.TrendPoint, 0, len(order))
	for _, date := range order {
		point := buckets[date]
		point.AccuracyPercentage = round2(percentage(point.Correct, point.Attempts))
		if point.Attempts > 0 {
			point.AvgTimePerQuestion = round2(float64(point.TimeSpent) / float64(point.Attempts))
		}
		trends = append(trends, *point)
	}

	return trends, nil
}

// GetDetailedInsights derives the pattern report over the window: peak
// hour, weak and strong chapters, habits, and a consistency score.
func (s *AnalyticsService) GetDetailedInsights(userID uint, days int) (*model.DetailedInsights, error) {
	if days <= 0 {
		days = defaultInsightsWindow
	}

	rows, err := s.ActivityRepo.ListJoinedByUser(userID)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	insights := &model.DetailedInsights{
		WindowDays:       days,
		ImprovementAreas: []model.ChapterAccuracy{},
		Strengths:        []model.ChapterAccuracy{},
	}

	type tally struct{ attempts, correct int }
	var hourly [24]tally
	activeDays := make(map[string]bool)
	weekdayCounts := make(map[time.Weekday]int)
	difficultyCounts := make(map[string]int)
	type chapterTally struct {
		name              string
		attempts, correct int
	}
	chapterTallies := make(map[int]*chapterTally)

	for _, row := range rows {
		completed := row.Activity.CompletedAt.UTC()
		if completed.Before(cutoff) {
			continue
		}

		correct := row.Activity.IsCorrect != nil && *row.Activity.IsCorrect
		if row.Activity.TimeSpent != nil {
			insights.TotalPracticeTime += *row.Activity.TimeSpent
		}
		activeDays[completed.Format("2006-01-02")] = true
		weekdayCounts[completed.Weekday()]++
		difficultyCounts[string(row.Question.DifficultyLevel)]++

		h := &hourly[completed.Hour()]
		h.attempts++
		if correct {
			h.correct++
		}

		ct := chapterTallies[row.Question.ChapterNumber]
		if ct == nil {
			ct = &chapterTally{name: row.Question.ChapterName}
			chapterTallies[row.Question.ChapterNumber] = ct
		}
		ct.attempts++
		if correct {
			ct.correct++
		}
	}

	if len(activeDays) > 0 {
		insights.AverageSessionLength = round2(float64(insights.TotalPracticeTime) / float64(len(activeDays)))
	}

	// Peak hour: best accuracy among hours with at least 3 attempts.
	// Scanning 0-23 in order makes the tie-break deterministic.
	bestAccuracy := -1.0
	for hour := 0; hour < 24; hour++ {
		h := hourly[hour]
		if h.attempts < 3 {
			continue
		}
		acc := percentage(h.correct, h.attempts)
		if acc > bestAccuracy {
			bestAccuracy = acc
			peak := hour
			insights.PeakPerformanceHour = &peak
		}
	}

	var chapterNumbers []int
	for n := range chapterTallies {
		chapterNumbers = append(chapterNumbers, n)
	}
	sort.Ints(chapterNumbers)

	for _, n := range chapterNumbers {
		ct := chapterTallies[n]
		if ct.attempts < 5 {
			continue
		}
		entry := model.ChapterAccuracy{
			ChapterNumber:      n,
			ChapterName:        ct.name,
			Attempts:           ct.attempts,
			AccuracyPercentage: round2(percentage(ct.correct, ct.attempts)),
		}
		switch {
		case entry.AccuracyPercentage < 70:
			insights.ImprovementAreas = append(insights.ImprovementAreas, entry)
		case entry.AccuracyPercentage >= 85:
			insights.Strengths = append(insights.Strengths, entry)
		}
	}

	sort.SliceStable(insights.ImprovementAreas, func(i, j int) bool {
		return insights.ImprovementAreas[i].AccuracyPercentage < insights.ImprovementAreas[j].AccuracyPercentage
	})
	if len(insights.ImprovementAreas) > 3 {
		insights.ImprovementAreas = insights.ImprovementAreas[:3]
	}

	sort.SliceStable(insights.Strengths, func(i, j int) bool {
		return insights.Strengths[i].AccuracyPercentage > insights.Strengths[j].AccuracyPercentage
	})
	if len(insights.Strengths) > 3 {
		insights.Strengths = insights.Strengths[:3]
	}

	best := 0
	for day := time.Sunday; day <= time.Saturday; day++ {
		if weekdayCounts[day] > best {
			best = weekdayCounts[day]
			insights.MostActiveDay = day.String()
		}
	}

	best = 0
	for _, level := range []string{"Easy", "Medium", "Hard"} {
		if difficultyCounts[level] > best {
			best = difficultyCounts[level]
			insights.PreferredDifficulty = level
		}
	}

	insights.ConsistencyScore = round2(float64(len(activeDays)) / float64(days) * 100)

	return insights, nil
}

// GetRecentActivity returns the latest submissions joined with question
// metadata, question text truncated for list display.
func (s *AnalyticsService) GetRecentActivity(userID uint, limit int) ([]model.RecentActivityItem, error) {
	rows, err := s.ActivityRepo.ListJoinedByUser(userID)
	if err != nil {
		return nil, err
	}

	items := make([]model.RecentActivityItem, 0, limit)
	for i := len(rows) - 1; i >= 0 && len(items) < limit; i-- {
		row := rows[i]
		text := row.Question.QuestionText
		if runes := []rune(text); len(runes) > 100 {
			text = string(runes[:100]) + "..."
		}
		items = append(items, model.RecentActivityItem{
			QuestionID:      row.Question.QuestionID,
			QuestionText:    text,
			ChapterName:     row.Question.ChapterName,
			DifficultyLevel: string(row.Question.DifficultyLevel),
			UserAnswer:      row.Activity.UserAnswer,
			IsCorrect:       row.Activity.IsCorrect,
			TimeSpent:       row.Activity.TimeSpent,
			CompletedAt:     row.Activity.CompletedAt.UTC().Format(time.RFC3339),
		})
	}

	return items, nil
}

// GetSnapshot bundles stats, chapter progress and recent activity, the
// payload served to the dashboard and to the tutor's analytics tool.
func (s *AnalyticsService) GetSnapshot(userID uint) (*model.AnalyticsSnapshot, error) {
	stats, err := s.GetUserStats(userID)
	if err != nil {
		return nil, err
	}
	progress, err := s.GetChapterProgress(userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.GetRecentActivity(userID, 20)
	if err != nil {
		return nil, err
	}

	return &model.AnalyticsSnapshot{
		UserStats:       *stats,
		ChapterProgress: progress,
		RecentActivity:  recent,
	}, nil
}

func (s *AnalyticsService) GetLeaderboard(limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.ActivityRepo.Leaderboard(limit)
}

// ResetAnalytics purges the user's activity history and notifies live
// clients that the stats changed.
func (s *AnalyticsService) ResetAnalytics(userID uint) (int64, error) {
	deleted, err := s.ActivityRepo.DeleteByUser(userID)
	if err != nil {
		return 0, err
	}

	logger.Log.Info("Analytics reset", zap.Uint("userId", userID), zap.Int64("deleted", deleted))

	if s.Hub != nil {
		stats, err := s.GetRealTimeStats(userID)
		if err == nil {
			s.Hub.Broadcast(Event{Type: "stats_update", UserID: userID, Data: stats})
		}
	}

	return deleted, nil
}
