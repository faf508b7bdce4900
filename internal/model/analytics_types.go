package model

// Aggregated analytics shapes returned by the stats endpoints. All
// percentage fields are computed at full precision and rounded for
// presentation; any 0/0 division yields 0.

type UserStats struct {
	TotalQuestionsAttempted int            `json:"total_questions_attempted"`
	CorrectAnswers          int            `json:"correct_answers"`
	AccuracyPercentage      float64        `json:"accuracy_percentage"`
	TotalTimeSpent          int            `json:"total_time_spent"` // seconds
	AverageTimePerQuestion  float64        `json:"average_time_per_question"`
	QuestionsByDifficulty   map[string]int `json:"questions_by_difficulty"`
	QuestionsByChapter      map[string]int `json:"questions_by_chapter"`
}

type ChapterProgress struct {
	ChapterNumber      int     `json:"chapter_number"`
	ChapterName        string  `json:"chapter_name"`
	TotalQuestions     int     `json:"total_questions"`
	AttemptedQuestions int     `json:"attempted_questions"`
	CorrectAnswers     int     `json:"correct_answers"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
}

// RealTimeStats is today's snapshot pushed over the event channel after
// each recorded answer.
type RealTimeStats struct {
	QuestionsToday     int     `json:"questions_today"`
	CorrectToday       int     `json:"correct_today"`
	AccuracyToday      float64 `json:"accuracy_today"`
	TimeSpentToday     int     `json:"time_spent_today"`
	CurrentStreak      int     `json:"current_streak"`
	TotalAttempted     int     `json:"total_attempted"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
}

type TrendPoint struct {
	Date               string  `json:"date"` // YYYY-MM-DD
	Attempts           int     `json:"attempts"`
	Correct            int     `json:"correct"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
	TimeSpent          int     `json:"time_spent"`
	AvgTimePerQuestion float64 `json:"avg_time_per_question"`
}

type ChapterAccuracy struct {
	ChapterNumber      int     `json:"chapter_number"`
	ChapterName        string  `json:"chapter_name"`
	Attempts           int     `json:"attempts"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
}

type DetailedInsights struct {
	WindowDays           int               `json:"window_days"`
	TotalPracticeTime    int               `json:"total_practice_time"` // seconds
	AverageSessionLength float64           `json:"average_session_length"`
	PeakPerformanceHour  *int              `json:"peak_performance_hour,omitempty"` // 0-23, nil when no hour qualifies
	ImprovementAreas     []ChapterAccuracy `json:"improvement_areas"`
	Strengths            []ChapterAccuracy `json:"strengths"`
	MostActiveDay        string            `json:"most_active_day"`
	PreferredDifficulty  string            `json:"preferred_difficulty"`
	ConsistencyScore     float64           `json:"consistency_score"`
}

type RecentActivityItem struct {
	QuestionID      string `json:"question_id"`
	QuestionText    string `json:"question_text"`
	ChapterName     string `json:"chapter_name"`
	DifficultyLevel string `json:"difficulty_level"`
	UserAnswer      *string `json:"user_answer"`
	IsCorrect       *bool   `json:"is_correct"`
	TimeSpent       *int    `json:"time_spent"`
	CompletedAt     string  `json:"completed_at"`
}

type LeaderboardEntry struct {
	UserID         uint    `json:"user_id"`
	Username       string  `json:"username"`
	FullName       string  `json:"full_name"`
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	Accuracy       float64 `json:"accuracy"`
	TotalTime      int     `json:"total_time"`
	Rank           int     `json:"rank"`
}

type AnalyticsSnapshot struct {
	UserStats       UserStats            `json:"user_stats"`
	ChapterProgress []ChapterProgress    `json:"chapter_progress"`
	RecentActivity  []RecentActivityItem `json:"recent_activity"`
}
