package model

import "time"

// UserActivity is one answer submission. Rows are append-only; the only
// deletion path is the per-user analytics reset.
type UserActivity struct {
	BaseModel
	UserID     uint `gorm:"not null;index:idx_user_question" json:"user_id"`
	QuestionID uint `gorm:"not null;index:idx_user_question" json:"question_id"`

	UserAnswer *string `gorm:"size:1" json:"user_answer"` // nil when skipped
	IsCorrect  *bool   `json:"is_correct"`
	TimeSpent  *int    `json:"time_spent"` // seconds
	// Ordinal per (user, question), starting at 1, assigned as max+1
	// under a row lock so concurrent submissions never collide.
	AttemptNumber int       `gorm:"default:1;not null" json:"attempt_number"`
	CompletedAt   time.Time `gorm:"index" json:"completed_at"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}

// AnswerSubmission is the check_answer request body.
type AnswerSubmission struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	UserAnswer string `json:"user_answer" binding:"required"`
	TimeSpent  *int   `json:"time_spent"`
}

type AnswerResult struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
	UserAnswer    string `json:"user_answer"`
}
