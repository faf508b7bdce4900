package repository

import (
	"edutheo_backend/internal/model"
	"edutheo_backend/pkg/database"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// A single connection keeps every statement on the same in-memory db.
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		IsActive: true,
		Tier:     model.TierBase,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedQuestion(t *testing.T, db *gorm.DB, questionID string, chapter int) *model.Question {
	t.Helper()
	q := &model.Question{
		QuestionID:      questionID,
		QuestionText:    "What is the SI unit of force?",
		Options:         model.JSONMap{"A": "Joule", "B": "Newton", "C": "Watt", "D": "Pascal"},
		CorrectAnswer:   "B",
		ChapterName:     "Laws of Motion",
		ChapterNumber:   chapter,
		DifficultyLevel: model.DifficultyEasy,
		QuestionType:    "multiple_choice",
		IsActive:        true,
	}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return q
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func at(daysAgo int) time.Time { return time.Now().UTC().AddDate(0, 0, -daysAgo) }

func recordAnswer(t *testing.T, repo *ActivityRepository, userID, questionID uint, correct bool, completedAt time.Time) *model.UserActivity {
	t.Helper()
	activity := &model.UserActivity{
		UserID:      userID,
		QuestionID:  questionID,
		UserAnswer:  strPtr("B"),
		IsCorrect:   boolPtr(correct),
		TimeSpent:   intPtr(30),
		CompletedAt: completedAt,
	}
	if err := repo.Record(activity); err != nil {
		t.Fatalf("record: %v", err)
	}
	return activity
}
