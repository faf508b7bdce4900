package service

import (
	"edutheo_backend/internal/model"
	"edutheo_backend/internal/repository"
	"edutheo_backend/pkg/database"
	"edutheo_backend/pkg/logger"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testEnv struct {
	db        *gorm.DB
	users     *repository.UserRepository
	questions *repository.QuestionRepository
	activity  *repository.ActivityRepository
	marks     *repository.MarkRepository
	analytics *AnalyticsService
	question  *QuestionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		db:        db,
		users:     repository.NewUserRepository(db),
		questions: repository.NewQuestionRepository(db),
		activity:  repository.NewActivityRepository(db),
		marks:     repository.NewMarkRepository(db),
	}
	env.analytics = NewAnalyticsService(env.activity, env.questions, nil)
	env.question = NewQuestionService(env.questions, env.activity, env.marks, env.analytics, nil)
	return env
}

func (e *testEnv) seedUser(t *testing.T, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		IsActive: true,
		Tier:     model.TierBase,
	}
	if err := e.users.Create(user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

type questionSpec struct {
	id           string
	text         string
	chapter      int
	chapterName  string
	difficulty   model.DifficultyLevel
	explanations model.JSONMap
	tags         model.JSONList
}

func (e *testEnv) seedQuestion(t *testing.T, spec questionSpec) *model.Question {
	t.Helper()
	if spec.text == "" {
		spec.text = "What is the SI unit of force?"
	}
	if spec.chapterName == "" {
		spec.chapterName = "Laws of Motion"
	}
	if spec.difficulty == "" {
		spec.difficulty = model.DifficultyEasy
	}
	q := &model.Question{
		QuestionID:      spec.id,
		QuestionText:    spec.text,
		Options:         model.JSONMap{"A": "Joule", "B": "Newton", "C": "Watt", "D": "Pascal"},
		CorrectAnswer:   "B",
		Explanations:    spec.explanations,
		ChapterName:     spec.chapterName,
		ChapterNumber:   spec.chapter,
		DifficultyLevel: spec.difficulty,
		QuestionType:    "multiple_choice",
		Tags:            spec.tags,
		IsActive:        true,
	}
	if err := e.questions.Create(q); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return q
}

func (e *testEnv) recordAnswer(t *testing.T, userID, questionID uint, correct bool, timeSpent int, completedAt time.Time) {
	t.Helper()
	answer := "B"
	if !correct {
		answer = "A"
	}
	activity := &model.UserActivity{
		UserID:      userID,
		QuestionID:  questionID,
		UserAnswer:  &answer,
		IsCorrect:   &correct,
		TimeSpent:   &timeSpent,
		CompletedAt: completedAt,
	}
	if err := e.activity.Record(activity); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func daysAgo(n int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -n)
}
