package repository

import (
	"edutheo_backend/internal/model"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// roundTo rounds to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

// Record inserts an activity, assigning attempt_number = max+1 for the
// (user, question) pair inside one transaction. The existing rows for the
// pair are read under an exclusive lock so two concurrent submissions
// cannot observe the same maximum.
func (r *ActivityRepository) Record(activity *model.UserActivity) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&model.UserActivity{}).
			Where("user_id = ? AND question_id = ?", activity.UserID, activity.QuestionID)
		// sqlite serializes writers itself and rejects FOR UPDATE.
		if tx.Dialector.Name() == "mysql" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var maxAttempt int
		err := query.Select("COALESCE(MAX(attempt_number), 0)").Scan(&maxAttempt).Error
		if err != nil {
			return err
		}

		activity.AttemptNumber = maxAttempt + 1
		return tx.Create(activity).Error
	})
}

// ListByUser returns the user's activities joined to question metadata,
// oldest first.
func (r *ActivityRepository) ListByUser(userID uint) ([]model.UserActivity, error) {
	var activities []model.UserActivity
	err := r.DB.Where("user_id = ?", userID).
		Order("completed_at ASC, id ASC").
		Find(&activities).Error
	return activities, err
}

// JoinedRow carries the activity plus its question's catalog fields.
type JoinedRow struct {
	Activity model.UserActivity
	Question model.Question
}

// ListJoinedByUser loads activities with their questions, oldest first.
// Two queries instead of a join keeps the json columns scanning through
// their Valuer types.
func (r *ActivityRepository) ListJoinedByUser(userID uint) ([]JoinedRow, error) {
	activities, err := r.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, nil
	}

	idSet := make(map[uint]bool)
	var ids []uint
	for _, a := range activities {
		if !idSet[a.QuestionID] {
			idSet[a.QuestionID] = true
			ids = append(ids, a.QuestionID)
		}
	}

	var questions []model.Question
	if err := r.DB.Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	rows := make([]JoinedRow, 0, len(activities))
	for _, a := range activities {
		rows = append(rows, JoinedRow{Activity: a, Question: byID[a.QuestionID]})
	}
	return rows, nil
}

// AttemptedQuestionIDs returns the distinct question ids the user has
// submitted at least one answer for.
func (r *ActivityRepository) AttemptedQuestionIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.UserActivity{}).
		Where("user_id = ?", userID).
		Distinct("question_id").
		Pluck("question_id", &ids).Error
	return ids, err
}

// WrongQuestionIDs returns distinct question ids with at least one
// incorrect submission.
func (r *ActivityRepository) WrongQuestionIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.UserActivity{}).
		Where("user_id = ? AND is_correct = ?", userID, false).
		Distinct("question_id").
		Pluck("question_id", &ids).Error
	return ids, err
}

// DeleteByUser purges all of a user's activity rows (analytics reset).
func (r *ActivityRepository) DeleteByUser(userID uint) (int64, error) {
	res := r.DB.Unscoped().Where("user_id = ?", userID).Delete(&model.UserActivity{})
	return res.RowsAffected, res.Error
}

// Leaderboard aggregates per-user totals for active users with at least
// one attempt, best accuracy first, attempts as tie-break.
func (r *ActivityRepository) Leaderboard(limit int) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	err := r.DB.Model(&model.UserActivity{}).
		Select(`users.id AS user_id,
			users.username,
			users.full_name,
			COUNT(user_activities.id) AS total_questions,
			SUM(CASE WHEN user_activities.is_correct THEN 1 ELSE 0 END) AS correct_answers,
			SUM(CASE WHEN user_activities.is_correct THEN 1 ELSE 0 END) * 100.0 / COUNT(user_activities.id) AS accuracy,
			COALESCE(SUM(user_activities.time_spent), 0) AS total_time`).
		Joins("JOIN users ON users.id = user_activities.user_id").
		Where("users.is_active = ?", true).
		Group("users.id, users.username, users.full_name").
		Having("COUNT(user_activities.id) > 0").
		Order("accuracy DESC, total_questions DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Accuracy = roundTo(entries[i].Accuracy, 1)
	}
	return entries, nil
}
