package repository

import (
	"edutheo_backend/internal/model"
	"errors"

	"gorm.io/gorm"
)

type MarkRepository struct {
	DB *gorm.DB
}

func NewMarkRepository(db *gorm.DB) *MarkRepository {
	return &MarkRepository{DB: db}
}

// Upsert re-marks in place: the (user, question, mark_type) triple is
// unique, so an existing mark only has its notes replaced.
func (r *MarkRepository) Upsert(userID, questionID uint, markType, notes string) (*model.Mark, error) {
	var mark model.Mark
	err := r.DB.Where("user_id = ? AND question_id = ? AND mark_type = ?",
		userID, questionID, markType).First(&mark).Error

	if err == nil {
		mark.Notes = notes
		if err := r.DB.Save(&mark).Error; err != nil {
			return nil, err
		}
		return &mark, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	mark = model.Mark{
		UserID:     userID,
		QuestionID: questionID,
		MarkType:   markType,
		Notes:      notes,
	}
	if err := r.DB.Create(&mark).Error; err != nil {
		return nil, err
	}
	return &mark, nil
}

func (r *MarkRepository) ListByUser(userID uint, markType string) ([]model.Mark, error) {
	query := r.DB.Where("user_id = ?", userID)
	if markType != "" {
		query = query.Where("mark_type = ?", markType)
	}

	var marks []model.Mark
	err := query.Order("created_at DESC").Find(&marks).Error
	return marks, err
}

// Delete removes the user's mark; reports whether a row existed.
func (r *MarkRepository) Delete(userID, markID uint) (bool, error) {
	res := r.DB.Where("id = ? AND user_id = ?", markID, userID).Delete(&model.Mark{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
