package repository

import (
	"edutheo_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsernameOrEmail(identity string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("username = ? OR email = ?", identity, identity).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateQuota persists the rolled-over daily counter and its date.
func (r *UserRepository) UpdateQuota(userID uint, queryDate time.Time, queries int) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"ai_queries_today":   queries,
		"last_ai_query_date": queryDate,
	}).Error
}

// IncrementAIQueries bumps the counter by one after a successful answer.
func (r *UserRepository) IncrementAIQueries(userID uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).
		UpdateColumn("ai_queries_today", gorm.Expr("ai_queries_today + 1")).Error
}
