package repository

import (
	"edutheo_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.Where("id = ? AND is_active = ?", id, true).First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// FindByQuestionID looks up by the external catalog id (PHY09-CH01-MCQ0001).
func (r *QuestionRepository) FindByQuestionID(questionID string) (*model.Question, error) {
	var q model.Question
	err := r.DB.Where("question_id = ? AND is_active = ?", questionID, true).First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) FindByIDs(ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var qs []model.Question
	err := r.DB.Where("id IN ? AND is_active = ?", ids, true).Find(&qs).Error
	return qs, err
}

// applyFilter builds the conjunction over filter dimensions. Tag matching
// is OR within the tag list: the json column is matched textually the same
// way the import wrote it.
func (r *QuestionRepository) applyFilter(filter model.QuestionFilter) *gorm.DB {
	query := r.DB.Model(&model.Question{}).Where("is_active = ?", true)

	if len(filter.ChapterNumbers) > 0 {
		query = query.Where("chapter_number IN ?", filter.ChapterNumbers)
	}
	if len(filter.DifficultyLevels) > 0 {
		query = query.Where("difficulty_level IN ?", filter.DifficultyLevels)
	}
	if len(filter.QuestionTypes) > 0 {
		query = query.Where("question_type IN ?", filter.QuestionTypes)
	}
	if len(filter.Tags) > 0 {
		tagQuery := r.DB.Where("tags LIKE ?", `%"`+filter.Tags[0]+`"%`)
		for _, tag := range filter.Tags[1:] {
			tagQuery = tagQuery.Or("tags LIKE ?", `%"`+tag+`"%`)
		}
		query = query.Where(tagQuery)
	}

	return query
}

// Filter returns one page of matches plus the unpaginated total.
func (r *QuestionRepository) Filter(filter model.QuestionFilter) ([]model.Question, int64, error) {
	query := r.applyFilter(filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var questions []model.Question
	err := query.Offset(filter.Offset).Limit(filter.Limit).Find(&questions).Error
	if err != nil {
		return nil, 0, err
	}

	return questions, total, nil
}

// FindMatching returns every match, optionally excluding the given question
// ids. Random selection happens in the service layer.
func (r *QuestionRepository) FindMatching(filter model.QuestionFilter, excludeIDs []uint) ([]model.Question, error) {
	query := r.applyFilter(filter)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}

	var questions []model.Question
	err := query.Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) CountActive() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (r *QuestionRepository) ChapterSummary() ([]model.ChapterSummary, error) {
	var rows []model.ChapterSummary
	err := r.DB.Model(&model.Question{}).
		Select(`chapter_number,
			chapter_name,
			COUNT(*) AS total_questions,
			SUM(CASE WHEN difficulty_level = 'Easy' THEN 1 ELSE 0 END) AS easy_questions,
			SUM(CASE WHEN difficulty_level = 'Medium' THEN 1 ELSE 0 END) AS medium_questions,
			SUM(CASE WHEN difficulty_level = 'Hard' THEN 1 ELSE 0 END) AS hard_questions`).
		Where("is_active = ?", true).
		Group("chapter_number, chapter_name").
		Order("chapter_number").
		Scan(&rows).Error
	return rows, err
}

// AllTags unions the per-question tag lists in memory; the json column has
// no native set semantics.
func (r *QuestionRepository) AllTags() ([]string, error) {
	var questions []model.Question
	err := r.DB.Select("tags").
		Where("is_active = ? AND tags IS NOT NULL", true).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var tags []string
	for _, q := range questions {
		for _, tag := range q.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags, nil
}

// SetActive is the only mutation allowed on a catalog entry.
func (r *QuestionRepository) SetActive(id uint, active bool) error {
	return r.DB.Model(&model.Question{}).Where("id = ?", id).
		Update("is_active", active).Error
}
