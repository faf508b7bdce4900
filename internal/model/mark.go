package model

// Mark is a user's bookmark on a question, unique per
// (user, question, mark_type); re-marking updates the notes in place.
type Mark struct {
	BaseModel
	UserID     uint   `gorm:"not null;uniqueIndex:idx_user_question_type" json:"user_id"`
	QuestionID uint   `gorm:"not null;uniqueIndex:idx_user_question_type" json:"question_id"`
	MarkType   string `gorm:"size:20;default:'review';uniqueIndex:idx_user_question_type" json:"mark_type"` // review, important, difficult
	Notes      string `gorm:"type:text" json:"notes,omitempty"`
}

func (Mark) TableName() string {
	return "marks"
}

type MarkCreate struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	MarkType   string `json:"mark_type"`
	Notes      string `json:"notes"`
}
