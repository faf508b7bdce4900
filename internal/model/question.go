package model

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

// Question is an immutable-after-import catalog entry. Only IsActive is
// mutated post-creation (soft delete).
type Question struct {
	BaseModel
	QuestionID      string          `gorm:"size:50;unique;index;not null" json:"question_id"` // e.g. PHY09-CH01-MCQ0001
	QuestionText    string          `gorm:"type:text;not null" json:"question_text"`
	Options         JSONMap         `gorm:"type:json;not null" json:"options"`
	CorrectAnswer   string          `gorm:"size:1;not null" json:"correct_answer"`
	Explanations    JSONMap         `gorm:"type:json" json:"explanations,omitempty"`
	Hints           JSONList        `gorm:"type:json" json:"hints,omitempty"`
	ChapterName     string          `gorm:"size:100;not null" json:"chapter_name"`
	ChapterNumber   int             `gorm:"not null;index" json:"chapter_number"`
	DifficultyLevel DifficultyLevel `gorm:"size:20;not null" json:"difficulty_level"`
	QuestionType    string          `gorm:"size:30;default:'multiple_choice'" json:"question_type"`
	Source          string          `gorm:"size:100" json:"source,omitempty"`
	Language        string          `gorm:"size:10;default:'English'" json:"language"`
	Grade           string          `gorm:"size:10;default:'9th'" json:"grade"`
	Subject         string          `gorm:"size:20;default:'Physics'" json:"subject"`
	Tags            JSONList        `gorm:"type:json" json:"tags,omitempty"`
	IsActive        bool            `gorm:"default:true;index" json:"is_active"`
}

func (Question) TableName() string {
	return "questions"
}

// PracticeQuestion is the client-facing shape with the correct answer and
// explanations stripped.
type PracticeQuestion struct {
	ID              uint            `json:"id"`
	QuestionID      string          `json:"question_id"`
	QuestionText    string          `json:"question_text"`
	Options         JSONMap         `json:"options"`
	Hints           JSONList        `json:"hints,omitempty"`
	ChapterName     string          `json:"chapter_name"`
	ChapterNumber   int             `json:"chapter_number"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
	Tags            JSONList        `json:"tags,omitempty"`
}

func (q *Question) ToPractice() PracticeQuestion {
	return PracticeQuestion{
		ID:              q.ID,
		QuestionID:      q.QuestionID,
		QuestionText:    q.QuestionText,
		Options:         q.Options,
		Hints:           q.Hints,
		ChapterName:     q.ChapterName,
		ChapterNumber:   q.ChapterNumber,
		DifficultyLevel: q.DifficultyLevel,
		Tags:            q.Tags,
	}
}

// QuestionFilter is a conjunction across dimensions; within Tags a question
// matches if it carries at least one of the requested tags.
type QuestionFilter struct {
	ChapterNumbers   []int    `json:"chapter_numbers"`
	DifficultyLevels []string `json:"difficulty_levels"`
	QuestionTypes    []string `json:"question_types"`
	Tags             []string `json:"tags"`
	Limit            int      `json:"limit"`
	Offset           int      `json:"offset"`
}

type ChapterSummary struct {
	ChapterNumber   int    `json:"chapter_number"`
	ChapterName     string `json:"chapter_name"`
	TotalQuestions  int    `json:"total_questions"`
	EasyQuestions   int    `json:"easy_questions"`
	MediumQuestions int    `json:"medium_questions"`
	HardQuestions   int    `json:"hard_questions"`
}
