package repository

import (
	"edutheo_backend/internal/model"
	"testing"

	"gorm.io/gorm"
)

func seedTagged(t *testing.T, db *gorm.DB, id string, chapter int, difficulty model.DifficultyLevel, tags ...string) *model.Question {
	t.Helper()
	q := &model.Question{
		QuestionID:      id,
		QuestionText:    "text",
		Options:         model.JSONMap{"A": "1", "B": "2"},
		CorrectAnswer:   "A",
		ChapterName:     "Chapter",
		ChapterNumber:   chapter,
		DifficultyLevel: difficulty,
		QuestionType:    "multiple_choice",
		Tags:            tags,
		IsActive:        true,
	}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return q
}

func TestFilter_TagMatchIsOrWithinAndAcrossDimensions(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepository(db)

	seedTagged(t, db, "PHY09-CH01-MCQ0001", 1, model.DifficultyEasy, "forces")
	seedTagged(t, db, "PHY09-CH01-MCQ0002", 1, model.DifficultyHard, "energy")
	seedTagged(t, db, "PHY09-CH02-MCQ0001", 2, model.DifficultyEasy, "forces")

	questions, total, err := repo.Filter(model.QuestionFilter{
		ChapterNumbers: []int{1},
		Tags:           []string{"forces", "energy"},
		Limit:          10,
	})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if total != 2 {
		t.Errorf("got total %d, want 2", total)
	}
	for _, q := range questions {
		if q.ChapterNumber != 1 {
			t.Errorf("chapter filter leaked: got chapter %d", q.ChapterNumber)
		}
	}
}

func TestFilter_InactiveExcluded(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepository(db)

	q := seedTagged(t, db, "PHY09-CH01-MCQ0001", 1, model.DifficultyEasy)
	if err := repo.SetActive(q.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}

	_, total, err := repo.Filter(model.QuestionFilter{Limit: 10})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if total != 0 {
		t.Errorf("got total %d, want 0", total)
	}
	if _, err := repo.FindByQuestionID(q.QuestionID); err == nil {
		t.Error("expected lookup of inactive question to fail")
	}
}

func TestAllTags_Union(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepository(db)

	seedTagged(t, db, "PHY09-CH01-MCQ0001", 1, model.DifficultyEasy, "forces", "vectors")
	seedTagged(t, db, "PHY09-CH01-MCQ0002", 1, model.DifficultyEasy, "forces", "energy")

	tags, err := repo.AllTags()
	if err != nil {
		t.Fatalf("all tags: %v", err)
	}
	want := map[string]bool{"forces": true, "vectors": true, "energy": true}
	if len(tags) != len(want) {
		t.Fatalf("got %v, want 3 distinct tags", tags)
	}
	for _, tag := range tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
	}
}

func TestChapterSummary_CountsByDifficulty(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepository(db)

	seedTagged(t, db, "PHY09-CH01-MCQ0001", 1, model.DifficultyEasy)
	seedTagged(t, db, "PHY09-CH01-MCQ0002", 1, model.DifficultyHard)
	seedTagged(t, db, "PHY09-CH02-MCQ0001", 2, model.DifficultyMedium)

	summary, err := repo.ChapterSummary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("got %d chapters, want 2", len(summary))
	}
	ch1 := summary[0]
	if ch1.ChapterNumber != 1 || ch1.TotalQuestions != 2 || ch1.EasyQuestions != 1 || ch1.HardQuestions != 1 {
		t.Errorf("chapter 1 summary wrong: %+v", ch1)
	}
}
