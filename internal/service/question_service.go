package service

import (
	"edutheo_backend/internal/model"
	"edutheo_backend/internal/repository"
	"edutheo_backend/internal/util"
	"edutheo_backend/pkg/logger"
	"edutheo_backend/pkg/monitoring"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// FilteredQuestions is one page of practice questions plus paging facts.
type FilteredQuestions struct {
	Questions  []model.PracticeQuestion `json:"questions"`
	TotalCount int64                    `json:"total_count"`
	HasMore    bool                     `json:"has_more"`
}

type QuestionService struct {
	QuestionRepo *repository.QuestionRepository
	ActivityRepo *repository.ActivityRepository
	MarkRepo     *repository.MarkRepository
	Analytics    *AnalyticsService
	Hub          *EventHub
	rng          *rand.Rand
}

func NewQuestionService(questionRepo *repository.QuestionRepository, activityRepo *repository.ActivityRepository, markRepo *repository.MarkRepository, analytics *AnalyticsService, hub *EventHub) *QuestionService {
	return &QuestionService{
		QuestionRepo: questionRepo,
		ActivityRepo: activityRepo,
		MarkRepo:     markRepo,
		Analytics:    analytics,
		Hub:          hub,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Filter returns one page of matches in the client-facing shape. An
// offset past the end yields an empty page with the true total.
func (s *QuestionService) Filter(filter model.QuestionFilter) (*FilteredQuestions, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	questions, total, err := s.QuestionRepo.Filter(filter)
	if err != nil {
		return nil, err
	}

	practice := make([]model.PracticeQuestion, 0, len(questions))
	for i := range questions {
		practice = append(practice, questions[i].ToPractice())
	}

	return &FilteredQuestions{
		Questions:  practice,
		TotalCount: total,
		HasMore:    total > int64(filter.Offset+filter.Limit),
	}, nil
}

// Random picks uniformly among active questions matching the filter,
// excluding already-attempted ones unless the caller opts out.
func (s *QuestionService) Random(userID uint, filter model.QuestionFilter, excludeAttempted bool) (*model.PracticeQuestion, error) {
	var attempted []uint
	if excludeAttempted {
		var err error
		attempted, err = s.ActivityRepo.AttemptedQuestionIDs(userID)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := s.QuestionRepo.FindMatching(filter, attempted)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, util.ErrNoQuestionsMatch
	}

	q := candidates[s.rng.Intn(len(candidates))].ToPractice()
	return &q, nil
}

// GetByQuestionID serves the client-facing shape by catalog id.
func (s *QuestionService) GetByQuestionID(questionID string) (*model.PracticeQuestion, error) {
	q, err := s.QuestionRepo.FindByQuestionID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	practice := q.ToPractice()
	return &practice, nil
}

// CheckAnswer grades the submission case-insensitively, records the
// attempt, and pushes answer_recorded then stats_update to the user's
// live connections in that order.
func (s *QuestionService) CheckAnswer(userID uint, submission model.AnswerSubmission) (*model.AnswerResult, error) {
	answer := strings.ToUpper(strings.TrimSpace(submission.UserAnswer))
	if len(answer) != 1 {
		return nil, util.ErrInvalidAnswerKey
	}

	q, err := s.QuestionRepo.FindByID(submission.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	if !hasOptionKey(q.Options, answer) {
		return nil, util.ErrInvalidAnswerKey
	}

	correct := strings.EqualFold(answer, q.CorrectAnswer)

	activity := model.UserActivity{
		UserID:      userID,
		QuestionID:  q.ID,
		UserAnswer:  &answer,
		IsCorrect:   &correct,
		TimeSpent:   submission.TimeSpent,
		CompletedAt: time.Now().UTC(),
	}
	if err := s.ActivityRepo.Record(&activity); err != nil {
		return nil, err
	}
	monitoring.AnswerCounter.WithLabelValues(strconv.FormatBool(correct)).Inc()

	result := &model.AnswerResult{
		IsCorrect:     correct,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   pickExplanation(q, answer),
		UserAnswer:    answer,
	}

	s.broadcastAnswer(userID, q, &activity, correct)

	return result, nil
}

// pickExplanation prefers the note for the submitted option, falls back
// to the correct option's note, and omits when neither exists.
func pickExplanation(q *model.Question, answer string) string {
	if text := explanationFor(q.Explanations, answer); text != "" {
		return text
	}
	return explanationFor(q.Explanations, q.CorrectAnswer)
}

func explanationFor(explanations model.JSONMap, key string) string {
	for k, text := range explanations {
		if strings.EqualFold(k, key) {
			return text
		}
	}
	return ""
}

func (s *QuestionService) broadcastAnswer(userID uint, q *model.Question, activity *model.UserActivity, correct bool) {
	if s.Hub == nil {
		return
	}

	s.Hub.Broadcast(Event{
		Type:   "answer_recorded",
		UserID: userID,
		Data: map[string]interface{}{
			"question_id":    q.QuestionID,
			"is_correct":     correct,
			"attempt_number": activity.AttemptNumber,
			"completed_at":   activity.CompletedAt.Format(time.RFC3339),
		},
	})

	stats, err := s.Analytics.GetRealTimeStats(userID)
	if err != nil {
		logger.Log.Warn("Stats refresh after answer failed", zap.Uint("userId", userID), zap.Error(err))
		return
	}
	s.Hub.Broadcast(Event{Type: "stats_update", UserID: userID, Data: stats})
}

// Create validates and inserts a new catalog entry. The answer key must
// name one of the options; it is stored exactly as given so a fetch
// returns it unchanged.
func (s *QuestionService) Create(q *model.Question) error {
	key := strings.TrimSpace(q.CorrectAnswer)
	if len(key) != 1 || !hasOptionKey(q.Options, key) {
		return util.ErrInvalidAnswerKey
	}
	q.CorrectAnswer = key
	q.IsActive = true
	return s.QuestionRepo.Create(q)
}

// hasOptionKey matches case-insensitively; catalog entries may carry
// lowercase keys.
func hasOptionKey(options model.JSONMap, key string) bool {
	for k := range options {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// Import inserts a batch, skipping entries whose catalog id already
// exists. Returns how many were created and how many were skipped.
func (s *QuestionService) Import(questions []model.Question) (created, skipped int, err error) {
	for i := range questions {
		q := &questions[i]
		if _, lookupErr := s.QuestionRepo.FindByQuestionID(q.QuestionID); lookupErr == nil {
			skipped++
			continue
		}
		if createErr := s.Create(q); createErr != nil {
			logger.Log.Warn("Question import entry failed",
				zap.String("questionId", q.QuestionID), zap.Error(createErr))
			skipped++
			continue
		}
		created++
	}
	logger.Log.Info("Question import finished", zap.Int("created", created), zap.Int("skipped", skipped))
	return created, skipped, nil
}

func (s *QuestionService) Chapters() ([]model.ChapterSummary, error) {
	return s.QuestionRepo.ChapterSummary()
}

func (s *QuestionService) Tags() ([]string, error) {
	return s.QuestionRepo.AllTags()
}

// Topics lists the chapter names in chapter order.
func (s *QuestionService) Topics() ([]string, error) {
	chapters, err := s.QuestionRepo.ChapterSummary()
	if err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		topics = append(topics, ch.ChapterName)
	}
	return topics, nil
}

func (s *QuestionService) Count() (int64, error) {
	return s.QuestionRepo.CountActive()
}

// WrongQuestions lists the questions the user has answered incorrectly at
// least once, for review practice.
func (s *QuestionService) WrongQuestions(userID uint) ([]model.PracticeQuestion, error) {
	ids, err := s.ActivityRepo.WrongQuestionIDs(userID)
	if err != nil {
		return nil, err
	}
	return s.practiceByIDs(ids)
}

// AttemptedQuestions lists everything the user has attempted.
func (s *QuestionService) AttemptedQuestions(userID uint) ([]model.PracticeQuestion, error) {
	ids, err := s.ActivityRepo.AttemptedQuestionIDs(userID)
	if err != nil {
		return nil, err
	}
	return s.practiceByIDs(ids)
}

func (s *QuestionService) practiceByIDs(ids []uint) ([]model.PracticeQuestion, error) {
	questions, err := s.QuestionRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	practice := make([]model.PracticeQuestion, 0, len(questions))
	for i := range questions {
		practice = append(practice, questions[i].ToPractice())
	}
	return practice, nil
}

// MarkQuestion bookmarks or flags a question for the user, idempotently.
func (s *QuestionService) MarkQuestion(userID uint, req model.MarkCreate) (*model.Mark, error) {
	q, err := s.QuestionRepo.FindByID(req.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	markType := req.MarkType
	if markType == "" {
		markType = "review"
	}
	return s.MarkRepo.Upsert(userID, q.ID, markType, req.Notes)
}

func (s *QuestionService) ListMarks(userID uint, markType string) ([]model.Mark, error) {
	return s.MarkRepo.ListByUser(userID, markType)
}

func (s *QuestionService) DeleteMark(userID, markID uint) error {
	existed, err := s.MarkRepo.Delete(userID, markID)
	if err != nil {
		return err
	}
	if !existed {
		return util.ErrMarkNotFound
	}
	return nil
}
