package service

import (
	"context"
	"edutheo_backend/internal/config"
	"edutheo_backend/internal/model"
	"edutheo_backend/internal/repository"
	"edutheo_backend/internal/util"
	"edutheo_backend/pkg/logger"
	"edutheo_backend/pkg/monitoring"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Intent is the deterministic route for a tutor message. Only open
// conversation reaches the language model; lookups and analytics are
// answered straight from the database.
type Intent string

const (
	IntentLookup       Intent = "question_lookup"
	IntentAnalytics    Intent = "analytics"
	IntentConversation Intent = "conversation"
)

const maxChatAttempts = 3

const apologyReply = "I'm sorry, I'm having trouble thinking right now. " +
	"Please try asking me again in a moment."

// questionIDPattern matches catalog ids like PHY09-CH03-MCQ0042.
var questionIDPattern = regexp.MustCompile(`[A-Z]{3}\d{2}-CH\d{2}-MCQ\d{4}`)

var analyticsKeywords = []string{
	"my progress", "my stats", "my statistics", "my performance",
	"how am i doing", "my accuracy", "my score", "my results",
	"my streak", "my analytics",
}

// ClassifyIntent routes a message. A catalog id anywhere in the text wins
// over analytics keywords; everything else is open conversation.
func ClassifyIntent(message string) (Intent, string) {
	if id := questionIDPattern.FindString(message); id != "" {
		return IntentLookup, id
	}

	lower := strings.ToLower(message)
	for _, kw := range analyticsKeywords {
		if strings.Contains(lower, kw) {
			return IntentAnalytics, ""
		}
	}

	return IntentConversation, ""
}

// RollQuota resets the daily counter when the stored date is not today
// (UTC). Mutates the user in place and reports whether the caller must
// persist the rollover.
func RollQuota(user *model.User, now time.Time) bool {
	today := now.UTC().Truncate(24 * time.Hour)
	if user.LastAIQueryDate != nil && user.LastAIQueryDate.UTC().Truncate(24*time.Hour).Equal(today) {
		return false
	}
	user.AIQueriesToday = 0
	user.LastAIQueryDate = &today
	return true
}

// TutorReply is one answered tutor turn.
type TutorReply struct {
	Message          string `json:"message"`
	Intent           Intent `json:"intent"`
	RemainingQueries int    `json:"remaining_queries"` // -1 means unlimited
}

type TutorService struct {
	AI           *AIService
	UserRepo     *repository.UserRepository
	QuestionRepo *repository.QuestionRepository
	Analytics    *AnalyticsService
	Config       config.AIConfig
}

func NewTutorService(ai *AIService, userRepo *repository.UserRepository, questionRepo *repository.QuestionRepository, analytics *AnalyticsService, cfg config.AIConfig) *TutorService {
	return &TutorService{
		AI:           ai,
		UserRepo:     userRepo,
		QuestionRepo: questionRepo,
		Analytics:    analytics,
		Config:       cfg,
	}
}

func (s *TutorService) dailyLimit(user *model.User) int {
	if user.Tier == model.TierPro {
		return -1
	}
	return s.Config.BaseTierDailyLimit
}

// HandleMessage runs one tutor turn: roll the quota over, enforce the
// daily limit, route by intent and answer. The counter is incremented
// only after a successful answer, so a failed turn costs nothing.
func (s *TutorService) HandleMessage(ctx context.Context, userID uint, history []AIChatMessage, message string) (*TutorReply, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}

	now := time.Now().UTC()
	if RollQuota(user, now) {
		if err := s.UserRepo.UpdateQuota(user.ID, *user.LastAIQueryDate, user.AIQueriesToday); err != nil {
			return nil, err
		}
	}

	limit := s.dailyLimit(user)
	if limit >= 0 && user.AIQueriesToday >= limit {
		monitoring.AIQueryCounter.WithLabelValues("quota", "rejected").Inc()
		return nil, util.ErrDailyQueryLimit
	}

	intent, questionID := ClassifyIntent(message)

	var reply string
	switch intent {
	case IntentLookup:
		reply, err = s.answerLookup(questionID)
	case IntentAnalytics:
		reply, err = s.answerAnalytics(userID)
	default:
		reply, err = s.answerConversation(ctx, history, message)
	}

	if err != nil {
		monitoring.AIQueryCounter.WithLabelValues(string(intent), "failure").Inc()
		logger.Log.Warn("Tutor turn failed",
			zap.Uint("userId", userID), zap.String("intent", string(intent)), zap.Error(err))
		return &TutorReply{
			Message:          apologyReply,
			Intent:           intent,
			RemainingQueries: remaining(limit, user.AIQueriesToday),
		}, nil
	}

	if err := s.UserRepo.IncrementAIQueries(user.ID); err != nil {
		logger.Log.Error("Quota increment failed", zap.Uint("userId", userID), zap.Error(err))
	} else {
		user.AIQueriesToday++
	}
	monitoring.AIQueryCounter.WithLabelValues(string(intent), "success").Inc()

	return &TutorReply{
		Message:          reply,
		Intent:           intent,
		RemainingQueries: remaining(limit, user.AIQueriesToday),
	}, nil
}

// QuotaStatus reports the daily allowance without consuming a query.
// Limit and Remaining are -1 for unmetered tiers.
type QuotaStatus struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

func (s *TutorService) Quota(userID uint) (*QuotaStatus, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}

	if RollQuota(user, time.Now().UTC()) {
		if err := s.UserRepo.UpdateQuota(user.ID, *user.LastAIQueryDate, user.AIQueriesToday); err != nil {
			return nil, err
		}
	}

	limit := s.dailyLimit(user)
	return &QuotaStatus{
		Limit:     limit,
		Used:      user.AIQueriesToday,
		Remaining: remaining(limit, user.AIQueriesToday),
	}, nil
}

func remaining(limit, used int) int {
	if limit < 0 {
		return -1
	}
	if used >= limit {
		return 0
	}
	return limit - used
}

// answerLookup renders the question without revealing the correct answer.
func (s *TutorService) answerLookup(questionID string) (string, error) {
	q, err := s.QuestionRepo.FindByQuestionID(questionID)
	if err != nil {
		return fmt.Sprintf("I couldn't find a question with ID %s. "+
			"Please check the ID and try again.", questionID), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's question %s from Chapter %d (%s):\n\n%s\n\n",
		q.QuestionID, q.ChapterNumber, q.ChapterName, q.QuestionText)

	keys := make([]string, 0, len(q.Options))
	for k := range q.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s) %s\n", k, q.Options[k])
	}

	fmt.Fprintf(&b, "\nDifficulty: %s. Give it a try and submit your answer!", q.DifficultyLevel)
	return b.String(), nil
}

// answerAnalytics summarizes the user's standing in plain language.
func (s *TutorService) answerAnalytics(userID uint) (string, error) {
	snapshot, err := s.Analytics.GetSnapshot(userID)
	if err != nil {
		return "", err
	}

	stats := snapshot.UserStats
	if stats.TotalQuestionsAttempted == 0 {
		return "You haven't attempted any questions yet. " +
			"Try a few practice questions and I'll track your progress!", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's how you're doing:\n\n")
	fmt.Fprintf(&b, "- Questions attempted: %d\n", stats.TotalQuestionsAttempted)
	fmt.Fprintf(&b, "- Correct answers: %d (%.1f%% accuracy)\n", stats.CorrectAnswers, stats.AccuracyPercentage)
	fmt.Fprintf(&b, "- Total practice time: %d minutes\n", stats.TotalTimeSpent/60)

	var weakest *model.ChapterProgress
	for i := range snapshot.ChapterProgress {
		ch := &snapshot.ChapterProgress[i]
		if ch.AttemptedQuestions == 0 {
			continue
		}
		if weakest == nil || ch.AccuracyPercentage < weakest.AccuracyPercentage {
			weakest = ch
		}
	}
	if weakest != nil && weakest.AccuracyPercentage < 70 {
		fmt.Fprintf(&b, "\nChapter %d (%s) could use some attention, your accuracy there is %.1f%%. "+
			"Want to practice a few questions from it?", weakest.ChapterNumber, weakest.ChapterName, weakest.AccuracyPercentage)
	} else {
		b.WriteString("\nKeep up the good work!")
	}

	return b.String(), nil
}

// answerConversation asks the model, retrying transient failures before
// giving up.
func (s *TutorService) answerConversation(ctx context.Context, history []AIChatMessage, message string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxChatAttempts; attempt++ {
		reply, err := s.AI.Chat(ctx, history, message)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

// PacingPolicy maps the character just emitted to the pause before the
// next one, giving the stream a natural typing rhythm.
type PacingPolicy struct {
	Sentence time.Duration
	Clause   time.Duration
	Space    time.Duration
	Default  time.Duration
}

func DefaultPacing() PacingPolicy {
	return PacingPolicy{
		Sentence: 100 * time.Millisecond,
		Clause:   50 * time.Millisecond,
		Space:    20 * time.Millisecond,
		Default:  10 * time.Millisecond,
	}
}

func (p PacingPolicy) delayFor(r rune) time.Duration {
	switch r {
	case '.', '!', '?', '\n':
		return p.Sentence
	case ',', ';', ':':
		return p.Clause
	case ' ':
		return p.Space
	default:
		return p.Default
	}
}

// TextStreamer emits text character by character with pacing delays.
// Sleep is swappable so tests run without waiting.
type TextStreamer struct {
	Policy PacingPolicy
	Sleep  func(time.Duration)
}

func NewTextStreamer() *TextStreamer {
	return &TextStreamer{
		Policy: DefaultPacing(),
		Sleep:  time.Sleep,
	}
}

// Stream sends each character through emit, pausing per the policy.
// Stops early when the context is cancelled or emit fails.
func (t *TextStreamer) Stream(ctx context.Context, text string, emit func(string) error) error {
	for _, r := range text {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(string(r)); err != nil {
			return err
		}
		t.Sleep(t.Policy.delayFor(r))
	}
	return nil
}
