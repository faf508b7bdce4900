package service

import (
	"context"
	"edutheo_backend/internal/config"
	"edutheo_backend/internal/model"
	"edutheo_backend/internal/util"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		message    string
		wantIntent Intent
		wantID     string
	}{
		{"Can you show me PHY09-CH01-MCQ0001?", IntentLookup, "PHY09-CH01-MCQ0001"},
		{"explain phy09-ch01-mcq0001", IntentConversation, ""}, // ids are uppercase
		{"How am I doing this week?", IntentAnalytics, ""},
		{"show MY PROGRESS please", IntentAnalytics, ""},
		{"What's my accuracy on PHY09-CH02-MCQ0010?", IntentLookup, "PHY09-CH02-MCQ0010"},
		{"hi there", IntentConversation, ""},
		{"why does ice float on water", IntentConversation, ""},
	}

	for _, tt := range tests {
		intent, id := ClassifyIntent(tt.message)
		if intent != tt.wantIntent || id != tt.wantID {
			t.Errorf("ClassifyIntent(%q) = (%v, %q), want (%v, %q)",
				tt.message, intent, id, tt.wantIntent, tt.wantID)
		}
	}
}

func TestRollQuota(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	earlierToday := time.Date(2026, 8, 25, 1, 0, 0, 0, time.UTC)

	t.Run("resets on a new day", func(t *testing.T) {
		user := &model.User{AIQueriesToday: 50, LastAIQueryDate: &yesterday}
		if !RollQuota(user, now) {
			t.Fatal("expected rollover")
		}
		if user.AIQueriesToday != 0 {
			t.Errorf("counter: got %d, want 0", user.AIQueriesToday)
		}
	})

	t.Run("no-op within the same day", func(t *testing.T) {
		user := &model.User{AIQueriesToday: 7, LastAIQueryDate: &earlierToday}
		if RollQuota(user, now) {
			t.Fatal("unexpected rollover")
		}
		if user.AIQueriesToday != 7 {
			t.Errorf("counter changed: got %d", user.AIQueriesToday)
		}
	})

	t.Run("first ever query rolls", func(t *testing.T) {
		user := &model.User{AIQueriesToday: 3}
		if !RollQuota(user, now) {
			t.Fatal("expected rollover for nil date")
		}
		if user.AIQueriesToday != 0 || user.LastAIQueryDate == nil {
			t.Errorf("state wrong: %+v", user)
		}
	})
}

func newTutorEnv(t *testing.T, aiHandler http.HandlerFunc) (*testEnv, *TutorService, *httptest.Server) {
	t.Helper()
	env := newTestEnv(t)

	srv := httptest.NewServer(aiHandler)
	t.Cleanup(srv.Close)

	cfg := config.AIConfig{
		BaseURL:            srv.URL,
		APIKey:             "test",
		Model:              "test-model",
		BaseTierDailyLimit: 50,
	}
	ai := NewAIService(cfg)
	tutor := NewTutorService(ai, env.users, env.questions, env.analytics, cfg)
	return env, tutor, srv
}

func completionHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}
}

func fetchQueries(t *testing.T, env *testEnv, userID uint) int {
	t.Helper()
	user, err := env.users.FindByID(userID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return user.AIQueriesToday
}

func TestHandleMessage_LookupAnswersFromCatalog(t *testing.T) {
	var modelHits int32
	env, tutor, _ := newTutorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&modelHits, 1)
		completionHandler("should not be used")(w, r)
	})
	user := env.seedUser(t, "alice")
	env.seedQuestion(t, questionSpec{id: "PHY09-CH01-MCQ0001", chapter: 1})

	reply, err := tutor.HandleMessage(context.Background(), user.ID, nil, "show me PHY09-CH01-MCQ0001")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if reply.Intent != IntentLookup {
		t.Errorf("intent: got %v, want lookup", reply.Intent)
	}
	if !strings.Contains(reply.Message, "What is the SI unit of force?") {
		t.Errorf("reply missing question text: %q", reply.Message)
	}
	if strings.Contains(reply.Message, "Newton is the SI unit") {
		t.Errorf("reply leaked the answer: %q", reply.Message)
	}
	if atomic.LoadInt32(&modelHits) != 0 {
		t.Error("lookup turn must not reach the model")
	}
	if got := fetchQueries(t, env, user.ID); got != 1 {
		t.Errorf("quota after success: got %d, want 1", got)
	}
	if reply.RemainingQueries != 49 {
		t.Errorf("remaining: got %d, want 49", reply.RemainingQueries)
	}
}

func TestHandleMessage_LookupUnknownIDStillAnswers(t *testing.T) {
	env, tutor, _ := newTutorEnv(t, completionHandler("unused"))
	user := env.seedUser(t, "alice")

	reply, err := tutor.HandleMessage(context.Background(), user.ID, nil, "show me PHY09-CH09-MCQ0999")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(reply.Message, "PHY09-CH09-MCQ0999") {
		t.Errorf("reply should name the missing id: %q", reply.Message)
	}
}

func TestHandleMessage_AnalyticsTurn(t *testing.T) {
	env, tutor, _ := newTutorEnv(t, completionHandler("unused"))
	user := env.seedUser(t, "alice")
	q := env.seedQuestion(t, questionSpec{id: "PHY09-CH01-MCQ0001", chapter: 1})
	env.recordAnswer(t, user.ID, q.ID, true, 30, daysAgo(0))

	reply, err := tutor.HandleMessage(context.Background(), user.ID, nil, "how am I doing?")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if reply.Intent != IntentAnalytics {
		t.Errorf("intent: got %v, want analytics", reply.Intent)
	}
	if !strings.Contains(reply.Message, "Questions attempted: 1") {
		t.Errorf("summary missing counts: %q", reply.Message)
	}
}

func TestHandleMessage_ConversationHitsModel(t *testing.T) {
	env, tutor, _ := newTutorEnv(t, completionHandler("Ice floats because it is less dense than water."))
	user := env.seedUser(t, "alice")

	reply, err := tutor.HandleMessage(context.Background(), user.ID, nil, "why does ice float?")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if reply.Intent != IntentConversation {
		t.Errorf("intent: got %v, want conversation", reply.Intent)
	}
	if reply.Message != "Ice floats because it is less dense than water." {
		t.Errorf("unexpected reply: %q", reply.Message)
	}
	if got := fetchQueries(t, env, user.ID); got != 1 {
		t.Errorf("quota after success: got %d, want 1", got)
	}
}

func TestHandleMessage_ModelDownCostsNothing(t *testing.T) {
	var hits int32
	env, tutor, _ := newTutorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	user := env.seedUser(t, "alice")

	reply, err := tutor.HandleMessage(context.Background(), user.ID, nil, "why does ice float?")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if reply.Message != apologyReply {
		t.Errorf("expected the apology, got %q", reply.Message)
	}
	if got := atomic.LoadInt32(&hits); got != maxChatAttempts {
		t.Errorf("retries: got %d calls, want %d", got, maxChatAttempts)
	}
	if got := fetchQueries(t, env, user.ID); got != 0 {
		t.Errorf("failed turn consumed quota: got %d, want 0", got)
	}
}

func TestHandleMessage_QuotaExhausted(t *testing.T) {
	env, tutor, _ := newTutorEnv(t, completionHandler("unused"))
	user := env.seedUser(t, "alice")

	today := time.Now().UTC()
	if err := env.users.UpdateQuota(user.ID, today, 50); err != nil {
		t.Fatalf("set quota: %v", err)
	}

	_, err := tutor.HandleMessage(context.Background(), user.ID, nil, "hi there")
	if !errors.Is(err, util.ErrDailyQueryLimit) {
		t.Fatalf("got %v, want ErrDailyQueryLimit", err)
	}
}

func TestHandleMessage_QuotaRollsOverAtMidnight(t *testing.T) {
	env, tutor, _ := newTutorEnv(t, completionHandler("hello!"))
	user := env.seedUser(t, "alice")

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	if err := env.users.UpdateQuota(user.ID, yesterday, 50); err != nil {
		t.Fatalf("set quota: %v", err)
	}

	reply, err := tutor.HandleMessage(context.Background(), user.ID, nil, "hi there")
	if err != nil {
		t.Fatalf("stale counter must reset, got %v", err)
	}
	if reply.RemainingQueries != 49 {
		t.Errorf("remaining after rollover: got %d, want 49", reply.RemainingQueries)
	}
}

func TestHandleMessage_ProTierUnmetered(t *testing.T) {
	env, tutor, _ := newTutorEnv(t, completionHandler("hello!"))
	user := env.seedUser(t, "alice")
	if err := env.db.Model(user).Update("tier", model.TierPro).Error; err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if err := env.users.UpdateQuota(user.ID, time.Now().UTC(), 500); err != nil {
		t.Fatalf("set quota: %v", err)
	}

	reply, err := tutor.HandleMessage(context.Background(), user.ID, nil, "hi there")
	if err != nil {
		t.Fatalf("pro tier must not be limited, got %v", err)
	}
	if reply.RemainingQueries != -1 {
		t.Errorf("remaining for pro: got %d, want -1", reply.RemainingQueries)
	}
}

func TestQuota_ReportsWithoutConsuming(t *testing.T) {
	env, tutor, _ := newTutorEnv(t, completionHandler("unused"))
	user := env.seedUser(t, "alice")
	if err := env.users.UpdateQuota(user.ID, time.Now().UTC(), 10); err != nil {
		t.Fatalf("set quota: %v", err)
	}

	status, err := tutor.Quota(user.ID)
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	if status.Limit != 50 || status.Used != 10 || status.Remaining != 40 {
		t.Errorf("status wrong: %+v", status)
	}
	if got := fetchQueries(t, env, user.ID); got != 10 {
		t.Errorf("quota check consumed queries: got %d", got)
	}
}
