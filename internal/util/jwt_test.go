package util

import (
	"edutheo_backend/internal/model"
	"testing"
	"time"
)

func TestJWT_RoundTrip(t *testing.T) {
	user := &model.User{
		BaseModel: model.BaseModel{ID: 42},
		Email:     "alice@example.com",
		Tier:      model.TierPro,
	}

	token, err := GenerateJWT(user, "secret-for-tests", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseJWT(token, "secret-for-tests")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Tier != model.TierPro || claims.Email != "alice@example.com" {
		t.Errorf("claims wrong: %+v", claims)
	}
}

func TestJWT_WrongSecretRejected(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 1}}

	token, err := GenerateJWT(user, "right-secret", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseJWT(token, "wrong-secret"); err == nil {
		t.Error("token signed with another secret must not validate")
	}
}

func TestJWT_ExpiredRejected(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 1}}

	token, err := GenerateJWT(user, "secret-for-tests", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseJWT(token, "secret-for-tests"); err == nil {
		t.Error("expired token must not validate")
	}
}
