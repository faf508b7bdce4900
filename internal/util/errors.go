package util

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailRegistered  = errors.New("email already registered")
	ErrQuestionNotFound = errors.New("question not found")
	ErrNoQuestionsMatch = errors.New("no questions found matching the criteria")
	ErrMarkNotFound     = errors.New("mark not found")
	ErrDailyQueryLimit  = errors.New("daily query limit reached, upgrade to Pro for more queries")
	ErrInvalidAnswerKey = errors.New("answer must be a single option key")
)
