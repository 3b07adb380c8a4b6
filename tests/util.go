package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/eduhive/backend/core/quiz"
	"github.com/eduhive/backend/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateQuiz(
	t *testing.T,
	repo quiz.Repository,
	id, unit, subject string,
	issueDate, deadline time.Time,
) quiz.Quiz {
	t.Helper()

	now := time.Now().UTC()
	q := quiz.Quiz{
		ID:           id,
		Unit:         unit,
		Subject:      subject,
		IssueDate:    issueDate.UTC(),
		Deadline:     deadline.UTC(),
		PassingScore: quiz.DefaultPassingScore,
		MaxAttempts:  quiz.DefaultMaxAttempts,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	q, err := repo.CreateQuiz(context.Background(), q)
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return q
}

func AddQuestions(t *testing.T, repo quiz.Repository, quizID string, questions ...quiz.Question) []quiz.Question {
	t.Helper()

	now := time.Now().UTC()
	for i := range questions {
		questions[i].QuizID = quizID
		questions[i].CreatedAt = now
		if questions[i].Points == 0 {
			questions[i].Points = 1
		}
		if questions[i].Difficulty == "" {
			questions[i].Difficulty = quiz.DifficultyMedium
		}
	}
	created, err := repo.CreateQuestions(context.Background(), quizID, questions)
	if err != nil {
		t.Fatalf("AddQuestions() failed: %v", err)
	}
	return created
}
