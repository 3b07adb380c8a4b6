package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	echoapi "github.com/eduhive/backend/apps/api/echo"
	"github.com/eduhive/backend/core/leaderboard"
	"github.com/eduhive/backend/core/quiz"
	"github.com/eduhive/backend/core/user"
	testutil "github.com/eduhive/backend/tests"
)

func Test_quizApi_attemptLifecycle(t *testing.T) {
	app := setup(t)

	now := time.Now().UTC()
	q := testutil.CreateQuiz(t, quizRepo, "GEO-101-w1", "07", "Geography", now.Add(-time.Hour), now.Add(24*time.Hour))
	questions := testutil.AddQuestions(t, quizRepo, q.ID,
		quiz.Question{Kind: quiz.KindMultipleChoice, Text: "Capital of Kenya?", Options: []string{"Cairo", "Lagos", "Nairobi", "Accra"}, CorrectIndex: 2, Points: 2},
		quiz.Question{Kind: quiz.KindTrueFalse, Text: "The Nile flows north.", CorrectIndex: 0, Points: 1},
		quiz.Question{Kind: quiz.KindShortAnswer, Text: "Largest city in East Africa?", CorrectText: "Nairobi", Points: 2},
		quiz.Question{Kind: quiz.KindMultipleChoice, Text: "2 + 2?", Options: []string{"3", "4"}, CorrectIndex: 1, Points: 5},
	)

	learner := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.cd", "", []string{user.RoleLearner}, true)
	token := getToken(t, learner)

	// start
	req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/attempts", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var att quiz.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if att.AttemptNumber != 1 {
		t.Errorf("AttemptNumber = %d; want 1", att.AttemptNumber)
	}
	if att.Status != quiz.AttemptInProgress {
		t.Errorf("Status = %s; want %s", att.Status, quiz.AttemptInProgress)
	}

	// submit: one wrong answer, one skipped question, one unknown question id.
	// the short answer differs from the stored text in case and whitespace only.
	answers := quiz.SubmitAnswers{Answers: map[string]string{
		questions[0].ID:      "2",
		questions[1].ID:      "1",
		questions[2].ID:      " nairobi ",
		"ghost-question-lol": "0",
	}}
	req, rec = newAuthRequest(http.MethodPost, "/v1/attempts/"+att.ID+"/submit", token, marchallObj(t, answers))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var res quiz.SubmitResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if res.Attempt.Status != quiz.AttemptCompleted {
		t.Errorf("Status = %s; want %s", res.Attempt.Status, quiz.AttemptCompleted)
	}
	// scored over the 3 answered questions only: 4 of 5 points
	if res.Attempt.TotalPoints != 4 || res.Attempt.MaxPoints != 5 {
		t.Errorf("points = %d/%d; want 4/5", res.Attempt.TotalPoints, res.Attempt.MaxPoints)
	}
	if res.Attempt.CorrectAnswers != 2 || res.Attempt.TotalQuestions != 3 {
		t.Errorf("correct/answered = %d/%d; want 2/3", res.Attempt.CorrectAnswers, res.Attempt.TotalQuestions)
	}
	if res.Attempt.Score != 80 {
		t.Errorf("Score = %v; want 80", res.Attempt.Score)
	}
	if res.Grade != "B" {
		t.Errorf("Grade = %s; want B", res.Grade)
	}
	if !res.IsPassed {
		t.Error("IsPassed = false; want true")
	}
	if wantXP := 3 * quiz.XPPerQuestion; res.XPEarned != wantXP {
		t.Errorf("XPEarned = %d; want %d", res.XPEarned, wantXP)
	}

	// reward side effects
	refreshed, err := usrRepo.GetUserByID(context.Background(), learner.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed, %v", err)
	}
	if refreshed.TotalXP != res.XPEarned {
		t.Errorf("TotalXP = %d; want %d", refreshed.TotalXP, res.XPEarned)
	}
	entry, err := lbRepo.GetEntryByUserID(context.Background(), learner.ID, leaderboard.ActivityQuizzes)
	if err != nil {
		t.Fatalf("GetEntryByUserID() failed, %v", err)
	}
	if entry.Points != res.XPEarned {
		t.Errorf("leaderboard points = %d; want %d", entry.Points, res.XPEarned)
	}

	// a completed attempt cannot be submitted again
	req, rec = newAuthRequest(http.MethodPost, "/v1/attempts/"+att.ID+"/submit", token, marchallObj(t, answers))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: "attempt already completed"}),
	}, rec)

	// result breakdown
	req, rec = newAuthRequest(http.MethodGet, "/v1/attempts/"+att.ID+"/result", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("result failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var result quiz.AttemptResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if result.Grade != "B" || !result.IsPassed {
		t.Errorf("result grade/passed = %s/%v; want B/true", result.Grade, result.IsPassed)
	}
	if len(result.Answers) != 3 {
		t.Fatalf("len(Answers) = %d; want 3", len(result.Answers))
	}
	for _, ans := range result.Answers {
		switch ans.QuestionID {
		case questions[0].ID:
			if !ans.IsCorrect || ans.CorrectAnswer != "Nairobi" {
				t.Errorf("mc answer = %v/%s; want correct/Nairobi", ans.IsCorrect, ans.CorrectAnswer)
			}
		case questions[1].ID:
			if ans.IsCorrect || ans.PointsEarned != 0 {
				t.Errorf("tf answer = %v/%d; want incorrect/0", ans.IsCorrect, ans.PointsEarned)
			}
		case questions[2].ID:
			if !ans.IsCorrect || ans.PointsEarned != 2 {
				t.Errorf("short answer = %v/%d; want correct/2", ans.IsCorrect, ans.PointsEarned)
			}
		default:
			t.Errorf("unexpected answer for question %s", ans.QuestionID)
		}
	}

	// someone else's attempt reads as absent
	other := testutil.CreateUser(t, usrRepo, "Other", "otherother", "other@test.cd", "", []string{user.RoleLearner}, true)
	req, rec = newAuthRequest(http.MethodGet, "/v1/attempts/"+att.ID+"/result", getToken(t, other))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "not found"}),
	}, rec)

	// own history & stats
	req, rec = newAuthRequest(http.MethodGet, "/v1/me/attempts?quiz_id="+q.ID, token)
	app.ServeHTTP(rec, req)
	var attempts []quiz.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &attempts); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(attempts) != 1 || attempts[0].ID != att.ID {
		t.Errorf("me/attempts = %v; want the single completed attempt", attempts)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/me/quiz-stats", token)
	app.ServeHTTP(rec, req)
	var stats quiz.UserStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if stats.QuizzesTaken != 1 || stats.TotalAttempts != 1 || stats.Passed != 1 {
		t.Errorf("stats = %+v; want 1 quiz, 1 attempt, 1 passed", stats)
	}
	if stats.AverageScore != 80 || stats.SuccessRate != 100 {
		t.Errorf("stats avg/success = %v/%v; want 80/100", stats.AverageScore, stats.SuccessRate)
	}
}

// a single-attempt quiz: one wrong answer fails the attempt, and the learner
// does not get another shot.
func Test_quizApi_singleAttemptScenario(t *testing.T) {
	app := setup(t)

	now := time.Now().UTC()
	maxAttempts := 1
	q, err := quizRepo.CreateQuiz(context.Background(), quiz.Quiz{
		ID:           "PHY-301-final",
		Unit:         "11",
		Subject:      "Physics",
		IssueDate:    now.Add(-time.Hour),
		Deadline:     now.Add(24 * time.Hour),
		PassingScore: quiz.DefaultPassingScore,
		MaxAttempts:  maxAttempts,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateQuiz() failed, %v", err)
	}
	questions := testutil.AddQuestions(t, quizRepo, q.ID,
		quiz.Question{Kind: quiz.KindTrueFalse, Text: "Light is a wave.", CorrectIndex: 0, Points: 2},
		quiz.Question{Kind: quiz.KindTrueFalse, Text: "Sound travels in a vacuum.", CorrectIndex: 0, Points: 3},
	)

	learner := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.cd", "", []string{user.RoleLearner}, true)
	token := getToken(t, learner)

	req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/attempts", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var att quiz.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if att.AttemptNumber != 1 {
		t.Errorf("AttemptNumber = %d; want 1", att.AttemptNumber)
	}

	// first question right (2 pts), second wrong: 2 of 5 points
	answers := quiz.SubmitAnswers{Answers: map[string]string{
		questions[0].ID: "0",
		questions[1].ID: "1",
	}}
	req, rec = newAuthRequest(http.MethodPost, "/v1/attempts/"+att.ID+"/submit", token, marchallObj(t, answers))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var res quiz.SubmitResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if res.Attempt.Score != 40 {
		t.Errorf("Score = %v; want 40", res.Attempt.Score)
	}
	if res.Grade != "F" || res.IsPassed {
		t.Errorf("grade/passed = %s/%v; want F/false", res.Grade, res.IsPassed)
	}
	if res.XPEarned != 0 {
		t.Errorf("XPEarned = %d; want 0 for a failed attempt", res.XPEarned)
	}

	// the single allowed attempt is spent
	req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/attempts", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: "maximum attempts (1) exceeded"}),
	}, rec)
}

func Test_quizApi_attemptCeiling(t *testing.T) {
	app := setup(t)

	now := time.Now().UTC()
	q := testutil.CreateQuiz(t, quizRepo, "HIS-201-w2", "09", "History", now.Add(-time.Hour), now.Add(24*time.Hour))

	learner := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.cd", "", []string{user.RoleLearner}, true)
	token := getToken(t, learner)

	for i := 1; i <= q.MaxAttempts; i++ {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/attempts", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("start %d failed! code = %v; body %s", i, rec.Code, rec.Body.String())
		}
		var att quiz.Attempt
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if att.AttemptNumber != i {
			t.Errorf("AttemptNumber = %d; want %d", att.AttemptNumber, i)
		}
	}

	// the ceiling counts attempts, not completions
	req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/attempts", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: "maximum attempts (3) exceeded"}),
	}, rec)
}

func Test_quizApi_startAttemptEligibility(t *testing.T) {
	app := setup(t)

	now := time.Now().UTC()
	testutil.CreateQuiz(t, quizRepo, "expired-quiz", "07", "Geography", now.Add(-48*time.Hour), now.Add(-time.Hour))
	testutil.CreateQuiz(t, quizRepo, "upcoming-quiz", "07", "Geography", now.Add(time.Hour), now.Add(48*time.Hour))

	inactive := testutil.CreateQuiz(t, quizRepo, "inactive-quiz", "07", "Geography", now.Add(-time.Hour), now.Add(48*time.Hour))
	bFalse := false
	if _, err := quizRepo.UpdateQuiz(context.Background(), inactive, &bFalse); err != nil {
		t.Fatalf("UpdateQuiz() failed, %v", err)
	}

	learner := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.cd", "", []string{user.RoleLearner}, true)
	token := getToken(t, learner)

	notAvailable := marchallObj(t, httpErr{Error: "quiz is not available"})
	tests := []httpTest{
		{name: "Auth required", path: "/v1/quizzes/expired-quiz/attempts", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unknown quiz", path: "/v1/quizzes/lol/attempts", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "past deadline", path: "/v1/quizzes/expired-quiz/attempts", token: token, wantCode: http.StatusBadRequest, wantData: notAvailable},
		{name: "before issue date", path: "/v1/quizzes/upcoming-quiz/attempts", token: token, wantCode: http.StatusBadRequest, wantData: notAvailable},
		{name: "deactivated quiz", path: "/v1/quizzes/inactive-quiz/attempts", token: token, wantCode: http.StatusBadRequest, wantData: notAvailable},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_quizApi_quizCreate(t *testing.T) {
	app := setup(t)

	learner := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.cd", "", []string{user.RoleLearner}, true)
	contrib := testutil.CreateUser(t, usrRepo, "Contributor", "contrib1", "contrib@test.cd", "", []string{user.RoleContributor}, true)
	contribToken := getToken(t, contrib)

	deadline := time.Now().UTC().Add(48 * time.Hour)
	valid := quiz.NewQuiz{ID: "CS101-quiz-1", Unit: "07-3", Subject: "Intro to Go", Deadline: deadline}

	tests := []httpTest{
		{
			name: "Contributor required", body: marchallObj(t, valid), token: getToken(t, learner),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "created", body: marchallObj(t, valid), token: contribToken, wantCode: http.StatusCreated},
		{
			name: "duplicate id", body: marchallObj(t, valid), token: contribToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"id": "a quiz with this id already exists"}),
		},
		{
			name:  "invalid unit code",
			body:  marchallObj(t, quiz.NewQuiz{ID: "CS101-quiz-2", Unit: "lol", Subject: "Intro to Go", Deadline: deadline}),
			token: contribToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"unit": "invalid unit code"}),
		},
		{
			name:  "past deadline",
			body:  marchallObj(t, quiz.NewQuiz{ID: "CS101-quiz-3", Unit: "07", Subject: "Intro to Go", Deadline: time.Now().UTC().Add(-time.Hour)}),
			token: contribToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"deadline": "deadline must be in the future and after the issue date"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/quizzes"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
				}
				var q quiz.Quiz
				if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if q.CreatedBy != contrib.ID {
					t.Errorf("CreatedBy = %s; want %s", q.CreatedBy, contrib.ID)
				}
				if q.PassingScore != quiz.DefaultPassingScore || q.MaxAttempts != quiz.DefaultMaxAttempts {
					t.Errorf("defaults = %d/%d; want %d/%d", q.PassingScore, q.MaxAttempts, quiz.DefaultPassingScore, quiz.DefaultMaxAttempts)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_quizApi_questionManagement(t *testing.T) {
	app := setup(t)

	now := time.Now().UTC()
	owner := testutil.CreateUser(t, usrRepo, "Owner", "contrib1", "contrib@test.cd", "", []string{user.RoleContributor}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "contrib2", "rival@test.cd", "", []string{user.RoleContributor}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "adminboss", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	learner := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.cd", "", []string{user.RoleLearner}, true)

	q := testutil.CreateQuiz(t, quizRepo, "GEO-101-w1", "07", "Geography", now.Add(-time.Hour), now.Add(24*time.Hour))
	q.CreatedBy = owner.ID
	if _, err := quizRepo.UpdateQuiz(context.Background(), q, nil); err != nil {
		t.Fatalf("UpdateQuiz() failed, %v", err)
	}

	correctIdx := 1
	addBody := marchallObj(t, echoapi.AddQuestionsRequest{Questions: []quiz.NewQuestion{
		{Text: "2 + 2?", Kind: quiz.KindMultipleChoice, Options: []string{"3", "4"}, CorrectIndex: &correctIdx},
	}})
	badBody := marchallObj(t, echoapi.AddQuestionsRequest{Questions: []quiz.NewQuestion{
		{Text: "Capital of Kenya?", Kind: quiz.KindShortAnswer},
	}})

	tests := []httpTest{
		{
			// another contributor's quiz reads as missing, never as forbidden
			name: "not the owner", body: addBody, token: getToken(t, rival),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "learners cannot add questions", body: addBody, token: getToken(t, learner),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "missing answer text", body: badBody, token: getToken(t, owner),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"correct_answer_text": "correct answer text is required"}),
		},
		{name: "owner adds", body: addBody, token: getToken(t, owner), wantCode: http.StatusCreated},
		{name: "admin adds", body: addBody, token: getToken(t, admin), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/quizzes/" + q.ID + "/questions"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// the question count is kept on the quiz
	refreshed, err := quizRepo.GetQuizByID(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("GetQuizByID() failed, %v", err)
	}
	if refreshed.TotalQuestions != 2 {
		t.Errorf("TotalQuestions = %d; want 2", refreshed.TotalQuestions)
	}

	// attempt settings freeze once the quiz has attempts
	if _, err := quizSvc.Start(context.Background(), learner.ID, q.ID, "", ""); err != nil {
		t.Fatalf("Start() failed, %v", err)
	}
	newDeadline := now.Add(72 * time.Hour)
	req, rec := newAuthRequest(http.MethodPut, "/v1/quizzes/"+q.ID, getToken(t, owner), marchallObj(t, quiz.UpdateQuiz{Deadline: &newDeadline}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"deadline": "frozen once the quiz has attempts"}),
	}, rec)

	// and questions freeze too
	req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/questions", getToken(t, owner), addBody)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: "questions cannot be changed once the quiz has attempts"}),
	}, rec)

	// deletion is refused while attempts exist, unless forced
	req, rec = newAuthRequest(http.MethodDelete, "/v1/quizzes/"+q.ID, getToken(t, owner))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict,
		wantData: marchallObj(t, httpErr{Error: "quiz has recorded attempts"}),
	}, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/quizzes/"+q.ID+"?force=true", getToken(t, owner))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("forced delete code = %v; want %v", rec.Code, http.StatusNoContent)
	}
}

func Test_quizApi_quizQuery(t *testing.T) {
	app := setup(t)

	now := time.Now().UTC()
	active := testutil.CreateQuiz(t, quizRepo, "GEO-101-w1", "07", "Geography", now.Add(-time.Hour), now.Add(24*time.Hour))
	expired := testutil.CreateQuiz(t, quizRepo, "GEO-101-w0", "07", "Geography", now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	testutil.AddQuestions(t, quizRepo, active.ID,
		quiz.Question{Kind: quiz.KindTrueFalse, Text: "The Nile flows north.", CorrectIndex: 0},
	)

	learner := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.cd", "", []string{user.RoleLearner}, true)
	token := getToken(t, learner)

	req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var infos []echoapi.QuizInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d; want 2", len(infos))
	}
	for _, info := range infos {
		switch info.ID {
		case active.ID:
			if info.Status != quiz.StatusActive || !info.CanAttempt {
				t.Errorf("active quiz = %s/%v; want %s/attemptable", info.Status, info.CanAttempt, quiz.StatusActive)
			}
		case expired.ID:
			if info.Status != quiz.StatusExpired || info.CanAttempt {
				t.Errorf("expired quiz = %s/%v; want %s/not attemptable", info.Status, info.CanAttempt, quiz.StatusExpired)
			}
			if info.Eligibility != "quiz is not available" {
				t.Errorf("Eligibility = %s; want 'quiz is not available'", info.Eligibility)
			}
		}
	}

	// detail view never leaks the answer key
	req, rec = newAuthRequest(http.MethodGet, "/v1/quizzes/"+active.ID, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("retrieve failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	qns, ok := raw["questions"].([]interface{})
	if !ok || len(qns) != 1 {
		t.Fatalf("questions = %v; want 1 question", raw["questions"])
	}
	qn := qns[0].(map[string]interface{})
	for _, key := range []string{"correct_answer", "correct_answer_text", "correct_index", "correct_text"} {
		if _, leaked := qn[key]; leaked {
			t.Errorf("answer key %q leaked in question payload", key)
		}
	}
}

func Test_quizApi_statistics(t *testing.T) {
	app := setup(t)

	now := time.Now().UTC()
	q := testutil.CreateQuiz(t, quizRepo, "GEO-101-w1", "07", "Geography", now.Add(-time.Hour), now.Add(24*time.Hour))
	questions := testutil.AddQuestions(t, quizRepo, q.ID,
		quiz.Question{Kind: quiz.KindTrueFalse, Text: "The Nile flows north.", CorrectIndex: 0},
		quiz.Question{Kind: quiz.KindTrueFalse, Text: "The Sahara is a rainforest.", CorrectIndex: 1},
	)

	contrib := testutil.CreateUser(t, usrRepo, "Contributor", "contrib1", "contrib@test.cd", "", []string{user.RoleContributor}, true)
	passer := testutil.CreateUser(t, usrRepo, "Passer", "passer01", "passer@test.cd", "", []string{user.RoleLearner}, true)
	failer := testutil.CreateUser(t, usrRepo, "Failer", "failer01", "failer@test.cd", "", []string{user.RoleLearner}, true)

	submit := func(t *testing.T, usr user.User, answers map[string]string) {
		t.Helper()
		att, err := quizSvc.Start(context.Background(), usr.ID, q.ID, "", "")
		if err != nil {
			t.Fatalf("Start() failed, %v", err)
		}
		if _, err := quizSvc.Submit(context.Background(), usr.ID, att.ID, answers); err != nil {
			t.Fatalf("Submit() failed, %v", err)
		}
	}
	submit(t, passer, map[string]string{questions[0].ID: "0", questions[1].ID: "1"}) // 100
	submit(t, failer, map[string]string{questions[0].ID: "1", questions[1].ID: "1"}) // 50

	req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+q.ID+"/statistics", getToken(t, contrib))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("statistics failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var stats quiz.Statistics
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if stats.TotalAttempts != 2 || stats.UniqueUsers != 2 {
		t.Errorf("attempts/users = %d/%d; want 2/2", stats.TotalAttempts, stats.UniqueUsers)
	}
	if stats.AverageScore != 75 || stats.MedianScore != 75 {
		t.Errorf("avg/median = %v/%v; want 75/75", stats.AverageScore, stats.MedianScore)
	}
	if stats.HighestScore != 100 || stats.LowestScore != 50 {
		t.Errorf("high/low = %v/%v; want 100/50", stats.HighestScore, stats.LowestScore)
	}
	if stats.PassRate != 50 {
		t.Errorf("PassRate = %v; want 50", stats.PassRate)
	}
	if stats.GradeDistribution["A"] != 1 || stats.GradeDistribution["F"] != 1 {
		t.Errorf("GradeDistribution = %v; want one A and one F", stats.GradeDistribution)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/quizzes/"+q.ID+"/question-accuracy", getToken(t, contrib))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("question-accuracy failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var report []quiz.QuestionAccuracy
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(report) != 2 {
		t.Fatalf("len(report) = %d; want 2", len(report))
	}
	for _, qa := range report {
		switch qa.QuestionID {
		case questions[0].ID:
			if qa.Attempts != 2 || qa.Correct != 1 || qa.AccuracyRate != 50 {
				t.Errorf("q1 accuracy = %+v; want 1/2 (50%%)", qa)
			}
		case questions[1].ID:
			if qa.Attempts != 2 || qa.Correct != 2 || qa.AccuracyRate != 100 {
				t.Errorf("q2 accuracy = %+v; want 2/2 (100%%)", qa)
			}
		}
	}
}

// An interrupted submission leaves the attempt in progress with some answers
// already recorded; re-submitting must keep the recorded answers rather than
// grading the question again.
func Test_quizApi_resubmitKeepsRecordedAnswers(t *testing.T) {
	app := setup(t)

	now := time.Now().UTC()
	q := testutil.CreateQuiz(t, quizRepo, "GEO-101-w2", "07", "Geography", now.Add(-time.Hour), now.Add(24*time.Hour))
	questions := testutil.AddQuestions(t, quizRepo, q.ID,
		quiz.Question{Kind: quiz.KindMultipleChoice, Text: "Capital of Kenya?", Options: []string{"Mombasa", "Nairobi"}, CorrectIndex: 1, Points: 2},
		quiz.Question{Kind: quiz.KindMultipleChoice, Text: "2 + 2?", Options: []string{"4", "5"}, CorrectIndex: 0, Points: 3},
	)

	learner := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.cd", "", []string{user.RoleLearner}, true)
	att, err := quizSvc.Start(context.Background(), learner.ID, q.ID, "", "")
	if err != nil {
		t.Fatalf("Start() failed, %v", err)
	}

	// first answer landed before the submission was cut short
	seeded := []quiz.AnswerRecord{
		{AttemptID: att.ID, QuestionID: questions[0].ID, UserAnswer: "1", IsCorrect: true, PointsEarned: 2, CreatedAt: now},
	}
	if _, err = quizRepo.FinalizeAttempt(context.Background(), att, seeded, func([]quiz.AnswerRecord) quiz.Attempt { return att }); err != nil {
		t.Fatalf("FinalizeAttempt() failed, %v", err)
	}

	// the retry flips the first answer to a wrong one; it must be skipped
	body := marchallObj(t, quiz.SubmitAnswers{Answers: map[string]string{
		questions[0].ID: "0",
		questions[1].ID: "0",
	}})
	req, rec := newAuthRequest(http.MethodPost, "/v1/attempts/"+att.ID+"/submit", getToken(t, learner), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	var res quiz.SubmitResult
	if err = json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if res.Attempt.TotalPoints != 5 || res.Attempt.CorrectAnswers != 2 || res.Attempt.Score != 100 {
		t.Errorf("points/correct/score = %d/%d/%v; want 5/2/100", res.Attempt.TotalPoints, res.Attempt.CorrectAnswers, res.Attempt.Score)
	}

	records, err := quizRepo.QueryAnswerRecords(context.Background(), att.ID)
	if err != nil {
		t.Fatalf("QueryAnswerRecords() failed, %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d; want 2", len(records))
	}
	for _, rec := range records {
		if rec.QuestionID == questions[0].ID && rec.UserAnswer != "1" {
			t.Errorf("first answer was regraded; UserAnswer = %q, want %q", rec.UserAnswer, "1")
		}
	}
}
