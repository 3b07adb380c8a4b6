package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	. "github.com/eduhive/backend/apps/api/echo"
	"github.com/eduhive/backend/core"
	"github.com/eduhive/backend/core/badge"
	"github.com/eduhive/backend/core/billing"
	"github.com/eduhive/backend/core/community"
	"github.com/eduhive/backend/core/module"
	"github.com/eduhive/backend/core/leaderboard"
	"github.com/eduhive/backend/core/newsletter"
	"github.com/eduhive/backend/core/quiz"
	"github.com/eduhive/backend/core/testimonial"
	"github.com/eduhive/backend/core/user"
	broadcastsvc "github.com/eduhive/backend/services/broadcast"
	emailsvc "github.com/eduhive/backend/services/email"
	inmemdb "github.com/eduhive/backend/storage/database/inmem"
)

var (
	usrRepo  user.Repository
	quizRepo quiz.Repository
	lbRepo   leaderboard.Repository
	usrSvc   user.Service
	quizSvc  *quiz.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	core.Conf.Debug = false
	core.Conf.TestMode = true

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	quizRepo = inmemdb.NewQuizRepository(db)
	lbRepo = inmemdb.NewLeaderboardRepository(db, usrRepo)

	// set up services
	logger := nopLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock()
	hub := broadcastsvc.NewHub(logger)
	usrSvc = user.NewServiceMock(usrRepo, mailSvc)
	lbSvc := leaderboard.NewService(lbRepo, hub)
	quizSvc = quiz.NewService(quizRepo, usrSvc, lbSvc, hub, logger)

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			UserSvc:        usrSvc,
			QuizSvc:        quizSvc,
			ModuleSvc:      module.NewService(inmemdb.NewModuleRepository(db)),
			BadgeSvc:       badge.NewService(inmemdb.NewBadgeRepository(db)),
			LeaderboardSvc: lbSvc,
			NewsletterSvc:  newsletter.NewService(inmemdb.NewNewsletterRepository(db), mailSvc),
			TestimonialSvc: testimonial.NewService(inmemdb.NewTestimonialRepository(db)),
			BillingSvc:     billing.NewService(inmemdb.NewBillingRepository(db), gatewayStub{}, hub, logger),
			CommunitySvc:   community.NewService(inmemdb.NewCommunityRepository(db), hub),
			Hub:            hub,
			Logger:         logger,
		},
	)
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                       {}
func (nopLogger) Debug(string, ...interface{})      {}
func (nopLogger) Info(string, ...interface{})       {}
func (nopLogger) Warn(string, ...interface{})       {}
func (nopLogger) Error(string, ...interface{})      {}
func (nopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

// gatewayStub acknowledges every push without talking to the gateway.
type gatewayStub struct{}

func (gatewayStub) InitiateSTKPush(_ context.Context, _ string, _ float64, _, _ string) (billing.STKPushResponse, error) {
	return billing.STKPushResponse{
		CheckoutRequestID: "ws_CO_" + uuid.New().String(),
		MerchantRequestID: uuid.New().String(),
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	l1, ok1 := j1.([]interface{})
	l2, ok2 := j2.([]interface{})
	if ok1 && ok2 {
		return assert.ElementsMatch(t, l1, l2), nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
