package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/eduhive/backend/core/module"
	"github.com/eduhive/backend/core/user"
	testutil "github.com/eduhive/backend/tests"
)

func Test_moduleApi_submission(t *testing.T) {
	app := setup(t)

	learner := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.cd", "", []string{user.RoleLearner}, true)
	contrib := testutil.CreateUser(t, usrRepo, "Contributor", "contrib1", "contrib@test.cd", "", []string{user.RoleContributor}, true)
	contribToken := getToken(t, contrib)

	valid := module.NewModule{
		Title:       "Intro to Go",
		Description: "Variables, control flow and functions.",
		Content:     "Lesson text goes here.",
		ImageURL:    "https://cdn.test.cd/go.png",
	}

	tests := []httpTest{
		{name: "Auth required", body: marchallObj(t, valid), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Contributor required", body: marchallObj(t, valid), token: getToken(t, learner),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", body: marchallObj(t, module.NewModule{}), token: contribToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "this field is required", "description": "this field is required"}),
		},
		{
			name: "title too short", body: marchallObj(t, module.NewModule{Title: "Go", Description: "short course"}), token: contribToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "title must be at least 3 characters in length"}),
		},
		{name: "created", body: marchallObj(t, valid), token: contribToken, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/modules"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
				}
				var m module.Module
				if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if m.Status != module.StatusPending {
					t.Errorf("Status = %s; want %s", m.Status, module.StatusPending)
				}
				if m.CreatedBy != contrib.ID {
					t.Errorf("CreatedBy = %s; want %s", m.CreatedBy, contrib.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_moduleApi_moderationFlow(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Owner", "contrib1", "contrib@test.cd", "", []string{user.RoleContributor}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "contrib2", "rival@test.cd", "", []string{user.RoleContributor}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "adminboss", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	learner := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.cd", "", []string{user.RoleLearner}, true)
	ownerToken := getToken(t, owner)

	// submit
	body := marchallObj(t, module.NewModule{Title: "Intro to Go", Description: "Variables and functions."})
	req, rec := newAuthRequest(http.MethodPost, "/v1/modules", ownerToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var m module.Module
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}

	// pending module: invisible to learners, and another contributor's
	// touch reads as missing
	tests := []httpTest{
		{name: "learner cannot see pending", method: http.MethodGet, path: "/v1/modules/" + m.ID, token: getToken(t, learner), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "not in public list", method: http.MethodGet, path: "/v1/modules", token: getToken(t, learner), wantCode: http.StatusOK, wantData: []byte("[]")},
		{name: "rival cannot update", method: http.MethodPut, path: "/v1/modules/" + m.ID, token: getToken(t, rival), body: marchallObj(t, module.UpdateModule{Title: "Stolen"}), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "rival cannot delete", method: http.MethodDelete, path: "/v1/modules/" + m.ID, token: getToken(t, rival), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "approval is admin-only", method: http.MethodPut, path: "/v1/modules/" + m.ID + "/approve", token: ownerToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "unknown module", method: http.MethodGet, path: "/v1/modules/lol", token: ownerToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the owner sees and edits it
	req, rec = newAuthRequest(http.MethodGet, "/v1/modules/"+m.ID, ownerToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner retrieve failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodPut, "/v1/modules/"+m.ID, ownerToken, marchallObj(t, module.UpdateModule{Title: "Intro to Go, 2nd ed."}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner update failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if m.Title != "Intro to Go, 2nd ed." {
		t.Errorf("Title = %s; want the updated title", m.Title)
	}

	// own submissions list
	req, rec = newAuthRequest(http.MethodGet, "/v1/modules/mine", ownerToken)
	app.ServeHTTP(rec, req)
	var mine []module.Module
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(mine) != 1 || mine[0].ID != m.ID {
		t.Errorf("mine = %v; want the single pending module", mine)
	}

	// moderation queue, then approval
	adminToken := getToken(t, admin)
	req, rec = newAuthRequest(http.MethodGet, "/v1/modules/pending", adminToken)
	app.ServeHTTP(rec, req)
	var pending []module.Module
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d; want 1", len(pending))
	}

	req, rec = newAuthRequest(http.MethodPut, "/v1/modules/"+m.ID+"/approve", adminToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if m.Status != module.StatusApproved {
		t.Errorf("Status = %s; want %s", m.Status, module.StatusApproved)
	}

	// once approved it reaches learners
	req, rec = newAuthRequest(http.MethodGet, "/v1/modules", getToken(t, learner))
	app.ServeHTTP(rec, req)
	var listed []module.Module
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(listed) != 1 || listed[0].ID != m.ID {
		t.Errorf("listed = %v; want the approved module", listed)
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/modules/"+m.ID, getToken(t, learner))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("learner retrieve failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	// the owner retires it
	req, rec = newAuthRequest(http.MethodDelete, "/v1/modules/"+m.ID, ownerToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/modules/"+m.ID, ownerToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "not found"}),
	}, rec)
}
