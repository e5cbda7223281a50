package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) (*HTTPServer, *Service) {
	t.Helper()
	svc, _ := newTestService(t)
	return NewHTTPServer(svc, "*"), svc
}

func doRequest(t *testing.T, server *HTTPServer, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func TestHealthAndReady(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doRequest(t, server, http.MethodGet, "/api/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/ready", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("ready status = %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["status"] != "ready" {
		t.Fatalf("status = %v", payload["status"])
	}
}

func TestRoutesRequireIdentity(t *testing.T) {
	server, _ := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{method: http.MethodGet, path: "/api/teams"},
		{method: http.MethodPost, path: "/api/teams"},
		{method: http.MethodGet, path: "/api/teams/t1"},
		{method: http.MethodPost, path: "/api/teams/t1/join"},
	}

	for _, tc := range paths {
		rr := doRequest(t, server, tc.method, tc.path, "", "")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status = %d, want 401", tc.method, tc.path, rr.Code)
		}
		payload := decodeResponse(t, rr)
		if payload["code"] != "UNAUTHORIZED" {
			t.Fatalf("%s %s: code = %v", tc.method, tc.path, payload["code"])
		}
	}
}

func TestCreateAndFetchTeamOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/teams", "u1", `{"name":"Acme","description":"Launch"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rr.Code, rr.Body.String())
	}
	created := decodeResponse(t, rr)
	teamID, _ := created["id"].(string)
	if teamID == "" {
		t.Fatalf("missing team id in %v", created)
	}
	if created["ownerId"] != "u1" || created["memberCount"] != float64(1) {
		t.Fatalf("created payload = %v", created)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/teams/"+teamID, "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	fetched := decodeResponse(t, rr)
	if fetched["name"] != "Acme" {
		t.Fatalf("fetched payload = %v", fetched)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/teams", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	listed := decodeResponse(t, rr)
	teams, _ := listed["teams"].([]any)
	if len(teams) != 1 {
		t.Fatalf("listed teams = %v", listed)
	}
}

func TestCreateTeamValidationOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/teams", "u1", `{"name":"  "}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	payload := decodeResponse(t, rr)
	if payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("code = %v", payload["code"])
	}
}

func TestJoinLeaveFlowOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/teams", "u1", `{"name":"Acme"}`)
	created := decodeResponse(t, rr)
	teamID := created["id"].(string)

	rr = doRequest(t, server, http.MethodPost, "/api/teams/"+teamID+"/join", "u2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("join status = %d body=%s", rr.Code, rr.Body.String())
	}
	joined := decodeResponse(t, rr)
	if joined["memberCount"] != float64(2) {
		t.Fatalf("memberCount = %v", joined["memberCount"])
	}

	rr = doRequest(t, server, http.MethodPost, "/api/teams/"+teamID+"/join", "u2", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("second join status = %d, want 409", rr.Code)
	}
	if decodeResponse(t, rr)["code"] != "ALREADY_MEMBER" {
		t.Fatalf("second join body = %s", rr.Body.String())
	}

	rr = doRequest(t, server, http.MethodGet, "/api/teams/"+teamID+"/members", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("members status = %d", rr.Code)
	}
	members, _ := decodeResponse(t, rr)["members"].([]any)
	if len(members) != 2 {
		t.Fatalf("members = %v", members)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/teams/"+teamID+"/leave", "u2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("leave status = %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, server, http.MethodPost, "/api/teams/"+teamID+"/leave", "u2", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("second leave status = %d, want 403", rr.Code)
	}
	if decodeResponse(t, rr)["code"] != "NOT_A_MEMBER" {
		t.Fatalf("second leave body = %s", rr.Body.String())
	}
}

func TestRemoveMemberOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/teams", "u1", `{"name":"Acme"}`)
	teamID := decodeResponse(t, rr)["id"].(string)
	doRequest(t, server, http.MethodPost, "/api/teams/"+teamID+"/join", "u2", "")

	rr = doRequest(t, server, http.MethodDelete, "/api/teams/"+teamID+"/members/u1", "u2", "")
	if rr.Code != http.StatusForbidden || decodeResponse(t, rr)["code"] != "CANNOT_REMOVE_OWNER" {
		t.Fatalf("owner removal: %d %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, server, http.MethodDelete, "/api/teams/"+teamID+"/members/u2", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("remove status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRoleRoutesOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/teams", "u1", `{"name":"Acme"}`)
	teamID := decodeResponse(t, rr)["id"].(string)

	rr = doRequest(t, server, http.MethodGet, "/api/teams/"+teamID+"/roles", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list roles status = %d", rr.Code)
	}
	roles, _ := decodeResponse(t, rr)["roles"].([]any)
	if len(roles) != 2 {
		t.Fatalf("roles = %v, want the two defaults", roles)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/teams/"+teamID+"/roles", "u1", `{"name":"Reviewer","permissions":["EDIT_NOTE"],"color":"#ff8800"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create role status = %d body=%s", rr.Code, rr.Body.String())
	}
	roleID := decodeResponse(t, rr)["id"].(string)

	rr = doRequest(t, server, http.MethodPut, "/api/teams/"+teamID+"/roles/"+roleID, "u1", `{"name":"Lead Reviewer"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update role status = %d body=%s", rr.Code, rr.Body.String())
	}
	if decodeResponse(t, rr)["name"] != "Lead Reviewer" {
		t.Fatalf("update body = %s", rr.Body.String())
	}

	var defaultRoleID string
	for _, raw := range roles {
		role := raw.(map[string]any)
		if role["isDefault"] == true {
			defaultRoleID = role["id"].(string)
			break
		}
	}
	rr = doRequest(t, server, http.MethodPut, "/api/teams/"+teamID+"/roles/"+defaultRoleID, "u1", `{"name":"Hacked"}`)
	if rr.Code != http.StatusConflict || decodeResponse(t, rr)["code"] != "IMMUTABLE_DEFAULT_ROLE" {
		t.Fatalf("default role update: %d %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, server, http.MethodDelete, "/api/teams/"+teamID+"/roles/"+roleID, "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete role status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAssignRoleAndPermissionsOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/teams", "u1", `{"name":"Acme"}`)
	teamID := decodeResponse(t, rr)["id"].(string)
	doRequest(t, server, http.MethodPost, "/api/teams/"+teamID+"/join", "u2", "")

	rr = doRequest(t, server, http.MethodPost, "/api/teams/"+teamID+"/roles", "u1", `{"name":"Reviewer","permissions":["EDIT_NOTE","DELETE_NOTE"]}`)
	roleID := decodeResponse(t, rr)["id"].(string)

	rr = doRequest(t, server, http.MethodPost, "/api/teams/"+teamID+"/members/u2/role", "u1", `{"roleId":""}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank roleId status = %d", rr.Code)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/teams/"+teamID+"/members/u2/role", "u1", `{"roleId":"`+roleID+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("assign status = %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, server, http.MethodGet, "/api/teams/"+teamID+"/members/u2/permissions", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("permissions status = %d", rr.Code)
	}
	perms, _ := decodeResponse(t, rr)["permissions"].([]any)
	if len(perms) != 2 {
		t.Fatalf("permissions = %v", perms)
	}
}

func TestUnknownRouteOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doRequest(t, server, http.MethodGet, "/api/unknown", "u1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/teams/missing", "u1", "")
	if rr.Code != http.StatusNotFound || decodeResponse(t, rr)["code"] != "NOT_FOUND" {
		t.Fatalf("missing team: %d %s", rr.Code, rr.Body.String())
	}
}
