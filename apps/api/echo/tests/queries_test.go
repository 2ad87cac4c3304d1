package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/auth"
	"github.com/trezcool/masomo-lms/tests"
)

type policyResp struct {
	Key      string `json:"key"`
	Failures int    `json:"failures"`
	State    string `json:"state"`
}

func queryPath(key string) string {
	return "/v1/queries?key=" + url.QueryEscape(key)
}

func Test_queryApi_auth(t *testing.T) {
	app := setup(t)
	teacherToken := getToken(t, app.conf, auth.RoleTeacher)

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/v1/queries/failing",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "not an admin",
			method:   http.MethodGet,
			path:     "/v1/queries/failing",
			token:    teacherToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "reset as teacher",
			method:   http.MethodDelete,
			path:     queryPath(`["catalogues"]`),
			token:    teacherToken,
			wantCode: http.StatusForbidden,
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_queryApi(t *testing.T) {
	app := setup(t)
	testutil.CreateCatalogue(t, app.repo, "cat-1", "Sciences")
	adminToken := getToken(t, app.conf, auth.RoleAdminOwner)

	tests := []httpTest{
		{
			name:     "missing key",
			method:   http.MethodGet,
			path:     "/v1/queries",
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid query key"}),
		},
		{
			name:     "malformed key",
			method:   http.MethodGet,
			path:     queryPath(`{"a":1}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid query key"}),
		},
		{
			name:     "nothing failing",
			method:   http.MethodGet,
			path:     "/v1/queries/failing",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
	}
	runHTTPTests(t, app, tests)

	// unknown keys are healthy
	rec := app.do(http.MethodGet, queryPath(`["semesters","cat-1"]`), adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var policy policyResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &policy))
	assert.Equal(t, policyResp{Key: `["semesters","cat-1"]`, State: "healthy"}, policy)

	app.flaky.SetDown(true)
	app.do(http.MethodGet, "/v1/catalogues/cat-1/semesters", "")
	app.do(http.MethodGet, "/v1/catalogues", "")
	app.do(http.MethodGet, "/v1/catalogues", "")

	rec = app.do(http.MethodGet, "/v1/queries/failing", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var failing []policyResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failing))
	assert.Equal(t, []policyResp{
		{Key: `["catalogues"]`, Failures: 8, State: "suppressed"},
		{Key: `["semesters","cat-1"]`, Failures: 4, State: "healthy"},
	}, failing)

	rec = app.do(http.MethodDelete, queryPath(`["catalogues"]`), adminToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(http.MethodGet, queryPath(`["catalogues"]`), adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &policy))
	assert.Equal(t, policyResp{Key: `["catalogues"]`, State: "healthy"}, policy)
}

func Test_home(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo API!", rec.Body.String())
}
