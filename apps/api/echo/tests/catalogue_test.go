package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/auth"
	"github.com/trezcool/masomo-lms/core/catalogue"
	"github.com/trezcool/masomo-lms/tests"
)

var errUnavailable = httpErr{Error: "temporarily unavailable"}

func Test_catalogueApi_query(t *testing.T) {
	app := setup(t)
	sciences := testutil.CreateCatalogue(t, app.repo, "cat-1", "Sciences")
	arts := testutil.CreateCatalogue(t, app.repo, "cat-2", "Arts")

	tests := []httpTest{
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/v1/catalogues",
			wantCode: http.StatusOK,
			wantData: marchallList(t, arts, sciences),
		},
		{
			name:     "trailing slash",
			method:   http.MethodGet,
			path:     "/v1/catalogues/",
			wantCode: http.StatusOK,
			wantData: marchallList(t, arts, sciences),
		},
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     "/v1/catalogues/cat-1",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, sciences),
		},
		{
			name:     "not found",
			method:   http.MethodGet,
			path:     "/v1/catalogues/unknown",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	runHTTPTests(t, app, tests)

	// not found is final: one read, no retries
	before := app.flaky.Reads()
	app.do(http.MethodGet, "/v1/catalogues/missing", "")
	assert.Equal(t, 1, app.flaky.Reads()-before)
}

func Test_catalogueApi_queryCourses(t *testing.T) {
	app := setup(t)
	cat := testutil.CreateCatalogue(t, app.repo, "cat-1", "Sciences")
	calculus := testutil.CreateCourse(t, app.repo, cat.ID, "MATH101", "Calculus", 4)
	mechanics := testutil.CreateCourse(t, app.repo, cat.ID, "PHY101", "Mechanics", 3)
	algebra := testutil.CreateCourse(t, app.repo, cat.ID, "MATH201", "Linear Algebra", 5)

	base := "/v1/catalogues/" + cat.ID + "/courses"
	tests := []httpTest{
		{
			name:     "default ordering",
			method:   http.MethodGet,
			path:     base,
			wantCode: http.StatusOK,
			wantData: marchallList(t, calculus, algebra, mechanics),
		},
		{
			name:     "search",
			method:   http.MethodGet,
			path:     base + "?search=math",
			wantCode: http.StatusOK,
			wantData: marchallList(t, calculus, algebra),
		},
		{
			name:     "limit",
			method:   http.MethodGet,
			path:     base + "?limit=1&ordering=-credits",
			wantCode: http.StatusOK,
			wantData: marchallList(t, algebra),
		},
		{
			name:     "unknown ordering field",
			method:   http.MethodGet,
			path:     base + "?ordering=title,-password",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"ordering": `cannot order by "password"`}),
		},
		{
			name:     "operator params are dropped",
			method:   http.MethodGet,
			path:     base + "?$where=1&search=phy",
			wantCode: http.StatusOK,
			wantData: marchallList(t, mechanics),
		},
		{
			name:     "limit too high",
			method:   http.MethodGet,
			path:     base + "?limit=500",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "limit not a number",
			method:   http.MethodGet,
			path:     base + "?limit=ten",
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_catalogueApi_createSemester(t *testing.T) {
	app := setup(t)
	cat := testutil.CreateCatalogue(t, app.repo, "cat-1", "Sciences")
	path := "/v1/catalogues/" + cat.ID + "/semesters"

	teacherToken := getToken(t, app.conf, auth.RoleTeacher)
	studentToken := getToken(t, app.conf, auth.RoleStudent)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	valid := marchallObj(t, catalogue.NewSemester{Name: " Fall 2026 ", StartDate: start, EndDate: start.AddDate(0, 4, 0)})

	// list is cached before the write
	rec := app.do(http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     path,
			body:     valid,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "student",
			method:   http.MethodPost,
			path:     path,
			body:     valid,
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "blank name & missing dates",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{"name": "  "}`),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":       "this field cannot be blank",
				"start_date": "this field is required",
				"end_date":   "this field is required",
			}),
		},
		{
			name:   "ends before start",
			method: http.MethodPost,
			path:   path,
			body: marchallObj(t, catalogue.NewSemester{
				Name:      "Fall",
				StartDate: start,
				EndDate:   start.AddDate(0, -1, 0),
			}),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"end_date": "end_date must be after start_date"}),
		},
		{
			name:   "name with symbols",
			method: http.MethodPost,
			path:   path,
			body: marchallObj(t, catalogue.NewSemester{
				Name:      "Fall/2026",
				StartDate: start,
				EndDate:   start.AddDate(0, 4, 0),
			}),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "only alphanumeric characters and underscores are allowed"}),
		},
		{
			name:     "unknown catalogue",
			method:   http.MethodPost,
			path:     "/v1/catalogues/unknown/semesters",
			body:     valid,
			token:    teacherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	runHTTPTests(t, app, tests)

	rec = app.do(http.MethodPost, path, teacherToken, valid)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sem catalogue.Semester
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sem))
	assert.Equal(t, "Fall 2026", sem.Name)
	assert.Equal(t, cat.ID, sem.CatalogueID)

	// the cached list was invalidated by the write
	rec = app.do(http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sems []catalogue.Semester
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sems))
	if assert.Len(t, sems, 1) {
		assert.Equal(t, sem.ID, sems[0].ID)
	}
}

func Test_catalogueApi_suppression(t *testing.T) {
	app := setup(t)
	testutil.CreateCatalogue(t, app.repo, "cat-1", "Sciences")
	path := "/v1/catalogues/cat-1/semesters"
	adminToken := getToken(t, app.conf, auth.RoleAdmin)
	serverErr := marchallObj(t, httpErr{Error: http.StatusText(http.StatusInternalServerError)})

	app.flaky.SetDown(true)

	// each request makes 1 attempt + 3 retries, each counted
	for i := 1; i <= 2; i++ {
		rec := app.do(http.MethodGet, path, "")
		checkCodeAndData(t, httpTest{wantCode: http.StatusInternalServerError, wantData: serverErr}, rec)
		assert.Equal(t, 4*i, app.flaky.Reads())
	}

	// 8 consecutive failures: the key is suppressed and the repository is left alone
	rec := app.do(http.MethodGet, path, "")
	checkCodeAndData(t, httpTest{wantCode: http.StatusServiceUnavailable, wantData: marchallObj(t, errUnavailable)}, rec)
	assert.Equal(t, 8, app.flaky.Reads())

	// other keys are unaffected
	rec = app.do(http.MethodGet, "/v1/catalogues/cat-1/courses", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// recovery is not noticed until the key is reset
	app.flaky.SetDown(false)
	rec = app.do(http.MethodGet, path, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = app.do(http.MethodDelete, "/v1/queries?key="+url.QueryEscape(`["semesters","cat-1"]`), adminToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(http.MethodGet, path, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func Test_catalogueApi_suppressedServesCachedData(t *testing.T) {
	app := setup(t)
	sciences := testutil.CreateCatalogue(t, app.repo, "cat-1", "Sciences")
	want := marchallList(t, sciences)

	rec := app.do(http.MethodGet, "/v1/catalogues", "")
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: want}, rec)

	app.flaky.SetDown(true)
	for i := 0; i < 2; i++ {
		rec = app.do(http.MethodGet, "/v1/catalogues", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}

	rec = app.do(http.MethodGet, "/v1/catalogues", "")
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: want}, rec)
}
