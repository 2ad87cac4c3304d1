package sqlxrepos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/catalogue"
	"github.com/trezcool/masomo-lms/storage/database"
	"github.com/trezcool/masomo-lms/tests"
)

// openTestDB connects to $MASOMO_TEST_DATABASE_URL and migrates it.
func openTestDB(t *testing.T) *sqlx.DB {
	url := os.Getenv("MASOMO_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MASOMO_TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db, "up"))
	return db
}

func TestCatalogueRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewCatalogueRepository(db)
	ctx := context.Background()

	cat := testutil.CreateCatalogue(t, repo, uuid.New().String(), "Sciences")
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM catalogue WHERE id = $1`, cat.ID) })

	got, err := repo.GetCatalogue(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, cat.Name, got.Name)

	_, err = repo.GetCatalogue(ctx, uuid.New().String())
	assert.Equal(t, catalogue.ErrNotFound, err)

	testutil.CreateCourse(t, repo, cat.ID, "MATH101", "Calculus", 4)
	testutil.CreateCourse(t, repo, cat.ID, "PHY101", "Mechanics", 3)

	courses, err := repo.QueryCourses(ctx, cat.ID, catalogue.CourseFilter{Search: "calc", Limit: 10}, nil)
	require.NoError(t, err)
	if assert.Len(t, courses, 1) {
		assert.Equal(t, "MATH101", courses[0].Code)
	}

	// same results as the in-memory repository: wildcards are plain characters
	courses, err = repo.QueryCourses(ctx, cat.ID, catalogue.CourseFilter{Search: "MATH_01%", Limit: 10}, nil)
	require.NoError(t, err)
	assert.Empty(t, courses)

	courses, err = repo.QueryCourses(ctx, cat.ID, catalogue.CourseFilter{}, []core.DBOrdering{{Field: "credits"}})
	require.NoError(t, err)
	if assert.Len(t, courses, 2) {
		assert.Equal(t, "MATH101", courses[0].Code)
	}

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	testutil.CreateSemester(t, repo, cat.ID, "Fall", start)
	sems, err := repo.QuerySemesters(ctx, cat.ID)
	require.NoError(t, err)
	if assert.Len(t, sems, 1) {
		assert.True(t, start.Equal(sems[0].StartDate))
	}
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		ordering []core.DBOrdering
		want     string
	}{
		{nil, " ORDER BY code ASC"},
		{[]core.DBOrdering{{Field: "title", Ascending: true}}, " ORDER BY title ASC"},
		{[]core.DBOrdering{{Field: "credits"}, {Field: "code", Ascending: true}}, " ORDER BY credits DESC, code ASC"},
		{[]core.DBOrdering{{Field: "1; DROP TABLE course"}}, " ORDER BY code ASC"},
	}

	for _, tt := range tests {
		if got := orderBy(tt.ordering); got != tt.want {
			t.Errorf("orderBy(%v) failed! got %q; want %q", tt.ordering, got, tt.want)
		}
	}
}

func TestLikeEscaper(t *testing.T) {
	tests := []struct{ in, want string }{
		{"calc", "calc"},
		{"100%", `100\%`},
		{"MATH_101", `MATH\_101`},
		{`a\b`, `a\\b`},
	}

	for _, tt := range tests {
		if got := likeEscaper.Replace(tt.in); got != tt.want {
			t.Errorf("likeEscaper.Replace(%q) failed! got %q; want %q", tt.in, got, tt.want)
		}
	}
}
