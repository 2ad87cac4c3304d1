package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/catalogue"
)

type catalogueRepository struct {
	db core.DB
}

var _ catalogue.Repository = (*catalogueRepository)(nil) // interface compliance check

func NewCatalogueRepository(db core.DB) catalogue.Repository {
	return &catalogueRepository{db: db}
}

func (repo *catalogueRepository) QueryCatalogues(ctx context.Context) ([]catalogue.Catalogue, error) {
	cats := make([]catalogue.Catalogue, 0)
	q := `SELECT id, name, description, created_at FROM catalogue ORDER BY name`
	if err := repo.db.SelectContext(ctx, &cats, q); err != nil {
		return nil, errors.Wrap(err, "selecting catalogues")
	}
	return cats, nil
}

func (repo *catalogueRepository) GetCatalogue(ctx context.Context, id string) (catalogue.Catalogue, error) {
	var cat catalogue.Catalogue
	q := `SELECT id, name, description, created_at FROM catalogue WHERE id = $1`
	if err := repo.db.GetContext(ctx, &cat, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return catalogue.Catalogue{}, catalogue.ErrNotFound
		}
		return catalogue.Catalogue{}, errors.Wrap(err, "selecting catalogue")
	}
	return cat, nil
}

func (repo *catalogueRepository) CreateCatalogue(ctx context.Context, cat catalogue.Catalogue) (catalogue.Catalogue, error) {
	if cat.ID == "" {
		cat.ID = uuid.New().String()
	}
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = time.Now().UTC()
	}
	q := `INSERT INTO catalogue (id, name, description, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, cat.ID, cat.Name, cat.Description, cat.CreatedAt); err != nil {
		return catalogue.Catalogue{}, errors.Wrap(err, "inserting catalogue")
	}
	return cat, nil
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// orderBy builds an ORDER BY clause out of whitelisted course fields only.
func orderBy(ordering []core.DBOrdering) string {
	ordering = catalogue.CleanOrdering(ordering)
	if len(ordering) == 0 {
		return " ORDER BY code ASC"
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (repo *catalogueRepository) QueryCourses(
	ctx context.Context,
	catID string,
	filter catalogue.CourseFilter,
	ordering []core.DBOrdering,
) ([]catalogue.Course, error) {
	var sb strings.Builder
	args := []interface{}{catID}

	sb.WriteString(`SELECT id, catalogue_id, code, title, credits, created_at FROM course WHERE catalogue_id = ?`)
	if filter.Search != "" {
		sb.WriteString(` AND (code ILIKE ? ESCAPE '\' OR title ILIKE ? ESCAPE '\')`)
		pattern := "%" + likeEscaper.Replace(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}
	sb.WriteString(orderBy(ordering))
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	courses := make([]catalogue.Course, 0)
	if err := repo.db.SelectContext(ctx, &courses, repo.db.Rebind(sb.String()), args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	return courses, nil
}

func (repo *catalogueRepository) CreateCourse(ctx context.Context, course catalogue.Course) (catalogue.Course, error) {
	if course.ID == "" {
		course.ID = uuid.New().String()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	q := `INSERT INTO course (id, catalogue_id, code, title, credits, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, course.ID, course.CatalogueID, course.Code, course.Title, course.Credits, course.CreatedAt)
	if err != nil {
		return catalogue.Course{}, errors.Wrap(err, "inserting course")
	}
	return course, nil
}

func (repo *catalogueRepository) QuerySemesters(ctx context.Context, catID string) ([]catalogue.Semester, error) {
	sems := make([]catalogue.Semester, 0)
	q := `SELECT id, catalogue_id, name, start_date, end_date, created_at FROM semester WHERE catalogue_id = $1 ORDER BY start_date`
	if err := repo.db.SelectContext(ctx, &sems, q, catID); err != nil {
		return nil, errors.Wrap(err, "selecting semesters")
	}
	return sems, nil
}

func (repo *catalogueRepository) CreateSemester(ctx context.Context, sem catalogue.Semester) (catalogue.Semester, error) {
	q := `INSERT INTO semester (id, catalogue_id, name, start_date, end_date, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, sem.ID, sem.CatalogueID, sem.Name, sem.StartDate, sem.EndDate, sem.CreatedAt)
	if err != nil {
		return catalogue.Semester{}, errors.Wrap(err, "inserting semester")
	}
	return sem, nil
}
