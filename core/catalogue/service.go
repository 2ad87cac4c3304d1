package catalogue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/query"
)

var (
	// errors
	ErrNotFound = errors.New("not found")
)

// query scopes
const (
	ScopeCatalogues = "catalogues"
	ScopeCourses    = "courses"
	ScopeSemesters  = "semesters"
)

func CataloguesKey() query.Key            { return query.Key{ScopeCatalogues} }
func CatalogueKey(id string) query.Key    { return query.Key{ScopeCatalogues, id} }
func SemestersKey(catID string) query.Key { return query.Key{ScopeSemesters, catID} }
func CoursesKey(catID string, filter CourseFilter, ordering []core.DBOrdering) query.Key {
	return query.Key{ScopeCourses, catID, filter, ordering}
}

type (
	Repository interface {
		QueryCatalogues(ctx context.Context) ([]Catalogue, error)
		GetCatalogue(ctx context.Context, id string) (Catalogue, error)
		CreateCatalogue(ctx context.Context, cat Catalogue) (Catalogue, error)
		// QueryCourses applies CourseFilter.Search as a case-insensitive match on Course.Code or Course.Title.
		QueryCourses(ctx context.Context, catID string, filter CourseFilter, ordering []core.DBOrdering) ([]Course, error)
		CreateCourse(ctx context.Context, course Course) (Course, error)
		QuerySemesters(ctx context.Context, catID string) ([]Semester, error)
		CreateSemester(ctx context.Context, sem Semester) (Semester, error)
	}

	// Service reads catalogue data through the resilient query layer.
	// Reads return a query.Result holding the data or the repository error.
	Service interface {
		Catalogues(ctx context.Context, opts ...query.Option) query.Result
		Catalogue(ctx context.Context, id string, opts ...query.Option) query.Result
		Courses(ctx context.Context, catID string, filter CourseFilter, ordering []core.DBOrdering, opts ...query.Option) query.Result
		Semesters(ctx context.Context, catID string, opts ...query.Option) query.Result
		CreateSemester(ctx context.Context, catID string, ns NewSemester) (Semester, error)
	}

	service struct {
		repo    Repository
		queries *query.Resilient
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, queries *query.Resilient) Service {
	return &service{repo: repo, queries: queries}
}

func (svc *service) Catalogues(ctx context.Context, opts ...query.Option) query.Result {
	return svc.queries.Execute(ctx, CataloguesKey(), func(ctx context.Context) (interface{}, error) {
		cats, err := svc.repo.QueryCatalogues(ctx)
		return cats, errors.Wrap(err, "querying catalogues")
	}, opts...)
}

func (svc *service) Catalogue(ctx context.Context, id string, opts ...query.Option) query.Result {
	return svc.queries.Execute(ctx, CatalogueKey(id), func(ctx context.Context) (interface{}, error) {
		cat, err := svc.repo.GetCatalogue(ctx, id)
		return cat, errors.Wrap(err, "getting catalogue")
	}, withNotFoundIsFinal(opts)...)
}

func (svc *service) Courses(ctx context.Context, catID string, filter CourseFilter, ordering []core.DBOrdering, opts ...query.Option) query.Result {
	ordering = CleanOrdering(ordering)
	return svc.queries.Execute(ctx, CoursesKey(catID, filter, ordering), func(ctx context.Context) (interface{}, error) {
		courses, err := svc.repo.QueryCourses(ctx, catID, filter, ordering)
		return courses, errors.Wrap(err, "querying courses")
	}, opts...)
}

func (svc *service) Semesters(ctx context.Context, catID string, opts ...query.Option) query.Result {
	return svc.queries.Execute(ctx, SemestersKey(catID), func(ctx context.Context) (interface{}, error) {
		sems, err := svc.repo.QuerySemesters(ctx, catID)
		return sems, errors.Wrap(err, "querying semesters")
	}, opts...)
}

// CreateSemester validated ns must be passed in.
func (svc *service) CreateSemester(ctx context.Context, catID string, ns NewSemester) (Semester, error) {
	if _, err := svc.repo.GetCatalogue(ctx, catID); err != nil {
		return Semester{}, errors.Wrap(err, "getting catalogue")
	}
	sem, err := svc.repo.CreateSemester(ctx, Semester{
		ID:          uuid.New().String(),
		CatalogueID: catID,
		Name:        ns.Name,
		StartDate:   ns.StartDate.UTC(),
		EndDate:     ns.EndDate.UTC(),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Semester{}, errors.Wrap(err, "creating semester")
	}
	svc.queries.Client().Invalidate(SemestersKey(catID))
	return sem, nil
}

// withNotFoundIsFinal appends notFoundIsFinal to a copy of opts.
func withNotFoundIsFinal(opts []query.Option) []query.Option {
	out := make([]query.Option, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, notFoundIsFinal)
}

// notFoundIsFinal does not retry missing records; other errors keep the caller's retry policy.
func notFoundIsFinal(o *query.Options) {
	retry := o.Retry
	o.Retry = func(failureCount int, err error) bool {
		if errors.Cause(err) == ErrNotFound {
			return false
		}
		return retry != nil && retry(failureCount, err)
	}
}
