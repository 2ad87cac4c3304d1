package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/catalogue"
)

var ErrUnavailable = errors.New("database unavailable")

func CreateCatalogue(t *testing.T, repo catalogue.Repository, id, name string) catalogue.Catalogue {
	cat, err := repo.CreateCatalogue(context.Background(), catalogue.Catalogue{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCatalogue() failed: %v", err)
	}
	return cat
}

func CreateCourse(t *testing.T, repo catalogue.Repository, catID, code, title string, credits int) catalogue.Course {
	course, err := repo.CreateCourse(context.Background(), catalogue.Course{
		CatalogueID: catID,
		Code:        code,
		Title:       title,
		Credits:     credits,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return course
}

func CreateSemester(t *testing.T, repo catalogue.Repository, catID, name string, start time.Time) catalogue.Semester {
	sem, err := repo.CreateSemester(context.Background(), catalogue.Semester{
		CatalogueID: catID,
		Name:        name,
		StartDate:   start.UTC(),
		EndDate:     start.UTC().AddDate(0, 4, 0),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSemester() failed: %v", err)
	}
	return sem
}

// FlakyRepository fails every read while Down is set, and counts the reads it served or failed.
type FlakyRepository struct {
	catalogue.Repository

	mu    sync.Mutex
	down  bool
	reads int
}

var _ catalogue.Repository = (*FlakyRepository)(nil)

func NewFlakyRepository(repo catalogue.Repository) *FlakyRepository {
	return &FlakyRepository{Repository: repo}
}

func (repo *FlakyRepository) SetDown(down bool) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.down = down
}

func (repo *FlakyRepository) Reads() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.reads
}

func (repo *FlakyRepository) read() error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.reads++
	if repo.down {
		return ErrUnavailable
	}
	return nil
}

func (repo *FlakyRepository) QueryCatalogues(ctx context.Context) ([]catalogue.Catalogue, error) {
	if err := repo.read(); err != nil {
		return nil, err
	}
	return repo.Repository.QueryCatalogues(ctx)
}

func (repo *FlakyRepository) GetCatalogue(ctx context.Context, id string) (catalogue.Catalogue, error) {
	if err := repo.read(); err != nil {
		return catalogue.Catalogue{}, err
	}
	return repo.Repository.GetCatalogue(ctx, id)
}

func (repo *FlakyRepository) QueryCourses(
	ctx context.Context,
	catID string,
	filter catalogue.CourseFilter,
	ordering []core.DBOrdering,
) ([]catalogue.Course, error) {
	if err := repo.read(); err != nil {
		return nil, err
	}
	return repo.Repository.QueryCourses(ctx, catID, filter, ordering)
}

func (repo *FlakyRepository) QuerySemesters(ctx context.Context, catID string) ([]catalogue.Semester, error) {
	if err := repo.read(); err != nil {
		return nil, err
	}
	return repo.Repository.QuerySemesters(ctx, catID)
}
