package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/catalogue"
)

type catalogueRepository struct {
	db *catalogueTables
}

var _ catalogue.Repository = (*catalogueRepository)(nil) // interface compliance check

func NewCatalogueRepository(db *DB) catalogue.Repository {
	return &catalogueRepository{db: db.catalogue}
}

func (repo *catalogueRepository) QueryCatalogues(_ context.Context) ([]catalogue.Catalogue, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cats := make([]catalogue.Catalogue, 0, len(repo.db.catalogues))
	for _, cat := range repo.db.catalogues {
		cats = append(cats, *cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

func (repo *catalogueRepository) GetCatalogue(_ context.Context, id string) (catalogue.Catalogue, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cat, ok := repo.db.catalogues[id]; ok {
		return *cat, nil
	}
	return catalogue.Catalogue{}, catalogue.ErrNotFound
}

func (repo *catalogueRepository) CreateCatalogue(_ context.Context, cat catalogue.Catalogue) (catalogue.Catalogue, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if cat.ID == "" {
		cat.ID = uuid.New().String()
	}
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = time.Now().UTC()
	}
	repo.db.catalogues[cat.ID] = &cat
	return cat, nil
}

func (repo *catalogueRepository) QueryCourses(
	_ context.Context,
	catID string,
	filter catalogue.CourseFilter,
	ordering []core.DBOrdering,
) ([]catalogue.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	courses := make([]catalogue.Course, 0)
	for _, course := range repo.db.courses {
		if course.CatalogueID != catID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(course.Code), search) &&
			!strings.Contains(strings.ToLower(course.Title), search) {
			continue
		}
		courses = append(courses, *course)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "code", Ascending: true}}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compareCourses(courses[i], courses[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})

	if filter.Limit > 0 && len(courses) > filter.Limit {
		courses = courses[:filter.Limit]
	}
	return courses, nil
}

func compareCourses(a, b catalogue.Course, field string) int {
	switch field {
	case "code":
		return strings.Compare(a.Code, b.Code)
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "credits":
		return a.Credits - b.Credits
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}

func (repo *catalogueRepository) CreateCourse(_ context.Context, course catalogue.Course) (catalogue.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.catalogues[course.CatalogueID]; !ok {
		return catalogue.Course{}, catalogue.ErrNotFound
	}
	if course.ID == "" {
		course.ID = uuid.New().String()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	repo.db.courses[course.ID] = &course
	return course, nil
}

func (repo *catalogueRepository) QuerySemesters(_ context.Context, catID string) ([]catalogue.Semester, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sems := make([]catalogue.Semester, 0)
	for _, sem := range repo.db.semesters {
		if sem.CatalogueID == catID {
			sems = append(sems, *sem)
		}
	}
	sort.Slice(sems, func(i, j int) bool { return sems[i].StartDate.Before(sems[j].StartDate) })
	return sems, nil
}

func (repo *catalogueRepository) CreateSemester(_ context.Context, sem catalogue.Semester) (catalogue.Semester, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.catalogues[sem.CatalogueID]; !ok {
		return catalogue.Semester{}, catalogue.ErrNotFound
	}
	if sem.ID == "" {
		sem.ID = uuid.New().String()
	}
	repo.db.semesters[sem.ID] = &sem
	return sem, nil
}
