package catalogue

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
)

const (
	DefaultCourseLimit = 50
	MaxCourseLimit     = 100
)

// Catalogue groups the courses and semesters offered by a school.
type Catalogue struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type Course struct {
	ID          string    `json:"id" db:"id"`
	CatalogueID string    `json:"catalogue_id" db:"catalogue_id"`
	Code        string    `json:"code" db:"code"`
	Title       string    `json:"title" db:"title"`
	Credits     int       `json:"credits" db:"credits"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type Semester struct {
	ID          string    `json:"id" db:"id"`
	CatalogueID string    `json:"catalogue_id" db:"catalogue_id"`
	Name        string    `json:"name" db:"name"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// NewSemester contains information needed to create a new Semester.
type NewSemester struct {
	Name      string    `json:"name" validate:"notblank,alphanum_,max=100"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

func (ns *NewSemester) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// CourseFilter is the query schema of course listings.
type CourseFilter struct {
	Search string `json:"search,omitempty" query:"search" validate:"omitempty,max=100"`
	Limit  int    `json:"limit,omitempty" query:"limit" validate:"omitempty,min=1,max=100"`
}

func (cf *CourseFilter) Validate(validate *validator.Validate) error {
	cf.Search = core.CleanString(cf.Search)
	if err := validate.Struct(cf); err != nil {
		return err
	}
	if cf.Limit == 0 {
		cf.Limit = DefaultCourseLimit
	}
	return nil
}

// course fields that listings may be ordered by
var courseOrderingFields = map[string]bool{
	"code":       true,
	"title":      true,
	"credits":    true,
	"created_at": true,
}

// ValidateOrdering rejects orderings on unknown course fields.
func ValidateOrdering(ordering []core.DBOrdering) error {
	for _, ord := range ordering {
		if !courseOrderingFields[ord.Field] {
			return core.NewValidationError(nil, core.FieldError{
				Field: "ordering",
				Error: "cannot order by " + strconv.Quote(ord.Field),
			})
		}
	}
	return nil
}

// CleanOrdering drops orderings on unknown course fields.
func CleanOrdering(ordering []core.DBOrdering) []core.DBOrdering {
	if len(ordering) == 0 {
		return nil
	}
	clean := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if courseOrderingFields[ord.Field] {
			clean = append(clean, ord)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}
