package catalogue

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
)

var (
	endAfterStartTag  = "end_after_start"
	endAfterStartText = "end_date must be after start_date"
)

// InitValidators registers the catalogue validations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newSemesterStructValidation, NewSemester{})
	core.RegisterCustomTranslation(validate, translator, endAfterStartTag, endAfterStartText)
}

// newSemesterStructValidation does NewSemester's struct level validation
func newSemesterStructValidation(sl validator.StructLevel) {
	if ns, ok := sl.Current().Interface().(NewSemester); ok {
		if !ns.StartDate.IsZero() && !ns.EndDate.IsZero() && !ns.EndDate.After(ns.StartDate) {
			sl.ReportError(ns.EndDate, "end_date", "EndDate", endAfterStartTag, "")
		}
	}
}
