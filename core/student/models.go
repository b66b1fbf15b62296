package student

import (
	"fmt"
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

const (
	NameMaxLen  = 255
	GradeMaxLen = 10
)

// OrderingFields are the fields students can be ordered by.
var OrderingFields = []string{"id", "name", "grade", "created_at", "updated_at"}

type Student struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Grade     string    `json:"grade" db:"grade"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name  string `json:"name" validate:"required,max=255"`
	Grade string `json:"grade" validate:"required,max=10"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Grade = core.CleanString(ns.Grade)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// nil fields are left untouched.
type UpdateStudent struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	Grade *string `json:"grade,omitempty" validate:"omitempty,notblank,max=10"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Name = core.CleanStringPtr(us.Name)
	us.Grade = core.CleanStringPtr(us.Grade)
	return validate.Struct(us)
}

// IsEmpty reports whether no field is to be updated.
func (us UpdateStudent) IsEmpty() bool {
	return us.Name == nil && us.Grade == nil
}

// Apply sets the provided fields on s.
func (us UpdateStudent) Apply(s *Student) {
	if us.Name != nil {
		s.Name = *us.Name
	}
	if us.Grade != nil {
		s.Grade = *us.Grade
	}
}

type QueryFilter struct {
	Search string   `query:"search"`
	Grades []string `query:"grade"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && len(qf.Grades) == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	grades := qf.Grades[:0]
	for _, g := range qf.Grades {
		if g = core.CleanString(g); g != "" {
			grades = append(grades, g)
		}
	}
	qf.Grades = grades
}

// CheckOrdering validates that every ordering field is one of OrderingFields.
func CheckOrdering(ordering []core.DBOrdering) error {
	for _, ord := range ordering {
		if !isOrderingField(ord.Field) {
			return core.NewValidationError(nil, core.FieldError{
				Field: "ordering",
				Error: fmt.Sprintf("cannot order by %q", ord.Field),
			})
		}
	}
	return nil
}

func isOrderingField(field string) bool {
	for _, f := range OrderingFields {
		if f == field {
			return true
		}
	}
	return false
}

// ImportRow is a NewStudent read from row Row of an imported spreadsheet.
type ImportRow struct {
	Row     int
	Student NewStudent
}

// ValidateImport validates every row; field errors are keyed "row <n>: <field>".
func ValidateImport(validate *validator.Validate, translator ut.Translator, rows []ImportRow) error {
	if len(rows) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "no students found"})
	}

	var fldErrs []core.FieldError
	for i := range rows {
		err := rows[i].Student.Validate(validate)
		if err == nil {
			continue
		}
		vErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for fld, msg := range core.TranslateErrors(vErrs, translator) {
			fldErrs = append(fldErrs, core.FieldError{Field: fmt.Sprintf("row %d: %s", rows[i].Row, fld), Error: msg})
		}
	}
	if len(fldErrs) > 0 {
		sort.Slice(fldErrs, func(i, j int) bool { return fldErrs[i].Field < fldErrs[j].Field })
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}
