package student_test

import (
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/storage/database/sqlxrepos"
	"github.com/trezcool/shule/tests"
)

func newService(t *testing.T) *student.Service {
	db := testutil.PrepareDB(t)
	return student.NewService(db, sqlxrepos.NewStudentRepository(db))
}

func newValidator() (*validator.Validate, ut.Translator, func(error) map[string]string) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return validate, translator, func(err error) map[string]string {
		switch e := err.(type) {
		case validator.ValidationErrors:
			return core.TranslateErrors(e, translator)
		case *core.ValidationError:
			return e.FieldMap()
		}
		return nil
	}
}

func strPtr(s string) *string { return &s }

func TestService_CRUD(t *testing.T) {
	ctx := t.Context()
	svc := newService(t)

	const n, m = 5, 2
	var ids []int64
	for i := 0; i < n; i++ {
		s, err := svc.Create(ctx, student.NewStudent{Name: "Student", Grade: "4"})
		require.NoError(t, err)
		assert.NotZero(t, s.ID)
		assert.Equal(t, s.CreatedAt, s.UpdatedAt)
		ids = append(ids, s.ID)
	}

	updated, err := svc.Update(ctx, ids[0], student.UpdateStudent{Grade: strPtr("5")})
	require.NoError(t, err)
	assert.Equal(t, "Student", updated.Name)
	assert.Equal(t, "5", updated.Grade)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	same, err := svc.Update(ctx, ids[0], student.UpdateStudent{})
	require.NoError(t, err)
	assert.Equal(t, updated, same)

	for _, id := range ids[:m] {
		require.NoError(t, svc.Delete(ctx, id))
		_, err = svc.GetByID(ctx, id)
		assert.Equal(t, student.ErrNotFound, err)
	}
	assert.Equal(t, student.ErrNotFound, svc.Delete(ctx, ids[0]))

	_, err = svc.Update(ctx, ids[0], student.UpdateStudent{Name: strPtr("Ghost")})
	assert.Equal(t, student.ErrNotFound, err)

	students, err := svc.Query(ctx, new(student.QueryFilter), nil)
	require.NoError(t, err)
	assert.Len(t, students, n-m)
	for i, s := range students {
		assert.Equal(t, ids[m+i], s.ID)
	}
}

func TestService_Query(t *testing.T) {
	ctx := t.Context()
	svc := newService(t)

	students, err := svc.Query(ctx, new(student.QueryFilter), nil)
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Empty(t, students)

	_, err = svc.Query(ctx, new(student.QueryFilter), []core.DBOrdering{{Field: "password"}})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{"ordering": `cannot order by "password"`}, vErr.FieldMap())
}

func TestService_Import(t *testing.T) {
	ctx := t.Context()
	svc := newService(t)
	validate, translator, translate := newValidator()

	tests := []struct {
		name       string
		rows       []student.ImportRow
		wantErrs   map[string]string
		wantCount  int
		totalAfter int
	}{
		{
			name:     "no rows",
			wantErrs: map[string]string{"file": "no students found"},
		},
		{
			name: "invalid rows",
			rows: []student.ImportRow{
				{Row: 2, Student: student.NewStudent{Name: "Amani Juma", Grade: "5"}},
				{Row: 3, Student: student.NewStudent{Name: "  ", Grade: "5"}},
				{Row: 4, Student: student.NewStudent{Name: "Baraka", Grade: "a grade too long"}},
			},
			wantErrs: map[string]string{
				"row 3: name":  "the name field is required",
				"row 4: grade": "grade must be a maximum of 10 characters in length",
			},
		},
		{
			name: "valid rows",
			rows: []student.ImportRow{
				{Row: 2, Student: student.NewStudent{Name: " Amani Juma ", Grade: "5"}},
				{Row: 3, Student: student.NewStudent{Name: "Baraka Otieno", Grade: "6B"}},
			},
			wantCount:  2,
			totalAfter: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := svc.Import(ctx, validate, translator, tt.rows)
			if tt.wantErrs != nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrs, translate(err))
			} else {
				require.NoError(t, err)
				assert.Len(t, created, tt.wantCount)
				assert.Equal(t, "Amani Juma", created[0].Name)
			}

			all, err := svc.Query(ctx, new(student.QueryFilter), nil)
			require.NoError(t, err)
			assert.Len(t, all, tt.totalAfter)
		})
	}
}
