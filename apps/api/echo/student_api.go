package echoapi

import (
	"bytes"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/routes"
	"github.com/trezcool/shule/services/metrics"
	"github.com/trezcool/shule/services/spreadsheet"
)

const studentDeletedMsg = "Student deleted successfully"

type studentApi struct {
	svc        *student.Service
	metrics    *metrics.Metrics
	validate   *validator.Validate
	translator ut.Translator
}

func registerStudentAPI(s *Server, mw ...echo.MiddlewareFunc) {
	api := studentApi{
		svc:        s.deps.StudentSvc,
		metrics:    s.deps.Metrics,
		validate:   s.deps.Validate,
		translator: s.deps.Translator,
	}

	s.handle(routes.NameStudentsIndex, api.query, mw...)
	s.handle(routes.NameStudentsStore, api.create, mw...)
	s.handle(routes.NameStudentsExport, api.export, mw...)
	s.handle(routes.NameStudentsImport, api.importFile, mw...)

	// detail endpoints
	s.handle(routes.NameStudentsShow, api.retrieve, mw...)
	s.handle(routes.NameStudentsUpdate, api.update, mw...)
	s.handle(routes.NameStudentsPatch, api.update, mw...)
	s.handle(routes.NameStudentsDelete, api.destroy, mw...)
}

// optionalString is a null.String that records whether it was in the payload.
type optionalString struct {
	null.String
	Set bool
}

func (s *optionalString) UnmarshalJSON(data []byte) error {
	s.Set = true
	return s.String.UnmarshalJSON(data)
}

// updateStudentRequest tells absent fields (left untouched) from null ones (rejected).
type updateStudentRequest struct {
	Name  optionalString `json:"name"`
	Grade optionalString `json:"grade"`
}

func (req updateStudentRequest) toUpdateStudent() (student.UpdateStudent, error) {
	var (
		us      student.UpdateStudent
		fldErrs []core.FieldError
	)
	fields := []struct {
		name string
		val  optionalString
		dst  **string
	}{
		{"name", req.Name, &us.Name},
		{"grade", req.Grade, &us.Grade},
	}
	for _, f := range fields {
		switch {
		case !f.val.Set:
		case !f.val.Valid:
			fldErrs = append(fldErrs, core.RequiredFieldError(f.name))
		default:
			*f.dst = f.val.Ptr()
		}
	}
	if len(fldErrs) > 0 {
		return us, core.NewValidationError(nil, fldErrs...)
	}
	return us, nil
}

// Handlers

func (api *studentApi) queryStudents(ctx echo.Context) ([]student.Student, error) {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	return students, errors.Wrap(err, "querying students")
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.queryStudents(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	api.metrics.StudentsChanged(metrics.OpCreate, 1)
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	id, ok := paramID(ctx)
	if !ok {
		return student.ErrNotFound
	}
	s, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	id, ok := paramID(ctx)
	if !ok {
		return student.ErrNotFound
	}

	reqCtx := ctx.Request().Context()
	if _, err := api.svc.GetByID(reqCtx, id); err != nil {
		return errors.Wrap(err, "finding student by ID")
	}

	var req updateStudentRequest
	if err := bindBody(ctx, &req); err != nil {
		return errors.Wrap(err, "binding to updateStudentRequest")
	}
	data, err := req.toUpdateStudent()
	if err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Update(reqCtx, id, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	api.metrics.StudentsChanged(metrics.OpUpdate, 1)
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	id, ok := paramID(ctx)
	if !ok {
		return student.ErrNotFound
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	api.metrics.StudentsChanged(metrics.OpDelete, 1)
	return ctx.JSON(http.StatusOK, messageResponse{Message: studentDeletedMsg})
}

func (api *studentApi) export(ctx echo.Context) error {
	students, err := api.queryStudents(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = spreadsheet.WriteStudents(&buf, students); err != nil {
		return errors.Wrap(err, "exporting students")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="students.xlsx"`)
	return ctx.Blob(http.StatusOK, spreadsheet.ContentType, buf.Bytes())
}

func (api *studentApi) importFile(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return errFileRequired
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	rows, err := spreadsheet.ReadStudents(f)
	if err != nil {
		return err
	}
	students, err := api.svc.Import(ctx.Request().Context(), api.validate, api.translator, rows)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	api.metrics.StudentsChanged(metrics.OpImport, len(students))
	return ctx.JSON(http.StatusCreated, students)
}
