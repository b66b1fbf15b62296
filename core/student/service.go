package student

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Student.Name.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, id int64, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

var nowFunc = time.Now // mockable

func NewService(db core.DB, repo Repository) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
	).CheckAndPanic()

	return &Service{db: db, repo: repo}
}

func now() time.Time {
	return nowFunc().UTC().Truncate(time.Microsecond)
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	tstamp := now()
	s := Student{
		Name:      ns.Name,
		Grade:     ns.Grade,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	s, err := svc.repo.CreateStudent(ctx, s)
	return s, errors.Wrap(err, "creating student")
}

// CreateMany creates all students in a single transaction: either all are created or none.
func (svc *Service) CreateMany(ctx context.Context, nss []NewStudent) ([]Student, error) {
	students := make([]Student, 0, len(nss))
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		tstamp := now()
		for _, ns := range nss {
			s, err := svc.repo.CreateStudent(ctx, Student{
				Name:      ns.Name,
				Grade:     ns.Grade,
				CreatedAt: tstamp,
				UpdatedAt: tstamp,
			}, tx)
			if err != nil {
				return errors.Wrap(err, "creating student")
			}
			students = append(students, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if err := CheckOrdering(ordering); err != nil {
		return nil, err
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "id", Ascending: true}}
	}
	students, err := svc.repo.QueryStudents(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

// Update applies the provided fields of us to the Student identified by id.
func (svc *Service) Update(ctx context.Context, id int64, us UpdateStudent) (Student, error) {
	var s Student
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if s, err = svc.repo.GetStudent(ctx, id, tx); err != nil {
			return err
		}
		if us.IsEmpty() {
			return nil
		}
		us.Apply(&s)
		s.UpdatedAt = now()
		s, err = svc.repo.UpdateStudent(ctx, s, tx)
		return errors.Wrap(err, "updating student")
	})
	if err != nil {
		return Student{}, err
	}
	return s, nil
}

// Delete deletes the Student identified by id; ErrNotFound is returned if there was none.
func (svc *Service) Delete(ctx context.Context, id int64) error {
	cnt, err := svc.repo.DeleteStudentsByID(ctx, []int64{id})
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if cnt == 0 {
		return ErrNotFound
	}
	return nil
}

// Import validates all rows and creates their students in a single transaction.
// Nothing is created if any row is invalid.
func (svc *Service) Import(ctx context.Context, validate *validator.Validate, translator ut.Translator, rows []ImportRow) ([]Student, error) {
	if err := ValidateImport(validate, translator, rows); err != nil {
		return nil, err
	}
	nss := make([]NewStudent, 0, len(rows))
	for _, r := range rows {
		nss = append(nss, r.Student)
	}
	return svc.CreateMany(ctx, nss)
}
