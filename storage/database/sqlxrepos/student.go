package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

const studentColumns = "id, name, grade, created_at, updated_at"

// likeEscaper escapes the LIKE wildcards, `\` being the escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

type studentRepository struct {
	repository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{repository{exec: exec}}
}

func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	ex := repo.getExec(exec)
	q := ex.Rebind(`INSERT INTO students (name, grade, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id`)
	if err := sqlx.GetContext(ctx, ex, &s.ID, q, s.Name, s.Grade, s.CreatedAt.UTC(), s.UpdatedAt.UTC()); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	var (
		where  []string
		args   []interface{}
		search string // matched in Go when it cannot be in SQL
	)
	if filter != nil {
		// students with Name containing the search keyword.
		// SQLite's LOWER only folds ASCII: non-ASCII keywords are matched after the query.
		if kw := strings.ToLower(filter.Search); kw != "" {
			if isASCII(kw) {
				where = append(where, `LOWER(name) LIKE ? ESCAPE '\'`)
				args = append(args, "%"+likeEscaper.Replace(kw)+"%")
			} else {
				search = kw
			}
		}
		// students in any of the provided grades
		if len(filter.Grades) > 0 {
			clause, gradeArgs, err := sqlx.In("grade IN (?)", filter.Grades)
			if err != nil {
				return nil, errors.Wrap(err, "building grade filter")
			}
			where = append(where, clause)
			args = append(args, gradeArgs...)
		}
	}

	var q strings.Builder
	q.WriteString("SELECT " + studentColumns + " FROM students")
	if len(where) > 0 {
		q.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	q.WriteString(orderBy(ordering))

	ex := repo.getExec(exec)
	students := make([]student.Student, 0)
	if err := sqlx.SelectContext(ctx, ex, &students, ex.Rebind(q.String()), args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	if search != "" {
		matching := students[:0]
		for _, s := range students {
			if strings.Contains(strings.ToLower(s.Name), search) {
				matching = append(matching, s)
			}
		}
		students = matching
	}
	for i := range students {
		normalizeStudent(&students[i])
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id int64, exec ...core.DBExecutor) (student.Student, error) {
	ex := repo.getExec(exec)
	var s student.Student
	q := ex.Rebind("SELECT " + studentColumns + " FROM students WHERE id = ?")
	if err := sqlx.GetContext(ctx, ex, &s, q, id); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "selecting student")
	}
	normalizeStudent(&s)
	return s, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	ex := repo.getExec(exec)
	q := ex.Rebind(`UPDATE students SET name = ?, grade = ?, updated_at = ? WHERE id = ?`)
	res, err := ex.ExecContext(ctx, q, s.Name, s.Grade, s.UpdatedAt.UTC(), s.ID)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In("DELETE FROM students WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}

	ex := repo.getExec(exec)
	res, err := ex.ExecContext(ctx, ex.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted students")
	}
	return int(n), nil
}

func normalizeStudent(s *student.Student) {
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
}
