package tests

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/client"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/routes"
	"github.com/trezcool/shule/tests"
)

func strPtr(s string) *string { return &s }

func TestClient(t *testing.T) {
	ctx := t.Context()
	env := setup(t)
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin@shule.test", strongPwd, true)

	srv := httptest.NewServer(env.app)
	defer srv.Close()
	c, err := client.New(srv.URL)
	require.NoError(t, err)

	_, err = c.Me(ctx)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))
	assert.EqualError(t, err, "authentication required")

	_, err = c.Login(ctx, "admin@shule.test", "nope")
	assert.True(t, client.IsStatus(err, http.StatusBadRequest))
	assert.EqualError(t, err, "invalid credentials")

	usr, err := c.Login(ctx, "admin@shule.test", strongPwd)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, usr.ID)
	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin.Email, me.Email)

	_, err = c.CreateStudent(ctx, student.NewStudent{Name: "Amani Juma"})
	assert.True(t, client.IsStatus(err, http.StatusBadRequest))
	assert.EqualError(t, err, "the grade field is required")

	amani, err := c.CreateStudent(ctx, student.NewStudent{Name: "Amani Juma", Grade: "5B"})
	require.NoError(t, err)
	baraka, err := c.CreateStudent(ctx, student.NewStudent{Name: "Baraka Otieno", Grade: "6A"})
	require.NoError(t, err)

	students, err := c.ListStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []student.Student{amani, baraka}, students)
	students, err = c.ListStudents(ctx, routes.StudentsQuery{Grades: []string{"6A"}})
	require.NoError(t, err)
	assert.Equal(t, []student.Student{baraka}, students)

	updated, err := c.UpdateStudent(ctx, amani.ID, student.UpdateStudent{Grade: strPtr("6A")})
	require.NoError(t, err)
	assert.Equal(t, "Amani Juma", updated.Name)
	assert.Equal(t, "6A", updated.Grade)
	got, err := c.GetStudent(ctx, amani.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	data, err := c.ExportStudents(ctx)
	require.NoError(t, err)
	imported, err := c.ImportStudents(ctx, "students.xlsx", bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, updated.Name, imported[0].Name)
	assert.Equal(t, baraka.Grade, imported[1].Grade)

	msg, err := c.DeleteStudent(ctx, amani.ID)
	require.NoError(t, err)
	assert.Equal(t, "Student deleted successfully", msg)
	_, err = c.GetStudent(ctx, amani.ID)
	assert.True(t, client.IsStatus(err, http.StatusNotFound))
	assert.EqualError(t, err, "student not found")

	students, err = c.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 3)

	require.NoError(t, c.Logout(ctx))
	_, err = c.ListStudents(ctx)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))
}
