package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	appfs "github.com/trezcool/shule/fs"
	emailsvc "github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/spreadsheet"
	"github.com/trezcool/shule/storage/database/sqlxrepos"
	"github.com/trezcool/shule/tests"
)

const strongPwd = "Gr@deBook42"

type cliEnv struct {
	cli     *commandLine
	usrRepo user.Repository
	stdRepo student.Repository
}

func setup(t *testing.T) *cliEnv {
	t.Helper()
	conf := testutil.Config()

	// set up DB & services
	db := testutil.PrepareDB(t)
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)
	usrRepo := sqlxrepos.NewUserRepository(db)
	stdRepo := sqlxrepos.NewStudentRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	cli := newCommandLine(
		db,
		conf.Database.Engine,
		user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf, tmpls), conf),
		student.NewService(db, stdRepo),
		validate,
		translator,
	)
	cli.out = io.Discard
	return &cliEnv{cli: cli, usrRepo: usrRepo, stdRepo: stdRepo}
}

// mockPassword makes the password prompt return pwd.
func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) run(t *testing.T, cli *commandLine) error {
	t.Helper()
	mockPassword(t, tt.pwd)
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
	return err
}

func Test_commandLine_usage(t *testing.T) {
	env := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = tt.run(t, env.cli)
		})
	}

	var out bytes.Buffer
	env.cli.out = &out
	require.ErrorIs(t, env.cli.run([]string{"admin"}), errHelp)
	assert.Contains(t, out.String(), "importstudents -file PATH")
}

func Test_commandLine_migrate(t *testing.T) {
	env := setup(t)

	var gotCommand string
	var gotArgs []string
	orig := runMigrationsFunc
	runMigrationsFunc = func(db *sqlx.DB, engine, command string, args ...string) error {
		gotCommand, gotArgs = command, args
		return orig(db, engine, command, args...)
	}
	t.Cleanup(func() { runMigrationsFunc = orig })

	tests := []struct {
		cliTest
		wantCommand string
		wantArgs    []string
	}{
		{cliTest: cliTest{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp}},
		{
			cliTest:     cliTest{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `running migrations: lol: "lol": no such command`},
			wantCommand: "lol",
			wantArgs:    []string{},
		},
		{cliTest: cliTest{name: "status", args: []string{"migrate", "status"}}, wantCommand: "status", wantArgs: []string{}},
		{cliTest: cliTest{name: "version", args: []string{"migrate", "version"}}, wantCommand: "version", wantArgs: []string{}},
		{cliTest: cliTest{name: "up", args: []string{"migrate", "up"}}, wantCommand: "up", wantArgs: []string{}},
		{cliTest: cliTest{name: "up-to", args: []string{"migrate", "up-to", "1"}}, wantCommand: "up-to", wantArgs: []string{"1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCommand, gotArgs = "", nil
			_ = tt.run(t, env.cli)
			assert.Equal(t, tt.wantCommand, gotCommand)
			if tt.wantArgs != nil {
				assert.ElementsMatch(t, tt.wantArgs, gotArgs)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	env := setup(t)
	ctx := t.Context()

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-name", "Jane Admin"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Jane Admin", "-email", "jane@school.test"}, wantErr: errHelp},
		{
			name:       "invalid email",
			args:       []string{"adduser", "-name", "Jane Admin", "-email", "jane"},
			pwd:        strongPwd,
			wantErrStr: "email: email must be a valid email address",
		},
		{
			name:       "weak password",
			args:       []string{"adduser", "-name", "Jane Admin", "-email", "jane@school.test"},
			pwd:        "12345678",
			wantErrStr: "password: password cannot be entirely numeric",
		},
		{name: "create", args: []string{"adduser", "-name", "Jane Admin", "-email", "Jane@School.test"}, pwd: strongPwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = tt.run(t, env.cli)
		})
	}

	usr, err := env.usrRepo.GetUserByEmail(ctx, "jane@school.test")
	require.NoError(t, err)
	assert.Equal(t, "Jane Admin", usr.Name)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(strongPwd))

	// same email: password & status updated, no new user
	newPwd := "N3w-Term!2026"
	_ = cliTest{args: []string{"adduser", "-name", "Jane", "-email", "jane@school.test", "-inactive"}, pwd: newPwd}.run(t, env.cli)

	updated, err := env.usrRepo.GetUserByEmail(ctx, "jane@school.test")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, updated.ID)
	assert.False(t, updated.IsActive)
	assert.NoError(t, updated.CheckPassword(newPwd))
}

func Test_commandLine_resetPassword(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.usrRepo, "Jane Admin", "jane@school.test", strongPwd, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", usr.Email}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@school.test"}, pwd: strongPwd, wantErr: user.ErrNotFound},
		{
			name:       "password too short",
			args:       []string{"resetpassword", "-email", usr.Email},
			pwd:        "Sh0rt!",
			wantErrStr: "password: password must contain at least 8 characters",
		},
		{name: "reset", args: []string{"resetpassword", "-email", "JANE@school.test"}, pwd: "N3w-Term!2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = tt.run(t, env.cli)
		})
	}

	refreshed, err := env.usrRepo.GetUserByID(t.Context(), usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("N3w-Term!2026"))
}

func Test_commandLine_students(t *testing.T) {
	env := setup(t)
	dir := t.TempDir()

	// build an import file from the export writer
	src := filepath.Join(dir, "import.xlsx")
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, spreadsheet.WriteStudents(f, []student.Student{
		{Name: "Amani Kabila", Grade: "5A"},
		{Name: "Zawadi Mwamba", Grade: "6B"},
	}))
	require.NoError(t, f.Close())

	invalid := filepath.Join(dir, "invalid.xlsx")
	require.NoError(t, os.WriteFile(invalid, []byte("not a spreadsheet"), 0o600))

	exported := filepath.Join(dir, "export.xlsx")

	tests := []cliTest{
		{name: "import: no file", args: []string{"importstudents"}, wantErr: errHelp},
		{name: "import: missing file", args: []string{"importstudents", "-file", filepath.Join(dir, "nope.xlsx")}, wantErrStr: "opening file: open " + filepath.Join(dir, "nope.xlsx") + ": no such file or directory"},
		{name: "import: invalid file", args: []string{"importstudents", "-file", invalid}, wantErrStr: "file: not a valid xlsx file"},
		{name: "import", args: []string{"importstudents", "-file", src}},
		{name: "export: no file", args: []string{"exportstudents"}, wantErr: errHelp},
		{name: "export", args: []string{"exportstudents", "-file", exported}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = tt.run(t, env.cli)
		})
	}

	students, err := env.stdRepo.QueryStudents(t.Context(), nil, []core.DBOrdering{{Field: "id", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Amani Kabila", students[0].Name)
	assert.Equal(t, "6B", students[1].Grade)

	f, err = os.Open(exported)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := spreadsheet.ReadStudents(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Zawadi Mwamba", rows[1].Student.Name)
}
