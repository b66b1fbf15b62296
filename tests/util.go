// Package testutil provides the helpers shared by the integration tests: an in-memory
// migrated database, a test configuration and fixture builders.
package testutil

import (
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
)

func init() {
	goose.SetLogger(log.New(io.Discard, "", 0))
}

// Config returns a configuration suitable for tests: TEST env, in-memory SQLite & sessions.
func Config() *core.Config {
	return &core.Config{
		AppName:              "Shule",
		Env:                  "TEST",
		Build:                "test",
		Debug:                false,
		TestMode:             true,
		SecretKey:            "test-secret-key",
		FrontendBaseURL:      "http://localhost:5173",
		DefaultFromEmail:     mail.Address{Name: "Shule", Address: "noreply@shule.test"},
		PasswordResetTimeout: 3 * 24 * time.Hour,
		SessionStore:         core.SessionStoreMemory,
		Server: core.ServerConfig{
			Address:             ":0",
			ShutdownTimeout:     time.Second,
			DisableReqLogs:      true,
			SessionCookieName:   "shule_session",
			SessionTTL:          time.Hour,
			StudentsRequireAuth: true,
		},
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Path:   ":memory:",
		},
	}
}

// PrepareDB opens a migrated in-memory database that is closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf := Config()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0]
	}
	tstamp = tstamp.UTC().Truncate(time.Microsecond)
	usr := user.User{
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(t.Context(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo student.Repository, name, grade string, createdAt ...time.Time) student.Student {
	t.Helper()

	tstamp := time.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0]
	}
	tstamp = tstamp.UTC().Truncate(time.Microsecond)
	s, err := repo.CreateStudent(t.Context(), student.Student{
		Name:      name,
		Grade:     grade,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}
