// Package database opens the SQL database selected by the configuration and runs its
// migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/shule/core"
	appfs "github.com/trezcool/shule/fs"
)

// engines
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"  // modernc.org/sqlite, pure Go
	EngineSQLite3  = "sqlite3" // mattn/go-sqlite3, cgo
)

var errUnknownEngine = errors.New("unknown database engine")

func init() {
	// sqlx does not know modernc's driver name
	sqlx.BindDriver(EngineSQLite, sqlx.QUESTION)
}

func postgresDSN(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func sqliteDSN(conf *core.Config) string {
	path := conf.Database.Path
	if path == "" {
		path = ":memory:"
	}
	if conf.Database.Engine == EngineSQLite {
		return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return path + "?_foreign_keys=1&_busy_timeout=5000"
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	switch conf.Database.Engine {
	case EnginePostgres:
		return sqlx.Open(EnginePostgres, postgresDSN(dbName, admin, conf))
	case EngineSQLite, EngineSQLite3:
		db, err := sqlx.Open(conf.Database.Engine, sqliteDSN(conf))
		if err != nil {
			return nil, err
		}
		// a single connection serializes writers and keeps `:memory:` databases alive
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		return db, nil
	default:
		return nil, errors.Wrap(errUnknownEngine, conf.Database.Engine)
	}
}

// Open opens the application database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// StatusCheck returns nil if it can successfully talk to the database.
func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	var tmp bool
	return db.QueryRowContext(ctx, "SELECT true").Scan(&tmp)
}

func exists(db *sqlx.DB, query string, args ...interface{}) (bool, error) {
	var found bool
	err := db.Get(&found, db.Rebind(query), args...)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = ?", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		// identifiers and passwords cannot be bound as parameters in DDL
		q := fmt.Sprintf(
			"CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
			pq.QuoteIdentifier(conf.Database.User), pq.QuoteLiteral(conf.Database.Password),
		)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = ?", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the PostgreSQL app user and database if they do not exist yet.
// SQLite databases are created on open, so it is a no-op for them.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.IsSQLite() {
		return nil
	}

	// connect as admin
	db, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	if err = ping(db.DB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return err
	}

	// create DB as app user
	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()
	return createDB(appDB, conf)
}

func setupGoose(engine string) (string, error) {
	dialect := EnginePostgres
	if engine == EngineSQLite || engine == EngineSQLite3 {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return "", errors.Wrap(err, "setting goose dialect")
	}
	goose.SetBaseFS(appfs.FS)
	return appfs.MigrationsDir(engine), nil
}

// Migrate applies all pending migrations.
func Migrate(db *sqlx.DB, engine string) error {
	return RunMigrations(db, engine, "up")
}

// RunMigrations runs a goose command (up, down, status, version, redo, reset...)
// against the embedded migrations.
func RunMigrations(db *sqlx.DB, engine, command string, args ...string) error {
	dir, err := setupGoose(engine)
	if err != nil {
		return err
	}
	if err = goose.Run(command, db.DB, dir, args...); err != nil {
		return errors.Wrapf(err, "running migrations: %s", command)
	}
	return nil
}
