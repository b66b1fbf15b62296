package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers the /debug/pprof handlers
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/session"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	appfs "github.com/trezcool/shule/fs"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/services/metrics"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/database/sqlxrepos"
	"github.com/trezcool/shule/storage/sessions/memstore"
	"github.com/trezcool/shule/storage/sessions/redisstore"
)

const logFlags = log.LstdFlags | log.Lmicroseconds | log.Lshortfile

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", logFlags), conf)
	defer logger.Close()
	dbLogger := logsvc.NewRollbarLogger(log.New(os.Stdout, "DB : ", logFlags), conf)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up session store
	sessions, closeSessions, err := setUpSessionStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up session store: %v", err), err)
	}
	defer closeSessions()

	// set up services
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, tmpls, log.New(os.Stdout, "EMAIL : ", logFlags), logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, tmpls, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	stdSvc := student.NewService(db, sqlxrepos.NewStudentRepository(db))
	appMetrics := metrics.New(conf.Build)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", appMetrics.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		StudentSvc: stdSvc,
		Sessions:   sessions,
		Metrics:    appMetrics,
		Validate:   validate,
		Translator: translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}

		// let the queued emails (password resets) go out
		if err = mailSvc.Wait(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not send all emails: %v", err), err)
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// setUpSessionStore returns the configured session store and a func releasing its resources.
func setUpSessionStore(conf *core.Config) (session.Store, func(), error) {
	switch conf.SessionStore {
	case core.SessionStoreRedis:
		client, err := redisstore.NewClient(context.Background(), conf.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client), func() { _ = client.Close() }, nil
	case core.SessionStoreMemory, "":
		return memstore.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", conf.SessionStore)
	}
}
