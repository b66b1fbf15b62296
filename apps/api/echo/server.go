// Package echoapi is the HTTP API, served with Echo.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/session"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/routes"
	"github.com/trezcool/shule/services/metrics"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    *user.Service
		StudentSvc *student.Service
		Sessions   session.Store
		Metrics    *metrics.Metrics
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.StudentSvc, "StudentSvc"),
		vala.IsNotNil(deps.Sessions, "Sessions"),
		vala.IsNotNil(deps.Metrics, "Metrics"),
		vala.IsNotNil(deps.Validate, "Validate"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Logger.SetLevel(log.INFO)
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	s.app.Use(metricsMiddleware(s.deps.Metrics))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.handle(routes.NameHome, home)
	s.handle(routes.NameHealth, health)
	registerDocs(s)

	auth := newSessionAuth(conf, s.deps.Sessions, s.deps.UserSvc)
	registerAuthAPI(s, auth)

	var studentsAuth []echo.MiddlewareFunc
	if conf.Server.StudentsRequireAuth {
		studentsAuth = auth.middleware()
	}
	registerStudentAPI(s, studentsAuth...)
}

// handle registers h for the named route.
func (s *Server) handle(name string, h echo.HandlerFunc, mw ...echo.MiddlewareFunc) {
	r := routes.Lookup(name)
	s.app.Add(r.Method, r.Path, h, mw...).Name = r.Name
}

// Routes returns the registered routes.
func (s *Server) Routes() []*echo.Route {
	return s.app.Routes()
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the owner of the Server to shut it down.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Welcome to the School Management API"})
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"msg": "It works!"})
}
