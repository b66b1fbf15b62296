// Package tests holds the HTTP tests of the API, run against the full Echo server.
package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	appfs "github.com/trezcool/shule/fs"
	"github.com/trezcool/shule/routes"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/services/metrics"
	"github.com/trezcool/shule/storage/database/sqlxrepos"
	"github.com/trezcool/shule/storage/sessions/memstore"
	"github.com/trezcool/shule/tests"
)

const strongPwd = "Gr@deBook42"

var errUnauthenticated = httpErr{Error: "authentication required"}

type testEnv struct {
	app      *echoapi.Server
	conf     *core.Config
	db       *sqlx.DB
	usrRepo  user.Repository
	stdRepo  student.Repository
	usrSvc   *user.Service
	sessions *memstore.Store
	mailSvc  *emailsvc.ConsoleServiceMock
	metrics  *metrics.Metrics
}

// setup builds the API server over a fresh in-memory database.
func setup(t *testing.T, confOpts ...func(*core.Config)) *testEnv {
	t.Helper()

	conf := testutil.Config()
	for _, opt := range confOpts {
		opt(conf)
	}

	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	stdRepo := sqlxrepos.NewStudentRepository(db)

	// set up services
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, tmpls)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	stdSvc := student.NewService(db, stdRepo)
	sessions := memstore.New()
	m := metrics.New(conf.Build)
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "API : ", 0), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// set up server
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		StudentSvc: stdSvc,
		Sessions:   sessions,
		Metrics:    m,
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = app.Close() })

	return &testEnv{
		app:      app,
		conf:     conf,
		db:       db,
		usrRepo:  usrRepo,
		stdRepo:  stdRepo,
		usrSvc:   usrSvc,
		sessions: sessions,
		mailSvc:  mailSvc,
		metrics:  m,
	}
}

func (env *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	return rec
}

// login logs usr in and returns their session cookie.
func (env *testEnv) login(t *testing.T, email, pwd string) *http.Cookie {
	t.Helper()

	r := routes.Login()
	body := marchallObj(t, map[string]string{"email": email, "password": pwd})
	rec := env.serve(newRequest(r.Method, r.Path, nil, body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, env, rec)
}

func sessionCookie(t *testing.T, env *testEnv, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == env.conf.Server.SessionCookieName {
			return c
		}
	}
	t.Fatalf("sessionCookie(): no %q cookie", env.conf.Server.SessionCookieName)
	return nil
}

type httpErr struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookie   *http.Cookie
	wantCode int
	wantData []byte
}

func newRequest(method, path string, cookie *http.Cookie, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 && data[0] != nil {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	if body.Len() > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	return req
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	if objs == nil {
		objs = []interface{}{}
	}
	return marchallObj(t, objs)
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.serve(newRequest(tt.method, tt.path, tt.cookie, tt.body)))
		})
	}
}
