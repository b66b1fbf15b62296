package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/routes"
)

func TestServer_misc(t *testing.T) {
	env := setup(t)

	runHTTPTests(t, env, []httpTest{
		{name: "home", method: http.MethodGet, path: routes.Home().Path, wantCode: http.StatusOK,
			wantData: []byte(`{"message":"Welcome to the School Management API"}`)},
		{name: "health", method: http.MethodGet, path: routes.Health().Path, wantCode: http.StatusOK,
			wantData: []byte(`{"msg":"It works!"}`)},
		{name: "trailing slash", method: http.MethodGet, path: "/test-students/", wantCode: http.StatusOK,
			wantData: []byte(`{"msg":"It works!"}`)},
		{name: "unknown route", method: http.MethodGet, path: "/api/courses", wantCode: http.StatusNotFound,
			wantData: []byte(`{"error":"Not Found"}`)},
		{name: "method not allowed", method: http.MethodDelete, path: routes.Health().Path, wantCode: http.StatusMethodNotAllowed,
			wantData: []byte(`{"error":"Method Not Allowed"}`)},
	})
}

func TestServer_docs(t *testing.T) {
	env := setup(t)

	r := routes.Docs()
	rec := env.serve(newRequest(r.Method, r.Path, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<redoc spec-url="/api/docs/openapi.yaml">`)

	r = routes.OpenAPI()
	rec = env.serve(newRequest(r.Method, r.Path, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "openapi: 3.0.3")
	assert.Contains(t, rec.Body.String(), "/api/students/{id}:")
}

func TestServer_routes(t *testing.T) {
	env := setup(t)

	registered := make(map[string]routes.Route)
	for _, r := range env.app.Routes() {
		if r.Name != "" {
			registered[r.Name] = routes.Route{Name: r.Name, Method: r.Method, Path: r.Path}
		}
	}
	for _, want := range routes.All() {
		got, ok := registered[want.Name]
		if assert.True(t, ok, "route %s is not registered", want.Name) {
			assert.Equal(t, want, got)
		}
	}
}

func TestServer_metrics(t *testing.T) {
	env := setup(t)

	env.serve(newRequest(http.MethodGet, routes.Health().Path, nil))
	env.serve(newRequest(http.MethodGet, routes.StudentsIndex().Path, nil))

	rec := httptest.NewRecorder()
	env.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `shule_http_requests_total{code="200",method="GET",route="/test-students"} 1`)
	assert.Contains(t, body, `shule_http_requests_total{code="401",method="GET",route="/api/students"} 1`)
}
