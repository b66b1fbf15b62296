// Package routes names every API route. The server registers its handlers from these
// definitions and clients build their requests with the typed builders.
package routes

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// route names
const (
	NameHome           = "home"
	NameHealth         = "health"
	NameDocs           = "docs.index"
	NameOpenAPI        = "docs.openapi"
	NameLogin          = "auth.login"
	NameLogout         = "auth.logout"
	NameMe             = "auth.me"
	NameForgotPassword = "auth.forgot_password"
	NameResetPassword  = "auth.reset_password"
	NameStudentsIndex  = "students.index"
	NameStudentsStore  = "students.store"
	NameStudentsShow   = "students.show"
	NameStudentsUpdate = "students.update"
	NameStudentsPatch  = "students.patch"
	NameStudentsDelete = "students.destroy"
	NameStudentsExport = "students.export"
	NameStudentsImport = "students.import"
)

const (
	idParam        = ":id"
	studentsPath   = "/api/students"
	studentPath    = studentsPath + "/" + idParam
	docsPath       = "/api/docs"
	authPathPrefix = "/auth"
)

type Route struct {
	Name   string
	Method string
	Path   string
}

// URL returns the route's URL relative to baseURL.
func (r Route) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + r.Path
}

// WithQuery returns r with the encoded query appended to its path.
func (r Route) WithQuery(query url.Values) Route {
	if q := query.Encode(); q != "" {
		r.Path += "?" + q
	}
	return r
}

// Param returns the name of the route's path parameter, or "".
func (r Route) Param() string {
	if i := strings.Index(r.Path, ":"); i >= 0 {
		return strings.SplitN(r.Path[i+1:], "/", 2)[0]
	}
	return ""
}

var all = []Route{
	{Name: NameHome, Method: http.MethodGet, Path: "/"},
	{Name: NameHealth, Method: http.MethodGet, Path: "/test-students"},
	{Name: NameDocs, Method: http.MethodGet, Path: docsPath},
	{Name: NameOpenAPI, Method: http.MethodGet, Path: docsPath + "/openapi.yaml"},
	{Name: NameLogin, Method: http.MethodPost, Path: authPathPrefix + "/login"},
	{Name: NameLogout, Method: http.MethodPost, Path: authPathPrefix + "/logout"},
	{Name: NameMe, Method: http.MethodGet, Path: authPathPrefix + "/me"},
	{Name: NameForgotPassword, Method: http.MethodPost, Path: authPathPrefix + "/forgot-password"},
	{Name: NameResetPassword, Method: http.MethodPost, Path: authPathPrefix + "/reset-password"},
	{Name: NameStudentsIndex, Method: http.MethodGet, Path: studentsPath},
	{Name: NameStudentsStore, Method: http.MethodPost, Path: studentsPath},
	{Name: NameStudentsExport, Method: http.MethodGet, Path: studentsPath + "/export"},
	{Name: NameStudentsImport, Method: http.MethodPost, Path: studentsPath + "/import"},
	{Name: NameStudentsShow, Method: http.MethodGet, Path: studentPath},
	{Name: NameStudentsUpdate, Method: http.MethodPut, Path: studentPath},
	{Name: NameStudentsPatch, Method: http.MethodPatch, Path: studentPath},
	{Name: NameStudentsDelete, Method: http.MethodDelete, Path: studentPath},
}

var byName = func() map[string]Route {
	m := make(map[string]Route, len(all))
	for _, r := range all {
		m[r.Name] = r
	}
	return m
}()

// All returns the route templates, path parameters in `:name` form.
func All() []Route {
	return append([]Route(nil), all...)
}

// Lookup returns the template of the named route. It panics on unknown names.
func Lookup(name string) Route {
	r, ok := byName[name]
	if !ok {
		panic("routes: unknown route " + strconv.Quote(name))
	}
	return r
}

func withID(name string, id int64) Route {
	r := Lookup(name)
	r.Path = strings.Replace(r.Path, idParam, strconv.FormatInt(id, 10), 1)
	return r
}

func Home() Route { return Lookup(NameHome) }
func Health() Route { return Lookup(NameHealth) }
func Docs() Route { return Lookup(NameDocs) }
func OpenAPI() Route { return Lookup(NameOpenAPI) }
func Login() Route { return Lookup(NameLogin) }
func Logout() Route { return Lookup(NameLogout) }
func Me() Route { return Lookup(NameMe) }
func ForgotPassword() Route { return Lookup(NameForgotPassword) }
func ResetPassword() Route { return Lookup(NameResetPassword) }

// StudentsQuery holds the optional list filters of the students endpoints.
type StudentsQuery struct {
	Search   string
	Grades   []string
	Ordering []string // eg: "name", "-created_at"
}

func (q StudentsQuery) Values() url.Values {
	v := make(url.Values)
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	for _, g := range q.Grades {
		v.Add("grade", g)
	}
	if len(q.Ordering) > 0 {
		v.Set("ordering", strings.Join(q.Ordering, ","))
	}
	return v
}

func StudentsIndex(query ...StudentsQuery) Route {
	r := Lookup(NameStudentsIndex)
	if len(query) > 0 {
		r = r.WithQuery(query[0].Values())
	}
	return r
}

func StudentsExport(query ...StudentsQuery) Route {
	r := Lookup(NameStudentsExport)
	if len(query) > 0 {
		r = r.WithQuery(query[0].Values())
	}
	return r
}

func StudentsStore() Route { return Lookup(NameStudentsStore) }
func StudentsImport() Route { return Lookup(NameStudentsImport) }
func StudentsShow(id int64) Route { return withID(NameStudentsShow, id) }
func StudentsUpdate(id int64) Route { return withID(NameStudentsUpdate, id) }
func StudentsPatch(id int64) Route { return withID(NameStudentsPatch, id) }
func StudentsDestroy(id int64) Route { return withID(NameStudentsDelete, id) }
