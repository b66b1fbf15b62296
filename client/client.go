// Package client is a Go client of the Shule API. It keeps the session cookie in a
// cookie jar, so that a successful Login authenticates the following requests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/routes"
)

// Error is returned for non-2xx responses.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	cErr, ok := errors.Cause(err).(*Error)
	return ok && cErr.Status == status
}

type Client struct {
	baseURL string
	rest    *rest.Client
}

func New(baseURL string, httpClient ...*http.Client) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating cookie jar")
	}

	hc := &http.Client{}
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	}
	hc.Jar = jar

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: hc},
	}, nil
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// Do sends a request to route. body, when not nil, is sent as JSON for POST, PUT & PATCH.
// JSON responses are decoded into out; *string and *[]byte receive the raw body.
// Nothing is decoded for 204 responses.
func (c *Client) Do(ctx context.Context, route routes.Route, body, out interface{}) error {
	req := rest.Request{
		Method:  rest.Method(route.Method),
		BaseURL: route.URL(c.baseURL),
		Headers: map[string]string{"Accept": "application/json"},
	}
	if body != nil && hasBody(route.Method) {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}
	return c.send(ctx, req, out)
}

func (c *Client) send(ctx context.Context, req rest.Request, out interface{}) error {
	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newError(res)
	}
	if res.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	switch o := out.(type) {
	case *string:
		*o = res.Body
		return nil
	case *[]byte:
		*o = []byte(res.Body)
		return nil
	}
	if !isJSON(res) {
		return errors.Errorf("unexpected content type %q", contentType(res))
	}
	return errors.Wrap(json.Unmarshal([]byte(res.Body), out), "decoding response body")
}

func contentType(res *rest.Response) string {
	for k, v := range res.Headers {
		if strings.EqualFold(k, "Content-Type") && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func isJSON(res *rest.Response) bool {
	return strings.Contains(contentType(res), "application/json")
}

// newError extracts the message of an error response: its `message` or `error` field,
// or the body itself when it is a JSON string.
func newError(res *rest.Response) *Error {
	status := fmt.Sprintf("%d %s", res.StatusCode, http.StatusText(res.StatusCode))

	var data interface{}
	if err := json.Unmarshal([]byte(res.Body), &data); err == nil {
		switch d := data.(type) {
		case map[string]interface{}:
			for _, key := range []string{"message", "error"} {
				if msg, ok := d[key].(string); ok && msg != "" {
					return &Error{Status: res.StatusCode, Message: msg}
				}
			}
		case string:
			if d != "" {
				return &Error{Status: res.StatusCode, Message: d}
			}
		}
	}
	return &Error{Status: res.StatusCode, Message: status}
}

type userResponse struct {
	User user.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (c *Client) Login(ctx context.Context, email, password string) (user.User, error) {
	var res userResponse
	err := c.Do(ctx, routes.Login(), map[string]string{"email": email, "password": password}, &res)
	return res.User, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, routes.Logout(), nil, nil)
}

func (c *Client) Me(ctx context.Context) (user.User, error) {
	var res userResponse
	err := c.Do(ctx, routes.Me(), nil, &res)
	return res.User, err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var res messageResponse
	err := c.Do(ctx, routes.ForgotPassword(), map[string]string{"email": email}, &res)
	return res.Message, err
}

func (c *Client) ResetPassword(ctx context.Context, data user.ResetUserPassword) (string, error) {
	var res messageResponse
	err := c.Do(ctx, routes.ResetPassword(), data, &res)
	return res.Message, err
}

func (c *Client) ListStudents(ctx context.Context, query ...routes.StudentsQuery) ([]student.Student, error) {
	var students []student.Student
	err := c.Do(ctx, routes.StudentsIndex(query...), nil, &students)
	return students, err
}

func (c *Client) CreateStudent(ctx context.Context, ns student.NewStudent) (student.Student, error) {
	var s student.Student
	err := c.Do(ctx, routes.StudentsStore(), ns, &s)
	return s, err
}

func (c *Client) GetStudent(ctx context.Context, id int64) (student.Student, error) {
	var s student.Student
	err := c.Do(ctx, routes.StudentsShow(id), nil, &s)
	return s, err
}

// UpdateStudent partially updates a student: nil fields of us are left untouched.
func (c *Client) UpdateStudent(ctx context.Context, id int64, us student.UpdateStudent) (student.Student, error) {
	var s student.Student
	err := c.Do(ctx, routes.StudentsPatch(id), us, &s)
	return s, err
}

// DeleteStudent deletes a student and returns the server's confirmation message.
func (c *Client) DeleteStudent(ctx context.Context, id int64) (string, error) {
	var res messageResponse
	err := c.Do(ctx, routes.StudentsDestroy(id), nil, &res)
	return res.Message, err
}

// ExportStudents returns the XLSX export of the students matching query.
func (c *Client) ExportStudents(ctx context.Context, query ...routes.StudentsQuery) ([]byte, error) {
	var data []byte
	err := c.Do(ctx, routes.StudentsExport(query...), nil, &data)
	return data, err
}

// ImportStudents uploads an XLSX file of students.
func (c *Client) ImportStudents(ctx context.Context, filename string, r io.Reader) ([]student.Student, error) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "creating form file")
	}
	if _, err = io.Copy(fw, r); err != nil {
		return nil, errors.Wrap(err, "copying file")
	}
	if err = mw.Close(); err != nil {
		return nil, errors.Wrap(err, "closing multipart writer")
	}

	route := routes.StudentsImport()
	req := rest.Request{
		Method:  rest.Method(route.Method),
		BaseURL: route.URL(c.baseURL),
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": mw.FormDataContentType(),
		},
		Body: body.Bytes(),
	}
	var students []student.Student
	err = c.send(ctx, req, &students)
	return students, err
}
