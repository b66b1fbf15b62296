package emailsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	appfs "github.com/trezcool/shule/fs"
	"github.com/trezcool/shule/tests"
)

type resetData struct {
	Name, UID, Token string
}

func newTemplates(t *testing.T, conf *core.Config) *core.MailTemplates {
	t.Helper()
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)
	require.True(t, tmpls.Has("password_reset"))
	return tmpls
}

func newResetMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Jane", Address: "jane@school.test"}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: resetData{Name: "Jane", UID: "MQ", Token: "tok-en"},
	}
}

func TestConsoleServiceMock(t *testing.T) {
	conf := testutil.Config()
	svc := NewConsoleServiceMock(conf, newTemplates(t, conf))

	svc.SendMessages(newResetMessage(), &core.EmailMessage{Subject: "no recipients", BodyStr: "hi"})

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Hi Jane,")
	assert.Contains(t, sent[0].TextContent, "http://localhost:5173/reset-password?uid=MQ&token=tok-en")
	assert.Contains(t, sent[0].HTMLContent, `href="http://localhost:5173/reset-password?uid=MQ&token=tok-en"`)
	assert.Contains(t, sent[0].TextContent, "The Shule team")
}

func TestConsoleService_format(t *testing.T) {
	conf := testutil.Config()
	var out bytes.Buffer
	svc := NewConsoleService(conf, newTemplates(t, conf), log.New(&out, "", 0), &nopLogger{})

	msg := newResetMessage()
	require.NoError(t, msg.Attach(strings.NewReader("id,name\n1,Jane\n"), "students.csv", "text/csv"))
	ok, err := svc.sendMessage(msg)
	require.NoError(t, err)
	require.True(t, ok)

	body := out.String()
	assert.Contains(t, body, "Subject: [Shule] Password Reset")
	assert.Contains(t, body, `To: "Jane" <jane@school.test>`)
	assert.Contains(t, body, "Content-Type: multipart/mixed")
	assert.Contains(t, body, "filename=students.csv")
}

func TestSendgridService_send(t *testing.T) {
	conf := testutil.Config()
	conf.SendgridAPIKey = "SG.key"
	logger := &recordingLogger{}
	svc := NewSendgridService(conf, newTemplates(t, conf), logger)

	var got rest.Request
	svc.api = func(req rest.Request) (*rest.Response, error) {
		got = req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}
	svc.sendMessage(newResetMessage())

	assert.Equal(t, rest.Post, got.Method)
	assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", got.BaseURL)
	assert.Equal(t, "Bearer SG.key", got.Headers["Authorization"])

	var body struct {
		From             struct{ Email string } `json:"from"`
		Personalizations []struct {
			To      []struct{ Email string } `json:"to"`
			Subject string                   `json:"subject"`
		} `json:"personalizations"`
		Content []struct{ Type string } `json:"content"`
	}
	require.NoError(t, json.Unmarshal(got.Body, &body))
	assert.Equal(t, "noreply@shule.test", body.From.Email)
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Shule] Password Reset", body.Personalizations[0].Subject)
	assert.Equal(t, "jane@school.test", body.Personalizations[0].To[0].Email)
	require.Len(t, body.Content, 2)
	assert.Equal(t, "text/plain", body.Content[0].Type)
	assert.Empty(t, logger.errors)

	svc.api = func(req rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil
	}
	svc.sendMessage(newResetMessage())
	require.Len(t, logger.errors, 1)
	assert.Contains(t, logger.errors[0], "status: 401")
}

func TestSendgridService_Wait(t *testing.T) {
	conf := testutil.Config()
	svc := NewSendgridService(conf, newTemplates(t, conf), &nopLogger{})

	release := make(chan struct{})
	var sent int
	svc.api = func(req rest.Request) (*rest.Response, error) {
		<-release
		sent++
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}
	svc.SendMessages(newResetMessage())

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, svc.Wait(ctx), context.DeadlineExceeded)
	assert.Zero(t, sent)

	close(release)
	require.NoError(t, svc.Wait(t.Context()))
	assert.Equal(t, 1, sent)
}

func TestConsoleService_Wait(t *testing.T) {
	conf := testutil.Config()
	var out bytes.Buffer
	svc := NewConsoleService(conf, newTemplates(t, conf), log.New(&out, "", 0), &nopLogger{})

	svc.SendMessages(newResetMessage(), newResetMessage())
	require.NoError(t, svc.Wait(t.Context()))
	assert.Equal(t, 2, strings.Count(out.String(), "Subject: [Shule] Password Reset"))
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type recordingLogger struct {
	nopLogger
	errors []string
}

func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }
