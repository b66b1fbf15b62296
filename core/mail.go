package core

import (
	"bytes"
	"context"
	"encoding/base64"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"os"
	"path"
	"path/filepath"
	"strings"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	// MailTemplates holds the parsed email templates: `<name>.txt` and `<name>.gohtml`,
	// each executed with their `_base` layout.
	MailTemplates struct {
		cache           tmplCache
		appName         string
		frontendBaseURL string
	}

	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
		// Wait blocks until the messages being sent are done, or ctx is.
		Wait(ctx context.Context) error
	}
)

// ParseEmailTemplates parses all templates found in `dir` of fsys.
// Templates whose name starts with "_" are layouts and are not addressable.
func ParseEmailTemplates(fsys fs.FS, dir string, conf *Config) (*MailTemplates, error) {
	tmpls := &MailTemplates{
		cache:           make(tmplCache),
		appName:         conf.AppName,
		frontendBaseURL: conf.FrontendBaseURL,
	}
	strict := conf.Debug || conf.TestMode

	fps, err := fs.Glob(fsys, path.Join(dir, "*"))
	if err != nil {
		return nil, errors.Wrap(err, "listing email templates")
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := tmpls.cache[name]
		if !ok {
			entry = make(tmplCacheEntry)
			tmpls.cache[name] = entry
		}

		base := path.Join(dir, "_base"+ext)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}
	return tmpls, nil
}

// Has reports whether a template with the given name (without ext) was parsed.
func (t *MailTemplates) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.cache[name]
	return ok
}

func (t *MailTemplates) get(name, ext string) (interface{}, bool) {
	if t == nil {
		return nil, false
	}
	entry, ok := t.cache[name]
	if !ok {
		return nil, false
	}
	tmpl, ok := entry[ext]
	return tmpl, ok
}

func (m *EmailMessage) getContextData(tmpls *MailTemplates) ContextData {
	return ContextData{
		AppName:         tmpls.appName,
		FrontendBaseURL: tmpls.frontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) renderText(tmpls *MailTemplates) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	entry, ok := tmpls.get(m.TemplateName, ".txt")
	if !ok {
		return nil
	}
	tmpl, ok := entry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, "_base.txt", m.getContextData(tmpls)); err != nil {
		return errors.Wrap(err, "executing text template")
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML(tmpls *MailTemplates) error {
	if m.TemplateName == "" {
		return nil
	}

	entry, ok := tmpls.get(m.TemplateName, ".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := entry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, "_base.gohtml", m.getContextData(tmpls)); err != nil {
		return errors.Wrap(err, "executing html template")
	}
	m.HTMLContent = buff.String()
	return nil
}

// Render fills TextContent & HTMLContent from BodyStr or the message template.
func (m *EmailMessage) Render(tmpls *MailTemplates) error {
	if err := m.renderText(tmpls); err != nil {
		return err
	}
	return m.renderHTML(tmpls)
}

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading attachment")
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err = encoder.Write(content); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}
	if err = encoder.Close(); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) AttachFile(path string, contentType ...string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Attach(f, filepath.Base(path), contentType...)
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
