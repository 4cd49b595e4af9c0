package web

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/aadityaverma2011/dietplan-suggest/internal/advice"
	"github.com/aadityaverma2011/dietplan-suggest/internal/imaging"
	"github.com/aadityaverma2011/dietplan-suggest/internal/service"
	"github.com/aadityaverma2011/dietplan-suggest/internal/session"
)

const (
	noticeTooLarge    = "Image is too large."
	noticeUnsupported = "Please upload a .jpg, .jpeg or .png image."
	noticeFailed      = "Could not read the upload. Please try again."
)

// pageData is what the page and the workspace partial render.
type pageData struct {
	Theme      Theme
	Preview    *service.Preview
	PreviewURI template.URL
	Notice     string
	Advice     template.HTML
	HasAdvice  bool
}

func (s *Server) newPageData() *pageData {
	return &pageData{Theme: s.theme}
}

func (d *pageData) setPreview(p *service.Preview) {
	d.Preview = p
	// The data URI is built from our own PNG encoding, never from user text.
	d.PreviewURI = template.URL(p.DataURI())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	session.ID(w, r)
	s.render(w, r, s.newPageData())
}

// handlePreview decodes a freshly chosen file and shows it without calling the
// advice backend. Choosing a new file abandons any call still running for the
// session.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sid := session.ID(w, r)
	s.sessions.Cancel(sid)

	data := s.newPageData()
	up, ok := s.uploadOrNotice(w, r, data)
	if !ok {
		s.render(w, r, data)
		return
	}

	preview, err := s.service.Preview(r.Context(), up.Reader(), up.Filename, up.MIMEType)
	if err != nil {
		data.Notice = decodeNotice(err)
		s.render(w, r, data)
		return
	}
	data.setPreview(preview)
	s.render(w, r, data)
}

// handleAdvice runs one advice request for the uploaded file. A newer request
// from the same session cancels this one.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	sid := session.ID(w, r)

	data := s.newPageData()
	up, ok := s.uploadOrNotice(w, r, data)
	if !ok {
		s.render(w, r, data)
		return
	}

	ctx, done := s.sessions.Begin(r.Context(), sid)
	defer done()

	res := s.service.Advise(ctx, up.Reader(), up.Filename, up.MIMEType)

	switch advice.KindOf(res.Err) {
	case advice.KindCanceled:
		// Superseded or abandoned; leave whatever the client shows now.
		w.WriteHeader(http.StatusNoContent)
		return
	case advice.KindDecode:
		data.Notice = decodeNotice(res.Err)
		s.render(w, r, data)
		return
	}

	data.setPreview(res.Preview)
	html, err := renderAdvice(res.Text)
	if err != nil {
		s.logger.Error("render advice failed", "error", err)
		html = template.HTML(template.HTMLEscapeString(res.Text))
	}
	data.Advice = html
	data.HasAdvice = true
	s.render(w, r, data)
}

// uploadOrNotice reads the upload. When there is none, or it cannot be read,
// it fills in data for the idle state or a notice and returns false.
func (s *Server) uploadOrNotice(w http.ResponseWriter, r *http.Request, data *pageData) (*upload, bool) {
	up, err := s.readUpload(w, r)
	switch {
	case err == nil:
		return up, true
	case errors.Is(err, errNoUpload):
	case errors.Is(err, errTooLarge):
		data.Notice = noticeTooLarge
	default:
		s.logger.Warn("read upload failed", "error", err)
		data.Notice = noticeFailed
	}
	return nil, false
}

func decodeNotice(err error) string {
	if errors.Is(err, imaging.ErrUnsupportedType) {
		return noticeUnsupported
	}
	return advice.Display("", err)
}

// render writes the workspace partial for htmx requests and the full page
// otherwise.
func (s *Server) render(w http.ResponseWriter, r *http.Request, data *pageData) {
	var err error
	if r.Header.Get("HX-Request") == "true" {
		err = s.renderPartial(w, "partials/workspace.html", data)
	} else {
		err = s.renderPage(w, data, "base.html", "pages/index.html", "partials/workspace.html")
	}
	if err != nil {
		s.logger.Error("render failed", "path", r.URL.Path, "error", err)
	}
}
