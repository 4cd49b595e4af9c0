package web

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadityaverma2011/dietplan-suggest/internal/advice"
	"github.com/aadityaverma2011/dietplan-suggest/internal/service"
	"github.com/aadityaverma2011/dietplan-suggest/internal/session"
	"github.com/aadityaverma2011/dietplan-suggest/internal/web/templates"
)

type stubAdvisor struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (s *stubAdvisor) Advise(_ context.Context, _ advice.Payload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.text, s.err
}

func (s *stubAdvisor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// blockingAdvisor holds its first call open until the call is canceled and
// answers every later call at once.
type blockingAdvisor struct {
	calls   atomic.Int32
	started chan struct{}
}

func (b *blockingAdvisor) Advise(ctx context.Context, _ advice.Payload) (string, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
		<-ctx.Done()
		return "", advice.TransportError(ctx, "stub", ctx.Err())
	}
	return "Second answer", nil
}

func newTestServer(t *testing.T, adv advice.Advisor, opts Options) *Server {
	t.Helper()
	if opts.MaxUploadBytes == 0 {
		opts.MaxUploadBytes = 1 << 20
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewAdviceService(adv, "stub", nil, logger)
	return NewServer(svc, templates.FS, opts, logger)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// formRequest builds a multipart POST. A nil data sends the form without a file.
func formRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if data != nil {
		fw, err := w.CreateFormFile(formField, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "empty"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestIndexIdle(t *testing.T) {
	s := newTestServer(t, &stubAdvisor{}, Options{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "Visual Diet Coach")
	assert.Contains(t, body, "Upload a food image to get started.")
	assert.NotContains(t, body, "Your Meal")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), session.CookieName+"=")
}

func TestIndexUnknownPath(t *testing.T) {
	s := newTestServer(t, &stubAdvisor{}, Options{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexTheme(t *testing.T) {
	s := newTestServer(t, &stubAdvisor{}, Options{Theme: "classic"})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "#2E7D32")
	assert.Contains(t, body, "Georgia, serif")
	assert.NotContains(t, body, "ZgotmplZ")
}

func TestPreviewShowsImageWithoutCallingBackend(t *testing.T) {
	adv := &stubAdvisor{text: "unused"}
	s := newTestServer(t, adv, Options{})

	req := formRequest(t, "/preview", "meal.png", testPNG(t))
	req.Header.Set("HX-Request", "true")
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, `src="data:image/png;base64,`)
	assert.Contains(t, body, "Your Meal")
	assert.Contains(t, body, "Get Nutrition Advice")
	assert.NotContains(t, body, "output-box")
	assert.Zero(t, adv.Calls())
}

func TestAdvice(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		data      func(t *testing.T) []byte
		adv       *stubAdvisor
		wantBody  []string
		wantCalls int
	}{
		{
			name:      "success",
			filename:  "meal.png",
			data:      testPNG,
			adv:       &stubAdvisor{text: "Hello"},
			wantBody:  []string{"Take:</h3>", "<p>Hello</p>", "Your Meal", "output-box"},
			wantCalls: 1,
		},
		{
			name:      "backend failure",
			filename:  "meal.png",
			data:      testPNG,
			adv:       &stubAdvisor{err: &advice.Error{Kind: advice.KindAuth, Op: "stub"}},
			wantBody:  []string{"Gemini API Error.", "Your Meal"},
			wantCalls: 1,
		},
		{
			name:      "no file",
			filename:  "",
			data:      func(*testing.T) []byte { return nil },
			adv:       &stubAdvisor{text: "unused"},
			wantBody:  []string{"Upload a food image to get started."},
			wantCalls: 0,
		},
		{
			name:      "unreadable image",
			filename:  "meal.png",
			data:      func(*testing.T) []byte { return append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...) },
			adv:       &stubAdvisor{text: "unused"},
			wantBody:  []string{"Unreadable image."},
			wantCalls: 0,
		},
		{
			name:      "unsupported type",
			filename:  "meal.gif",
			data:      func(*testing.T) []byte { return []byte("GIF89a\x01\x00\x01\x00") },
			adv:       &stubAdvisor{text: "unused"},
			wantBody:  []string{noticeUnsupported},
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.adv, Options{})

			req := formRequest(t, "/advice", tt.filename, tt.data(t))
			req.Header.Set("HX-Request", "true")
			rec := serve(s, req)

			require.Equal(t, http.StatusOK, rec.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want)
			}
			assert.Equal(t, tt.wantCalls, tt.adv.Calls())
		})
	}
}

func TestAdviceTooLarge(t *testing.T) {
	adv := &stubAdvisor{text: "unused"}
	s := newTestServer(t, adv, Options{MaxUploadBytes: 512})

	rec := serve(s, formRequest(t, "/advice", "meal.png", make([]byte, 4096)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), noticeTooLarge)
	assert.Zero(t, adv.Calls())
}

func TestAdviceEveryRequestReachesBackend(t *testing.T) {
	adv := &stubAdvisor{text: "Hello"}
	s := newTestServer(t, adv, Options{})
	img := testPNG(t)

	serve(s, formRequest(t, "/advice", "meal.png", img))
	serve(s, formRequest(t, "/advice", "meal.png", img))

	assert.Equal(t, 2, adv.Calls())
}

func TestAdviceSupersededBySameSession(t *testing.T) {
	adv := &blockingAdvisor{started: make(chan struct{})}
	s := newTestServer(t, adv, Options{})
	img := testPNG(t)
	cookie := &http.Cookie{Name: session.CookieName, Value: "7f1c4c55-8a0e-4f55-9d38-2f0c8a4c1b11"}

	firstReq := formRequest(t, "/advice", "meal.png", img)
	firstReq.AddCookie(cookie)
	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- serve(s, firstReq) }()

	select {
	case <-adv.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first advice call never started")
	}

	req := formRequest(t, "/advice", "meal.png", img)
	req.AddCookie(cookie)
	second := serve(s, req)

	require.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), "Second answer")

	select {
	case rec := <-first:
		assert.Equal(t, http.StatusNoContent, rec.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("superseded call was not canceled")
	}
	assert.Zero(t, s.sessions.Active())
}

func TestPreviewCancelsInFlightAdvice(t *testing.T) {
	adv := &blockingAdvisor{started: make(chan struct{})}
	s := newTestServer(t, adv, Options{})
	img := testPNG(t)
	cookie := &http.Cookie{Name: session.CookieName, Value: "0b8f3f5e-3a59-4d7e-8f0e-6c1e7d0a9c22"}

	firstReq := formRequest(t, "/advice", "meal.png", img)
	firstReq.AddCookie(cookie)
	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- serve(s, firstReq) }()
	<-adv.started

	req := formRequest(t, "/preview", "other.png", img)
	req.AddCookie(cookie)
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case rec := <-first:
		assert.Equal(t, http.StatusNoContent, rec.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("preview did not cancel the in-flight call")
	}
}

func TestOtherSessionNotCanceled(t *testing.T) {
	adv := &blockingAdvisor{started: make(chan struct{})}
	s := newTestServer(t, adv, Options{})
	img := testPNG(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	firstReq := formRequest(t, "/advice", "meal.png", img).WithContext(ctx)
	firstReq.AddCookie(&http.Cookie{Name: session.CookieName, Value: "5d3c1a8e-2b4f-4c6d-9e7a-1f2b3c4d5e66"})
	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- serve(s, firstReq) }()
	<-adv.started

	// A different browser submits; the first call must keep running.
	req := formRequest(t, "/advice", "meal.png", img)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c66"})
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-first:
		t.Fatal("call from another session was canceled")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, s.sessions.Active())

	// The client going away ends the call.
	cancel()
	select {
	case rec := <-first:
		assert.Equal(t, http.StatusNoContent, rec.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("call did not end with its request")
	}
}

func TestStatsDisabled(t *testing.T) {
	s := newTestServer(t, &stubAdvisor{}, Options{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubAdvisor{}, Options{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","in_flight":0}`, rec.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, &stubAdvisor{}, Options{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "img-src 'self' data:")
}
