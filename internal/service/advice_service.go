package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aadityaverma2011/dietplan-suggest/internal/advice"
	"github.com/aadityaverma2011/dietplan-suggest/internal/domain"
	"github.com/aadityaverma2011/dietplan-suggest/internal/imaging"
)

// outcomeRepository is the subset of store.OutcomeStore that AdviceService requires.
type outcomeRepository interface {
	Record(ctx context.Context, kind string) error
	Counts(ctx context.Context) ([]*domain.OutcomeCount, error)
}

// ErrNoStats is returned by Stats when no outcome store is configured.
var ErrNoStats = errors.New("outcome tally disabled")

type AdviceService struct {
	advisor  advice.Advisor
	backend  string
	outcomes outcomeRepository
	logger   *slog.Logger
}

// NewAdviceService wires the pipeline. outcomes may be nil to disable the
// outcome tally.
func NewAdviceService(advisor advice.Advisor, backend string, outcomes outcomeRepository, logger *slog.Logger) *AdviceService {
	return &AdviceService{
		advisor:  advisor,
		backend:  backend,
		outcomes: outcomes,
		logger:   logger,
	}
}

// Preview is an uploaded photo normalized to RGB and re-encoded as PNG.
type Preview struct {
	Base64   string
	MIMEType string
	Width    int
	Height   int
	Size     int
}

// DataURI returns the preview as an inline image source.
func (p *Preview) DataURI() string {
	return imaging.DataURI(p.Base64)
}

// Result is the outcome of one advice request. Text is always set: it holds
// either the model's answer or the message users see instead. Err keeps the
// underlying failure for logs.
type Result struct {
	Preview *Preview
	Text    string
	Err     error
}

// Preview decodes an upload and re-encodes it. A failure is returned as an
// *advice.Error of kind decode.
func (s *AdviceService) Preview(ctx context.Context, r io.Reader, filename, mimeType string) (*Preview, error) {
	up, err := imaging.Decode(r, filename, mimeType)
	if err != nil {
		return nil, &advice.Error{Kind: advice.KindDecode, Op: "decode upload", Err: err}
	}

	b64, err := imaging.EncodeBase64(up.Image)
	if err != nil {
		return nil, &advice.Error{Kind: advice.KindDecode, Op: "encode upload", Err: err}
	}

	s.logger.Debug("upload decoded",
		"declared_mime", up.DeclaredMIME,
		"mime_type", up.MIMEType,
		"bytes", up.Size,
		"width", up.Width(),
		"height", up.Height(),
	)

	return &Preview{
		Base64:   b64,
		MIMEType: imaging.PNGMIME,
		Width:    up.Width(),
		Height:   up.Height(),
		Size:     up.Size,
	}, nil
}

// Advise runs the whole pipeline for one upload: decode, encode, one call to
// the advice backend. Results are never cached; every call reaches the backend.
func (s *AdviceService) Advise(ctx context.Context, r io.Reader, filename, mimeType string) *Result {
	start := time.Now()

	preview, err := s.Preview(ctx, r, filename, mimeType)
	if err != nil {
		s.finish(ctx, start, 0, err)
		return &Result{Text: advice.Display("", err), Err: err}
	}

	text, err := s.advisor.Advise(ctx, advice.NewPayload(preview.Base64, preview.MIMEType))
	if err == nil && strings.TrimSpace(text) == "" {
		err = advice.ParseError("advise", errors.New("empty answer"))
	}
	s.finish(ctx, start, preview.Size, err)

	return &Result{
		Preview: preview,
		Text:    advice.Display(text, err),
		Err:     err,
	}
}

// finish logs the outcome of one Advise call and adds it to the tally.
func (s *AdviceService) finish(ctx context.Context, start time.Time, size int, err error) {
	kind := advice.KindOf(err)
	attrs := []any{
		"outcome", string(kind),
		"backend", s.backend,
		"bytes", size,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	switch kind {
	case advice.KindOK:
		s.logger.Info("advice complete", attrs...)
	case advice.KindCanceled:
		s.logger.Info("advice canceled", append(attrs, "cause", fmt.Sprint(context.Cause(ctx)))...)
	default:
		s.logger.Warn("advice failed", append(attrs, "error", err)...)
	}

	if s.outcomes == nil {
		return
	}
	// The tally outlives the request: a canceled call is still counted.
	if rerr := s.outcomes.Record(context.WithoutCancel(ctx), string(kind)); rerr != nil {
		s.logger.Error("failed to record advice outcome", "outcome", string(kind), "error", rerr)
	}
}

// Stats returns the outcome tally, or ErrNoStats when it is disabled.
func (s *AdviceService) Stats(ctx context.Context) ([]*domain.OutcomeCount, error) {
	if s.outcomes == nil {
		return nil, ErrNoStats
	}
	return s.outcomes.Counts(ctx)
}
