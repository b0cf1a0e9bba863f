// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment turns an uploaded paper into an ordered list of sentences.
// Text extraction is delegated to a pluggable backend (rsc.io/pdf, poppler's
// pdftotext, or markitdown in a container) and sentence boundaries come from
// the Punkt tokenizer in github.com/neurosnap/sentences.
package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/flavia/internal/container"
	"github.com/pdiddy/flavia/internal/logging"
	"github.com/pdiddy/flavia/pkg/types"
)

// ErrExtraction is returned when an upload yields no usable sentences:
// the bytes are empty, the backend fails, or the text has no sentences.
var ErrExtraction = errors.New("extraction failed")

// Segmenter splits raw document bytes into sentences.
type Segmenter interface {
	Segment(ctx context.Context, raw []byte) ([]string, error)
}

// Extractor pulls plain text out of raw document bytes. Each backend
// implements this interface.
type Extractor interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Extract returns the text of raw.
	Extract(ctx context.Context, raw []byte) (string, error)
}

// Pipeline is the Segmenter used by the service: extract, normalize, split.
type Pipeline struct {
	extractor Extractor
	tokenizer *Tokenizer
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	exec    container.Executor
	runtime container.Runtime
	logger  *slog.Logger
}

// WithExecutor sets the command executor used by the pdftotext backend and
// by container runtime detection.
func WithExecutor(x container.Executor) Option {
	return func(o *options) { o.exec = x }
}

// WithRuntime sets the container runtime for the markitdown backend,
// skipping detection.
func WithRuntime(rt container.Runtime) Option {
	return func(o *options) { o.runtime = rt }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds the Pipeline for cfg.Backend. The markitdown backend needs a
// container runtime; it is detected unless WithRuntime provides one.
func New(ctx context.Context, cfg types.SegmenterConfig, opts ...Option) (*Pipeline, error) {
	o := options{exec: container.OSExecutor(), logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var ext Extractor
	switch cfg.Backend {
	case types.BackendNative, "":
		ext = NativeExtractor{}
	case types.BackendPlain:
		ext = PlainExtractor{}
	case types.BackendPdftotext:
		ext = NewPdftotextExtractor(cfg.PdftotextPath, o.exec)
	case types.BackendMarkitdown:
		rt := o.runtime
		if rt == nil {
			var err error
			if rt, err = container.DetectRuntimeWith(ctx, o.exec); err != nil {
				return nil, err
			}
		}
		m, err := NewMarkitdownExtractor(ctx, rt, cfg.MarkitdownImage)
		if err != nil {
			return nil, err
		}
		ext = m
	default:
		return nil, fmt.Errorf("unsupported extraction backend %q: use native, pdftotext, markitdown, or plain", cfg.Backend)
	}

	tok, err := NewTokenizer()
	if err != nil {
		return nil, err
	}

	return NewPipeline(ext, tok, cfg.Timeout, o.logger), nil
}

// NewPipeline assembles a Pipeline from its parts. A zero timeout means no
// deadline beyond the caller's context.
func NewPipeline(ext Extractor, tok *Tokenizer, timeout time.Duration, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{extractor: ext, tokenizer: tok, timeout: timeout, logger: logger}
}

// Backend returns the name of the extraction backend.
func (p *Pipeline) Backend() string {
	return p.extractor.Name()
}

// Segment extracts the text of raw and splits it into sentences. Every
// failure wraps ErrExtraction.
func (p *Pipeline) Segment(ctx context.Context, raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrExtraction)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := p.extractor.Extract(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s backend: %w", ErrExtraction, p.extractor.Name(), err)
	}

	sentences := p.tokenizer.Split(Normalize(text))
	if len(sentences) == 0 {
		return nil, fmt.Errorf("%w: no sentences found", ErrExtraction)
	}

	p.logger.Debug("segmented upload",
		"backend", p.extractor.Name(),
		"bytes", len(raw),
		"sentences", len(sentences),
		"duration", time.Since(start))
	return sentences, nil
}
