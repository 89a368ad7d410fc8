// Package telemetry wraps Sentry tracing and error capture.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/cloo-solutions/pawdocs/internal/domain"
)

const serviceName = "pawdocs"

type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry hub and returns a flush function.
// An empty DSN disables Sentry.
func Init(cfg Config, logger *zap.Logger) func() {
	noop := func() {}
	if cfg.DSN == "" {
		return noop
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler:    sampler(cfg.TracesSampleRate),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrubEvent(event)
		},
	})
	if err != nil {
		logger.Warn("sentry init failed, continuing without tracing", zap.Error(err))
		return noop
	}

	logger.Info("sentry tracing initialized",
		zap.String("environment", cfg.Environment),
		zap.Float64("sample_rate", cfg.TracesSampleRate))

	return func() {
		sentry.Flush(5 * time.Second)
	}
}

// sampler skips probes and follows the parent's decision for child spans.
func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		switch ctx.Span.Name {
		case "GET /health", "GET /metrics":
			return 0
		}
		var emptySpanID sentry.SpanID
		if ctx.Span.ParentSpanID != emptySpanID {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// scrubEvent drops request bodies and cookies. Uploads and questions carry
// pet owners' health records.
func scrubEvent(event *sentry.Event) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	event.Request.Data = ""
	event.Request.Cookies = ""
	delete(event.Request.Headers, "Cookie")
	delete(event.Request.Headers, "Authorization")
	return event
}

// Reportable reports whether err is worth an event. Caller mistakes such as
// a bad PDF or an empty question are not.
func Reportable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		switch de.Code {
		case domain.ErrCodeValidation, domain.ErrCodeNotFound:
			return false
		}
	}
	return true
}

func spanStatus(err error) sentry.SpanStatus {
	var de *domain.DomainError
	if errors.As(err, &de) {
		switch de.Code {
		case domain.ErrCodeValidation:
			return sentry.SpanStatusInvalidArgument
		case domain.ErrCodeNotFound:
			return sentry.SpanStatusNotFound
		case domain.ErrCodeUnavailable:
			return sentry.SpanStatusUnavailable
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sentry.SpanStatusDeadlineExceeded
	}
	return sentry.SpanStatusInternalError
}

// SpanAttributes are the tags attached to pipeline spans.
type SpanAttributes struct {
	TenantID  string
	Filename  string
	Operation string
}

type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports err when it is Reportable.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = spanStatus(err)
	if Reportable(err) {
		CaptureError(s.inner.Context(), err)
	}
}

func setAttributes(span *sentry.Span, attrs SpanAttributes) {
	if span == nil {
		return
	}
	if attrs.TenantID != "" {
		span.SetTag("tenant_id", attrs.TenantID)
	}
	if attrs.Filename != "" {
		span.SetData("filename", attrs.Filename)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}
}

// StartSpan opens a child of the span in ctx, or a new transaction when
// ctx carries none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	setAttributes(span, attrs)
	return span.Context(), &Span{inner: span}
}

func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

func AddBreadcrumb(ctx context.Context, category, message string) {
	breadcrumb := &sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(breadcrumb, nil)
		return
	}
	sentry.AddBreadcrumb(breadcrumb)
}
