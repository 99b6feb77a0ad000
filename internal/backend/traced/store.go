// Package traced wraps a service.Store with an OpenTelemetry span per call.
package traced

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"optask/internal/service"
)

const instrumentationName = "optask/internal/backend/traced"

// Store decorates another service.Store.
type Store struct {
	next   service.Store
	tracer trace.Tracer
	name   string
}

// New wraps next. A nil provider uses the global one.
func New(next service.Store, backend string, tp trace.TracerProvider) *Store {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Store{
		next:   next,
		tracer: tp.Tracer(instrumentationName),
		name:   backend,
	}
}

// List implements service.Store.
func (s *Store) List(ctx context.Context) ([]service.Item, error) {
	ctx, span := s.start(ctx, "List")
	defer span.End()

	items, err := s.next.List(ctx)
	span.SetAttributes(attribute.Int("optask.items", len(items)))
	record(span, err)
	return items, err
}

// Create implements service.Store.
func (s *Store) Create(ctx context.Context, title string) (service.Item, error) {
	ctx, span := s.start(ctx, "Create")
	defer span.End()

	it, err := s.next.Create(ctx, title)
	if err == nil {
		span.SetAttributes(attribute.Int64("optask.item_id", it.ID))
	}
	record(span, err)
	return it, err
}

// Toggle implements service.Store.
func (s *Store) Toggle(ctx context.Context, id int64) (service.Item, error) {
	ctx, span := s.start(ctx, "Toggle", attribute.Int64("optask.item_id", id))
	defer span.End()

	it, err := s.next.Toggle(ctx, id)
	record(span, err)
	return it, err
}

// Delete implements service.Store.
func (s *Store) Delete(ctx context.Context, id int64) error {
	ctx, span := s.start(ctx, "Delete", attribute.Int64("optask.item_id", id))
	defer span.End()

	err := s.next.Delete(ctx, id)
	record(span, err)
	return err
}

func (s *Store) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("optask.backend", s.name))
	return s.tracer.Start(ctx, "Store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// record marks failures as span errors. Cancellations are not errors.
func record(span trace.Span, err error) {
	switch {
	case err == nil:
	case service.IsCanceled(err):
		span.SetAttributes(attribute.Bool("optask.canceled", true))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
