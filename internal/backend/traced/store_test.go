package traced_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"optask/internal/backend/traced"
	"optask/internal/service"
	"optask/internal/testutil"
)

func TestStore_PassesThrough(t *testing.T) {
	fake := testutil.NewFakeStore(service.Item{ID: 1, Title: "Buy milk"})
	s := traced.New(fake, "fake", noop.NewTracerProvider())
	ctx := context.Background()

	items, err := s.List(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("list: %v %+v", err, items)
	}
	created, err := s.Create(ctx, "Write report")
	if err != nil || created.ID != 2 {
		t.Fatalf("create: %v %+v", err, created)
	}
	toggled, err := s.Toggle(ctx, 1)
	if err != nil || !toggled.Done {
		t.Fatalf("toggle: %v %+v", err, toggled)
	}
	if err := s.Delete(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []string{testutil.MethodList, testutil.MethodCreate, testutil.MethodToggle, testutil.MethodDelete}
	got := fake.Calls()
	if len(got) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestStore_PropagatesErrors(t *testing.T) {
	fake := testutil.NewFakeStore()
	fake.DeleteErr = service.ErrNetworkFailure
	s := traced.New(fake, "fake", nil)

	if err := s.Delete(context.Background(), 1); !errors.Is(err, service.ErrNetworkFailure) {
		t.Errorf("expected ErrNetworkFailure, got %v", err)
	}
}

func recorded(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStore_RecordsOutcomeOnSpan(t *testing.T) {
	tests := []struct {
		name         string
		deleteErr    error
		wantCode     codes.Code
		wantCanceled bool
		wantEvents   int
	}{
		{"success", nil, codes.Unset, false, 0},
		{"failure", fmt.Errorf("delete: %w", service.ErrNetworkFailure), codes.Error, false, 1},
		{"cancellation", fmt.Errorf("delete: %w", service.ErrCanceled), codes.Unset, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr, tp := recorded(t)
			fake := testutil.NewFakeStore(service.Item{ID: 7, Title: "Buy milk"})
			fake.DeleteErr = tt.deleteErr
			s := traced.New(fake, "mock", tp)

			_ = s.Delete(context.Background(), 7)

			spans := sr.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			span := spans[0]
			if span.Name() != "Store.Delete" || span.SpanKind() != trace.SpanKindClient {
				t.Errorf("unexpected span %s kind %v", span.Name(), span.SpanKind())
			}
			if span.Status().Code != tt.wantCode {
				t.Errorf("expected status %v, got %v", tt.wantCode, span.Status().Code)
			}
			if got := len(span.Events()); got != tt.wantEvents {
				t.Errorf("expected %d error events, got %d", tt.wantEvents, got)
			}
			canceled, ok := attr(span, "optask.canceled")
			if ok != tt.wantCanceled || (ok && !canceled.AsBool()) {
				t.Errorf("canceled attribute = %v (present %v), want present %v", canceled.AsBool(), ok, tt.wantCanceled)
			}
			if v, _ := attr(span, "optask.item_id"); v.AsInt64() != 7 {
				t.Errorf("expected item id 7, got %v", v.AsInt64())
			}
			if v, _ := attr(span, "optask.backend"); v.AsString() != "mock" {
				t.Errorf("expected backend mock, got %q", v.AsString())
			}
		})
	}
}

func TestStore_ListCountsItems(t *testing.T) {
	sr, tp := recorded(t)
	fake := testutil.NewFakeStore(service.Item{ID: 1, Title: "a"}, service.Item{ID: 2, Title: "b"})
	s := traced.New(fake, "mock", tp)

	if _, err := s.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if v, _ := attr(spans[0], "optask.items"); v.AsInt64() != 2 {
		t.Errorf("expected 2 items on span, got %v", v.AsInt64())
	}
}
