package gotel

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestAttributes(t *testing.T) {
	attrs := Attributes(
		"file", "a.pcapng",
		"records", 3,
		"bytes", int64(96),
		"gzip", true,
		"ratio", 0.5,
		"if", uint32(1),
		"res", time.Microsecond,
		"err", errors.New("boom"),
		"ticks", uint64(7),
		42, "skipped",
		"dangling",
	)

	want := []attribute.KeyValue{
		attribute.String("file", "a.pcapng"),
		attribute.Int("records", 3),
		attribute.Int64("bytes", 96),
		attribute.Bool("gzip", true),
		attribute.Float64("ratio", 0.5),
		attribute.Int64("if", 1),
		attribute.String("res", "1µs"),
		attribute.String("err", "boom"),
		attribute.String("ticks", "7"),
	}
	if len(attrs) != len(want) {
		t.Fatalf("expected %d attributes, got %d: %v", len(want), len(attrs), attrs)
	}
	for i := range want {
		if attrs[i] != want[i] {
			t.Errorf("attribute %d: got %v, want %v", i, attrs[i], want[i])
		}
	}

	if Attributes() != nil || Attributes("only") != nil {
		t.Error("expected nil for empty or odd input")
	}
}

func TestStartInheritsParent(t *testing.T) {
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x0a},
		SpanID:  trace.SpanID{0x0b},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), parent)

	ctx, span := Start(ctx, "decode", "file", "a.pcapng")
	if got := trace.SpanContextFromContext(ctx).TraceID(); got != parent.TraceID() {
		t.Errorf("trace id not inherited: %s", got)
	}
	End(span, errors.New("boom"))

	_, span = Start(context.Background(), "decode")
	End(span, nil)
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	Count(ctx, "ngdump.records", 3, "type", "EnhancedPacket")
	Count(ctx, "ngdump.records", 1)

	first, err := counter("ngdump.records")
	if err != nil {
		t.Fatalf("counter failed: %v", err)
	}
	second, _ := counter("ngdump.records")
	if first != second {
		t.Error("expected cached counter")
	}
}
