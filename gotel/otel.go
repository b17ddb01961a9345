package gotel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName 是 tracer 和 meter 的名称。
const InstrumentationName = "github.com/sofiworker/ngdump"

var counters sync.Map // map[string]metric.Int64Counter

// Start 使用全局 TracerProvider 开始一个跨度，kv 为键值对属性。
// 未安装 SDK 时返回的跨度不记录数据，但会继承父跨度上下文。
func Start(ctx context.Context, spanName string, kv ...interface{}) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, spanName, trace.WithAttributes(Attributes(kv...)...))
}

// End 结束跨度，err 非空时记录错误并设置错误状态。
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Count 向名为 name 的计数器累加 n。
func Count(ctx context.Context, name string, n int64, kv ...interface{}) {
	c, err := counter(name)
	if err != nil {
		otel.Handle(err)
		return
	}
	c.Add(ctx, n, metric.WithAttributes(Attributes(kv...)...))
}

func counter(name string) (metric.Int64Counter, error) {
	if c, ok := counters.Load(name); ok {
		return c.(metric.Int64Counter), nil
	}
	c, err := otel.Meter(InstrumentationName).Int64Counter(name)
	if err != nil {
		return nil, err
	}
	actual, _ := counters.LoadOrStore(name, c)
	return actual.(metric.Int64Counter), nil
}
