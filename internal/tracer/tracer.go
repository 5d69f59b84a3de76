package tracer

import (
	"context"

	"github.com/Layr-Labs/staking-snap/internal/config"
	"github.com/Layr-Labs/staking-snap/internal/version"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/mocktracer"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const serviceName = "staking-snap"

// StartTracer initializes the DataDog tracer
// If enabled is false, it starts a mock tracer instead
func StartTracer(enabled bool, chain config.Chain) {
	if !enabled {
		mocktracer.Start()
		return
	}
	ddTracer.Start(
		ddTracer.WithEnv(string(chain)),
		ddTracer.WithService(serviceName),
		ddTracer.WithServiceVersion(version.GetVersion()),
		ddTracer.WithGlobalServiceName(true),
		ddTracer.WithDebugMode(false),
		ddTracer.WithLogStartup(false),
	)
}

func StopTracer() {
	ddTracer.Stop()
}

// StartSpan starts a child span of whatever span is carried by ctx.
func StartSpan(ctx context.Context, operationName string, tags map[string]interface{}) (ddtrace.Span, context.Context) {
	opts := make([]ddtrace.StartSpanOption, 0, len(tags))
	for k, v := range tags {
		opts = append(opts, ddTracer.Tag(k, v))
	}
	return ddTracer.StartSpanFromContext(ctx, operationName, opts...)
}

// FinishSpan finishes the span, attaching err when it is not nil.
func FinishSpan(span ddtrace.Span, err error) {
	if err != nil {
		span.Finish(ddTracer.WithError(err))
		return
	}
	span.Finish()
}
