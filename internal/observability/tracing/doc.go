// Package tracing provides OpenTelemetry tracing integration.
//
// The worker installs an SDK tracer provider at startup; poll cycles and
// webhook posts open spans through GetTracer, and the liveness endpoint is
// wrapped by Middleware.
//
// Example usage:
//
//	tp := tracing.InitProvider("newsrelay")
//	defer func() { _ = tp.Shutdown(context.Background()) }()
//
//	ctx, span := tracing.GetTracer().Start(ctx, "relay.cycle")
//	defer span.End()
package tracing
