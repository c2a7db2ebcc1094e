/*
Package tracing provides lightweight request tracing for the provisioning server.

# Overview

Each HTTP request gets a span. Provisioning opens a child span so a slow
launch can be tied back to the request that caused it. Spans are collected
on a buffered channel and logged through zap; an optional Exporter receives
every finished span.

# Usage

	tracer := tracing.New("termprov", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "terminal.provision")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

# Trace Format

Traces use HTTP headers for propagation:
  - X-Trace-ID: identifier for the entire request flow
  - X-Span-ID: identifier for the current operation
*/
package tracing
