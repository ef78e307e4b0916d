package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName is the instrumentation scope of exported log records.
const ServiceName = "rabota"

// Options configures the process-wide logger.
type Options struct {
	Level slog.Level

	// Format is one of text, json or otel.
	Format string

	// OTLPProtocol selects the exporter for the otel format: stdout, http or grpc.
	OTLPProtocol string

	// OTLPEndpoint overrides the exporter endpoint URL. Empty uses the
	// OTEL_EXPORTER_OTLP_* environment defaults.
	OTLPEndpoint string

	// Writer receives text, json and stdout-exported logs. Defaults to os.Stderr
	// so command output on stdout stays machine-readable.
	Writer io.Writer
}

// Instrument installs the default slog logger and the W3C trace context
// propagator, and returns a function that flushes and releases exporter
// resources.
func Instrument(ctx context.Context, opts Options) (func(context.Context) error, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	noop := func(context.Context) error { return nil }

	switch strings.ToLower(opts.Format) {
	case "", "text", "json":
		handler, err := newStdoutHandler(opts)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(newContextHandler(handler, true)))
		return noop, nil

	case "otel":
		provider, err := newLoggerProvider(ctx, opts)
		if err != nil {
			return nil, err
		}
		// otelslog records trace context on its own
		handler := otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider))
		slog.SetDefault(slog.New(newContextHandler(handler, false)))
		return provider.Shutdown, nil

	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: text, json, otel)", opts.Format)
	}
}

// newStdoutHandler creates a handler for human-readable logs.
func newStdoutHandler(opts Options) (slog.Handler, error) {
	handlerOpts := &slog.HandlerOptions{
		Level: opts.Level,
	}

	switch strings.ToLower(opts.Format) {
	case "json":
		return slog.NewJSONHandler(opts.Writer, handlerOpts), nil
	case "", "text":
		return slog.NewTextHandler(opts.Writer, handlerOpts), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", opts.Format)
	}
}

// newLoggerProvider wires an exporter behind a batch processor filtered by
// minimum severity.
func newLoggerProvider(ctx context.Context, opts Options) (*sdklog.LoggerProvider, error) {
	exporter, err := newLogExporter(ctx, opts)
	if err != nil {
		return nil, err
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severityFor(opts.Level))

	return sdklog.NewLoggerProvider(sdklog.WithProcessor(processor)), nil
}

func newLogExporter(ctx context.Context, opts Options) (sdklog.Exporter, error) {
	switch strings.ToLower(opts.OTLPProtocol) {
	case "", "stdout":
		exp, err := stdoutlog.New(stdoutlog.WithWriter(opts.Writer))
		if err != nil {
			return nil, fmt.Errorf("creating stdout log exporter: %w", err)
		}
		return exp, nil

	case "http":
		var httpOpts []otlploghttp.Option
		if opts.OTLPEndpoint != "" {
			httpOpts = append(httpOpts, otlploghttp.WithEndpointURL(opts.OTLPEndpoint))
		}
		exp, err := otlploghttp.New(ctx, httpOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP/HTTP log exporter: %w", err)
		}
		return exp, nil

	case "grpc":
		var grpcOpts []otlploggrpc.Option
		if opts.OTLPEndpoint != "" {
			grpcOpts = append(grpcOpts, otlploggrpc.WithEndpointURL(opts.OTLPEndpoint))
		}
		exp, err := otlploggrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP/gRPC log exporter: %w", err)
		}
		return exp, nil

	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q (expected: stdout, http, grpc)", opts.OTLPProtocol)
	}
}

func severityFor(level slog.Level) minsev.Severity {
	switch {
	case level >= slog.LevelError:
		return minsev.SeverityError
	case level >= slog.LevelWarn:
		return minsev.SeverityWarn
	case level >= slog.LevelInfo:
		return minsev.SeverityInfo
	default:
		return minsev.SeverityDebug
	}
}
