// Package metrics wires Filigree's mutation counters and ready-queue
// depth into OpenTelemetry, exported periodically to stdout. It is an
// ambient concern: nothing in internal/engine fails or changes behavior
// if a Recorder is absent.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationName = "github.com/tachyon-beep/filigree/internal/metrics"

// ReadyQueueDepthFunc is polled once per collection cycle to report the
// current ready-queue size as an observable gauge.
type ReadyQueueDepthFunc func(ctx context.Context) (int64, error)

// Recorder holds the counters the engine layer updates after a mutation
// commits. A nil *Recorder is safe to call methods on; every exported
// method is a no-op in that case, so callers that never wired metrics in
// (unit tests, scripts) don't need a conditional at every call site.
type Recorder struct {
	issuesCreated metric.Int64Counter
	issuesClosed  metric.Int64Counter
}

// Init installs a periodic stdout metric exporter as the process's global
// MeterProvider, registers Filigree's instruments against it, and
// returns a Recorder plus a shutdown func the caller must invoke (flushes
// pending data and stops the exporter) during graceful shutdown.
func Init(ctx context.Context, interval time.Duration, depthFn ReadyQueueDepthFunc) (*Recorder, func(context.Context) error, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithoutTimestamps())
	if err != nil {
		return nil, nil, fmt.Errorf("create stdout metric exporter: %w", err)
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(instrumentationName)

	issuesCreated, err := meter.Int64Counter("filigree.issues.created",
		metric.WithDescription("Issues created"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("register filigree.issues.created: %w", err)
	}
	issuesClosed, err := meter.Int64Counter("filigree.issues.closed",
		metric.WithDescription("Issues closed"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("register filigree.issues.closed: %w", err)
	}

	if depthFn != nil {
		_, err = meter.Int64ObservableGauge("filigree.ready_queue.depth",
			metric.WithDescription("Number of issues currently ready to claim"),
			metric.WithUnit("{issue}"),
			metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
				depth, err := depthFn(ctx)
				if err != nil {
					return err
				}
				o.Observe(depth)
				return nil
			}),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("register filigree.ready_queue.depth: %w", err)
		}
	}

	return &Recorder{issuesCreated: issuesCreated, issuesClosed: issuesClosed}, provider.Shutdown, nil
}

// IssueCreated records one create_issue commit.
func (r *Recorder) IssueCreated(ctx context.Context) {
	if r == nil {
		return
	}
	r.issuesCreated.Add(ctx, 1)
}

// IssueClosed records one close_issue commit.
func (r *Recorder) IssueClosed(ctx context.Context) {
	if r == nil {
		return
	}
	r.issuesClosed.Add(ctx, 1)
}
