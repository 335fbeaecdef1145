package sorter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// metrics groups the instruments recorded by a Job.
type metrics struct {
	linesRead     metric.Int64Counter
	linesWritten  metric.Int64Counter
	chunksCreated metric.Int64Counter
	chunksDeleted metric.Int64Counter
	outputBytes   metric.Int64Counter
	runDuration   metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("extsort")
	}
	m := &metrics{}
	var err error
	if m.linesRead, err = meter.Int64Counter(
		"extsort_lines_read",
		metric.WithDescription("Lines read from sort inputs"),
	); err != nil {
		return nil, fmt.Errorf("failed to create lines read counter: %w", err)
	}
	if m.linesWritten, err = meter.Int64Counter(
		"extsort_lines_written",
		metric.WithDescription("Lines written to sort outputs"),
	); err != nil {
		return nil, fmt.Errorf("failed to create lines written counter: %w", err)
	}
	if m.chunksCreated, err = meter.Int64Counter(
		"extsort_chunks_created",
		metric.WithDescription("Chunk files spilled to disk"),
	); err != nil {
		return nil, fmt.Errorf("failed to create chunks created counter: %w", err)
	}
	if m.chunksDeleted, err = meter.Int64Counter(
		"extsort_chunks_deleted",
		metric.WithDescription("Chunk files removed after being consumed or purged"),
	); err != nil {
		return nil, fmt.Errorf("failed to create chunks deleted counter: %w", err)
	}
	if m.outputBytes, err = meter.Int64Counter(
		"extsort_output_bytes",
		metric.WithDescription("Bytes written to sort outputs"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create output bytes counter: %w", err)
	}
	if m.runDuration, err = meter.Float64Histogram(
		"extsort_run_duration",
		metric.WithDescription("Duration of sort runs"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}
	return m, nil
}

func (m *metrics) recordRun(ctx context.Context, mode Mode, stats Stats, took time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("order", mode.String()),
		attribute.String("outcome", outcome),
	)
	m.linesRead.Add(ctx, int64(stats.LinesRead), attrs)
	m.linesWritten.Add(ctx, int64(stats.LinesWritten), attrs)
	m.outputBytes.Add(ctx, stats.BytesWritten, attrs)
	m.runDuration.Record(ctx, took.Seconds(), attrs)
}
