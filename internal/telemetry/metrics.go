package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ToolCallOutcome is the outcome label of a tool call metric.
type ToolCallOutcome string

const (
	ToolCallOutcomeSuccess ToolCallOutcome = "success"
	// ToolCallOutcomeToolError means the call completed but the tool reported isError.
	ToolCallOutcomeToolError ToolCallOutcome = "tool_error"
	ToolCallOutcomeError     ToolCallOutcome = "error"
)

// ConnectionOutcome is the outcome label of a connection attempt metric.
type ConnectionOutcome string

const (
	ConnectionOutcomeSuccess ConnectionOutcome = "success"
	ConnectionOutcomeError   ConnectionOutcome = "error"
)

// CustomMetrics records the domain metrics of mcpbridge.
// Use NewNoopCustomMetrics when telemetry is disabled so callers never need nil checks.
type CustomMetrics interface {
	RecordToolCall(ctx context.Context, serverID, toolName string, outcome ToolCallOutcome, elapsed time.Duration)
	RecordConnectionAttempt(ctx context.Context, serverID string, outcome ConnectionOutcome)
}

type noopCustomMetrics struct{}

// NewNoopCustomMetrics returns a CustomMetrics that records nothing.
func NewNoopCustomMetrics() CustomMetrics {
	return noopCustomMetrics{}
}

func (noopCustomMetrics) RecordToolCall(context.Context, string, string, ToolCallOutcome, time.Duration) {
}

func (noopCustomMetrics) RecordConnectionAttempt(context.Context, string, ConnectionOutcome) {}

type otelCustomMetrics struct {
	toolCalls          metric.Int64Counter
	toolCallLatency    metric.Float64Histogram
	connectionAttempts metric.Int64Counter
}

// NewOtelCustomMetrics creates the metric instruments on the given meter.
func NewOtelCustomMetrics(meter metric.Meter) (CustomMetrics, error) {
	toolCalls, err := meter.Int64Counter(
		"mcpbridge_tool_calls_total",
		metric.WithDescription("Number of tool calls, by server, tool and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool call counter: %w", err)
	}

	toolCallLatency, err := meter.Float64Histogram(
		"mcpbridge_tool_call_duration_seconds",
		metric.WithDescription("Latency of tool calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool call latency histogram: %w", err)
	}

	connectionAttempts, err := meter.Int64Counter(
		"mcpbridge_connection_attempts_total",
		metric.WithDescription("Number of attempts to establish a connection with an MCP server"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection attempt counter: %w", err)
	}

	return &otelCustomMetrics{
		toolCalls:          toolCalls,
		toolCallLatency:    toolCallLatency,
		connectionAttempts: connectionAttempts,
	}, nil
}

func (m *otelCustomMetrics) RecordToolCall(
	ctx context.Context, serverID, toolName string, outcome ToolCallOutcome, elapsed time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("server", serverID),
		attribute.String("tool", toolName),
		attribute.String("outcome", string(outcome)),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolCallLatency.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *otelCustomMetrics) RecordConnectionAttempt(ctx context.Context, serverID string, outcome ConnectionOutcome) {
	m.connectionAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("server", serverID),
		attribute.String("outcome", string(outcome)),
	))
}
