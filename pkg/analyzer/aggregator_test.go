// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package analyzer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidentwatch/incidentwatch/model"
)

func makeLog(service, message string) model.LogRecord {
	return model.LogRecord{
		Timestamp:   time.Unix(1700000000, 0),
		Body:        map[string]any{"message": message},
		ServiceName: service,
	}
}

func makeSpan(service string, durationMillis float64, statusCode string) model.SpanRecord {
	start := time.Unix(1700000000, 0)
	return model.SpanRecord{
		TraceID:     "t1",
		SpanID:      "s1",
		Name:        "op",
		StartTime:   start,
		EndTime:     start.Add(time.Duration(durationMillis * float64(time.Millisecond))),
		ServiceName: service,
		StatusCode:  statusCode,
	}
}

func makeSeries(name, service string, values ...float64) []model.MetricPoint {
	points := make([]model.MetricPoint, 0, len(values))
	for i, v := range values {
		points = append(points, model.MetricPoint{
			Name:       name,
			Value:      v,
			Timestamp:  time.Unix(1700000000+int64(i), 0),
			Attributes: map[string]string{"service": service},
		})
	}
	return points
}

func TestAggregateLogsKeywordRates(t *testing.T) {
	var logs []model.LogRecord
	for i := 0; i < 12; i++ {
		logs = append(logs, makeLog("auth", fmt.Sprintf("request %d failed with error", i)))
	}
	for i := 0; i < 25; i++ {
		logs = append(logs, makeLog("auth", "Warning: slow response detected"))
	}
	for i := 0; i < 63; i++ {
		logs = append(logs, makeLog("auth", "request handled"))
	}
	logs = append(logs, makeLog("billing", "ok"))

	stats := AggregateLogs(logs)
	require.Len(t, stats, 2)

	auth := stats[0]
	assert.Equal(t, "auth", auth.Service)
	assert.Equal(t, 100, auth.Total)
	assert.Equal(t, 12, auth.ErrorCount)
	assert.Equal(t, 25, auth.WarningCount)
	assert.InDelta(t, 0.12, auth.ErrorRate, 1e-9)
	assert.InDelta(t, 0.25, auth.WarningRate, 1e-9)

	billing := stats[1]
	assert.Zero(t, billing.ErrorCount)
	assert.Zero(t, billing.ErrorRate)
}

func TestAggregateLogsMatchesAnyBodyField(t *testing.T) {
	// keywords match anywhere in the stringified body, not only "message"
	logs := []model.LogRecord{{
		Body:        map[string]any{"level": "info", "detail": "connection TIMEOUT while dialing"},
		ServiceName: "gateway",
	}}
	stats := AggregateLogs(logs)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].ErrorCount)
}

func TestAggregateSpans(t *testing.T) {
	spans := []model.SpanRecord{
		makeSpan("orders", 100, "OK"),
		makeSpan("orders", 200, "OK"),
		makeSpan("orders", 300, "ERROR"),
		makeSpan("orders", 400, "OK"),
	}
	stats := AggregateSpans(spans)
	require.Len(t, stats, 1)

	s := stats[0]
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.ErrorCount)
	assert.InDelta(t, 0.25, s.ErrorRate, 1e-9)
	assert.InDelta(t, 250, s.AvgDurationMillis, 1e-9)
	assert.InDelta(t, 400, s.MaxDurationMillis, 1e-9)
	// linear interpolation: rank = 0.95*3 = 2.85 -> 300 + 0.85*(400-300)
	assert.InDelta(t, 385, s.P95DurationMillis, 1e-9)
}

func TestAggregateSpansNegativeDuration(t *testing.T) {
	// end < start is not rejected by the decoder; statistics must tolerate it
	spans := []model.SpanRecord{
		makeSpan("orders", -50, "OK"),
		makeSpan("orders", 100, "OK"),
	}
	stats := AggregateSpans(spans)
	require.Len(t, stats, 1)
	assert.InDelta(t, 25, stats[0].AvgDurationMillis, 1e-9)
	assert.InDelta(t, 100, stats[0].MaxDurationMillis, 1e-9)
}

func TestPercentileLinearInterpolation(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 95, 0},
		{"single", []float64{42}, 95, 42},
		{"two values p50", []float64{10, 20}, 50, 15},
		{"four values p95", []float64{10, 20, 30, 40}, 95, 38.5},
		{"p100 is max", []float64{10, 20, 30}, 100, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, percentile(tt.values, tt.p), 1e-9)
		})
	}
}

func TestAggregateMetrics(t *testing.T) {
	points := makeSeries("cpu_usage", "orders", 40, 45, 50, 55, 92)
	stats := AggregateMetrics(points)
	require.Len(t, stats, 1)

	s := stats[0]
	assert.Equal(t, "cpu_usage", s.Name)
	assert.Equal(t, "orders", s.Service)
	assert.Equal(t, 5, s.Points)
	assert.InDelta(t, 92, s.CurrentValue, 1e-9)
	assert.InDelta(t, 47.5, s.Baseline, 1e-9)
}

func TestAggregateMetricsSkipsShortSeries(t *testing.T) {
	points := makeSeries("cpu_usage", "orders", 40, 45, 50, 55)
	assert.Empty(t, AggregateMetrics(points))
}

func TestAggregateMetricsSignatureGrouping(t *testing.T) {
	// same metric name with different attribute sets forms independent series
	var points []model.MetricPoint
	points = append(points, makeSeries("cpu_usage", "orders", 10, 10, 10, 10, 10)...)
	points = append(points, makeSeries("cpu_usage", "billing", 90, 90, 90, 90, 90)...)
	stats := AggregateMetrics(points)
	require.Len(t, stats, 2)
	assert.NotEqual(t, stats[0].Key, stats[1].Key)
}

func TestAggregateMetricsServiceFallback(t *testing.T) {
	points := []model.MetricPoint{}
	for i := 0; i < 5; i++ {
		points = append(points, model.MetricPoint{Name: "cpu_usage", Value: 90})
	}
	stats := AggregateMetrics(points)
	require.Len(t, stats, 1)
	assert.Equal(t, model.ServiceNameUnknown, stats[0].Service)
}
