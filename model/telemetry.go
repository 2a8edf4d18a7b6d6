// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"sort"
	"strings"
	"time"
)

// ServiceNameUnknown is used when the resource attributes of an OTLP
// payload do not carry a service.name entry.
const ServiceNameUnknown = "unknown"

// LogRecord is a single normalized OTLP log record. Records are immutable
// once decoded.
type LogRecord struct {
	Timestamp   time.Time         `json:"timestamp"`
	Body        map[string]any    `json:"body"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Resource    map[string]string `json:"resource,omitempty"`
	ServiceName string            `json:"service_name"`
}

// SpanEvent is a timed event attached to a span.
type SpanEvent struct {
	Name       string            `json:"name"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SpanRecord is a single normalized span from an OTLP trace export.
// The decoder does not enforce EndTime >= StartTime; consumers must
// tolerate negative durations.
type SpanRecord struct {
	TraceID       string            `json:"trace_id"`
	SpanID        string            `json:"span_id"`
	ParentSpanID  string            `json:"parent_span_id,omitempty"`
	Name          string            `json:"name"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Events        []SpanEvent       `json:"events,omitempty"`
	ServiceName   string            `json:"service_name"`
	StatusCode    string            `json:"status_code"`
	StatusMessage string            `json:"status_message,omitempty"`
}

// DurationMillis returns the span duration in milliseconds.
func (s *SpanRecord) DurationMillis() float64 {
	return float64(s.EndTime.Sub(s.StartTime)) / float64(time.Millisecond)
}

// OK reports whether the span completed without error.
func (s *SpanRecord) OK() bool {
	return s.StatusCode == "OK"
}

// MetricPoint is one data point of a gauge metric.
type MetricPoint struct {
	Name       string            `json:"name"`
	Value      float64           `json:"value"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Unit       string            `json:"unit,omitempty"`
}

// SignatureKey identifies the time series this point belongs to: the metric
// name plus the sorted attribute set. Points with identical keys always land
// in the same series regardless of arrival order.
func (m *MetricPoint) SignatureKey() string {
	if len(m.Attributes) == 0 {
		return m.Name
	}
	keys := make([]string, 0, len(m.Attributes))
	for k := range m.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(m.Name)
	for _, k := range keys {
		sb.WriteByte('|')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(m.Attributes[k])
	}
	return sb.String()
}
