// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package otlpjson decodes the OTLP JSON export shape (resource group ->
// scope group -> record) into normalized telemetry records. It is not a
// general OTLP codec: only the subset of the export shape that the analysis
// pipeline consumes is understood.
package otlpjson

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/incidentwatch/incidentwatch/model"
)

// ErrInvalidPayload is returned when the top-level payload cannot be parsed
// as a JSON object at all. Individual malformed records never produce an
// error; they are dropped and counted.
var ErrInvalidPayload = errors.New("payload is not a JSON object")

// Decoder converts raw OTLP JSON export payloads into model records.
// It is stateless apart from a parser pool and safe for concurrent use.
type Decoder struct {
	logger *zap.Logger
	pool   fastjson.ParserPool
	now    func() time.Time
}

// NewDecoder creates a Decoder.
func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger, now: time.Now}
}

func (d *Decoder) parse(payload []byte) (*fastjson.Parser, *fastjson.Value, error) {
	p := d.pool.Get()
	v, err := p.ParseBytes(payload)
	if err != nil {
		d.pool.Put(p)
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err)
	}
	if v.Type() != fastjson.TypeObject {
		d.pool.Put(p)
		return nil, nil, ErrInvalidPayload
	}
	return p, v, nil
}

// DecodeLogs decodes a logs export payload. It returns the decoded records
// and the number of malformed records that were dropped.
func (d *Decoder) DecodeLogs(payload []byte) ([]model.LogRecord, int, error) {
	p, root, err := d.parse(payload)
	if err != nil {
		return nil, 0, err
	}
	defer d.pool.Put(p)

	var records []model.LogRecord
	dropped := 0
	for _, rl := range root.GetArray("resourceLogs") {
		resource := decodeAttributes(rl.GetArray("resource", "attributes"))
		service := serviceName(resource)
		for _, sl := range rl.GetArray("scopeLogs") {
			for _, rec := range sl.GetArray("logRecords") {
				if rec.Type() != fastjson.TypeObject {
					dropped++
					continue
				}
				records = append(records, model.LogRecord{
					Timestamp:   d.timestamp(rec.Get("timeUnixNano")),
					Body:        logBody(rec),
					Attributes:  decodeAttributes(rec.GetArray("attributes")),
					Resource:    resource,
					ServiceName: service,
				})
			}
		}
	}
	d.reportDropped("logs", len(records), dropped)
	return records, dropped, nil
}

// DecodeTraces decodes a traces export payload.
func (d *Decoder) DecodeTraces(payload []byte) ([]model.SpanRecord, int, error) {
	p, root, err := d.parse(payload)
	if err != nil {
		return nil, 0, err
	}
	defer d.pool.Put(p)

	var spans []model.SpanRecord
	dropped := 0
	for _, rs := range root.GetArray("resourceSpans") {
		resource := decodeAttributes(rs.GetArray("resource", "attributes"))
		service := serviceName(resource)
		for _, ss := range rs.GetArray("scopeSpans") {
			for _, rec := range ss.GetArray("spans") {
				if rec.Type() != fastjson.TypeObject {
					dropped++
					continue
				}
				span := model.SpanRecord{
					TraceID:      stringField(rec, "traceId"),
					SpanID:       stringField(rec, "spanId"),
					ParentSpanID: stringField(rec, "parentSpanId"),
					Name:         stringField(rec, "name"),
					StartTime:    d.timestamp(rec.Get("startTimeUnixNano")),
					EndTime:      d.timestamp(rec.Get("endTimeUnixNano")),
					Attributes:   decodeAttributes(rec.GetArray("attributes")),
					Events:       d.decodeEvents(rec.GetArray("events")),
					ServiceName:  service,
					StatusCode:   "OK",
				}
				if span.Name == "" {
					span.Name = model.ServiceNameUnknown
				}
				if status := rec.Get("status"); status != nil {
					if code := status.GetStringBytes("code"); code != nil {
						span.StatusCode = string(code)
					}
					span.StatusMessage = stringField(status, "message")
				}
				spans = append(spans, span)
			}
		}
	}
	d.reportDropped("traces", len(spans), dropped)
	return spans, dropped, nil
}

// DecodeMetrics decodes a metrics export payload. Only the gauge
// representation is supported; sum and histogram metrics are skipped.
func (d *Decoder) DecodeMetrics(payload []byte) ([]model.MetricPoint, int, error) {
	p, root, err := d.parse(payload)
	if err != nil {
		return nil, 0, err
	}
	defer d.pool.Put(p)

	var points []model.MetricPoint
	dropped := 0
	for _, rm := range root.GetArray("resourceMetrics") {
		for _, sm := range rm.GetArray("scopeMetrics") {
			for _, m := range sm.GetArray("metrics") {
				if m.Type() != fastjson.TypeObject {
					dropped++
					continue
				}
				name := stringField(m, "name")
				unit := stringField(m, "unit")
				gauge := m.Get("gauge")
				if gauge == nil {
					continue
				}
				for _, dp := range gauge.GetArray("dataPoints") {
					if dp.Type() != fastjson.TypeObject {
						dropped++
						continue
					}
					points = append(points, model.MetricPoint{
						Name:       name,
						Value:      dp.GetFloat64("asDouble"),
						Timestamp:  d.timestamp(dp.Get("timeUnixNano")),
						Attributes: decodeAttributes(dp.GetArray("attributes")),
						Unit:       unit,
					})
				}
			}
		}
	}
	d.reportDropped("metrics", len(points), dropped)
	return points, dropped, nil
}

func (d *Decoder) reportDropped(signal string, decoded, dropped int) {
	if dropped > 0 {
		d.logger.Warn("Dropped malformed records",
			zap.String("signal", signal),
			zap.Int("decoded", decoded),
			zap.Int("dropped", dropped))
	}
}

// timestamp converts a timeUnixNano field into a time.Time, preserving
// sub-second precision. Missing or non-numeric values yield decode time.
func (d *Decoder) timestamp(v *fastjson.Value) time.Time {
	if v == nil {
		return d.now()
	}
	switch v.Type() {
	case fastjson.TypeString:
		s := string(v.GetStringBytes())
		if nanos, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(0, nanos)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Unix(0, int64(f))
		}
	case fastjson.TypeNumber:
		return time.Unix(0, int64(v.GetFloat64()))
	}
	return d.now()
}

func (d *Decoder) decodeEvents(events []*fastjson.Value) []model.SpanEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]model.SpanEvent, 0, len(events))
	for _, ev := range events {
		if ev.Type() != fastjson.TypeObject {
			continue
		}
		out = append(out, model.SpanEvent{
			Name:       stringField(ev, "name"),
			Timestamp:  d.timestamp(ev.Get("timeUnixNano")),
			Attributes: decodeAttributes(ev.GetArray("attributes")),
		})
	}
	return out
}

// logBody extracts the log record body. A string body is wrapped as
// {"message": ...}; an object body passes through; anything else falls back
// to {"raw": <string form of the record>}.
func logBody(rec *fastjson.Value) map[string]any {
	body := rec.Get("body")
	if body == nil {
		return map[string]any{}
	}
	if sv := body.GetStringBytes("stringValue"); sv != nil {
		return map[string]any{"message": string(sv)}
	}
	if body.Type() == fastjson.TypeObject {
		if m, ok := valueToAny(body).(map[string]any); ok {
			return m
		}
	}
	return map[string]any{"raw": rec.String()}
}

// serviceName extracts service.name from decoded resource attributes.
func serviceName(resource map[string]string) string {
	if name, ok := resource["service.name"]; ok && name != "" {
		return name
	}
	return model.ServiceNameUnknown
}

// decodeAttributes flattens an OTLP attribute list ({key, value:{...Value}})
// into a string map. Non-string scalar values are stringified.
func decodeAttributes(attrs []*fastjson.Value) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		key := attr.GetStringBytes("key")
		if key == nil {
			continue
		}
		out[string(key)] = attributeString(attr.Get("value"))
	}
	return out
}

func attributeString(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	if s := v.GetStringBytes("stringValue"); s != nil {
		return string(s)
	}
	// intValue is string-encoded in OTLP JSON
	if s := v.GetStringBytes("intValue"); s != nil {
		return string(s)
	}
	if dv := v.Get("doubleValue"); dv != nil {
		return strconv.FormatFloat(dv.GetFloat64(), 'f', -1, 64)
	}
	if bv := v.Get("boolValue"); bv != nil {
		return strconv.FormatBool(bv.GetBool())
	}
	return v.String()
}

// valueToAny converts a parsed JSON value into plain Go values. It guards on
// the variant tag at every step and never assumes key presence.
func valueToAny(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, err := v.Object()
		if err != nil {
			return nil
		}
		m := make(map[string]any, obj.Len())
		obj.Visit(func(key []byte, value *fastjson.Value) {
			m[string(key)] = valueToAny(value)
		})
		return m
	case fastjson.TypeArray:
		arr, err := v.Array()
		if err != nil {
			return nil
		}
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			out = append(out, valueToAny(item))
		}
		return out
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}

func stringField(v *fastjson.Value, key string) string {
	if s := v.GetStringBytes(key); s != nil {
		return string(s)
	}
	return ""
}
