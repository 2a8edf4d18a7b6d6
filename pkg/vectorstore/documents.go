// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package vectorstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/incidentwatch/incidentwatch/model"
)

// errorMarkers is the subset of error keywords used to flag documents for
// later filtering; it is narrower than the detection keyword set on purpose.
var errorMarkers = []string{"error", "exception", "failed"}

// LogDocuments converts decoded log records into store documents.
func LogDocuments(logs []model.LogRecord) []Document {
	docs := make([]Document, 0, len(logs))
	for i, l := range logs {
		body := fmt.Sprint(l.Body)
		lower := strings.ToLower(body)
		hasErrors := false
		for _, marker := range errorMarkers {
			if strings.Contains(lower, marker) {
				hasErrors = true
				break
			}
		}
		docs = append(docs, Document{
			ID: fmt.Sprintf("log_%d_%d", l.Timestamp.UnixNano(), i),
			Text: fmt.Sprintf("Service: %s\nMessage: %s\nTimestamp: %s",
				l.ServiceName, body, l.Timestamp.Format(time.RFC3339Nano)),
			Metadata: map[string]any{
				"service":    l.ServiceName,
				"timestamp":  l.Timestamp.Format(time.RFC3339Nano),
				"type":       "log",
				"has_errors": hasErrors,
			},
		})
	}
	return docs
}

// SpanDocuments converts decoded spans into store documents.
func SpanDocuments(spans []model.SpanRecord) []Document {
	docs := make([]Document, 0, len(spans))
	for _, s := range spans {
		duration := s.DurationMillis()
		docs = append(docs, Document{
			ID: fmt.Sprintf("span_%s_%s", s.TraceID, s.SpanID),
			Text: fmt.Sprintf("Trace: %s\nSpan: %s\nService: %s\nDuration: %.2fms\nStatus: %s",
				s.TraceID, s.Name, s.ServiceName, duration, s.StatusCode),
			Metadata: map[string]any{
				"trace_id":    s.TraceID,
				"service":     s.ServiceName,
				"operation":   s.Name,
				"duration_ms": duration,
				"status":      s.StatusCode,
				"has_errors":  !s.OK(),
				"timestamp":   s.StartTime.Format(time.RFC3339Nano),
			},
		})
	}
	return docs
}

// TrainingDocuments converts training examples into store documents.
func TrainingDocuments(examples []model.TrainingExample) []Document {
	docs := make([]Document, 0, len(examples))
	for i, ex := range examples {
		docs = append(docs, Document{
			ID:   fmt.Sprintf("training_%d_%d", ex.CreatedAt.UnixNano(), i),
			Text: ex.Input + "\n\n" + ex.Output,
			Metadata: map[string]any{
				"pattern_type": ex.PatternType,
				"services":     strings.Join(ex.Services, ","),
				"severity":     string(ex.Severity),
				"created_at":   ex.CreatedAt.Format(time.RFC3339Nano),
			},
		})
	}
	return docs
}
