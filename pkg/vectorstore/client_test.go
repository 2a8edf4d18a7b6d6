// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/incidentwatch/incidentwatch/model"
)

// fakeChroma implements just enough of the Chroma REST surface for tests.
func fakeChroma(t *testing.T, onAdd func(addRequest), onQuery func(queryRequest) queryResponse) *httptest.Server {
	created := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		var req createCollectionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.GetOrCreate)
		created++
		json.NewEncoder(w).Encode(collectionResponse{ID: fmt.Sprintf("id-%s", req.Name)})
	})
	mux.HandleFunc("/api/v1/collections/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/add"):
			var req addRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if onAdd != nil {
				onAdd(req)
			}
			w.Write([]byte("true"))
		case strings.HasSuffix(r.URL.Path, "/query"):
			var req queryRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if onQuery != nil {
				json.NewEncoder(w).Encode(onQuery(req))
			}
		default:
			http.NotFound(w, r)
		}
	})
	return httptest.NewServer(mux)
}

func TestEnsureCollections(t *testing.T) {
	srv := fakeChroma(t, nil, nil)
	defer srv.Close()

	c := NewClient(Config{Host: srv.URL}, zap.NewNop())
	require.NoError(t, c.EnsureCollections(context.Background()))
	assert.Len(t, c.collections, 4)
}

func TestAddDocuments(t *testing.T) {
	var got addRequest
	srv := fakeChroma(t, func(req addRequest) { got = req }, nil)
	defer srv.Close()

	c := NewClient(Config{Host: srv.URL}, zap.NewNop())
	docs := []Document{
		{ID: "log_1", Text: "Service: auth", Metadata: map[string]any{"service": "auth"}},
		{ID: "log_2", Text: "Service: billing", Metadata: map[string]any{"service": "billing"}},
	}
	require.NoError(t, c.Add(context.Background(), CollectionLogs, docs))
	assert.Equal(t, []string{"log_1", "log_2"}, got.IDs)
	assert.Equal(t, []string{"Service: auth", "Service: billing"}, got.Documents)
}

func TestAddEmptyIsNoop(t *testing.T) {
	c := NewClient(Config{Host: "http://127.0.0.1:1"}, zap.NewNop())
	require.NoError(t, c.Add(context.Background(), CollectionLogs, nil))
}

func TestQuerySimilar(t *testing.T) {
	srv := fakeChroma(t, nil, func(req queryRequest) queryResponse {
		assert.Equal(t, []string{"redis timeout auth-service"}, req.QueryTexts)
		assert.Equal(t, 5, req.NResults)
		return queryResponse{
			Documents: [][]string{{"doc-a", "doc-b"}},
			Metadatas: [][]map[string]any{{{"severity": "high"}, {"severity": "medium"}}},
			Distances: [][]float64{{0.1, 0.4}},
		}
	})
	defer srv.Close()

	c := NewClient(Config{Host: srv.URL}, zap.NewNop())
	results, err := c.QuerySimilar(context.Background(), CollectionIncidents, "redis timeout auth-service", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-a", results[0].Document)
	assert.InDelta(t, 0.9, results[0].Similarity, 1e-9)
	assert.Equal(t, "high", results[0].Metadata["severity"])
	assert.InDelta(t, 0.6, results[1].Similarity, 1e-9)
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{Host: srv.URL}, zap.NewNop())
	err := c.Add(context.Background(), CollectionLogs, []Document{{ID: "x", Text: "y"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestLogDocuments(t *testing.T) {
	ts := time.Unix(1700000000, 500000000)
	logs := []model.LogRecord{
		{Timestamp: ts, Body: map[string]any{"message": "connection FAILED"}, ServiceName: "auth"},
		{Timestamp: ts, Body: map[string]any{"message": "all good"}, ServiceName: "auth"},
	}
	docs := LogDocuments(logs)
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0].Text, "Service: auth")
	assert.Equal(t, true, docs[0].Metadata["has_errors"])
	assert.Equal(t, false, docs[1].Metadata["has_errors"])
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
}

func TestSpanDocuments(t *testing.T) {
	start := time.Unix(1700000000, 0)
	spans := []model.SpanRecord{{
		TraceID: "t1", SpanID: "s1", Name: "checkout",
		StartTime: start, EndTime: start.Add(250 * time.Millisecond),
		ServiceName: "orders", StatusCode: "ERROR",
	}}
	docs := SpanDocuments(spans)
	require.Len(t, docs, 1)
	assert.Equal(t, "span_t1_s1", docs[0].ID)
	assert.Contains(t, docs[0].Text, "Duration: 250.00ms")
	assert.Equal(t, true, docs[0].Metadata["has_errors"])
}

func TestTrainingDocuments(t *testing.T) {
	examples := []model.TrainingExample{{
		Input: "in", Output: "out", PatternType: "log_error",
		Services: []string{"a", "b"}, Severity: model.SeverityHigh,
		CreatedAt: time.Unix(1700000000, 0),
	}}
	docs := TrainingDocuments(examples)
	require.Len(t, docs, 1)
	assert.Equal(t, "in\n\nout", docs[0].Text)
	assert.Equal(t, "a,b", docs[0].Metadata["services"])
}
