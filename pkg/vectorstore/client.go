// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package vectorstore is a client for a Chroma-compatible vector database.
// The store persists telemetry documents and answers nearest-neighbor
// queries by semantic similarity; indexing itself happens server-side.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Collection names used by the service.
const (
	CollectionLogs      = "logs"
	CollectionTraces    = "traces"
	CollectionIncidents = "incidents"
	CollectionTraining  = "training"
)

var collectionDescriptions = map[string]string{
	CollectionLogs:      "Observability logs collection",
	CollectionTraces:    "Observability traces collection",
	CollectionIncidents: "Incident patterns and solutions",
	CollectionTraining:  "Training examples for LLM",
}

const (
	defaultHost    = "http://localhost:8000"
	defaultTimeout = 15 * time.Second
)

// Document is one record to persist.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Result is one similarity match.
type Result struct {
	Document   string         `json:"document"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}

// Config holds client settings.
type Config struct {
	Host    string
	Timeout time.Duration
}

// Client talks to one Chroma server. Collection IDs are resolved lazily and
// cached; the cache is safe for concurrent use.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger

	mu          sync.Mutex
	collections map[string]string // name -> id
}

// NewClient creates a Client, filling in defaults for unset config fields.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:         cfg,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
		collections: make(map[string]string),
	}
}

// EnsureCollections creates (or fetches) every collection the service uses.
func (c *Client) EnsureCollections(ctx context.Context) error {
	for name := range collectionDescriptions {
		if _, err := c.collectionID(ctx, name); err != nil {
			return fmt.Errorf("initializing collection %s: %w", name, err)
		}
	}
	return nil
}

type createCollectionRequest struct {
	Name        string         `json:"name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GetOrCreate bool           `json:"get_or_create"`
}

type collectionResponse struct {
	ID string `json:"id"`
}

func (c *Client) collectionID(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	id, ok := c.collections[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	req := createCollectionRequest{Name: name, GetOrCreate: true}
	if desc, ok := collectionDescriptions[name]; ok {
		req.Metadata = map[string]any{"description": desc}
	}
	var resp collectionResponse
	if err := c.post(ctx, "/api/v1/collections", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("collection %s: empty id in response", name)
	}

	c.mu.Lock()
	c.collections[name] = resp.ID
	c.mu.Unlock()
	c.logger.Info("Initialized collection", zap.String("collection", name))
	return resp.ID, nil
}

type addRequest struct {
	IDs       []string         `json:"ids"`
	Documents []string         `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

// Add persists documents into a collection.
func (c *Client) Add(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	id, err := c.collectionID(ctx, collection)
	if err != nil {
		return err
	}
	req := addRequest{
		IDs:       make([]string, 0, len(docs)),
		Documents: make([]string, 0, len(docs)),
		Metadatas: make([]map[string]any, 0, len(docs)),
	}
	for _, d := range docs {
		req.IDs = append(req.IDs, d.ID)
		req.Documents = append(req.Documents, d.Text)
		req.Metadatas = append(req.Metadatas, d.Metadata)
	}
	if err := c.post(ctx, "/api/v1/collections/"+id+"/add", req, nil); err != nil {
		return fmt.Errorf("adding %d documents to %s: %w", len(docs), collection, err)
	}
	return nil
}

type queryRequest struct {
	QueryTexts []string `json:"query_texts"`
	NResults   int      `json:"n_results"`
}

type queryResponse struct {
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

// QuerySimilar returns up to k nearest documents to the query text.
// Similarity is reported as 1 - distance.
func (c *Client) QuerySimilar(ctx context.Context, collection, text string, k int) ([]Result, error) {
	id, err := c.collectionID(ctx, collection)
	if err != nil {
		return nil, err
	}
	var resp queryResponse
	if err := c.post(ctx, "/api/v1/collections/"+id+"/query", queryRequest{
		QueryTexts: []string{text},
		NResults:   k,
	}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Documents) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(resp.Documents[0]))
	for i, doc := range resp.Documents[0] {
		r := Result{Document: doc}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			r.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			r.Similarity = 1 - resp.Distances[0][i]
		}
		results = append(results, r)
	}
	return results, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("vector store request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("vector store returned %s: %s", resp.Status, msg)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
