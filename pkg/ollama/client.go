// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package ollama is a minimal client for the Ollama HTTP API, covering the
// three calls this service needs: generate, create model, list models.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultModel is the fine-tuned analysis model created by the trainer.
	DefaultModel = "observability-expert"

	defaultHost    = "http://localhost:11434"
	defaultTimeout = 30 * time.Second
)

// Options are the sampling parameters passed with every completion.
type Options struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k"`
	TopP        float64 `json:"top_p"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

// DefaultOptions returns the sampling parameters tuned for incident
// analysis: low temperature, conservative nucleus sampling.
func DefaultOptions() Options {
	return Options{Temperature: 0.3, TopK: 40, TopP: 0.9, NumCtx: 4096}
}

// Config holds client settings.
type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
	Options Options
}

// Client talks to one Ollama server. Safe for concurrent use.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a Client, filling in defaults for unset config fields.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Options == (Options{}) {
		cfg.Options = DefaultOptions()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate runs a completion against the configured model.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var resp generateResponse
	err := c.post(ctx, "/api/generate", generateRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: c.cfg.Options,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

type createRequest struct {
	Model     string `json:"model"`
	Modelfile string `json:"modelfile"`
	Stream    bool   `json:"stream"`
}

type createResponse struct {
	Status string `json:"status"`
}

// CreateModel creates or replaces a model from a Modelfile.
func (c *Client) CreateModel(ctx context.Context, name, modelfile string) error {
	var resp createResponse
	err := c.post(ctx, "/api/create", createRequest{Model: name, Modelfile: modelfile, Stream: false}, &resp)
	if err != nil {
		return err
	}
	if resp.Status != "success" {
		return fmt.Errorf("model create returned status %q", resp.Status)
	}
	c.logger.Info("Model created", zap.String("model", name))
	return nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of models available on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	var resp tagsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Ping verifies the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListModels(ctx)
	return err
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
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ollama returned %s: %s", resp.Status, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
