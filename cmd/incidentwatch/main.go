// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Command incidentwatch runs the telemetry ingestion and incident detection
// server: it accepts OTLP JSON exports over HTTP, evaluates detection rules,
// asks a local Ollama model to analyze the resulting incidents and keeps
// telemetry searchable in a Chroma vector store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/incidentwatch/incidentwatch/cmd/incidentwatch/app"
	"github.com/incidentwatch/incidentwatch/internal/config"
	"github.com/incidentwatch/incidentwatch/pkg/analyzer"
	"github.com/incidentwatch/incidentwatch/pkg/enricher"
	"github.com/incidentwatch/incidentwatch/pkg/healthcheck"
	"github.com/incidentwatch/incidentwatch/pkg/incident"
	"github.com/incidentwatch/incidentwatch/pkg/ollama"
	"github.com/incidentwatch/incidentwatch/pkg/otlpjson"
	"github.com/incidentwatch/incidentwatch/pkg/pipeline"
	"github.com/incidentwatch/incidentwatch/pkg/trainer"
	"github.com/incidentwatch/incidentwatch/pkg/vectorstore"
)

func main() {
	v := viper.New()
	command := &cobra.Command{
		Use:   "incidentwatch",
		Short: "Incidentwatch ingests OTLP telemetry and detects incidents",
		Long: `Incidentwatch accepts OTLP JSON log, trace and metric exports, evaluates
fixed detection rules against them, enriches significant incidents with an
LLM-generated analysis and serves the active incident set over HTTP.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			options := new(app.Options).InitFromViper(v)
			logger, err := newLogger(options.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runServer(options, logger)
		},
	}

	config.AddFlags(v, command, app.AddFlags)

	if err := command.Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func runServer(options *app.Options, logger *zap.Logger) error {
	signalsChannel := make(chan os.Signal, 1)
	signal.Notify(signalsChannel, os.Interrupt, syscall.SIGTERM)

	metricsReg := prometheus.NewRegistry()
	metricsReg.MustRegister(collectors.NewGoCollector())
	metricsReg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hc := healthcheck.New(logger)

	llm := ollama.NewClient(options.Ollama, logger)
	store := vectorstore.NewClient(options.Chroma, logger)
	registry := incident.NewRegistry(logger)

	ctx := context.Background()
	if err := store.EnsureCollections(ctx); err != nil {
		logger.Warn("Vector store unavailable, telemetry persistence disabled", zap.Error(err))
		hc.SetComponent("vectorstore", false)
	} else {
		hc.SetComponent("vectorstore", true)
	}
	if err := llm.Ping(ctx); err != nil {
		logger.Warn("Ollama unavailable, incidents will not be enriched", zap.Error(err))
		hc.SetComponent("ollama", false)
	} else {
		hc.SetComponent("ollama", true)
	}

	p := pipeline.New(pipeline.Params{
		Decoder:   otlpjson.NewDecoder(logger),
		Evaluator: analyzer.NewEvaluator(),
		Enricher:  enricher.New(llm, options.Enrichment, logger),
		Registry:  registry,
		Store:     store,
		Logger:    logger,
		Metrics:   pipeline.NewMetrics(metricsReg),
	})

	tr := trainer.New(options.Training, llm, store, logger)
	tr.Start()

	server := app.NewServer(app.ServerParams{
		HostPort:    options.HTTPHostPort,
		Handler:     app.NewAPIHandler(p, registry, tr, store, logger),
		HealthCheck: hc,
		MetricsReg:  metricsReg,
		Logger:      logger,
	})
	if err := server.Start(); err != nil {
		return fmt.Errorf("cannot start HTTP server: %w", err)
	}

	<-signalsChannel
	logger.Info("Shutting down")
	if err := server.Close(); err != nil {
		logger.Error("Failed to close HTTP server", zap.Error(err))
	}
	if err := tr.Close(); err != nil {
		logger.Error("Failed to stop trainer", zap.Error(err))
	}
	logger.Info("Shutdown complete")
	return nil
}
