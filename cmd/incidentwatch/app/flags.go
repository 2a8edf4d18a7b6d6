// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"flag"
	"time"

	"github.com/spf13/viper"

	"github.com/incidentwatch/incidentwatch/pkg/enricher"
	"github.com/incidentwatch/incidentwatch/pkg/ollama"
	"github.com/incidentwatch/incidentwatch/pkg/trainer"
	"github.com/incidentwatch/incidentwatch/pkg/vectorstore"
)

const (
	flagHTTPHostPort = "http.host-port"

	flagOllamaHost        = "ollama.host"
	flagOllamaModel       = "ollama.model"
	flagOllamaBaseModel   = "ollama.base-model"
	flagOllamaTimeout     = "ollama.timeout"
	flagOllamaTemperature = "ollama.temperature"
	flagOllamaTopK        = "ollama.top-k"
	flagOllamaTopP        = "ollama.top-p"
	flagOllamaNumCtx      = "ollama.num-ctx"

	flagChromaHost    = "chroma.host"
	flagChromaTimeout = "chroma.timeout"

	flagEnrichParallelism = "enrichment.parallelism"
	flagEnrichTimeout     = "enrichment.timeout"

	flagTrainingInterval = "training.interval"

	flagLogLevel = "log-level"

	defaultHTTPHostPort     = ":8080"
	defaultOllamaHost       = "http://localhost:11434"
	defaultOllamaBaseModel  = "mistral"
	defaultOllamaTimeout    = 2 * time.Minute
	defaultChromaHost       = "http://localhost:8000"
	defaultChromaTimeout    = 30 * time.Second
	defaultTrainingInterval = 6 * time.Hour
)

// Options stores the configuration of the incidentwatch server.
type Options struct {
	HTTPHostPort string
	LogLevel     string
	Ollama       ollama.Config
	BaseModel    string
	Chroma       vectorstore.Config
	Enrichment   enricher.Config
	Training     trainer.Config
}

// AddFlags registers CLI flags.
func AddFlags(flagSet *flag.FlagSet) {
	flagSet.String(flagHTTPHostPort, defaultHTTPHostPort,
		"The host:port (e.g. 127.0.0.1:8080 or :8080) of the incidentwatch HTTP server")
	flagSet.String(flagLogLevel, "info",
		"Minimal allowed log level, e.g. debug, info, warn")

	flagSet.String(flagOllamaHost, defaultOllamaHost,
		"The base URL of the Ollama server used for incident analysis")
	flagSet.String(flagOllamaModel, ollama.DefaultModel,
		"The Ollama model to generate incident analyses with")
	flagSet.String(flagOllamaBaseModel, defaultOllamaBaseModel,
		"The base model the training cycle derives the analysis model from")
	flagSet.Duration(flagOllamaTimeout, defaultOllamaTimeout,
		"Timeout for a single Ollama request")
	flagSet.Float64(flagOllamaTemperature, ollama.DefaultOptions().Temperature,
		"Sampling temperature passed to the model")
	flagSet.Int(flagOllamaTopK, ollama.DefaultOptions().TopK,
		"Top-k sampling parameter passed to the model")
	flagSet.Float64(flagOllamaTopP, ollama.DefaultOptions().TopP,
		"Top-p sampling parameter passed to the model")
	flagSet.Int(flagOllamaNumCtx, ollama.DefaultOptions().NumCtx,
		"Context window size passed to the model")

	flagSet.String(flagChromaHost, defaultChromaHost,
		"The base URL of the Chroma vector store")
	flagSet.Duration(flagChromaTimeout, defaultChromaTimeout,
		"Timeout for a single Chroma request")

	flagSet.Int(flagEnrichParallelism, enricher.DefaultParallelism,
		"The number of incident analyses to request in parallel")
	flagSet.Duration(flagEnrichTimeout, enricher.DefaultTimeout,
		"Timeout for analyzing a single incident")

	flagSet.Duration(flagTrainingInterval, defaultTrainingInterval,
		"Interval between periodic model training cycles. Zero disables periodic training.")
}

// InitFromViper initializes Options with properties from viper.
func (o *Options) InitFromViper(v *viper.Viper) *Options {
	o.HTTPHostPort = v.GetString(flagHTTPHostPort)
	o.LogLevel = v.GetString(flagLogLevel)

	o.Ollama = ollama.Config{
		Host:    v.GetString(flagOllamaHost),
		Model:   v.GetString(flagOllamaModel),
		Timeout: v.GetDuration(flagOllamaTimeout),
		Options: ollama.Options{
			Temperature: v.GetFloat64(flagOllamaTemperature),
			TopK:        v.GetInt(flagOllamaTopK),
			TopP:        v.GetFloat64(flagOllamaTopP),
			NumCtx:      v.GetInt(flagOllamaNumCtx),
		},
	}
	o.BaseModel = v.GetString(flagOllamaBaseModel)

	o.Chroma = vectorstore.Config{
		Host:    v.GetString(flagChromaHost),
		Timeout: v.GetDuration(flagChromaTimeout),
	}

	o.Enrichment = enricher.Config{
		Parallelism: v.GetInt(flagEnrichParallelism),
		Timeout:     v.GetDuration(flagEnrichTimeout),
	}

	o.Training = trainer.Config{
		ModelName: o.Ollama.Model,
		BaseModel: o.BaseModel,
		Options:   o.Ollama.Options,
		Interval:  v.GetDuration(flagTrainingInterval),
	}
	return o
}
