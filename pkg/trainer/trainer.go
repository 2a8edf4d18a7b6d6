// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package trainer periodically rebuilds the incident-analysis model from the
// training corpus. A training cycle gathers examples, persists them to the
// vector store, assembles a Modelfile and asks Ollama to create the model.
package trainer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/incidentwatch/incidentwatch/model"
	"github.com/incidentwatch/incidentwatch/pkg/ollama"
	"github.com/incidentwatch/incidentwatch/pkg/vectorstore"
)

// ErrNoTrainingData is returned when a cycle finds nothing to train on.
var ErrNoTrainingData = errors.New("no training data available")

// LLM is the subset of the Ollama client the trainer needs.
type LLM interface {
	CreateModel(ctx context.Context, name, modelfile string) error
	ListModels(ctx context.Context) ([]string, error)
}

// Store persists training documents.
type Store interface {
	Add(ctx context.Context, collection string, docs []vectorstore.Document) error
}

// Config holds trainer settings.
type Config struct {
	ModelName string
	BaseModel string
	Options   ollama.Options
	// Interval between successful training cycles. Zero disables the loop;
	// TrainOnce can still be invoked on demand.
	Interval time.Duration
	// RetryWait is how long to wait after a failed cycle.
	RetryWait time.Duration
}

// Run records the outcome of one training cycle.
type Run struct {
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model_name"`
	Examples  int       `json:"examples_count"`
	Status    string    `json:"status"`
}

// Status is a snapshot of training state.
type Status struct {
	History         []Run `json:"training_history"`
	LastRun         *Run  `json:"last_training,omitempty"`
	OllamaConnected bool  `json:"ollama_connected"`
}

// Trainer owns the periodic training loop.
type Trainer struct {
	cfg    Config
	llm    LLM
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	history []Run

	stop       chan struct{}
	bgFinished sync.WaitGroup
}

// New creates a Trainer, filling in defaults for unset config fields.
func New(cfg Config, llm LLM, store Store, logger *zap.Logger) *Trainer {
	if cfg.ModelName == "" {
		cfg.ModelName = ollama.DefaultModel
	}
	if cfg.BaseModel == "" {
		cfg.BaseModel = "mistral"
	}
	if cfg.Options == (ollama.Options{}) {
		cfg.Options = ollama.DefaultOptions()
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 5 * time.Minute
	}
	return &Trainer{
		cfg:    cfg,
		llm:    llm,
		store:  store,
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
}

// Start launches the background training loop. No-op when the interval is
// zero.
func (t *Trainer) Start() {
	if t.cfg.Interval <= 0 {
		t.logger.Info("Periodic training disabled")
		return
	}
	t.bgFinished.Add(1)
	go func() {
		defer t.bgFinished.Done()
		t.runTrainingLoop()
	}()
}

// Close stops the loop and waits for an in-flight cycle to finish.
func (t *Trainer) Close() error {
	close(t.stop)
	t.bgFinished.Wait()
	return nil
}

func (t *Trainer) runTrainingLoop() {
	for {
		wait := t.cfg.Interval
		if err := t.TrainOnce(context.Background()); err != nil {
			t.logger.Error("Training cycle failed", zap.Error(err))
			wait = t.cfg.RetryWait
		}
		select {
		case <-time.After(wait):
		case <-t.stop:
			return
		}
	}
}

// TrainOnce runs a single training cycle.
func (t *Trainer) TrainOnce(ctx context.Context) error {
	t.logger.Info("Starting training cycle", zap.String("model", t.cfg.ModelName))

	examples := t.gatherExamples()
	if len(examples) == 0 {
		return ErrNoTrainingData
	}

	// persistence failure degrades, it does not abort training
	if err := t.store.Add(ctx, vectorstore.CollectionTraining, vectorstore.TrainingDocuments(examples)); err != nil {
		t.logger.Error("Storing training examples failed", zap.Error(err))
	}

	modelfile := BuildModelfile(t.cfg.BaseModel, t.cfg.Options, examples)
	err := t.llm.CreateModel(ctx, t.cfg.ModelName, modelfile)
	t.record(Run{
		Timestamp: t.now(),
		Model:     t.cfg.ModelName,
		Examples:  len(examples),
		Status:    runStatus(err),
	})
	if err != nil {
		return err
	}
	t.logger.Info("Model trained",
		zap.String("model", t.cfg.ModelName),
		zap.Int("examples", len(examples)))
	return nil
}

// gatherExamples collects the training corpus. Historical incident data will
// feed in here once the enrichment feedback loop lands; for now the corpus
// is the synthetic seed set.
func (t *Trainer) gatherExamples() []model.TrainingExample {
	return SyntheticExamples(t.now())
}

func (t *Trainer) record(run Run) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, run)
}

// Status reports training history and collaborator reachability.
func (t *Trainer) Status(ctx context.Context) Status {
	t.mu.Lock()
	history := make([]Run, len(t.history))
	copy(history, t.history)
	t.mu.Unlock()

	s := Status{History: history}
	if len(history) > 0 {
		s.LastRun = &history[len(history)-1]
	}
	_, err := t.llm.ListModels(ctx)
	s.OllamaConnected = err == nil
	return s
}

func runStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
