// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"fmt"
	"strings"

	"github.com/incidentwatch/incidentwatch/model"
	"github.com/incidentwatch/incidentwatch/pkg/ollama"
)

// maxFewShotExamples caps how many MESSAGE pairs go into the Modelfile.
const maxFewShotExamples = 15

const systemPrompt = `You are an experienced DevOps engineer and SRE specialist with deep knowledge of microservice architecture, Kubernetes and cloud technology.

Your task is to analyze logs, traces, metrics and other observability data to find problems in distributed systems.

The response structure MUST be:
1. ROOT CAUSE: a short, precise description of the primary cause
2. SYMPTOMS: the observed problems and anomalies
3. IMPACT: which components, users or business processes are affected
4. RECOMMENDATIONS: concrete, actionable remediation steps (numbered list)

Be technically precise, suggest practical solutions and account for the context of a microservice architecture.
Use professional terminology but explain complex concepts accessibly.`

const chatTemplate = `{{ if .System }}<|start_header_id|>system<|end_header_id|>

{{ .System }}<|eot_id|>{{ end }}

{{ if .Prompt }}<|start_header_id|>user<|end_header_id|>

{{ .Prompt }}<|eot_id|>{{ end }}

<|start_header_id|>assistant<|end_header_id|>

`

// BuildModelfile assembles an Ollama Modelfile: base model, system prompt,
// sampling parameters and few-shot MESSAGE pairs from the training corpus.
func BuildModelfile(baseModel string, opts ollama.Options, examples []model.TrainingExample) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FROM %s\n\n", baseModel)
	fmt.Fprintf(&sb, "SYSTEM \"\"\"%s\"\"\"\n\n", systemPrompt)
	fmt.Fprintf(&sb, "PARAMETER temperature %g\n", opts.Temperature)
	fmt.Fprintf(&sb, "PARAMETER top_k %d\n", opts.TopK)
	fmt.Fprintf(&sb, "PARAMETER top_p %g\n", opts.TopP)
	if opts.NumCtx > 0 {
		fmt.Fprintf(&sb, "PARAMETER num_ctx %d\n", opts.NumCtx)
	}
	fmt.Fprintf(&sb, "\nTEMPLATE \"\"\"%s\"\"\"\n", chatTemplate)

	if len(examples) > maxFewShotExamples {
		examples = examples[:maxFewShotExamples]
	}
	for i, ex := range examples {
		fmt.Fprintf(&sb, "\n# Example %d: %s\n", i+1, ex.PatternType)
		fmt.Fprintf(&sb, "MESSAGE user \"\"\"%s\"\"\"\n", ex.Input)
		fmt.Fprintf(&sb, "MESSAGE assistant \"\"\"%s\"\"\"\n", ex.Output)
	}
	return sb.String()
}
