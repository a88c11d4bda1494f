// Copyright 2025 The DBQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dbqheal

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// RunStatus is the terminal state of one validate-diagnose-heal pass.
type RunStatus string

const (
	// RunStatusPassed means the first validation succeeded; no diagnosis was
	// performed.
	RunStatusPassed RunStatus = "passed"
	// RunStatusHealedPassed means re-validation against the healed
	// configuration succeeded.
	RunStatusHealedPassed RunStatus = "healed_passed"
	// RunStatusUnresolved means the single healing attempt did not fix the
	// failure; escalate to a human.
	RunStatusUnresolved RunStatus = "unresolved"
)

// RunReport is the full record of one orchestrated run.
type RunReport struct {
	RunID        string
	PipelineName string
	Status       RunStatus
	Attempted    bool
	Initial      *ValidationOutcome
	Diagnosis    *Diagnosis
	HealedConfig *PipelineConfig
	Final        *ValidationOutcome
	Message      string
}

// HealedYAML re-serializes the healed configuration, or returns an empty
// string when no healing was attempted.
func (r *RunReport) HealedYAML() (string, error) {
	if r.HealedConfig == nil {
		return "", nil
	}
	return r.HealedConfig.ToYAML()
}

// RunRequest pairs a dataset with the configuration to validate it against.
type RunRequest struct {
	Dataset *Dataset
	Config  *PipelineConfig
}

// Orchestrator drives validate -> (on failure) diagnose -> heal ->
// re-validate and interprets whether healing worked. Schema-drift and
// data-quality failures take mutually exclusive remediation paths, and
// re-validation runs exactly once; its failure is terminal.
type Orchestrator struct {
	validator PipelineValidator
	diagnoser Diagnoser
	healer    Healer
	logger    *slog.Logger
}

func NewOrchestrator(validator PipelineValidator, diagnoser Diagnoser, healer Healer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		validator: validator,
		diagnoser: diagnoser,
		healer:    healer,
		logger:    logger,
	}
}

// NewDefaultOrchestrator wires an orchestrator with the standard validator,
// diagnoser, and healer, all recording to the same causal log.
func NewDefaultOrchestrator(log CausalLog, logger *slog.Logger) *Orchestrator {
	return NewOrchestrator(
		NewPipelineValidator(log, logger),
		NewDiagnoser(log, logger),
		NewHealer(log, logger),
		logger,
	)
}

func (o *Orchestrator) Run(ds *Dataset, cfg *PipelineConfig) *RunReport {
	pipelineName := cfg.pipelineNameOr("user_pipeline")
	report := &RunReport{
		RunID:        uuid.NewString(),
		PipelineName: pipelineName,
	}

	report.Initial = o.validator.Validate(ds, cfg, pipelineName)
	if report.Initial.Pass {
		report.Status = RunStatusPassed
		report.Message = "Pipeline validation passed without healing."
		o.logger.Info("pipeline run completed",
			"run_id", report.RunID,
			"pipeline_name", pipelineName,
			"status", string(report.Status))
		return report
	}

	report.Attempted = true
	failure := report.Initial.Failure
	if failure.IsSchemaDrift() {
		report.Diagnosis = o.diagnoser.DiagnoseSchemaDrift(failure.MissingColumns, cfg)
		report.HealedConfig = o.healer.ApplySchemaHealing(cfg, report.Diagnosis)
	} else {
		report.Diagnosis = o.diagnoser.DiagnoseDataQuality(failure, cfg)
		report.HealedConfig = o.healer.ApplyDataQualityHealing(cfg, report.Diagnosis)
	}

	report.Final = o.validator.Validate(ds, report.HealedConfig, pipelineName)
	if report.Final.Pass {
		report.Status = RunStatusHealedPassed
		if failure.IsSchemaDrift() {
			report.Message = "Schema drift healed. Validation passed with suggested configuration."
		} else {
			report.Message = "Data quality rule healed. Validation passed with suggested configuration."
		}
	} else {
		report.Status = RunStatusUnresolved
		report.Message = fmt.Sprintf("Validation still failing after healing suggestion: %s",
			report.Final.Failure.Message)
	}

	o.logger.Info("pipeline run completed",
		"run_id", report.RunID,
		"pipeline_name", pipelineName,
		"status", string(report.Status))
	return report
}

// RunMany executes independent runs concurrently. Runs share no mutable
// state other than the causal log sink.
func (o *Orchestrator) RunMany(requests []RunRequest, maxConcurrent int) []*RunReport {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	pool := NewTaskPool(maxConcurrent, o.logger)
	reports := make([]*RunReport, len(requests))
	for i, request := range requests {
		i, request := i, request
		pool.Enqueue(fmt.Sprintf("run:%d", i), func() error {
			reports[i] = o.Run(request.Dataset, request.Config)
			return nil
		})
	}
	pool.Join()

	return reports
}
