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
	"math"
)

// ActionType tags a candidate remediation.
type ActionType string

const (
	ActionSchemaUpdate  ActionType = "schema_update"
	ActionUpdateMaxNull ActionType = "dq_update_max_null"
	ActionNoSafeFix     ActionType = "no_safe_fix"
)

// CandidateAction is one proposed remediation. Only the first candidate of a
// diagnosis is ever applied; the rest exist for the audit trail.
type CandidateAction struct {
	Type         ActionType
	Description  string
	From         string
	To           string
	Column       string
	NewThreshold *float64
}

// Diagnosis is the root-cause derivation for one validation failure together
// with its ranked candidate actions.
type Diagnosis struct {
	PipelineName     string
	RootCause        string
	Column           string
	Observed         *float64
	Threshold        *float64
	MissingColumns   []string
	SuggestedActions []CandidateAction
}

// schemaRenameRules maps a known missing required column to its replacement.
// This is a deliberate seed table of vetted renames, not an inferred
// column-similarity heuristic.
var schemaRenameRules = map[string]string{
	"date_of_sale": "txn_date",
}

// Diagnoser derives a diagnosis from a validation failure without mutating
// anything; its only side effect is one causal event per call.
type Diagnoser interface {
	DiagnoseSchemaDrift(missingColumns []string, cfg *PipelineConfig) *Diagnosis
	DiagnoseDataQuality(failure *ValidationFailure, cfg *PipelineConfig) *Diagnosis
}

func NewDiagnoser(log CausalLog, logger *slog.Logger) Diagnoser {
	if log == nil {
		log = NopCausalLog{}
	}
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DiagnoserImpl{log: log, logger: logger}
}

type DiagnoserImpl struct {
	log    CausalLog
	logger *slog.Logger
}

func (d *DiagnoserImpl) DiagnoseSchemaDrift(missingColumns []string, cfg *PipelineConfig) *Diagnosis {
	diagnosis := &Diagnosis{
		PipelineName:   cfg.pipelineNameOr("unknown"),
		RootCause:      string(FailureSchemaDrift),
		MissingColumns: append([]string(nil), missingColumns...),
	}

	action := CandidateAction{
		Type:        ActionNoSafeFix,
		Description: "No known automatic remediation. Escalate to engineer.",
	}
	for _, column := range missingColumns {
		if renamed, ok := schemaRenameRules[column]; ok {
			action = CandidateAction{
				Type:        ActionSchemaUpdate,
				From:        column,
				To:          renamed,
				Description: fmt.Sprintf("Rename required column '%s' to '%s' in the pipeline schema.", column, renamed),
			}
			break
		}
	}
	diagnosis.SuggestedActions = append(diagnosis.SuggestedActions, action)

	d.log.Record("diagnosis", map[string]any{
		"pipeline_name":     diagnosis.PipelineName,
		"root_cause":        diagnosis.RootCause,
		"missing_columns":   diagnosis.MissingColumns,
		"suggested_actions": actionsPayload(diagnosis.SuggestedActions),
	})

	return diagnosis
}

func (d *DiagnoserImpl) DiagnoseDataQuality(failure *ValidationFailure, cfg *PipelineConfig) *Diagnosis {
	diagnosis := &Diagnosis{
		PipelineName: cfg.pipelineNameOr("unknown"),
		RootCause:    "dq_failure",
	}
	if failure != nil {
		if failure.Kind != "" {
			diagnosis.RootCause = string(failure.Kind)
		}
		diagnosis.Column = failure.Column
		diagnosis.Observed = failure.Observed
		diagnosis.Threshold = failure.Threshold
	}

	action := CandidateAction{
		Type:        ActionNoSafeFix,
		Description: "No automatic remediation defined. Please inspect data and rules.",
	}
	if failure != nil && failure.Kind == FailureNullFraction && failure.Column != "" && failure.Observed != nil {
		current := 0.0
		if failure.Threshold != nil {
			current = *failure.Threshold
		}
		// Raise the limit just above the observed rate, never below the
		// current threshold, never above 1.0.
		newThreshold := math.Min(math.Max(*failure.Observed+0.05, current), 1.0)
		action = CandidateAction{
			Type:         ActionUpdateMaxNull,
			Column:       failure.Column,
			NewThreshold: &newThreshold,
			Description: fmt.Sprintf("Increase max_null_fraction for '%s' to %.3f based on observed data.",
				failure.Column, newThreshold),
		}
	}
	diagnosis.SuggestedActions = append(diagnosis.SuggestedActions, action)

	attrs := map[string]any{
		"pipeline_name":     diagnosis.PipelineName,
		"root_cause":        diagnosis.RootCause,
		"column":            diagnosis.Column,
		"suggested_actions": actionsPayload(diagnosis.SuggestedActions),
	}
	if diagnosis.Observed != nil {
		attrs["observed"] = *diagnosis.Observed
	}
	if diagnosis.Threshold != nil {
		attrs["threshold"] = *diagnosis.Threshold
	}
	d.log.Record("dq_diagnosis", attrs)

	return diagnosis
}

func actionsPayload(actions []CandidateAction) []map[string]any {
	payload := make([]map[string]any, 0, len(actions))
	for _, action := range actions {
		entry := map[string]any{
			"type":        string(action.Type),
			"description": action.Description,
		}
		if action.From != "" {
			entry["from"] = action.From
		}
		if action.To != "" {
			entry["to"] = action.To
		}
		if action.Column != "" {
			entry["column"] = action.Column
		}
		if action.NewThreshold != nil {
			entry["new_threshold"] = *action.NewThreshold
		}
		payload = append(payload, entry)
	}
	return payload
}
