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
	"io"
	"log/slog"
)

// Healer deterministically applies the top-ranked candidate action of a
// diagnosis to a copy of the configuration. The caller's configuration is
// never mutated; with no applicable action the copy is returned unchanged.
type Healer interface {
	ApplySchemaHealing(cfg *PipelineConfig, diagnosis *Diagnosis) *PipelineConfig
	ApplyDataQualityHealing(cfg *PipelineConfig, diagnosis *Diagnosis) *PipelineConfig
}

func NewHealer(log CausalLog, logger *slog.Logger) Healer {
	if log == nil {
		log = NopCausalLog{}
	}
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HealerImpl{log: log, logger: logger}
}

type HealerImpl struct {
	log    CausalLog
	logger *slog.Logger
}

func (h *HealerImpl) ApplySchemaHealing(cfg *PipelineConfig, diagnosis *Diagnosis) *PipelineConfig {
	healed := cfg.Clone()
	if diagnosis == nil || len(diagnosis.SuggestedActions) == 0 {
		return healed
	}

	action := diagnosis.SuggestedActions[0]
	if action.Type != ActionSchemaUpdate {
		return healed
	}

	if healed.Schema == nil {
		healed.Schema = &SchemaRules{}
	}
	oldColumns := append([]string(nil), healed.Schema.RequiredColumns...)
	newColumns := make([]string, len(oldColumns))
	changed := false
	for i, column := range oldColumns {
		if column == action.From {
			newColumns[i] = action.To
			changed = true
		} else {
			newColumns[i] = column
		}
	}
	if !changed {
		return healed
	}
	healed.Schema.RequiredColumns = newColumns

	h.logger.Debug("applied schema healing",
		"pipeline_name", healed.PipelineName,
		"from", action.From,
		"to", action.To)
	h.log.Record("healing_applied", map[string]any{
		"action_type":          string(ActionSchemaUpdate),
		"from":                 action.From,
		"to":                   action.To,
		"old_required_columns": oldColumns,
		"new_required_columns": newColumns,
	})

	return healed
}

func (h *HealerImpl) ApplyDataQualityHealing(cfg *PipelineConfig, diagnosis *Diagnosis) *PipelineConfig {
	healed := cfg.Clone()
	if diagnosis == nil || len(diagnosis.SuggestedActions) == 0 {
		return healed
	}

	action := diagnosis.SuggestedActions[0]
	if action.Type != ActionUpdateMaxNull || action.NewThreshold == nil {
		return healed
	}

	if healed.DataQuality == nil {
		healed.DataQuality = &DataQualityRules{}
	}
	attrs := map[string]any{
		"action_type":   string(ActionUpdateMaxNull),
		"column":        action.Column,
		"new_threshold": *action.NewThreshold,
	}
	if healed.DataQuality.MaxNullFraction != nil {
		attrs["old_threshold"] = *healed.DataQuality.MaxNullFraction
	}
	newThreshold := *action.NewThreshold
	healed.DataQuality.MaxNullFraction = &newThreshold

	h.logger.Debug("applied data quality healing",
		"pipeline_name", healed.PipelineName,
		"column", action.Column,
		"new_threshold", newThreshold)
	h.log.Record("healing_applied", attrs)

	return healed
}
