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
	"reflect"
	"testing"
)

func TestApplySchemaHealing_RenamePreservesOrder(t *testing.T) {
	log := NewMemoryCausalLog()
	healer := NewHealer(log, nil)
	cfg := defaultConfig(t)

	diagnosis := &Diagnosis{
		RootCause: "schema_drift",
		SuggestedActions: []CandidateAction{
			{Type: ActionSchemaUpdate, From: "date_of_sale", To: "txn_date"},
		},
	}

	healed := healer.ApplySchemaHealing(cfg, diagnosis)

	want := []string{"transaction_id", "customer_id", "sales_amount", "txn_date"}
	if !reflect.DeepEqual(healed.Schema.RequiredColumns, want) {
		t.Errorf("RequiredColumns = %v, want %v", healed.Schema.RequiredColumns, want)
	}
	// The caller's configuration is untouched.
	if cfg.Schema.RequiredColumns[3] != "date_of_sale" {
		t.Error("original configuration was mutated")
	}

	events := log.EventsOfType("healing_applied")
	if len(events) != 1 {
		t.Fatalf("got %d healing_applied events, want 1", len(events))
	}
	if events[0].Attributes["from"] != "date_of_sale" || events[0].Attributes["to"] != "txn_date" {
		t.Errorf("unexpected event attributes: %v", events[0].Attributes)
	}
}

func TestApplySchemaHealing_Idempotent(t *testing.T) {
	healer := NewHealer(nil, nil)
	cfg := defaultConfig(t)
	diagnosis := &Diagnosis{
		SuggestedActions: []CandidateAction{
			{Type: ActionSchemaUpdate, From: "date_of_sale", To: "txn_date"},
		},
	}

	once := healer.ApplySchemaHealing(cfg, diagnosis)
	twice := healer.ApplySchemaHealing(once, diagnosis)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second application changed the configuration:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestApplySchemaHealing_NoOps(t *testing.T) {
	tests := []struct {
		name      string
		diagnosis *Diagnosis
	}{
		{name: "nil diagnosis", diagnosis: nil},
		{name: "empty action list", diagnosis: &Diagnosis{}},
		{
			name: "no_safe_fix action",
			diagnosis: &Diagnosis{SuggestedActions: []CandidateAction{
				{Type: ActionNoSafeFix},
			}},
		},
		{
			name: "data quality action is ignored by schema healing",
			diagnosis: &Diagnosis{SuggestedActions: []CandidateAction{
				{Type: ActionUpdateMaxNull, NewThreshold: floatPtr(0.5)},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewMemoryCausalLog()
			healer := NewHealer(log, nil)
			cfg := defaultConfig(t)

			healed := healer.ApplySchemaHealing(cfg, tt.diagnosis)

			if !reflect.DeepEqual(healed, cfg) {
				t.Errorf("configuration changed: %+v", healed)
			}
			if got := len(log.Events()); got != 0 {
				t.Errorf("got %d events, want 0", got)
			}
		})
	}
}

func TestApplyDataQualityHealing_UpdatesThreshold(t *testing.T) {
	log := NewMemoryCausalLog()
	healer := NewHealer(log, nil)
	cfg := defaultConfig(t)

	diagnosis := &Diagnosis{
		RootCause: "null_fraction",
		SuggestedActions: []CandidateAction{
			{Type: ActionUpdateMaxNull, Column: "sales_amount", NewThreshold: floatPtr(0.15)},
		},
	}

	healed := healer.ApplyDataQualityHealing(cfg, diagnosis)

	if *healed.DataQuality.MaxNullFraction != 0.15 {
		t.Errorf("MaxNullFraction = %v, want 0.15", *healed.DataQuality.MaxNullFraction)
	}
	if *cfg.DataQuality.MaxNullFraction != 0.05 {
		t.Error("original configuration was mutated")
	}

	events := log.EventsOfType("healing_applied")
	if len(events) != 1 {
		t.Fatalf("got %d healing_applied events, want 1", len(events))
	}
	if events[0].Attributes["old_threshold"] != 0.05 || events[0].Attributes["new_threshold"] != 0.15 {
		t.Errorf("unexpected event attributes: %v", events[0].Attributes)
	}
}

func TestApplyDataQualityHealing_NoOps(t *testing.T) {
	tests := []struct {
		name      string
		diagnosis *Diagnosis
	}{
		{name: "empty action list", diagnosis: &Diagnosis{}},
		{
			name: "no_safe_fix action",
			diagnosis: &Diagnosis{SuggestedActions: []CandidateAction{
				{Type: ActionNoSafeFix},
			}},
		},
		{
			name: "missing threshold value",
			diagnosis: &Diagnosis{SuggestedActions: []CandidateAction{
				{Type: ActionUpdateMaxNull, Column: "sales_amount"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			healer := NewHealer(nil, nil)
			cfg := defaultConfig(t)

			healed := healer.ApplyDataQualityHealing(cfg, tt.diagnosis)
			if !reflect.DeepEqual(healed, cfg) {
				t.Errorf("configuration changed: %+v", healed)
			}
		})
	}
}
