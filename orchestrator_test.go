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
	"strings"
	"testing"
)

func newTestOrchestrator(log CausalLog) *Orchestrator {
	return NewDefaultOrchestrator(log, nil)
}

// Five rows with txn_date instead of date_of_sale; fresh dates keep the
// freshness rule quiet.
func driftedSalesDataset(t *testing.T) *Dataset {
	t.Helper()
	return mustDataset(t,
		[]string{"transaction_id", "customer_id", "sales_amount", "txn_date", "region"},
		[][]string{
			{"t1", "c1", "10.0", "2099-01-01", "APAC"},
			{"t2", "c2", "20.0", "2099-01-01", "EMEA"},
			{"t3", "c3", "30.0", "2099-01-01", "US"},
			{"t4", "c4", "40.0", "2099-01-01", "APAC"},
			{"t5", "c5", "50.0", "2099-01-01", "US"},
		})
}

func TestOrchestrator_PassWithoutHealing(t *testing.T) {
	log := NewMemoryCausalLog()
	orchestrator := newTestOrchestrator(log)
	cfg := defaultConfig(t)

	ds := mustDataset(t,
		[]string{"transaction_id", "customer_id", "sales_amount", "date_of_sale", "region"},
		[][]string{
			{"t1", "c1", "10.0", "2099-01-01", "APAC"},
			{"t2", "c2", "20.0", "2099-01-01", "EMEA"},
			{"t3", "c3", "30.0", "2099-01-01", "US"},
			{"t4", "c4", "40.0", "2099-01-01", "APAC"},
			{"t5", "c5", "50.0", "2099-01-01", "US"},
		})

	report := orchestrator.Run(ds, cfg)

	if report.Status != RunStatusPassed {
		t.Fatalf("Status = %s, want passed (initial: %+v)", report.Status, report.Initial.Failure)
	}
	if report.Attempted {
		t.Error("Attempted = true, want false")
	}
	if report.Diagnosis != nil || report.HealedConfig != nil || report.Final != nil {
		t.Error("no diagnosis or healing expected on first-pass success")
	}
	if report.RunID == "" {
		t.Error("RunID is empty")
	}
	if report.Message != "Pipeline validation passed without healing." {
		t.Errorf("unexpected message: %s", report.Message)
	}

	if got := len(log.EventsOfType("validation_success")); got != 1 {
		t.Errorf("got %d validation_success events, want exactly 1", got)
	}
	if got := len(log.Events()); got != 1 {
		t.Errorf("got %d events total, want 1", got)
	}
}

func TestOrchestrator_SchemaDriftHealedAndRevalidated(t *testing.T) {
	log := NewMemoryCausalLog()
	orchestrator := newTestOrchestrator(log)
	cfg := defaultConfig(t)
	// The freshness rule targets date_of_sale, which stays absent after the
	// rename; the freshness check skips and the healed pass succeeds.
	ds := driftedSalesDataset(t)

	report := orchestrator.Run(ds, cfg)

	if report.Status != RunStatusHealedPassed {
		t.Fatalf("Status = %s, want healed_passed (final: %+v)", report.Status, report.Final)
	}
	if !report.Attempted {
		t.Error("Attempted = false, want true")
	}
	if report.Initial.Failure.Kind != FailureSchemaDrift {
		t.Errorf("initial failure = %s, want schema_drift", report.Initial.Failure.Kind)
	}

	action := report.Diagnosis.SuggestedActions[0]
	if action.Type != ActionSchemaUpdate || action.From != "date_of_sale" || action.To != "txn_date" {
		t.Errorf("unexpected action: %+v", action)
	}

	want := []string{"transaction_id", "customer_id", "sales_amount", "txn_date"}
	if !reflect.DeepEqual(report.HealedConfig.Schema.RequiredColumns, want) {
		t.Errorf("healed RequiredColumns = %v, want %v", report.HealedConfig.Schema.RequiredColumns, want)
	}
	// Caller's configuration stays untouched.
	if cfg.Schema.RequiredColumns[3] != "date_of_sale" {
		t.Error("caller configuration was mutated")
	}

	healedYAML, err := report.HealedYAML()
	if err != nil {
		t.Fatalf("HealedYAML() error = %v", err)
	}
	if !strings.Contains(healedYAML, "txn_date") {
		t.Errorf("healed YAML missing txn_date:\n%s", healedYAML)
	}

	// Causal trail: drift detected, diagnosis, healing, then success.
	wantOrder := []string{"schema_drift_detected", "diagnosis", "healing_applied", "validation_success"}
	events := log.Events()
	var gotOrder []string
	for _, event := range events {
		gotOrder = append(gotOrder, event.EventType)
	}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Errorf("event order = %v, want %v", gotOrder, wantOrder)
	}
}

func TestOrchestrator_NullFractionHealedAndRevalidated(t *testing.T) {
	log := NewMemoryCausalLog()
	orchestrator := newTestOrchestrator(log)
	cfg := defaultConfig(t)
	cfg.Schema.RequiredColumns = []string{"transaction_id", "sales_amount"}
	cfg.Freshness = nil

	// 10 rows, sales_amount 10% null against a 0.05 limit.
	records := make([][]string, 10)
	for i := range records {
		records[i] = []string{string(rune('a' + i)), "10.0"}
	}
	records[4][1] = ""
	ds := mustDataset(t, []string{"transaction_id", "sales_amount"}, records)

	report := orchestrator.Run(ds, cfg)

	if report.Status != RunStatusHealedPassed {
		t.Fatalf("Status = %s, want healed_passed (final: %+v)", report.Status, report.Final)
	}
	if report.Initial.Failure.Kind != FailureNullFraction {
		t.Fatalf("initial failure = %s, want null_fraction", report.Initial.Failure.Kind)
	}
	if got := *report.Initial.Failure.Observed; got != 0.10 {
		t.Errorf("observed = %v, want 0.10", got)
	}

	action := report.Diagnosis.SuggestedActions[0]
	if action.Type != ActionUpdateMaxNull {
		t.Fatalf("action type = %s, want dq_update_max_null", action.Type)
	}
	healedThreshold := *report.HealedConfig.DataQuality.MaxNullFraction
	if healedThreshold < 0.10 {
		t.Errorf("healed threshold %v below observed fraction", healedThreshold)
	}
	if *cfg.DataQuality.MaxNullFraction != 0.05 {
		t.Error("caller configuration was mutated")
	}

	wantOrder := []string{"dq_failure", "dq_diagnosis", "healing_applied", "validation_success"}
	events := log.Events()
	var gotOrder []string
	for _, event := range events {
		gotOrder = append(gotOrder, event.EventType)
	}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Errorf("event order = %v, want %v", gotOrder, wantOrder)
	}
}

func TestOrchestrator_UnresolvedWhenNoSafeFix(t *testing.T) {
	log := NewMemoryCausalLog()
	orchestrator := newTestOrchestrator(log)
	cfg := &PipelineConfig{
		PipelineName: "uniq_pipeline",
		DataQuality:  &DataQualityRules{UniqueKeys: []string{"transaction_id"}},
	}

	ds := mustDataset(t, []string{"transaction_id"}, [][]string{{"t1"}, {"t1"}})

	report := orchestrator.Run(ds, cfg)

	if report.Status != RunStatusUnresolved {
		t.Fatalf("Status = %s, want unresolved", report.Status)
	}
	if report.Diagnosis.SuggestedActions[0].Type != ActionNoSafeFix {
		t.Errorf("action = %+v, want no_safe_fix", report.Diagnosis.SuggestedActions[0])
	}
	if report.Final == nil || report.Final.Pass {
		t.Error("expected failed re-validation")
	}
	if !strings.Contains(report.Message, "still failing") {
		t.Errorf("unexpected message: %s", report.Message)
	}

	// Two dq_failure events: the initial validation and the re-validation
	// against the unchanged configuration.
	if got := len(log.EventsOfType("dq_failure")); got != 2 {
		t.Errorf("got %d dq_failure events, want 2", got)
	}
	if got := len(log.EventsOfType("healing_applied")); got != 0 {
		t.Errorf("got %d healing_applied events, want 0", got)
	}
}

func TestOrchestrator_RunMany(t *testing.T) {
	orchestrator := newTestOrchestrator(NewMemoryCausalLog())
	cfg := defaultConfig(t)

	requests := []RunRequest{
		{Dataset: driftedSalesDataset(t), Config: cfg},
		{Dataset: driftedSalesDataset(t), Config: cfg},
		{Dataset: driftedSalesDataset(t), Config: cfg},
	}

	reports := orchestrator.RunMany(requests, 2)

	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}
	seen := make(map[string]bool)
	for i, report := range reports {
		if report == nil {
			t.Fatalf("report %d is nil", i)
		}
		if report.Status != RunStatusHealedPassed {
			t.Errorf("report %d status = %s, want healed_passed", i, report.Status)
		}
		if seen[report.RunID] {
			t.Errorf("duplicate run id %s", report.RunID)
		}
		seen[report.RunID] = true
	}
	// Concurrent runs never mutate the shared configuration.
	if cfg.Schema.RequiredColumns[3] != "date_of_sale" {
		t.Error("shared configuration was mutated")
	}
}

func TestHealingStats_Observe(t *testing.T) {
	stats := &HealingStats{}

	stats.Observe(&RunReport{Status: RunStatusPassed})
	stats.Observe(&RunReport{Status: RunStatusHealedPassed, Attempted: true})
	stats.Observe(&RunReport{Status: RunStatusUnresolved, Attempted: true})
	stats.Observe(nil)

	if stats.Attempts() != 2 {
		t.Errorf("Attempts() = %d, want 2", stats.Attempts())
	}
	if stats.Successes() != 1 {
		t.Errorf("Successes() = %d, want 1", stats.Successes())
	}
}
