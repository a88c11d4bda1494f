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
	"sort"
	"strconv"
	"strings"
	"time"
)

// FailureKind identifies the rule family a validation failure belongs to.
type FailureKind string

const (
	FailureRowCount      FailureKind = "row_count"
	FailureNullFraction  FailureKind = "null_fraction"
	FailureSchemaDrift   FailureKind = "schema_drift"
	FailureUniqueness    FailureKind = "uniqueness"
	FailureTypeMismatch  FailureKind = "type_mismatch"
	FailureAllowedValues FailureKind = "allowed_values"
	FailureFreshness     FailureKind = "freshness"
)

// ValidationFailure describes the single rule violation that stopped a
// validation pass. Observed and Threshold are set where the rule compares a
// measured value against an inclusive bound.
type ValidationFailure struct {
	Kind             FailureKind
	Column           string
	Observed         *float64
	Threshold        *float64
	MissingColumns   []string
	UnexpectedValues []string
	Message          string
}

// IsSchemaDrift reports whether the failure belongs to the structural
// failure family rather than the data-quality family.
func (f *ValidationFailure) IsSchemaDrift() bool {
	return f != nil && f.Kind == FailureSchemaDrift
}

// ValidationOutcome is the result of one validation call: success with the
// row count, or exactly one failure.
type ValidationOutcome struct {
	Pass    bool
	Rows    int
	Failure *ValidationFailure
}

// PipelineValidator evaluates a dataset against a pipeline's rule
// configuration.
type PipelineValidator interface {
	// Validate runs the configured checks in a fixed order and stops at the
	// first violation.
	Validate(ds *Dataset, cfg *PipelineConfig, pipelineName string) *ValidationOutcome
}

func NewPipelineValidator(log CausalLog, logger *slog.Logger) PipelineValidator {
	if log == nil {
		log = NopCausalLog{}
	}
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PipelineValidatorImpl{log: log, logger: logger, now: time.Now}
}

type PipelineValidatorImpl struct {
	log    CausalLog
	logger *slog.Logger
	now    func() time.Time
}

type checkFunc func(ds *Dataset, cfg *PipelineConfig, pipelineName string) *ValidationFailure

func (v *PipelineValidatorImpl) Validate(ds *Dataset, cfg *PipelineConfig, pipelineName string) *ValidationOutcome {
	// Fixed evaluation order; only the first-in-order violation is ever
	// surfaced, even when several rules are violated at once.
	checks := []checkFunc{
		v.checkRowCount,
		v.checkNullFraction,
		v.checkSchema,
		v.checkUniqueness,
		v.checkColumnTypes,
		v.checkAllowedValues,
		v.checkFreshness,
	}

	for _, check := range checks {
		if failure := check(ds, cfg, pipelineName); failure != nil {
			v.logger.Debug("validation failed",
				"pipeline_name", pipelineName,
				"kind", string(failure.Kind),
				"column", failure.Column)
			return &ValidationOutcome{Rows: ds.RowCount(), Failure: failure}
		}
	}

	v.log.Record("validation_success", map[string]any{
		"pipeline_name": pipelineName,
		"rows":          ds.RowCount(),
	})
	return &ValidationOutcome{Pass: true, Rows: ds.RowCount()}
}

func (v *PipelineValidatorImpl) checkRowCount(ds *Dataset, cfg *PipelineConfig, pipelineName string) *ValidationFailure {
	rows := ds.RowCount()
	minRows := cfg.minRowCount()
	if rows >= minRows {
		return nil
	}

	msg := fmt.Sprintf("Row count %d < min_row_count %d", rows, minRows)
	v.log.Record("dq_failure", map[string]any{
		"pipeline_name": pipelineName,
		"reason":        string(FailureRowCount),
		"message":       msg,
	})

	observed := float64(rows)
	threshold := float64(minRows)
	return &ValidationFailure{
		Kind:      FailureRowCount,
		Observed:  &observed,
		Threshold: &threshold,
		Message:   msg,
	}
}

func (v *PipelineValidatorImpl) checkNullFraction(ds *Dataset, cfg *PipelineConfig, pipelineName string) *ValidationFailure {
	maxNull, configured := cfg.maxNullFraction()
	if !configured {
		return nil
	}
	column := cfg.measureColumn()
	if !ds.HasColumn(column) {
		return nil
	}

	nullFrac := nullFraction(ds.Column(column), ds.RowCount())
	if nullFrac <= maxNull {
		return nil
	}

	msg := fmt.Sprintf("Null fraction in '%s' %.4f > max_null_fraction %.4f", column, nullFrac, maxNull)
	v.log.Record("dq_failure", map[string]any{
		"pipeline_name": pipelineName,
		"reason":        string(FailureNullFraction),
		"column":        column,
		"observed":      nullFrac,
		"threshold":     maxNull,
		"message":       msg,
	})

	observed := nullFrac
	threshold := maxNull
	return &ValidationFailure{
		Kind:      FailureNullFraction,
		Column:    column,
		Observed:  &observed,
		Threshold: &threshold,
		Message:   msg,
	}
}

func (v *PipelineValidatorImpl) checkSchema(ds *Dataset, cfg *PipelineConfig, pipelineName string) *ValidationFailure {
	var missing []string
	for _, column := range cfg.requiredColumns() {
		if !ds.HasColumn(column) {
			missing = append(missing, column)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	v.log.Record("schema_drift_detected", map[string]any{
		"pipeline_name":   pipelineName,
		"missing_columns": missing,
	})

	return &ValidationFailure{
		Kind:           FailureSchemaDrift,
		MissingColumns: missing,
		Message:        fmt.Sprintf("Schema drift: missing columns %v", missing),
	}
}

func (v *PipelineValidatorImpl) checkUniqueness(ds *Dataset, cfg *PipelineConfig, pipelineName string) *ValidationFailure {
	for _, column := range cfg.uniqueKeys() {
		if !ds.HasColumn(column) {
			continue
		}

		duplicates := duplicateCount(ds.Column(column))
		if duplicates == 0 {
			continue
		}

		msg := fmt.Sprintf("Uniqueness violation in '%s': %d duplicates", column, duplicates)
		v.log.Record("dq_failure", map[string]any{
			"pipeline_name": pipelineName,
			"reason":        string(FailureUniqueness),
			"column":        column,
			"duplicates":    duplicates,
			"message":       msg,
		})

		return &ValidationFailure{
			Kind:    FailureUniqueness,
			Column:  column,
			Message: msg,
		}
	}
	return nil
}

func (v *PipelineValidatorImpl) checkColumnTypes(ds *Dataset, cfg *PipelineConfig, pipelineName string) *ValidationFailure {
	columnTypes := cfg.columnTypes()
	for _, column := range columnTypes.Columns() {
		if !ds.HasColumn(column) {
			continue
		}

		expected, _ := columnTypes.TypeOf(column)
		if columnConforms(ds.Column(column), expected) {
			continue
		}

		msg := fmt.Sprintf("Type check failed for '%s' (expected %s)", column, expected)
		v.log.Record("dq_failure", map[string]any{
			"pipeline_name": pipelineName,
			"reason":        string(FailureTypeMismatch),
			"column":        column,
			"expected_type": string(expected),
			"message":       msg,
		})

		return &ValidationFailure{
			Kind:    FailureTypeMismatch,
			Column:  column,
			Message: msg,
		}
	}
	return nil
}

func (v *PipelineValidatorImpl) checkAllowedValues(ds *Dataset, cfg *PipelineConfig, pipelineName string) *ValidationFailure {
	allowedValues := cfg.allowedValues()
	for _, column := range allowedValues.Columns() {
		if !ds.HasColumn(column) {
			continue
		}

		allowed := make(map[string]bool)
		for _, value := range allowedValues.ValuesFor(column) {
			allowed[value] = true
		}

		unexpected := make(map[string]bool)
		for _, cell := range ds.Column(column) {
			if cell.Null {
				continue
			}
			if !allowed[cell.Value] {
				unexpected[cell.Value] = true
			}
		}
		if len(unexpected) == 0 {
			continue
		}

		badValues := make([]string, 0, len(unexpected))
		for value := range unexpected {
			badValues = append(badValues, value)
		}
		sort.Strings(badValues)

		msg := fmt.Sprintf("Column '%s' has unexpected values: %v", column, badValues)
		v.log.Record("dq_failure", map[string]any{
			"pipeline_name":     pipelineName,
			"reason":            string(FailureAllowedValues),
			"column":            column,
			"unexpected_values": badValues,
			"allowed":           allowedValues.ValuesFor(column),
			"message":           msg,
		})

		return &ValidationFailure{
			Kind:             FailureAllowedValues,
			Column:           column,
			UnexpectedValues: badValues,
			Message:          msg,
		}
	}
	return nil
}

func (v *PipelineValidatorImpl) checkFreshness(ds *Dataset, cfg *PipelineConfig, pipelineName string) *ValidationFailure {
	freshness := cfg.Freshness
	if freshness == nil || freshness.DateColumn == "" || freshness.MaxDaysDelay == 0 {
		return nil
	}
	column := freshness.DateColumn
	if !ds.HasColumn(column) {
		return nil
	}

	var latest time.Time
	found := false
	for _, cell := range ds.Column(column) {
		if cell.Null {
			continue
		}
		parsed, err := parseDate(cell.Value)
		if err != nil {
			// Malformed date values disable the freshness check instead of
			// failing it. Changing this would alter observable outcomes.
			return nil
		}
		if !found || parsed.After(latest) {
			latest = parsed
			found = true
		}
	}
	if !found {
		return nil
	}

	deltaDays := calendarDaysBetween(latest, v.now().UTC())
	if deltaDays <= freshness.MaxDaysDelay {
		return nil
	}

	latestDate := latest.Format("2006-01-02")
	msg := fmt.Sprintf("Freshness violation: latest %s=%s is %d days old (max allowed %d)",
		column, latestDate, deltaDays, freshness.MaxDaysDelay)
	v.log.Record("dq_failure", map[string]any{
		"pipeline_name":  pipelineName,
		"reason":         string(FailureFreshness),
		"column":         column,
		"latest_date":    latestDate,
		"delta_days":     deltaDays,
		"threshold_days": freshness.MaxDaysDelay,
		"message":        msg,
	})

	observed := float64(deltaDays)
	threshold := float64(freshness.MaxDaysDelay)
	return &ValidationFailure{
		Kind:      FailureFreshness,
		Column:    column,
		Observed:  &observed,
		Threshold: &threshold,
		Message:   msg,
	}
}

func nullFraction(cells []Cell, rows int) float64 {
	if rows == 0 {
		return 0
	}
	nulls := 0
	for _, cell := range cells {
		if cell.Null {
			nulls++
		}
	}
	return float64(nulls) / float64(rows)
}

func duplicateCount(cells []Cell) int {
	seen := make(map[string]int, len(cells))
	nulls := 0
	duplicates := 0
	for _, cell := range cells {
		if cell.Null {
			nulls++
			if nulls > 1 {
				duplicates++
			}
			continue
		}
		seen[cell.Value]++
		if seen[cell.Value] > 1 {
			duplicates++
		}
	}
	return duplicates
}

// columnConforms reports whether every non-missing value coerces to the
// expected primitive type. Both "float" and "int" use numeric coercion, and
// "string" accepts anything.
func columnConforms(cells []Cell, expected ColumnType) bool {
	switch expected {
	case ColumnTypeFloat, ColumnTypeInt:
		for _, cell := range cells {
			if cell.Null {
				continue
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(cell.Value), 64); err != nil {
				return false
			}
		}
		return true
	case ColumnTypeString:
		return true
	default:
		return true
	}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date value: %s", value)
}

func calendarDaysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
