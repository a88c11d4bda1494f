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

func TestDatasetFromRecords(t *testing.T) {
	ds, err := DatasetFromRecords(
		[]string{"id", "amount"},
		[][]string{{"a", "10"}, {"b", ""}})
	if err != nil {
		t.Fatalf("DatasetFromRecords() error = %v", err)
	}

	if ds.RowCount() != 2 {
		t.Errorf("RowCount() = %d, want 2", ds.RowCount())
	}
	if !reflect.DeepEqual(ds.Columns(), []string{"id", "amount"}) {
		t.Errorf("Columns() = %v", ds.Columns())
	}
	if !ds.HasColumn("amount") || ds.HasColumn("missing") {
		t.Error("HasColumn() misbehaves")
	}

	amount := ds.Column("amount")
	if amount[0].Null || amount[0].Value != "10" {
		t.Errorf("amount[0] = %+v", amount[0])
	}
	// Empty strings in records are missing values.
	if !amount[1].Null {
		t.Errorf("amount[1] = %+v, want null", amount[1])
	}
}

func TestDatasetFromRecords_Errors(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		records [][]string
	}{
		{name: "ragged record", header: []string{"a", "b"}, records: [][]string{{"1"}}},
		{name: "duplicate column", header: []string{"a", "a"}, records: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DatasetFromRecords(tt.header, tt.records); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
