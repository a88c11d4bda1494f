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

import "fmt"

// Cell is one value of a tabular dataset. Null marks a missing value, which
// is distinct from an empty string.
type Cell struct {
	Value string
	Null  bool
}

// Dataset is an in-memory table with named columns and a fixed row count.
// Validation never mutates it.
type Dataset struct {
	columns []string
	cells   map[string][]Cell
	rows    int
}

// NewDataset builds a dataset from column names and row-major cells. Every
// row must have exactly one cell per column.
func NewDataset(columns []string, rows [][]Cell) (*Dataset, error) {
	ds := &Dataset{
		columns: append([]string(nil), columns...),
		cells:   make(map[string][]Cell, len(columns)),
		rows:    len(rows),
	}

	for _, column := range columns {
		if _, exists := ds.cells[column]; exists {
			return nil, fmt.Errorf("duplicate column name: %s", column)
		}
		ds.cells[column] = make([]Cell, 0, len(rows))
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i, len(row), len(columns))
		}
		for j, column := range columns {
			ds.cells[column] = append(ds.cells[column], row[j])
		}
	}

	return ds, nil
}

// DatasetFromRecords builds a dataset from string records, treating empty
// strings as missing values (delimited-text semantics).
func DatasetFromRecords(header []string, records [][]string) (*Dataset, error) {
	rows := make([][]Cell, len(records))
	for i, record := range records {
		if len(record) != len(header) {
			return nil, fmt.Errorf("record %d has %d fields, expected %d", i, len(record), len(header))
		}
		row := make([]Cell, len(record))
		for j, value := range record {
			if value == "" {
				row[j] = Cell{Null: true}
			} else {
				row[j] = Cell{Value: value}
			}
		}
		rows[i] = row
	}
	return NewDataset(header, rows)
}

func (d *Dataset) RowCount() int {
	return d.rows
}

func (d *Dataset) Columns() []string {
	cols := make([]string, len(d.columns))
	copy(cols, d.columns)
	return cols
}

func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.cells[name]
	return ok
}

// Column returns the cells of the named column, or nil if the column does
// not exist. Callers must not modify the returned slice.
func (d *Dataset) Column(name string) []Cell {
	return d.cells[name]
}
