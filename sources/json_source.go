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

package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/DataBridgeTech/dbqheal"
)

// JsonDatasetSource reads record-oriented JSON: either a top-level array of
// objects or one object per line. Column order is the sorted union of keys
// so repeated loads of the same file produce the same table shape.
type JsonDatasetSource struct {
	logger *slog.Logger
}

func NewJsonDatasetSource(logger *slog.Logger) dbqheal.DatasetSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &JsonDatasetSource{logger: logger}
}

func (s *JsonDatasetSource) LoadDataset(ctx context.Context, dataset string) (*dbqheal.Dataset, error) {
	file, err := os.Open(dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file (json): %w", err)
	}
	defer file.Close()

	records, err := decodeJSONRecords(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file (json): %w", err)
	}

	columnSet := make(map[string]bool)
	for _, record := range records {
		for key := range record {
			columnSet[key] = true
		}
	}
	columns := make([]string, 0, len(columnSet))
	for column := range columnSet {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	rows := make([][]dbqheal.Cell, len(records))
	for i, record := range records {
		row := make([]dbqheal.Cell, len(columns))
		for j, column := range columns {
			value, present := record[column]
			if !present || value == nil {
				row[j] = dbqheal.Cell{Null: true}
				continue
			}
			row[j] = cellFromValue(value)
		}
		rows[i] = row
	}

	ds, err := dbqheal.NewDataset(columns, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file (json): %w", err)
	}

	s.logger.Debug("loaded json dataset",
		"file", dataset,
		"rows", ds.RowCount(),
		"columns", len(columns))
	return ds, nil
}

func decodeJSONRecords(r io.Reader) ([]map[string]any, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	token, err := decoder.Token()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	if delim, ok := token.(json.Delim); ok && delim == '[' {
		for decoder.More() {
			var record map[string]any
			if err := decoder.Decode(&record); err != nil {
				return nil, err
			}
			records = append(records, record)
		}
		return records, nil
	}

	// Line-delimited objects: the first token must open an object, then
	// decode records until EOF.
	delim, ok := token.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("expected an array of objects or line-delimited objects")
	}
	first := make(map[string]any)
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyToken.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token in object: %v", keyToken)
		}
		var value any
		if err := decoder.Decode(&value); err != nil {
			return nil, err
		}
		first[key] = value
	}
	if _, err := decoder.Token(); err != nil { // closing '}'
		return nil, err
	}
	records = append(records, first)

	for {
		var record map[string]any
		if err := decoder.Decode(&record); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}
