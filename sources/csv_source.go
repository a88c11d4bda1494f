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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/DataBridgeTech/dbqheal"
)

type CsvDatasetSource struct {
	logger *slog.Logger
}

func NewCsvDatasetSource(logger *slog.Logger) dbqheal.DatasetSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CsvDatasetSource{logger: logger}
}

func (s *CsvDatasetSource) LoadDataset(ctx context.Context, dataset string) (*dbqheal.Dataset, error) {
	file, err := os.Open(dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file (csv): %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read data file (csv): %w", err)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read data file (csv): %w", err)
		}
		records = append(records, record)
	}

	ds, err := dbqheal.DatasetFromRecords(header, records)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file (csv): %w", err)
	}

	s.logger.Debug("loaded csv dataset",
		"file", dataset,
		"rows", ds.RowCount(),
		"columns", len(ds.Columns()))
	return ds, nil
}
