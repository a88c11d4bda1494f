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
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/DataBridgeTech/dbqheal"
)

type ClickhouseDatasetSource struct {
	cnn    driver.Conn
	logger *slog.Logger
}

func NewClickhouseDatasetSource(connectionCfg dbqheal.ConnectionConfig, logger *slog.Logger) (*ClickhouseDatasetSource, error) {
	cnn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{connectionCfg.Host},
		Auth: clickhouse.Auth{
			Database: connectionCfg.Database,
			Username: connectionCfg.Username,
			Password: connectionCfg.Password,
		},
		MaxOpenConns: 32,
		MaxIdleConns: 32,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create clickhouse connection: %w", err)
	}

	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ClickhouseDatasetSource{cnn: cnn, logger: logger}, nil
}

// LoadDataset reads the full table into memory. The dataset name may be
// database-qualified (database.table).
func (s *ClickhouseDatasetSource) LoadDataset(ctx context.Context, dataset string) (*dbqheal.Dataset, error) {
	rows, err := s.cnn.Query(ctx, fmt.Sprintf("select * from %s", dataset))
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset %s: %w", dataset, err)
	}
	defer rows.Close()

	columns := rows.Columns()
	columnTypes := rows.ColumnTypes()

	var data [][]dbqheal.Cell
	for rows.Next() {
		scanArgs := make([]any, len(columnTypes))
		for i, columnType := range columnTypes {
			scanType := columnType.ScanType()
			scanArgs[i] = reflect.New(scanType).Interface()
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]dbqheal.Cell, len(scanArgs))
		for i := range scanArgs {
			scannedValue := reflect.ValueOf(scanArgs[i]).Elem().Interface()
			row[i] = cellFromValue(scannedValue)
		}
		data = append(data, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	ds, err := dbqheal.NewDataset(columns, data)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", dataset, err)
	}

	s.logger.Debug("loaded clickhouse dataset", "dataset", dataset, "rows", ds.RowCount())
	return ds, nil
}

func (s *ClickhouseDatasetSource) Close() error {
	return s.cnn.Close()
}
