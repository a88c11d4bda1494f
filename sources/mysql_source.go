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
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/DataBridgeTech/dbqheal"
	_ "github.com/go-sql-driver/mysql"
)

type MysqlDatasetSource struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewMysqlDatasetSource(connectionCfg dbqheal.ConnectionConfig, logger *slog.Logger) (*MysqlDatasetSource, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		connectionCfg.Username, connectionCfg.Password, connectionCfg.Host, connectionCfg.Port, connectionCfg.Database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connection: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &MysqlDatasetSource{db: db, logger: logger}, nil
}

func (s *MysqlDatasetSource) LoadDataset(ctx context.Context, dataset string) (*dbqheal.Dataset, error) {
	query := fmt.Sprintf("select * from %s", dataset)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset %s: %w", dataset, err)
	}
	defer rows.Close()

	ds, err := readSQLRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", dataset, err)
	}

	s.logger.Debug("loaded mysql dataset", "dataset", dataset, "rows", ds.RowCount())
	return ds, nil
}

func (s *MysqlDatasetSource) Close() error {
	return s.db.Close()
}
