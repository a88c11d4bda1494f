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

package dqh

import (
	"fmt"
	"log/slog"

	"github.com/DataBridgeTech/dbqheal"
	"github.com/DataBridgeTech/dbqheal/sources"
)

const (
	Version = "v0.1.0"
)

func GetDbqHealLibVersion() string {
	return Version
}

func NewDatasetSource(dataSource *dbqheal.DataSource, logger *slog.Logger) (dbqheal.DatasetSource, error) {
	switch dataSource.Type {
	case dbqheal.DataSourceTypeCsv:
		return sources.NewCsvDatasetSource(logger), nil
	case dbqheal.DataSourceTypeJson:
		return sources.NewJsonDatasetSource(logger), nil
	case dbqheal.DataSourceTypePostgresql:
		source, err := sources.NewPostgresqlDatasetSource(dataSource.Configuration, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgresql dataset source: %w", err)
		}
		return source, nil
	case dbqheal.DataSourceTypeMysql:
		source, err := sources.NewMysqlDatasetSource(dataSource.Configuration, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql dataset source: %w", err)
		}
		return source, nil
	case dbqheal.DataSourceTypeClickhouse:
		source, err := sources.NewClickhouseDatasetSource(dataSource.Configuration, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create clickhouse dataset source: %w", err)
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unsupported data source type: %s", dataSource.Type)
	}
}

// NewOrchestrator wires the default orchestrator with a file-backed causal
// log at the given path.
func NewOrchestrator(causalLogPath string, logger *slog.Logger) (*dbqheal.Orchestrator, *dbqheal.FileCausalLog, error) {
	causalLog, err := dbqheal.NewFileCausalLog(causalLogPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open causal log: %w", err)
	}
	return dbqheal.NewDefaultOrchestrator(causalLog, logger), causalLog, nil
}
