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

import "context"

type DataSourceType string

const (
	DataSourceTypeCsv        DataSourceType = "csv"
	DataSourceTypeJson       DataSourceType = "json"
	DataSourceTypePostgresql DataSourceType = "postgresql"
	DataSourceTypeMysql      DataSourceType = "mysql"
	DataSourceTypeClickhouse DataSourceType = "clickhouse"
)

type ConnectionConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type DataSource struct {
	Name          string           `yaml:"name"`
	Type          DataSourceType   `yaml:"type"`
	Configuration ConnectionConfig `yaml:"configuration,omitempty"`
}

// DatasetSource loads a named dataset (a file path or a table name,
// depending on the source type) into memory. Load errors are a caller-facing
// error class distinct from validation failures and never enter the
// diagnosis machinery.
type DatasetSource interface {
	LoadDataset(ctx context.Context, dataset string) (*Dataset, error)
}
