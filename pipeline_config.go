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
	"os"

	"gopkg.in/yaml.v3"
)

type ColumnType string

const (
	ColumnTypeFloat  ColumnType = "float"
	ColumnTypeInt    ColumnType = "int"
	ColumnTypeString ColumnType = "string"
)

// DefaultMeasureColumn is the column the null-fraction rule is evaluated
// against when data_quality.measure_column is not set.
const DefaultMeasureColumn = "sales_amount"

// DefaultPipelineConfigYAML is the starter policy document handed to new
// pipelines.
const DefaultPipelineConfigYAML = `pipeline_name: "daily_sales_processing"

data_quality:
  max_null_fraction: 0.05
  min_row_count: 5
  unique_keys:
    - transaction_id

schema:
  required_columns:
    - transaction_id
    - customer_id
    - sales_amount
    - date_of_sale
  column_types:
    sales_amount: float

allowed_values:
  region: ["APAC", "EMEA", "US"]

freshness:
  date_column: date_of_sale
  max_days_delay: 3
`

// PipelineConfig is the declarative validation policy for one pipeline.
// Every sub-document is optional; a missing sub-rule means the corresponding
// check is skipped.
type PipelineConfig struct {
	PipelineName  string            `yaml:"pipeline_name,omitempty"`
	DataQuality   *DataQualityRules `yaml:"data_quality,omitempty"`
	Schema        *SchemaRules      `yaml:"schema,omitempty"`
	AllowedValues *AllowedValuesMap `yaml:"allowed_values,omitempty"`
	Freshness     *FreshnessRule    `yaml:"freshness,omitempty"`
}

type DataQualityRules struct {
	MaxNullFraction *float64 `yaml:"max_null_fraction,omitempty"`
	MinRowCount     int      `yaml:"min_row_count,omitempty"`
	MeasureColumn   string   `yaml:"measure_column,omitempty"`
	UniqueKeys      []string `yaml:"unique_keys,omitempty"`
}

type SchemaRules struct {
	RequiredColumns []string        `yaml:"required_columns,omitempty"`
	ColumnTypes     *ColumnTypesMap `yaml:"column_types,omitempty"`
}

type FreshnessRule struct {
	DateColumn   string `yaml:"date_column,omitempty"`
	MaxDaysDelay int    `yaml:"max_days_delay,omitempty"`
}

// ColumnTypesMap is an ordered column -> expected type mapping. Document
// order is preserved so that type-mismatch reporting and re-serialization of
// a healed configuration are stable.
type ColumnTypesMap struct {
	columns []string
	types   map[string]ColumnType
}

func NewColumnTypesMap() *ColumnTypesMap {
	return &ColumnTypesMap{types: make(map[string]ColumnType)}
}

func (m *ColumnTypesMap) Set(column string, columnType ColumnType) *ColumnTypesMap {
	if m.types == nil {
		m.types = make(map[string]ColumnType)
	}
	if _, exists := m.types[column]; !exists {
		m.columns = append(m.columns, column)
	}
	m.types[column] = columnType
	return m
}

func (m *ColumnTypesMap) Columns() []string {
	if m == nil {
		return nil
	}
	cols := make([]string, len(m.columns))
	copy(cols, m.columns)
	return cols
}

func (m *ColumnTypesMap) TypeOf(column string) (ColumnType, bool) {
	if m == nil || m.types == nil {
		return "", false
	}
	t, ok := m.types[column]
	return t, ok
}

func (m *ColumnTypesMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("column_types must be a mapping")
	}

	m.columns = nil
	m.types = make(map[string]ColumnType, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		column := node.Content[i].Value
		columnType := ColumnType(node.Content[i+1].Value)
		switch columnType {
		case ColumnTypeFloat, ColumnTypeInt, ColumnTypeString:
		default:
			return fmt.Errorf("unsupported column type %q for column %q", columnType, column)
		}
		m.Set(column, columnType)
	}

	return nil
}

func (m *ColumnTypesMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, column := range m.columns {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: column},
			&yaml.Node{Kind: yaml.ScalarNode, Value: string(m.types[column])},
		)
	}
	return node, nil
}

func (m *ColumnTypesMap) clone() *ColumnTypesMap {
	if m == nil {
		return nil
	}
	cloned := NewColumnTypesMap()
	for _, column := range m.columns {
		cloned.Set(column, m.types[column])
	}
	return cloned
}

// AllowedValuesMap is an ordered column -> allow-list mapping.
type AllowedValuesMap struct {
	columns []string
	values  map[string][]string
}

func NewAllowedValuesMap() *AllowedValuesMap {
	return &AllowedValuesMap{values: make(map[string][]string)}
}

func (m *AllowedValuesMap) Set(column string, allowed []string) *AllowedValuesMap {
	if m.values == nil {
		m.values = make(map[string][]string)
	}
	if _, exists := m.values[column]; !exists {
		m.columns = append(m.columns, column)
	}
	m.values[column] = append([]string(nil), allowed...)
	return m
}

func (m *AllowedValuesMap) Columns() []string {
	if m == nil {
		return nil
	}
	cols := make([]string, len(m.columns))
	copy(cols, m.columns)
	return cols
}

func (m *AllowedValuesMap) ValuesFor(column string) []string {
	if m == nil || m.values == nil {
		return nil
	}
	return append([]string(nil), m.values[column]...)
}

func (m *AllowedValuesMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("allowed_values must be a mapping")
	}

	m.columns = nil
	m.values = make(map[string][]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		column := node.Content[i].Value
		var allowed []string
		if err := node.Content[i+1].Decode(&allowed); err != nil {
			return fmt.Errorf("allowed_values for column %q must be a list: %w", column, err)
		}
		m.Set(column, allowed)
	}

	return nil
}

func (m *AllowedValuesMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, column := range m.columns {
		valuesNode := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, v := range m.values[column] {
			valuesNode.Content = append(valuesNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: v})
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: column},
			valuesNode,
		)
	}
	return node, nil
}

func (m *AllowedValuesMap) clone() *AllowedValuesMap {
	if m == nil {
		return nil
	}
	cloned := NewAllowedValuesMap()
	for _, column := range m.columns {
		cloned.Set(column, m.values[column])
	}
	return cloned
}

// ParsePipelineConfig decodes a YAML policy document.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}
	return &cfg, nil
}

// LoadPipelineConfig reads and decodes a YAML policy document from disk.
func LoadPipelineConfig(fileName string) (*PipelineConfig, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg PipelineConfig
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	return &cfg, nil
}

// ToYAML re-serializes the configuration in the same document format it was
// loaded from, including any healed values.
func (c *PipelineConfig) ToYAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to serialize pipeline config: %w", err)
	}
	return string(out), nil
}

// Clone returns a deep copy. Healing always operates on a clone so the
// caller's configuration is never mutated.
func (c *PipelineConfig) Clone() *PipelineConfig {
	if c == nil {
		return nil
	}

	cloned := &PipelineConfig{PipelineName: c.PipelineName}
	if c.DataQuality != nil {
		dq := &DataQualityRules{
			MinRowCount:   c.DataQuality.MinRowCount,
			MeasureColumn: c.DataQuality.MeasureColumn,
			UniqueKeys:    append([]string(nil), c.DataQuality.UniqueKeys...),
		}
		if c.DataQuality.MaxNullFraction != nil {
			v := *c.DataQuality.MaxNullFraction
			dq.MaxNullFraction = &v
		}
		cloned.DataQuality = dq
	}
	if c.Schema != nil {
		cloned.Schema = &SchemaRules{
			RequiredColumns: append([]string(nil), c.Schema.RequiredColumns...),
			ColumnTypes:     c.Schema.ColumnTypes.clone(),
		}
	}
	cloned.AllowedValues = c.AllowedValues.clone()
	if c.Freshness != nil {
		fr := *c.Freshness
		cloned.Freshness = &fr
	}
	return cloned
}

func (c *PipelineConfig) pipelineNameOr(fallback string) string {
	if c == nil || c.PipelineName == "" {
		return fallback
	}
	return c.PipelineName
}

func (c *PipelineConfig) minRowCount() int {
	if c == nil || c.DataQuality == nil {
		return 0
	}
	return c.DataQuality.MinRowCount
}

func (c *PipelineConfig) maxNullFraction() (float64, bool) {
	if c == nil || c.DataQuality == nil || c.DataQuality.MaxNullFraction == nil {
		return 0, false
	}
	return *c.DataQuality.MaxNullFraction, true
}

func (c *PipelineConfig) measureColumn() string {
	if c != nil && c.DataQuality != nil && c.DataQuality.MeasureColumn != "" {
		return c.DataQuality.MeasureColumn
	}
	return DefaultMeasureColumn
}

func (c *PipelineConfig) requiredColumns() []string {
	if c == nil || c.Schema == nil {
		return nil
	}
	return c.Schema.RequiredColumns
}

func (c *PipelineConfig) uniqueKeys() []string {
	if c == nil || c.DataQuality == nil {
		return nil
	}
	return c.DataQuality.UniqueKeys
}

func (c *PipelineConfig) columnTypes() *ColumnTypesMap {
	if c == nil || c.Schema == nil {
		return nil
	}
	return c.Schema.ColumnTypes
}

func (c *PipelineConfig) allowedValues() *AllowedValuesMap {
	if c == nil {
		return nil
	}
	return c.AllowedValues
}
