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
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/DataBridgeTech/dbqheal"
)

// cellFromValue renders a scanned or decoded value as a dataset cell. Nil
// values and nil pointers become missing cells.
func cellFromValue(value any) dbqheal.Cell {
	if value == nil {
		return dbqheal.Cell{Null: true}
	}

	switch v := value.(type) {
	case string:
		return dbqheal.Cell{Value: v}
	case json.Number:
		return dbqheal.Cell{Value: v.String()}
	case bool:
		return dbqheal.Cell{Value: strconv.FormatBool(v)}
	case float64:
		return dbqheal.Cell{Value: strconv.FormatFloat(v, 'f', -1, 64)}
	case float32:
		return dbqheal.Cell{Value: strconv.FormatFloat(float64(v), 'f', -1, 32)}
	case time.Time:
		return dbqheal.Cell{Value: v.UTC().Format("2006-01-02 15:04:05")}
	case []byte:
		return dbqheal.Cell{Value: string(v)}
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return dbqheal.Cell{Null: true}
		}
		return cellFromValue(rv.Elem().Interface())
	}

	return dbqheal.Cell{Value: fmt.Sprintf("%v", value)}
}

// readSQLRows drains a database/sql result set into a dataset, scanning
// every column as a nullable string.
func readSQLRows(rows *sql.Rows) (*dbqheal.Dataset, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var data [][]dbqheal.Cell
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]dbqheal.Cell, len(columns))
		for i, value := range values {
			if !value.Valid {
				row[i] = dbqheal.Cell{Null: true}
			} else {
				row[i] = dbqheal.Cell{Value: value.String}
			}
		}
		data = append(data, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	return dbqheal.NewDataset(columns, data)
}
