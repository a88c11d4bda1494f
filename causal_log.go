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
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// causalTimestampLayout is ISO-8601 UTC at second precision with an explicit
// "Z" suffix.
const causalTimestampLayout = "2006-01-02T15:04:05Z"

// CausalEvent is one immutable entry of the causal trail.
type CausalEvent struct {
	Timestamp  string
	EventType  string
	Attributes map[string]any
}

// CausalLog is the one-way sink every engine writes its steps to. Record is
// best-effort: a failing sink must never abort the validation or healing
// flow that triggered the write.
type CausalLog interface {
	Record(eventType string, attributes map[string]any)
}

// FileCausalLog appends one self-contained JSON object per line to a log
// file. Writes are serialized so concurrent recorders never interleave
// partial records.
type FileCausalLog struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
}

func NewFileCausalLog(fileName string, logger *slog.Logger) (*FileCausalLog, error) {
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if dir := filepath.Dir(fileName); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	return &FileCausalLog{file: file, logger: logger}, nil
}

func (l *FileCausalLog) Record(eventType string, attributes map[string]any) {
	payload, err := json.Marshal(causalRecord(eventType, attributes))
	if err != nil {
		l.logger.Error("failed to serialize causal event",
			"event_type", eventType,
			"error", err.Error())
		return
	}
	payload = append(payload, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(payload); err != nil {
		l.logger.Error("failed to append causal event",
			"event_type", eventType,
			"error", err.Error())
	}
}

func (l *FileCausalLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// MemoryCausalLog captures events in memory, in write order.
type MemoryCausalLog struct {
	mu     sync.Mutex
	events []CausalEvent
}

func NewMemoryCausalLog() *MemoryCausalLog {
	return &MemoryCausalLog{}
}

func (l *MemoryCausalLog) Record(eventType string, attributes map[string]any) {
	attrs := make(map[string]any, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, CausalEvent{
		Timestamp:  time.Now().UTC().Format(causalTimestampLayout),
		EventType:  eventType,
		Attributes: attrs,
	})
}

func (l *MemoryCausalLog) Events() []CausalEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	events := make([]CausalEvent, len(l.events))
	copy(events, l.events)
	return events
}

func (l *MemoryCausalLog) EventsOfType(eventType string) []CausalEvent {
	var matched []CausalEvent
	for _, event := range l.Events() {
		if event.EventType == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// NopCausalLog discards every event.
type NopCausalLog struct{}

func (NopCausalLog) Record(string, map[string]any) {}

func causalRecord(eventType string, attributes map[string]any) map[string]any {
	record := make(map[string]any, len(attributes)+2)
	for k, v := range attributes {
		record[k] = v
	}
	record["timestamp"] = time.Now().UTC().Format(causalTimestampLayout)
	record["event_type"] = eventType
	return record
}
