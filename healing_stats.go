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

import "sync"

// HealingStats tallies healing attempts and successes across runs. It is
// in-memory only; durable counters are the caller's concern.
type HealingStats struct {
	mu        sync.Mutex
	attempts  int
	successes int
}

func (s *HealingStats) Observe(report *RunReport) {
	if report == nil || !report.Attempted {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if report.Status == RunStatusHealedPassed {
		s.successes++
	}
}

func (s *HealingStats) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *HealingStats) Successes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successes
}
