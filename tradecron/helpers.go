// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tradecron

import (
	"strings"
	"time"
)

// NextMonth returns the first day of the next month
func NextMonth(t time.Time) time.Time {
	y := t.Year()
	m := t.Month()
	if m == time.December {
		y++
		m = time.January
	} else {
		m++
	}
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// NextDay returns midnight of the day after t
func NextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

// expandBriefFormat expands a timespec that has fields ommitted for brevity,
// e.g. "0 0 15" becomes "0 0 15 * *"
func expandBriefFormat(spec string) string {
	if spec[0] == '@' {
		return spec
	}

	tokens := strings.Fields(spec)
	for len(tokens) < 5 {
		tokens = append(tokens, "*")
	}
	return strings.Join(tokens, " ")
}
