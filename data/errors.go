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

package data

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingData      = errors.New("missing data")
	ErrEmptySeries      = errors.New("series is empty")
	ErrUnsortedSeries   = errors.New("series observations are not in ascending date order")
	ErrDuplicateDate    = errors.New("series contains duplicate dates")
	ErrInvalidValue     = errors.New("series values must be positive and finite")
	ErrInvalidTimeRange = errors.New("start must be before end")
	ErrColumnNotFound   = errors.New("column not found in input")
	ErrHTTPStatus       = errors.New("HTTP request returned invalid status code")
)

// MissingDataError reports a required observation that is absent from a series
type MissingDataError struct {
	Series string
	Date   time.Time
	Reason string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing %s data for %s: %s", e.Series, e.Date.Format("2006-01-02"), e.Reason)
}

// Is makes errors.Is(err, ErrMissingData) true for every MissingDataError
func (e *MissingDataError) Is(target error) bool {
	return target == ErrMissingData
}
