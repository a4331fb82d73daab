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

package backtest

import (
	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-dca/cohort"
	"github.com/penny-vault/pv-dca/common"
	"github.com/penny-vault/pv-dca/data"
)

// CacheKey identifies the outcome of running cfg over the given series. Runs
// with the same key produce identical results.
func CacheKey(cfg cohort.Config, prices *data.PriceSeries, cpi *data.CpiSeries) (string, error) {
	// parallelism does not change results
	cfg.Parallelism = 0

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	parts := [][]byte{cfgJSON}

	if prices != nil {
		b, err := json.Marshal(prices.Points())
		if err != nil {
			return "", err
		}
		parts = append(parts, []byte(prices.Name), b)
	}

	if cpi != nil {
		b, err := json.Marshal(cpi.Points())
		if err != nil {
			return "", err
		}
		parts = append(parts, []byte(cpi.Name), b)
	}

	return common.CacheKey(parts...), nil
}
