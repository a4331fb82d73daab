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

package cohort

import (
	"math"
	"time"
)

const (
	irrLowerBound = -0.99
	irrUpperBound = 10.0
)

type cashflow struct {
	date  time.Time
	value float64
}

func toYears(d time.Duration) float64 {
	return d.Hours() / (24 * 365.2425)
}

// xirr returns the annualized rate r for which the net present value of the
// cashflows is zero. Returns NaN when no root exists in [-99%, 1000%].
func xirr(cashflows []cashflow) (float64, error) {
	if len(cashflows) < 2 {
		return math.NaN(), ErrNoBracket
	}

	years := make([]float64, len(cashflows))
	for idx, cf := range cashflows {
		years[idx] = toYears(cf.date.Sub(cashflows[0].date))
	}

	npv := func(rate float64) float64 {
		total := 0.0
		for idx, cf := range cashflows {
			total += cf.value / math.Pow(1+rate, years[idx])
		}
		return total
	}

	return fsolve(npv, irrLowerBound, irrUpperBound)
}

// moneyWeightedReturn computes the IRR of the contributions against the final value
func moneyWeightedReturn(state *State, finalValue float64) float64 {
	if len(state.Contributions) == 0 {
		return math.NaN()
	}

	flows := make([]cashflow, 0, len(state.Contributions)+1)
	for _, contrib := range state.Contributions {
		amount, _ := contrib.Amount.Float64()
		flows = append(flows, cashflow{date: contrib.Date, value: -amount})
	}
	flows = append(flows, cashflow{date: state.Config.EndDate, value: finalValue})

	rate, err := xirr(flows)
	if err != nil {
		return math.NaN()
	}
	return rate
}
