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
	"time"

	"github.com/penny-vault/pv-dca/data"
	"github.com/penny-vault/pv-dca/dataframe"
	"github.com/penny-vault/pv-dca/tradecron"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	UnitsCol    = "Units"
	ValueCol    = "Value"
	InvestedCol = "Invested"
	ProfitCol   = "Profit"
)

// Contribution records a single purchase
type Contribution struct {
	Date   time.Time
	Price  float64
	Units  float64
	Amount decimal.Decimal
}

// Snapshot is the state of the holding immediately after a contribution
type Snapshot struct {
	Date        time.Time
	Units       float64
	Value       float64
	Contributed decimal.Decimal
}

// State is the accumulated holding of a cohort frozen at the end date
type State struct {
	Config        CohortConfig
	Units         float64
	Contributed   decimal.Decimal
	Contributions []Contribution
	Trajectory    []Snapshot

	// FinalPrice is the last available price on or before the end date
	FinalPrice float64
	FinalDate  time.Time
}

// Months returns the number of contributions made
func (s *State) Months() int {
	return len(s.Contributions)
}

// Frame returns the trajectory as a dataframe with Units, Value and Invested columns
func (s *State) Frame() *dataframe.DataFrame {
	df := dataframe.New(UnitsCol, ValueCol, InvestedCol)
	for _, snap := range s.Trajectory {
		invested, _ := snap.Contributed.Float64()
		df.InsertRow(snap.Date, snap.Units, snap.Value, invested)
	}
	return df
}

// Simulate walks the contribution schedule from January 1st of the start year to
// the end date, buying at the first price observed in each contribution window.
// A window without a price is a MissingDataError; no stale or zero price is used.
func Simulate(cfg CohortConfig, prices *data.PriceSeries) (*State, error) {
	subLog := log.With().Int("StartYear", cfg.StartYear).Logger()

	schedule, err := tradecron.New(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	capacity := 0
	if years := cfg.EndDate.Year() - cfg.StartYear + 1; years > 0 {
		capacity = 12 * years
	}

	state := &State{
		Config:        cfg,
		Contributed:   decimal.Zero,
		Contributions: make([]Contribution, 0, capacity),
		Trajectory:    make([]Snapshot, 0, capacity),
	}

	start := cfg.StartDate()
	if start.After(cfg.EndDate) {
		subLog.Debug().Msg("cohort starts after end date; nothing to simulate")
		if final, ok := prices.AsOf(cfg.EndDate); ok {
			state.FinalPrice = final.Price
			state.FinalDate = final.Date
		}
		return state, nil
	}

	windows, err := schedule.Windows(start, cfg.EndDate)
	if err != nil {
		return nil, err
	}

	amount, _ := cfg.Contribution.Float64()
	for _, window := range windows {
		pt, ok := prices.FirstInWindow(window.Begin, window.End)
		if !ok {
			return nil, &data.MissingDataError{
				Series: prices.Name,
				Date:   window.Begin,
				Reason: "no price observed in contribution window",
			}
		}

		units := amount / pt.Price
		state.Units += units
		state.Contributed = state.Contributed.Add(cfg.Contribution)

		state.Contributions = append(state.Contributions, Contribution{
			Date:   pt.Date,
			Price:  pt.Price,
			Units:  units,
			Amount: cfg.Contribution,
		})
		state.Trajectory = append(state.Trajectory, Snapshot{
			Date:        pt.Date,
			Units:       state.Units,
			Value:       state.Units * pt.Price,
			Contributed: state.Contributed,
		})
	}

	final, ok := prices.AsOf(cfg.EndDate)
	if !ok {
		return nil, &data.MissingDataError{
			Series: prices.Name,
			Date:   cfg.EndDate,
			Reason: "no price on or before end date",
		}
	}
	state.FinalPrice = final.Price
	state.FinalDate = final.Date

	subLog.Debug().Int("Months", state.Months()).Float64("Units", state.Units).Str("Contributed", state.Contributed.String()).Msg("simulated cohort")

	return state, nil
}
