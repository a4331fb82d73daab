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

package report

import (
	"errors"
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
)

var (
	ErrNoChartData   = errors.New("nothing to chart")
	ErrUnknownCohort = errors.New("unknown cohort")
)

const (
	DefaultChartWidth = 72
	chartHeight       = 15
)

// CAGRChart plots nominal CAGR (in percent) against start year, with real CAGR
// as a second series when the run was inflation adjusted
func CAGRChart(doc *Document) (string, error) {
	nominal := make([]float64, 0, len(doc.Cohorts))
	realVals := make([]float64, 0, len(doc.Cohorts))
	hasReal := false
	first, last := 0, 0
	for _, row := range doc.Cohorts {
		if row.NominalCAGR == nil {
			continue
		}
		if len(nominal) == 0 {
			first = row.StartYear
		}
		last = row.StartYear
		nominal = append(nominal, *row.NominalCAGR*100)
		if row.RealCAGR != nil {
			realVals = append(realVals, *row.RealCAGR*100)
			hasReal = true
		} else {
			realVals = append(realVals, math.NaN())
		}
	}
	if len(nominal) == 0 {
		return "", ErrNoChartData
	}

	opts := []asciigraph.Option{
		asciigraph.Height(chartHeight),
		asciigraph.Width(DefaultChartWidth),
		asciigraph.Precision(1),
	}
	if !doc.Settings.InflationAdjusted || !hasReal {
		opts = append(opts, asciigraph.Caption(fmt.Sprintf("Nominal CAGR %% by start year (%d-%d)", first, last)))
		return asciigraph.Plot(nominal, opts...), nil
	}

	opts = append(opts,
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Green),
		asciigraph.Caption(fmt.Sprintf("Nominal (blue) and real (green) CAGR %% by start year (%d-%d)", first, last)),
	)
	return asciigraph.PlotMany([][]float64{nominal, realVals}, opts...), nil
}

// HistoryChart plots the value of the cohort starting in year after each contribution
func HistoryChart(doc *Document, year int) (string, error) {
	history, ok := doc.History[year]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownCohort, year)
	}
	if len(history) == 0 {
		return "", ErrNoChartData
	}

	vals := make([]float64, len(history))
	for idx, pt := range history {
		vals[idx] = pt.Value
	}

	return asciigraph.Plot(vals,
		asciigraph.Height(chartHeight),
		asciigraph.Width(DefaultChartWidth),
		asciigraph.Precision(0),
		asciigraph.Caption(fmt.Sprintf("Portfolio value, cohort %d (%s to %s)", year, history[0].Date, history[len(history)-1].Date)),
	), nil
}
