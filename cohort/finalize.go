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
	"fmt"
	"math"
	"time"

	"github.com/penny-vault/pv-dca/data"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Result holds the valuation and return metrics of a finished cohort. Metrics
// that cannot be computed are NaN; inflation adjusted fields are nil when
// inflation adjustment is disabled.
type Result struct {
	StartYear   int
	StartDate   time.Time
	EndDate     time.Time
	Months      int
	Units       float64
	Years       float64
	Contributed decimal.Decimal
	FinalPrice  float64

	NominalValue  float64
	Gain          float64
	NominalCAGR   float64
	MoneyWeighted float64

	RealValue       *float64
	RealGain        *float64
	RealCAGR        *float64
	RealContributed *float64
	CpiStart        float64
	CpiEnd          float64

	Degenerate bool
}

func (r *Result) MarshalZerologObject(e *zerolog.Event) {
	e.Int("StartYear", r.StartYear).
		Int("Months", r.Months).
		Str("Contributed", r.Contributed.String()).
		Float64("NominalValue", r.NominalValue).
		Float64("NominalCAGR", r.NominalCAGR).
		Bool("Degenerate", r.Degenerate)
	if r.RealCAGR != nil {
		e.Float64("RealCAGR", *r.RealCAGR)
	}
}

// cagr returns (final / contributed)^(1/years) - 1, or NaN when undefined
func cagr(final, contributed, years float64) float64 {
	if contributed <= 0 || years <= 0 {
		return math.NaN()
	}
	return math.Pow(final/contributed, 1/years) - 1
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// cpiAt returns the CPI observation for the month containing t, falling back to
// an earlier month no more than maxLag months old
func cpiAt(cpi *data.CpiSeries, t time.Time, maxLag int) (float64, error) {
	if cpi == nil {
		return 0, &data.MissingDataError{Series: "cpi", Date: t, Reason: "no cpi series provided"}
	}

	pt, ok := cpi.AsOf(t)
	if !ok {
		return 0, &data.MissingDataError{Series: cpi.Name, Date: t, Reason: "no cpi observation on or before month"}
	}

	if lag := monthsBetween(pt.Month, data.MonthOf(t)); lag > maxLag {
		return 0, &data.MissingDataError{
			Series: cpi.Name,
			Date:   t,
			Reason: fmt.Sprintf("latest cpi observation is %d months old", lag),
		}
	}

	return pt.Value, nil
}

// Finalize values a frozen cohort state: units × final price in nominal terms and,
// when inflationAdjusted is set, deflated by CPI(start month) / CPI(end month).
// CAGR treats all contributions as if invested at the start of the cohort.
func Finalize(state *State, cpi *data.CpiSeries, inflationAdjusted bool) (*Result, error) {
	if state == nil {
		return nil, ErrNilState
	}

	cfg := state.Config
	subLog := log.With().Int("StartYear", cfg.StartYear).Logger()

	res := &Result{
		StartYear:   cfg.StartYear,
		StartDate:   cfg.StartDate(),
		EndDate:     cfg.EndDate,
		Months:      state.Months(),
		Units:       state.Units,
		Years:       toYears(cfg.EndDate.Sub(cfg.StartDate())),
		Contributed: state.Contributed,
		FinalPrice:  state.FinalPrice,
	}

	res.NominalValue = state.Units * state.FinalPrice
	contributed, _ := state.Contributed.Float64()
	res.Gain = res.NominalValue - contributed
	res.NominalCAGR = cagr(res.NominalValue, contributed, res.Years)
	res.MoneyWeighted = moneyWeightedReturn(state, res.NominalValue)

	res.Degenerate = contributed <= 0 || res.Years <= 0
	if res.Degenerate {
		subLog.Warn().Int("Months", res.Months).Float64("Years", res.Years).Msg("degenerate cohort: CAGR is undefined")
	}

	// nothing was bought so there is nothing to deflate
	if res.Months == 0 {
		if inflationAdjusted {
			zero := 0.0
			gain := -contributed
			nan := math.NaN()
			res.RealValue = &zero
			res.RealGain = &gain
			res.RealCAGR = &nan
			res.RealContributed = &contributed
		}
		return res, nil
	}

	if !inflationAdjusted {
		return res, nil
	}

	cpiStart, err := cpiAt(cpi, res.StartDate, cfg.MaxCpiLag)
	if err != nil {
		subLog.Error().Err(err).Msg("could not look up starting cpi")
		return nil, err
	}

	cpiEnd, err := cpiAt(cpi, res.EndDate, cfg.MaxCpiLag)
	if err != nil {
		subLog.Error().Err(err).Msg("could not look up ending cpi")
		return nil, err
	}

	res.CpiStart = cpiStart
	res.CpiEnd = cpiEnd

	// deflate with a single factor so equal CPI values leave the value unchanged
	factor := cpiStart / cpiEnd
	realValue := res.NominalValue * factor
	realGain := realValue - contributed
	realCAGR := cagr(realValue, contributed, res.Years)
	res.RealValue = &realValue
	res.RealGain = &realGain
	res.RealCAGR = &realCAGR

	// restate each contribution in start of cohort dollars
	realContributed := 0.0
	for _, contrib := range state.Contributions {
		cpiThen, err := cpiAt(cpi, contrib.Date, cfg.MaxCpiLag)
		if err != nil {
			subLog.Error().Err(err).Time("ContributionDate", contrib.Date).Msg("could not look up contribution cpi")
			return nil, err
		}
		amount, _ := contrib.Amount.Float64()
		realContributed += amount * cpiStart / cpiThen
	}
	res.RealContributed = &realContributed

	return res, nil
}
