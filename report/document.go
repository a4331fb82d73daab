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
	"math"
	"time"

	"github.com/penny-vault/pv-dca/backtest"
	"github.com/penny-vault/pv-dca/cohort"
	"github.com/penny-vault/pv-dca/summary"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const dateFormat = "2006-01-02"

// Row is the serializable view of a cohort result. Undefined metrics are nil.
type Row struct {
	StartYear       int             `json:"startYear"`
	StartDate       string          `json:"startDate"`
	EndDate         string          `json:"endDate"`
	Months          int             `json:"months"`
	Units           float64         `json:"units"`
	Contributed     decimal.Decimal `json:"contributed"`
	FinalPrice      float64         `json:"finalPrice"`
	NominalValue    float64         `json:"nominalValue"`
	Gain            float64         `json:"gain"`
	NominalCAGR     *float64        `json:"nominalCagr"`
	MoneyWeighted   *float64        `json:"moneyWeightedReturn"`
	RealValue       *float64        `json:"realValue"`
	RealGain        *float64        `json:"realGain"`
	RealCAGR        *float64        `json:"realCagr"`
	RealContributed *float64        `json:"realContributed"`
	Degenerate      bool            `json:"degenerate"`
}

// HistoryPoint is the value of a cohort's holding right after a contribution
type HistoryPoint struct {
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
	Invested float64 `json:"invested"`
	Profit   float64 `json:"profit"`
	Multiple float64 `json:"multiple"`
}

type Extreme struct {
	StartYear int     `json:"startYear"`
	CAGR      float64 `json:"cagr"`
}

type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type Stats struct {
	Count   int      `json:"count"`
	Best    Extreme  `json:"best"`
	Worst   Extreme  `json:"worst"`
	Mean    float64  `json:"mean"`
	Median  float64  `json:"median"`
	StdDev  float64  `json:"stdDev"`
	Buckets []Bucket `json:"buckets"`
}

type Skipped struct {
	StartYear int    `json:"startYear"`
	Reason    string `json:"reason"`
}

type Settings struct {
	StartYears        []int           `json:"startYears"`
	Contribution      decimal.Decimal `json:"contribution"`
	Currency          string          `json:"currency"`
	EndDate           string          `json:"endDate"`
	InflationAdjusted bool            `json:"inflationAdjusted"`
	Schedule          string          `json:"schedule"`
	OnMissingData     string          `json:"onMissingData"`
}

// Document is the JSON safe view of a run consumed by every sink
type Document struct {
	RunID       string                 `json:"runId"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Settings    Settings               `json:"settings"`
	Cohorts     []Row                  `json:"cohorts"`
	History     map[int][]HistoryPoint `json:"history"`
	Nominal     *Stats                 `json:"nominal"`
	Real        *Stats                 `json:"real"`
	Skipped     []Skipped              `json:"skipped"`
}

// NewDocument converts a run outcome into its serializable form
func NewDocument(outcome *backtest.Outcome) *Document {
	cfg := outcome.Config
	doc := &Document{
		RunID:       outcome.RunID.String(),
		GeneratedAt: outcome.Started.UTC(),
		Settings: Settings{
			StartYears:        append([]int{}, cfg.StartYears...),
			Contribution:      cfg.Contribution,
			Currency:          cfg.Currency,
			EndDate:           cfg.EndDate.Format(dateFormat),
			InflationAdjusted: cfg.InflationAdjusted,
			Schedule:          cfg.Schedule,
			OnMissingData:     string(cfg.Policy()),
		},
		Cohorts: make([]Row, 0, len(outcome.Results)),
		History: make(map[int][]HistoryPoint, len(outcome.States)),
		Skipped: make([]Skipped, 0),
	}
	if doc.Settings.Currency == "" {
		doc.Settings.Currency = cohort.DefaultCurrency
	}

	for _, res := range outcome.Results {
		doc.Cohorts = append(doc.Cohorts, newRow(res))
	}

	for _, state := range outcome.States {
		history, err := newHistory(state)
		if err != nil {
			log.Error().Err(err).Int("StartYear", state.Config.StartYear).Msg("could not build cohort history")
			continue
		}
		doc.History[state.Config.StartYear] = history
	}

	if outcome.Summary != nil {
		doc.Nominal = newStats(outcome.Summary.Nominal)
		doc.Real = newStats(outcome.Summary.Real)
		for _, s := range outcome.Summary.Skipped {
			doc.Skipped = append(doc.Skipped, Skipped{StartYear: s.StartYear, Reason: s.Reason})
		}
	}

	return doc
}

// Cohort returns the row of the cohort starting in year
func (d *Document) Cohort(year int) (*Row, bool) {
	for idx := range d.Cohorts {
		if d.Cohorts[idx].StartYear == year {
			return &d.Cohorts[idx], true
		}
	}
	return nil, false
}

func newRow(res *cohort.Result) Row {
	return Row{
		StartYear:       res.StartYear,
		StartDate:       res.StartDate.Format(dateFormat),
		EndDate:         res.EndDate.Format(dateFormat),
		Months:          res.Months,
		Units:           res.Units,
		Contributed:     res.Contributed,
		FinalPrice:      res.FinalPrice,
		NominalValue:    res.NominalValue,
		Gain:            res.Gain,
		NominalCAGR:     defined(res.NominalCAGR),
		MoneyWeighted:   defined(res.MoneyWeighted),
		RealValue:       definedPtr(res.RealValue),
		RealGain:        definedPtr(res.RealGain),
		RealCAGR:        definedPtr(res.RealCAGR),
		RealContributed: definedPtr(res.RealContributed),
		Degenerate:      res.Degenerate,
	}
}

// value per unit of currency invested
const multipleCol = "Multiple"

func newHistory(state *cohort.State) ([]HistoryPoint, error) {
	df, err := state.Frame().Diff(cohort.ProfitCol, cohort.ValueCol, cohort.InvestedCol)
	if err != nil {
		return nil, err
	}
	if df, err = df.Ratio(multipleCol, cohort.ValueCol, cohort.InvestedCol); err != nil {
		return nil, err
	}

	value, _ := df.Column(cohort.ValueCol)
	invested, _ := df.Column(cohort.InvestedCol)
	profit, _ := df.Column(cohort.ProfitCol)
	multiple, _ := df.Column(multipleCol)

	history := make([]HistoryPoint, df.Len())
	for idx, dt := range df.Dates {
		history[idx] = HistoryPoint{
			Date:     dt.Format(dateFormat),
			Value:    value[idx],
			Invested: invested[idx],
			Profit:   profit[idx],
			Multiple: multiple[idx],
		}
	}
	return history, nil
}

func newStats(st *summary.Stats) *Stats {
	if st == nil {
		return nil
	}
	out := &Stats{
		Count:   st.Count,
		Best:    Extreme{StartYear: st.Best.StartYear, CAGR: st.Best.CAGR},
		Worst:   Extreme{StartYear: st.Worst.StartYear, CAGR: st.Worst.CAGR},
		Mean:    st.Mean,
		Median:  st.Median,
		StdDev:  st.StdDev,
		Buckets: make([]Bucket, len(st.Buckets)),
	}
	for idx, b := range st.Buckets {
		out.Buckets[idx] = Bucket{Lower: b.Lower, Upper: b.Upper, Count: b.Count}
	}
	return out
}

// defined returns nil for values JSON cannot represent
func defined(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func definedPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return defined(*v)
}
