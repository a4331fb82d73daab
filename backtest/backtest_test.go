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

package backtest_test

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pv-dca/backtest"
	"github.com/penny-vault/pv-dca/cohort"
	"github.com/penny-vault/pv-dca/data"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthlyPrices has one observation on the first of each month; months listed
// in gaps are left out
func monthlyPrices(begin time.Time, months int, gaps ...time.Time) *data.PriceSeries {
	skip := make(map[time.Time]bool, len(gaps))
	for _, g := range gaps {
		skip[g] = true
	}
	points := make([]data.PricePoint, 0, months)
	for idx := 0; idx < months; idx++ {
		dt := begin.AddDate(0, idx, 0)
		if skip[dt] {
			continue
		}
		points = append(points, data.PricePoint{Date: dt, Price: 100 + float64(idx)})
	}
	series, err := data.NewPriceSeries("TEST", points)
	Expect(err).To(BeNil())
	return series
}

func monthlyCpi(begin time.Time, months int) *data.CpiSeries {
	points := make([]data.CpiPoint, months)
	for idx := range points {
		points[idx] = data.CpiPoint{Month: begin.AddDate(0, idx, 0), Value: 200 + float64(idx)/2}
	}
	series, err := data.NewCpiSeries("CPI", points)
	Expect(err).To(BeNil())
	return series
}

func config(years ...int) cohort.Config {
	cfg := cohort.DefaultConfig()
	cfg.StartYears = years
	cfg.Contribution = decimal.NewFromInt(100)
	cfg.EndDate = day(2020, 12, 31)
	return cfg
}

var _ = Describe("Run", func() {
	var (
		ctx    context.Context
		prices *data.PriceSeries
		cpi    *data.CpiSeries
	)

	BeforeEach(func() {
		ctx = context.Background()
		prices = monthlyPrices(day(2015, 1, 1), 72)
		cpi = monthlyCpi(day(2015, 1, 1), 72)
	})

	It("produces one result per cohort ordered by start year", func() {
		outcome, err := backtest.Run(ctx, config(2018, 2016, 2020), prices, cpi)
		Expect(err).To(BeNil())

		Expect(outcome.Results).To(HaveLen(3))
		Expect(outcome.Results[0].StartYear).To(Equal(2016))
		Expect(outcome.Results[1].StartYear).To(Equal(2018))
		Expect(outcome.Results[2].StartYear).To(Equal(2020))
		Expect(outcome.States).To(HaveLen(3))
		Expect(outcome.Summary.Rows).To(HaveLen(3))
		Expect(outcome.Summary.Skipped).To(BeEmpty())
		Expect(outcome.RunID.String()).ToNot(BeEmpty())
	})

	It("contributes once per month for each cohort", func() {
		outcome, err := backtest.Run(ctx, config(2016, 2019), prices, cpi)
		Expect(err).To(BeNil())

		Expect(outcome.Results[0].Months).To(Equal(60))
		Expect(outcome.Results[0].Contributed.Equal(decimal.NewFromInt(6000))).To(BeTrue())
		Expect(outcome.Results[1].Months).To(Equal(24))

		state, ok := outcome.State(2019)
		Expect(ok).To(BeTrue())
		Expect(state.Months()).To(Equal(24))
		_, ok = outcome.State(2017)
		Expect(ok).To(BeFalse())
	})

	It("gives rising prices a positive nominal CAGR for every cohort", func() {
		outcome, err := backtest.Run(ctx, config(2015, 2016, 2017, 2018, 2019), prices, cpi)
		Expect(err).To(BeNil())
		for _, res := range outcome.Results {
			Expect(res.NominalCAGR).To(BeNumerically(">", 0))
			Expect(res.RealCAGR).ToNot(BeNil())
			Expect(*res.RealCAGR).To(BeNumerically("<", res.NominalCAGR))
		}
		Expect(outcome.Summary.Nominal.Count).To(Equal(5))
	})

	It("is independent of the degree of parallelism", func() {
		serial := config(2015, 2016, 2017, 2018, 2019, 2020)
		serial.Parallelism = 1
		parallel := serial
		parallel.Parallelism = 8

		a, err := backtest.Run(ctx, serial, prices, cpi)
		Expect(err).To(BeNil())
		b, err := backtest.Run(ctx, parallel, prices, cpi)
		Expect(err).To(BeNil())

		Expect(a.Results).To(HaveLen(len(b.Results)))
		for idx := range a.Results {
			Expect(a.Results[idx].StartYear).To(Equal(b.Results[idx].StartYear))
			Expect(a.Results[idx].NominalValue).To(Equal(b.Results[idx].NominalValue))
			Expect(a.Results[idx].NominalCAGR).To(Equal(b.Results[idx].NominalCAGR))
		}
	})

	It("omits real values when inflation adjustment is disabled", func() {
		cfg := config(2018)
		cfg.InflationAdjusted = false
		outcome, err := backtest.Run(ctx, cfg, prices, nil)
		Expect(err).To(BeNil())
		Expect(outcome.Results[0].RealCAGR).To(BeNil())
		Expect(outcome.Summary.Real).To(BeNil())
	})

	It("rejects an invalid configuration before simulating", func() {
		cfg := config(2018)
		cfg.Contribution = decimal.Zero
		_, err := backtest.Run(ctx, cfg, prices, cpi)
		Expect(err).To(MatchError(cohort.ErrInvalidConfig))
	})

	It("requires a price series", func() {
		_, err := backtest.Run(ctx, config(2018), nil, cpi)
		Expect(err).To(MatchError(backtest.ErrNoPrices))
	})

	Context("when a month of prices is missing", func() {
		BeforeEach(func() {
			prices = monthlyPrices(day(2015, 1, 1), 72, day(2017, 6, 1))
		})

		It("aborts under the fail policy", func() {
			cfg := config(2016, 2017, 2018)
			cfg.OnMissingData = cohort.PolicyFail
			_, err := backtest.Run(ctx, cfg, prices, cpi)
			Expect(err).To(MatchError(data.ErrMissingData))

			var missing *data.MissingDataError
			Expect(errors.As(err, &missing)).To(BeTrue())
			Expect(missing.Date).To(Equal(day(2017, 6, 1)))
		})

		It("reports the earliest failing cohort regardless of scheduling", func() {
			cfg := config(2015, 2016, 2017, 2018)
			cfg.OnMissingData = cohort.PolicyFail
			cfg.Parallelism = 8
			for i := 0; i < 25; i++ {
				_, err := backtest.Run(ctx, cfg, prices, cpi)
				Expect(err).To(MatchError(data.ErrMissingData))
				Expect(err.Error()).To(HavePrefix("cohort 2015:"))
			}
		})

		It("skips affected cohorts under the skip policy", func() {
			cfg := config(2016, 2017, 2018)
			cfg.OnMissingData = cohort.PolicySkip
			outcome, err := backtest.Run(ctx, cfg, prices, cpi)
			Expect(err).To(BeNil())

			Expect(outcome.Results).To(HaveLen(1))
			Expect(outcome.Results[0].StartYear).To(Equal(2018))
			Expect(outcome.Summary.Skipped).To(HaveLen(2))
			Expect(outcome.Summary.Skipped[0].StartYear).To(Equal(2016))
			Expect(outcome.Summary.Skipped[1].StartYear).To(Equal(2017))
			Expect(outcome.Summary.Skipped[0].Reason).To(ContainSubstring("no price observed"))
		})
	})

	It("skips cohorts without CPI coverage under the skip policy", func() {
		cfg := config(2015, 2019)
		cfg.OnMissingData = cohort.PolicySkip
		outcome, err := backtest.Run(ctx, cfg, prices, monthlyCpi(day(2018, 1, 1), 36))
		Expect(err).To(BeNil())
		Expect(outcome.Results).To(HaveLen(1))
		Expect(outcome.Results[0].StartYear).To(Equal(2019))
	})

	It("keeps degenerate cohorts in the table", func() {
		cfg := config(2020, 2021)
		outcome, err := backtest.Run(ctx, cfg, prices, cpi)
		Expect(err).To(BeNil())
		Expect(outcome.Results).To(HaveLen(2))
		Expect(outcome.Results[1].Degenerate).To(BeTrue())
		Expect(math.IsNaN(outcome.Results[1].NominalCAGR)).To(BeTrue())
		Expect(outcome.Summary.Nominal.Count).To(Equal(1))
	})

	It("stops when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := backtest.Run(cctx, config(2016, 2017), prices, cpi)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("CacheKey", func() {
	It("ignores parallelism but not contribution", func() {
		prices := monthlyPrices(day(2015, 1, 1), 24)
		a := config(2015)
		a.Parallelism = 1
		b := a
		b.Parallelism = 4
		c := a
		c.Contribution = decimal.NewFromInt(200)

		keyA, err := backtest.CacheKey(a, prices, nil)
		Expect(err).To(BeNil())
		keyB, err := backtest.CacheKey(b, prices, nil)
		Expect(err).To(BeNil())
		keyC, err := backtest.CacheKey(c, prices, nil)
		Expect(err).To(BeNil())

		Expect(keyA).To(Equal(keyB))
		Expect(keyA).ToNot(Equal(keyC))
	})

	It("changes with the price series", func() {
		cfg := config(2015)
		keyA, _ := backtest.CacheKey(cfg, monthlyPrices(day(2015, 1, 1), 24), nil)
		keyB, _ := backtest.CacheKey(cfg, monthlyPrices(day(2015, 1, 1), 25), nil)
		Expect(keyA).ToNot(Equal(keyB))
	})
})
