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

package cohort_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-dca/cohort"
	"github.com/penny-vault/pv-dca/data"
)

var _ = Describe("Finalize", func() {
	var (
		cpi *data.CpiSeries
	)

	BeforeEach(func() {
		cpi = monthlyCpi(day(2019, 1, 1), 24, flat(250))
	})

	Context("with a flat price of 100 during 2020", func() {
		var result *cohort.Result

		BeforeEach(func() {
			prices := monthlyPrices(day(2020, 1, 1), 12, flat(100))
			state, err := cohort.Simulate(cohortConfig(2020, day(2020, 12, 1)), prices)
			Expect(err).To(BeNil())
			result, err = cohort.Finalize(state, cpi, true)
			Expect(err).To(BeNil())
		})

		It("is worth what was contributed", func() {
			Expect(result.NominalValue).To(Equal(1200.0))
			Expect(result.Gain).To(Equal(0.0))
			Expect(result.Units).To(Equal(12.0))
			Expect(result.Months).To(Equal(12))
		})

		It("has a CAGR of zero", func() {
			Expect(result.NominalCAGR).To(BeNumerically("~", 0, 1e-12))
			Expect(*result.RealCAGR).To(BeNumerically("~", 0, 1e-12))
		})

		It("has a money weighted return of zero", func() {
			Expect(result.MoneyWeighted).To(BeNumerically("~", 0, 1e-6))
		})

		It("has a real value equal to nominal when CPI is unchanged", func() {
			Expect(*result.RealValue).To(Equal(result.NominalValue))
			Expect(*result.RealContributed).To(BeNumerically("~", 1200))
		})

		It("measures years from January 1st of the start year", func() {
			Expect(result.StartDate).To(Equal(day(2020, 1, 1)))
			Expect(result.Years).To(BeNumerically("~", 335.0/365.2425))
		})

		It("is not degenerate", func() {
			Expect(result.Degenerate).To(BeFalse())
		})
	})

	Context("with a rising price", func() {
		It("has a positive CAGR and money weighted return", func() {
			prices := monthlyPrices(day(2020, 1, 1), 12, func(idx int) float64 { return 100 + 10*float64(idx) })
			state, err := cohort.Simulate(cohortConfig(2020, day(2020, 12, 1)), prices)
			Expect(err).To(BeNil())
			result, err := cohort.Finalize(state, cpi, false)
			Expect(err).To(BeNil())
			Expect(result.NominalValue).To(BeNumerically(">", 1200))
			Expect(result.NominalCAGR).To(BeNumerically(">", 0))
			Expect(result.MoneyWeighted).To(BeNumerically(">", result.NominalCAGR))
		})
	})

	DescribeTable("CAGR has the sign of the gain",
		func(finalPrice float64) {
			prices := monthlyPrices(day(2018, 1, 1), 36, func(idx int) float64 {
				if idx == 35 {
					return finalPrice
				}
				return 100
			})
			state, err := cohort.Simulate(cohortConfig(2018, day(2020, 12, 1)), prices)
			Expect(err).To(BeNil())
			result, err := cohort.Finalize(state, cpi, false)
			Expect(err).To(BeNil())

			contributed, _ := result.Contributed.Float64()
			switch {
			case result.NominalValue > contributed:
				Expect(result.NominalCAGR).To(BeNumerically(">", 0))
			case result.NominalValue < contributed:
				Expect(result.NominalCAGR).To(BeNumerically("<", 0))
			default:
				Expect(result.NominalCAGR).To(BeNumerically("~", 0, 1e-12))
			}
		},
		Entry("gain", 150.0),
		Entry("loss", 50.0),
		Entry("break even", 100.0),
	)

	Context("when inflation adjustment is disabled", func() {
		It("leaves real fields nil", func() {
			prices := monthlyPrices(day(2020, 1, 1), 12, flat(100))
			state, err := cohort.Simulate(cohortConfig(2020, day(2020, 12, 1)), prices)
			Expect(err).To(BeNil())
			result, err := cohort.Finalize(state, nil, false)
			Expect(err).To(BeNil())
			Expect(result.RealValue).To(BeNil())
			Expect(result.RealCAGR).To(BeNil())
			Expect(result.RealGain).To(BeNil())
		})
	})

	Context("with rising CPI", func() {
		It("deflates to start of cohort dollars", func() {
			cpi = monthlyCpi(day(2020, 1, 1), 12, func(idx int) float64 { return 250 + float64(idx) })
			prices := monthlyPrices(day(2020, 1, 1), 12, flat(100))
			state, err := cohort.Simulate(cohortConfig(2020, day(2020, 12, 1)), prices)
			Expect(err).To(BeNil())
			result, err := cohort.Finalize(state, cpi, true)
			Expect(err).To(BeNil())

			Expect(result.CpiStart).To(Equal(250.0))
			Expect(result.CpiEnd).To(Equal(261.0))
			Expect(*result.RealValue).To(BeNumerically("~", 1200*250.0/261.0))
			Expect(*result.RealCAGR).To(BeNumerically("<", result.NominalCAGR))
			Expect(*result.RealGain).To(BeNumerically("<", 0))
			Expect(*result.RealContributed).To(BeNumerically("<", 1200))
		})
	})

	Context("with incomplete CPI", func() {
		var state *cohort.State

		BeforeEach(func() {
			var err error
			prices := monthlyPrices(day(2020, 1, 1), 12, flat(100))
			state, err = cohort.Simulate(cohortConfig(2020, day(2020, 12, 1)), prices)
			Expect(err).To(BeNil())
		})

		It("fails when the start month is not covered", func() {
			cpi = monthlyCpi(day(2020, 6, 1), 7, flat(250))
			_, err := cohort.Finalize(state, cpi, true)
			Expect(errors.Is(err, data.ErrMissingData)).To(BeTrue())
		})

		It("accepts an end month within the publication lag", func() {
			cpi = monthlyCpi(day(2020, 1, 1), 10, flat(250))
			result, err := cohort.Finalize(state, cpi, true)
			Expect(err).To(BeNil())
			Expect(result.CpiEnd).To(Equal(250.0))
		})

		It("fails when the latest observation is too old", func() {
			cpi = monthlyCpi(day(2020, 1, 1), 9, flat(250))
			_, err := cohort.Finalize(state, cpi, true)
			Expect(errors.Is(err, data.ErrMissingData)).To(BeTrue())
		})

		It("fails when no CPI series is provided", func() {
			_, err := cohort.Finalize(state, nil, true)
			Expect(errors.Is(err, data.ErrMissingData)).To(BeTrue())
		})
	})

	Context("with degenerate cohorts", func() {
		It("flags a cohort that starts after the end date", func() {
			prices := monthlyPrices(day(2020, 1, 1), 12, flat(100))
			state, err := cohort.Simulate(cohortConfig(2021, day(2020, 12, 1)), prices)
			Expect(err).To(BeNil())
			result, err := cohort.Finalize(state, cpi, true)
			Expect(err).To(BeNil())
			Expect(result.Degenerate).To(BeTrue())
			Expect(result.NominalValue).To(Equal(0.0))
			Expect(math.IsNaN(result.NominalCAGR)).To(BeTrue())
			Expect(*result.RealValue).To(Equal(0.0))
			Expect(math.IsNaN(*result.RealCAGR)).To(BeTrue())
			Expect(math.IsNaN(result.MoneyWeighted)).To(BeTrue())
		})

		It("flags a cohort with zero elapsed years", func() {
			prices := monthlyPrices(day(2020, 1, 1), 12, flat(100))
			state, err := cohort.Simulate(cohortConfig(2020, day(2020, 1, 1)), prices)
			Expect(err).To(BeNil())
			Expect(state.Months()).To(Equal(1))
			result, err := cohort.Finalize(state, cpi, false)
			Expect(err).To(BeNil())
			Expect(result.Degenerate).To(BeTrue())
			Expect(math.IsNaN(result.NominalCAGR)).To(BeTrue())
		})

		It("still values a zero year cohort in real terms", func() {
			prices := monthlyPrices(day(2020, 1, 1), 12, flat(100))
			state, err := cohort.Simulate(cohortConfig(2020, day(2020, 1, 1)), prices)
			Expect(err).To(BeNil())
			result, err := cohort.Finalize(state, monthlyCpi(day(2019, 12, 1), 3, flat(250)), true)
			Expect(err).To(BeNil())
			Expect(result.Degenerate).To(BeTrue())
			Expect(result.NominalValue).To(BeNumerically("~", 100, 1e-9))
			Expect(*result.RealValue).To(Equal(result.NominalValue))
			Expect(*result.RealGain).To(BeNumerically("~", 0, 1e-9))
			Expect(*result.RealContributed).To(BeNumerically("~", 100, 1e-9))
			Expect(math.IsNaN(result.NominalCAGR)).To(BeTrue())
			Expect(math.IsNaN(*result.RealCAGR)).To(BeTrue())
		})
	})

	It("rejects a nil state", func() {
		_, err := cohort.Finalize(nil, cpi, true)
		Expect(err).To(Equal(cohort.ErrNilState))
	})

	It("is idempotent", func() {
		prices := monthlyPrices(day(2019, 1, 1), 24, func(idx int) float64 { return 80 + 3*float64(idx) })
		state, err := cohort.Simulate(cohortConfig(2019, day(2020, 12, 1)), prices)
		Expect(err).To(BeNil())
		a, err := cohort.Finalize(state, cpi, true)
		Expect(err).To(BeNil())
		b, err := cohort.Finalize(state, cpi, true)
		Expect(err).To(BeNil())
		Expect(a.NominalCAGR).To(Equal(b.NominalCAGR))
		Expect(*a.RealValue).To(Equal(*b.RealValue))
		Expect(a.MoneyWeighted).To(Equal(b.MoneyWeighted))
	})
})
