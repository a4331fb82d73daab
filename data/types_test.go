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

package data_test

import (
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-dca/data"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("Series", func() {
	Context("when constructing a price series", func() {
		DescribeTable("it validates observations",
			func(points []data.PricePoint, expected error) {
				series, err := data.NewPriceSeries("TEST", points)
				if expected == nil {
					Expect(err).To(BeNil())
					Expect(series.Len()).To(Equal(len(points)))
				} else {
					Expect(errors.Is(err, expected)).To(BeTrue(), "got %v", err)
				}
			},
			Entry("empty", []data.PricePoint{}, nil),
			Entry("ordered", []data.PricePoint{{day(2020, 1, 2), 10}, {day(2020, 1, 3), 11}}, nil),
			Entry("unsorted", []data.PricePoint{{day(2020, 1, 3), 10}, {day(2020, 1, 2), 11}}, data.ErrUnsortedSeries),
			Entry("duplicate", []data.PricePoint{{day(2020, 1, 2), 10}, {day(2020, 1, 2), 11}}, data.ErrDuplicateDate),
			Entry("zero price", []data.PricePoint{{day(2020, 1, 2), 0}}, data.ErrInvalidValue),
			Entry("negative price", []data.PricePoint{{day(2020, 1, 2), -5}}, data.ErrInvalidValue),
			Entry("NaN price", []data.PricePoint{{day(2020, 1, 2), math.NaN()}}, data.ErrInvalidValue),
		)

		It("does not share the caller's slice", func() {
			points := []data.PricePoint{{day(2020, 1, 2), 10}}
			series, err := data.NewPriceSeries("TEST", points)
			Expect(err).To(BeNil())
			points[0].Price = 99
			Expect(series.Points()[0].Price).To(Equal(10.0))
		})
	})

	Context("when looking up prices", func() {
		var series *data.PriceSeries

		BeforeEach(func() {
			var err error
			series, err = data.NewPriceSeries("TEST", []data.PricePoint{
				{day(2020, 1, 2), 100},
				{day(2020, 1, 15), 101},
				{day(2020, 2, 3), 102},
				{day(2020, 3, 31), 103},
			})
			Expect(err).To(BeNil())
		})

		It("has a start and end", func() {
			Expect(series.Start()).To(Equal(day(2020, 1, 2)))
			Expect(series.End()).To(Equal(day(2020, 3, 31)))
		})

		DescribeTable("FirstInWindow returns the first observation in [begin, end)",
			func(begin, end time.Time, found bool, expected time.Time) {
				pt, ok := series.FirstInWindow(begin, end)
				Expect(ok).To(Equal(found))
				if found {
					Expect(pt.Date).To(Equal(expected))
				}
			},
			Entry("holiday on the 1st", day(2020, 1, 1), day(2020, 2, 1), true, day(2020, 1, 2)),
			Entry("weekend rolls forward", day(2020, 2, 1), day(2020, 3, 1), true, day(2020, 2, 3)),
			Entry("exact match", day(2020, 1, 15), day(2020, 2, 1), true, day(2020, 1, 15)),
			Entry("never crosses the window end", day(2020, 3, 1), day(2020, 3, 31), false, time.Time{}),
			Entry("after last observation", day(2020, 4, 1), day(2020, 5, 1), false, time.Time{}),
		)

		DescribeTable("AsOf returns the last observation on or before t",
			func(t time.Time, found bool, expected time.Time) {
				pt, ok := series.AsOf(t)
				Expect(ok).To(Equal(found))
				if found {
					Expect(pt.Date).To(Equal(expected))
				}
			},
			Entry("before first", day(2019, 12, 31), false, time.Time{}),
			Entry("exact", day(2020, 2, 3), true, day(2020, 2, 3)),
			Entry("between", day(2020, 3, 15), true, day(2020, 2, 3)),
			Entry("after last", day(2021, 1, 1), true, day(2020, 3, 31)),
		)

		It("slices a closed range", func() {
			sub := series.Between(day(2020, 1, 15), day(2020, 2, 3))
			Expect(sub.Len()).To(Equal(2))
			Expect(sub.Start()).To(Equal(day(2020, 1, 15)))
			Expect(sub.End()).To(Equal(day(2020, 2, 3)))
		})

		It("returns an empty series for an inverted range", func() {
			Expect(series.Between(day(2020, 3, 1), day(2020, 1, 1)).Len()).To(Equal(0))
		})
	})

	Context("when using a cpi series", func() {
		It("normalizes months to the first of the month", func() {
			series, err := data.NewCpiSeries("CPI", []data.CpiPoint{
				{time.Date(2020, 1, 31, 12, 0, 0, 0, time.UTC), 259.0},
				{day(2020, 2, 29), 259.2},
			})
			Expect(err).To(BeNil())
			Expect(series.Points()[0].Month).To(Equal(day(2020, 1, 1)))
			Expect(series.Points()[1].Month).To(Equal(day(2020, 2, 1)))
		})

		It("rejects two observations in the same month", func() {
			_, err := data.NewCpiSeries("CPI", []data.CpiPoint{
				{day(2020, 1, 1), 259.0},
				{day(2020, 1, 31), 259.2},
			})
			Expect(errors.Is(err, data.ErrDuplicateDate)).To(BeTrue())
		})

		It("looks up the nearest month at or before the date", func() {
			series, err := data.NewCpiSeries("CPI", []data.CpiPoint{
				{day(2020, 1, 1), 259.0},
				{day(2020, 3, 1), 258.1},
			})
			Expect(err).To(BeNil())

			pt, ok := series.AsOf(day(2020, 2, 20))
			Expect(ok).To(BeTrue())
			Expect(pt.Value).To(Equal(259.0))

			pt, ok = series.AsOf(day(2020, 3, 31))
			Expect(ok).To(BeTrue())
			Expect(pt.Value).To(Equal(258.1))

			_, ok = series.AsOf(day(2019, 12, 31))
			Expect(ok).To(BeFalse())
		})
	})

	Context("when reporting missing data", func() {
		It("matches ErrMissingData", func() {
			var err error = &data.MissingDataError{Series: "prices", Date: day(2020, 1, 1), Reason: "no observation"}
			Expect(errors.Is(err, data.ErrMissingData)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("2020-01-01"))

			var target *data.MissingDataError
			Expect(errors.As(err, &target)).To(BeTrue())
			Expect(target.Series).To(Equal("prices"))
		})
	})
})
