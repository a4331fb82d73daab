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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pv-dca/cohort"
)

var _ = Describe("Config", func() {
	It("has valid defaults", func() {
		cfg := cohort.DefaultConfig()
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.StartYears).To(HaveLen(28))
		Expect(cfg.StartYears[0]).To(Equal(1998))
		Expect(cfg.Contribution.Equal(decimal.NewFromInt(500))).To(BeTrue())
		Expect(cfg.EndDate).To(Equal(day(2025, 5, 31)))
		Expect(cfg.Policy()).To(Equal(cohort.PolicyFail))
	})

	DescribeTable("when validating",
		func(mutate func(*cohort.Config), valid bool) {
			cfg := cohort.DefaultConfig()
			mutate(&cfg)
			err := cfg.Validate()
			if valid {
				Expect(err).To(BeNil())
			} else {
				Expect(errors.Is(err, cohort.ErrInvalidConfig)).To(BeTrue(), "got %v", err)
			}
		},
		Entry("zero contribution", func(c *cohort.Config) { c.Contribution = decimal.Zero }, false),
		Entry("negative contribution", func(c *cohort.Config) { c.Contribution = decimal.NewFromInt(-1) }, false),
		Entry("fractional contribution", func(c *cohort.Config) { c.Contribution = decimal.RequireFromString("123.45") }, true),
		Entry("no start years", func(c *cohort.Config) { c.StartYears = nil }, false),
		Entry("duplicate start years", func(c *cohort.Config) { c.StartYears = []int{2000, 2001, 2000} }, false),
		Entry("end before every start year", func(c *cohort.Config) { c.EndDate = day(1997, 12, 31) }, false),
		Entry("some start years after end", func(c *cohort.Config) { c.EndDate = day(2010, 6, 30) }, true),
		Entry("missing end date", func(c *cohort.Config) { c.EndDate = time.Time{} }, false),
		Entry("unknown policy", func(c *cohort.Config) { c.OnMissingData = "ignore" }, false),
		Entry("skip policy", func(c *cohort.Config) { c.OnMissingData = cohort.PolicySkip }, true),
		Entry("negative parallelism", func(c *cohort.Config) { c.Parallelism = -1 }, false),
		Entry("negative cpi lag", func(c *cohort.Config) { c.MaxCpiLag = -1 }, false),
		Entry("unknown currency", func(c *cohort.Config) { c.Currency = "ZZZ" }, false),
		Entry("euro", func(c *cohort.Config) { c.Currency = "EUR" }, true),
		Entry("weekly schedule", func(c *cohort.Config) { c.Schedule = "@weekly" }, false),
		Entry("mid-month schedule", func(c *cohort.Config) { c.Schedule = "0 0 15 * *" }, true),
	)

	It("expands cohorts ordered by start year", func() {
		cfg := cohort.DefaultConfig()
		cfg.StartYears = []int{2005, 1999, 2001}
		cohorts := cfg.Cohorts()
		Expect(cohorts).To(HaveLen(3))
		Expect(cohorts[0].StartYear).To(Equal(1999))
		Expect(cohorts[2].StartYear).To(Equal(2005))
		Expect(cohorts[1].StartDate()).To(Equal(day(2001, 1, 1)))
		Expect(cohorts[1].EndDate).To(Equal(cfg.EndDate))
		Expect(cfg.StartYears[0]).To(Equal(2005), "does not reorder the caller's slice")
	})

	DescribeTable("when parsing a policy",
		func(in string, expected cohort.MissingDataPolicy, valid bool) {
			policy, err := cohort.ParsePolicy(in)
			if valid {
				Expect(err).To(BeNil())
				Expect(policy).To(Equal(expected))
			} else {
				Expect(err).ToNot(BeNil())
			}
		},
		Entry("empty", "", cohort.PolicyFail, true),
		Entry("fail", "fail", cohort.PolicyFail, true),
		Entry("skip upper case", "SKIP", cohort.PolicySkip, true),
		Entry("garbage", "retry", cohort.MissingDataPolicy(""), false),
	)

	It("builds an inclusive year range", func() {
		Expect(cohort.YearRange(2020, 2022)).To(Equal([]int{2020, 2021, 2022}))
		Expect(cohort.YearRange(2022, 2020)).To(BeEmpty())
	})
})
