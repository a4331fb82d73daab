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

package router_test

import (
	"context"
	"io"
	"net/http/httptest"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pv-dca/backtest"
	"github.com/penny-vault/pv-dca/cohort"
	"github.com/penny-vault/pv-dca/common"
	"github.com/penny-vault/pv-dca/data"
	"github.com/penny-vault/pv-dca/handler"
	"github.com/penny-vault/pv-dca/middleware"
	"github.com/penny-vault/pv-dca/report"
	"github.com/penny-vault/pv-dca/router"
)

func document() *report.Document {
	prices := make([]data.PricePoint, 24)
	cpi := make([]data.CpiPoint, 24)
	for idx := range prices {
		dt := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, idx, 0)
		prices[idx] = data.PricePoint{Date: dt, Price: 50 + float64(idx)}
		cpi[idx] = data.CpiPoint{Month: dt, Value: 250 + float64(idx)}
	}
	priceSeries, err := data.NewPriceSeries("TEST", prices)
	Expect(err).To(BeNil())
	cpiSeries, err := data.NewCpiSeries("CPI", cpi)
	Expect(err).To(BeNil())

	cfg := cohort.DefaultConfig()
	cfg.StartYears = []int{2019, 2020}
	cfg.Contribution = decimal.NewFromInt(250)
	cfg.EndDate = time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)

	outcome, err := backtest.Run(context.Background(), cfg, priceSeries, cpiSeries)
	Expect(err).To(BeNil())
	return report.NewDocument(outcome)
}

func get(app *fiber.App, path string) (int, []byte) {
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	Expect(err).To(BeNil())
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).To(BeNil())
	return resp.StatusCode, body
}

var _ = Describe("Routes", func() {
	var (
		app     *fiber.App
		results *handler.Results
	)

	BeforeEach(func() {
		cache, err := common.NewResultCache(4, "", 0)
		Expect(err).To(BeNil())
		results = handler.NewResults(cache)

		app = fiber.New(fiber.Config{
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		})
		app.Use(middleware.NewLogger())
		router.SetupRoutes(app, handler.NewCohorts(results))
	})

	It("answers health checks", func() {
		code, body := get(app, "/healthz")
		Expect(code).To(Equal(fiber.StatusOK))

		var ping handler.PingResponse
		Expect(json.Unmarshal(body, &ping)).To(Succeed())
		Expect(ping.Status).To(Equal("success"))
	})

	It("is unavailable until results are published", func() {
		code, _ := get(app, "/api/v1/summary")
		Expect(code).To(Equal(fiber.StatusServiceUnavailable))
		code, _ = get(app, "/api/v1/cohorts")
		Expect(code).To(Equal(fiber.StatusServiceUnavailable))
	})

	Context("with published results", func() {
		var doc *report.Document

		BeforeEach(func() {
			doc = document()
			Expect(results.Publish(context.Background(), "run-1", doc)).To(Succeed())
		})

		It("serves the summary", func() {
			code, body := get(app, "/api/v1/summary")
			Expect(code).To(Equal(fiber.StatusOK))

			var resp handler.SummaryResponse
			Expect(json.Unmarshal(body, &resp)).To(Succeed())
			Expect(resp.RunID).To(Equal(doc.RunID))
			Expect(resp.Nominal).ToNot(BeNil())
			Expect(resp.Nominal.Count).To(Equal(2))
			Expect(resp.Settings.StartYears).To(Equal([]int{2019, 2020}))
		})

		It("lists cohorts", func() {
			code, body := get(app, "/api/v1/cohorts")
			Expect(code).To(Equal(fiber.StatusOK))

			var rows []report.Row
			Expect(json.Unmarshal(body, &rows)).To(Succeed())
			Expect(rows).To(HaveLen(2))
			Expect(rows[1].StartYear).To(Equal(2020))
		})

		It("serves a single cohort", func() {
			code, body := get(app, "/api/v1/cohorts/2019")
			Expect(code).To(Equal(fiber.StatusOK))

			var row report.Row
			Expect(json.Unmarshal(body, &row)).To(Succeed())
			Expect(row.Months).To(Equal(24))
			Expect(row.Contributed.Equal(decimal.NewFromInt(6000))).To(BeTrue())
			Expect(row.RealCAGR).ToNot(BeNil())
		})

		It("serves a cohort's history", func() {
			code, body := get(app, "/api/v1/cohorts/2020/history")
			Expect(code).To(Equal(fiber.StatusOK))

			var history []report.HistoryPoint
			Expect(json.Unmarshal(body, &history)).To(Succeed())
			Expect(history).To(HaveLen(12))
			Expect(history[11].Invested).To(Equal(3000.0))
		})

		DescribeTable("rejects bad cohort requests",
			func(path string, expected int) {
				code, _ := get(app, path)
				Expect(code).To(Equal(expected))
			},
			Entry("unknown year", "/api/v1/cohorts/1990", fiber.StatusNotFound),
			Entry("unknown history", "/api/v1/cohorts/1990/history", fiber.StatusNotFound),
			Entry("non-numeric year", "/api/v1/cohorts/latest", fiber.StatusBadRequest),
		)

		It("switches between cached runs", func() {
			found, err := results.Lookup(context.Background(), "run-1")
			Expect(err).To(BeNil())
			Expect(found).To(BeTrue())

			found, err = results.Lookup(context.Background(), "run-2")
			Expect(err).To(BeNil())
			Expect(found).To(BeFalse())

			code, _ := get(app, "/api/v1/summary")
			Expect(code).To(Equal(fiber.StatusOK))
		})
	})
})
