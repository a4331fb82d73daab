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
	"context"
	"errors"
	"os"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-dca/data"
)

var _ = Describe("FRED", func() {
	var (
		fred *data.Fred
		ctx  context.Context
	)

	BeforeEach(func() {
		httpmock.Activate()
		fred = data.NewFred("")
		ctx = context.Background()
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	It("defaults to CPIAUCSL", func() {
		Expect(fred.Series).To(Equal(data.DefaultCpiSeries))
	})

	It("downloads monthly cpi", func() {
		content, err := os.ReadFile("../testdata/CPIAUCSL.csv")
		Expect(err).To(BeNil())

		httpmock.RegisterResponder("GET", "https://fred.stlouisfed.org/graph/fredgraph.csv?mode=fred&id=CPIAUCSL&cosd=2020-01-01&coed=2020-12-31&fq=Monthly&fam=avg",
			httpmock.NewBytesResponder(200, content))

		series, err := fred.Cpi(ctx, day(2020, 1, 15), day(2020, 12, 31))
		Expect(err).To(BeNil())
		Expect(series.Len()).To(Equal(12))
		Expect(series.Points()[0].Month).To(Equal(day(2020, 1, 1)))
		Expect(series.Points()[11].Value).To(BeNumerically("~", 261.6))
		Expect(httpmock.GetTotalCallCount()).To(Equal(1))
	})

	It("reports HTTP errors", func() {
		httpmock.RegisterResponder("GET", "https://fred.stlouisfed.org/graph/fredgraph.csv?mode=fred&id=CPIAUCSL&cosd=2020-01-01&coed=2020-12-31&fq=Monthly&fam=avg",
			httpmock.NewStringResponder(500, "boom"))

		_, err := fred.Cpi(ctx, day(2020, 1, 1), day(2020, 12, 31))
		Expect(errors.Is(err, data.ErrHTTPStatus)).To(BeTrue())
	})

	It("rejects an inverted range", func() {
		_, err := fred.Cpi(ctx, day(2021, 1, 1), day(2020, 12, 31))
		Expect(err).To(Equal(data.ErrInvalidTimeRange))
	})
})
