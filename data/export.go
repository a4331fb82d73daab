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

package data

import (
	"context"
	"io"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
)

const DateIdx = "DATE"

// WritePriceCSV writes the series as a two column CSV readable by CSVPrices
func WritePriceCSV(ctx context.Context, w io.Writer, s *PriceSeries, column string) error {
	dates := make([]interface{}, len(s.points))
	vals := make([]interface{}, len(s.points))
	for idx, pt := range s.points {
		dates[idx] = pt.Date.Format("2006-01-02")
		vals[idx] = pt.Price
	}
	df := dataframe.NewDataFrame(
		dataframe.NewSeriesString(DateIdx, nil, dates...),
		dataframe.NewSeriesFloat64(column, nil, vals...),
	)
	return exports.ExportToCSV(ctx, w, df)
}

// WriteCpiCSV writes the series as a two column CSV readable by CSVCpi
func WriteCpiCSV(ctx context.Context, w io.Writer, s *CpiSeries, column string) error {
	dates := make([]interface{}, len(s.points))
	vals := make([]interface{}, len(s.points))
	for idx, pt := range s.points {
		dates[idx] = pt.Month.Format("2006-01-02")
		vals[idx] = pt.Value
	}
	df := dataframe.NewDataFrame(
		dataframe.NewSeriesString(DateIdx, nil, dates...),
		dataframe.NewSeriesFloat64(column, nil, vals...),
	)
	return exports.ExportToCSV(ctx, w, df)
}
