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
	"context"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
)

// column headings of simulation_results.csv
const (
	colStartYear     = "Start Year"
	colMonths        = "Total Months Invested"
	colContributed   = "Total Amount Invested (Nominal)"
	colNominalValue  = "Final Portfolio Value (Nominal)"
	colRealValue     = "Final Portfolio Value (Real)"
	colNominalCAGR   = "Nominal CAGR"
	colRealCAGR      = "Real CAGR"
	colMoneyWeighted = "Money Weighted Return"
	colDegenerate    = "Degenerate"
)

// WriteResultsCSV writes one line per cohort. Undefined values are left empty.
func WriteResultsCSV(ctx context.Context, w io.Writer, doc *Document) error {
	n := len(doc.Cohorts)
	years := make([]interface{}, n)
	months := make([]interface{}, n)
	contributed := make([]interface{}, n)
	nominalValue := make([]interface{}, n)
	realValue := make([]interface{}, n)
	nominalCAGR := make([]interface{}, n)
	realCAGR := make([]interface{}, n)
	mwrr := make([]interface{}, n)
	degenerate := make([]interface{}, n)

	for idx, row := range doc.Cohorts {
		years[idx] = int64(row.StartYear)
		months[idx] = int64(row.Months)
		contributed[idx], _ = row.Contributed.Float64()
		nominalValue[idx] = row.NominalValue
		realValue[idx] = optional(row.RealValue)
		nominalCAGR[idx] = optional(row.NominalCAGR)
		realCAGR[idx] = optional(row.RealCAGR)
		mwrr[idx] = optional(row.MoneyWeighted)
		degenerate[idx] = strconv.FormatBool(row.Degenerate)
	}

	df := dataframe.NewDataFrame(
		dataframe.NewSeriesInt64(colStartYear, nil, years...),
		dataframe.NewSeriesInt64(colMonths, nil, months...),
		dataframe.NewSeriesFloat64(colContributed, nil, contributed...),
		dataframe.NewSeriesFloat64(colNominalValue, nil, nominalValue...),
		dataframe.NewSeriesFloat64(colRealValue, nil, realValue...),
		dataframe.NewSeriesFloat64(colNominalCAGR, nil, nominalCAGR...),
		dataframe.NewSeriesFloat64(colRealCAGR, nil, realCAGR...),
		dataframe.NewSeriesFloat64(colMoneyWeighted, nil, mwrr...),
		dataframe.NewSeriesString(colDegenerate, nil, degenerate...),
	)

	null := ""
	return exports.ExportToCSV(ctx, w, df, exports.CSVExportOptions{NullString: &null})
}

// WriteHistoryJSON writes an object keyed by start year holding each cohort's
// trajectory
func WriteHistoryJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc.History)
}

// WriteDocumentJSON writes the complete document
func WriteDocumentJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadDocumentJSON parses a document written by WriteDocumentJSON
func ReadDocumentJSON(data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// optional returns an untyped nil for missing values so the series stores a null
func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
