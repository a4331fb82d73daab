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

package summary

import (
	"math"
	"sort"

	"github.com/penny-vault/pv-dca/cohort"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NumBuckets is the number of equal width bins in the CAGR distribution
const NumBuckets = 10

// Extreme identifies the cohort holding a best or worst CAGR
type Extreme struct {
	StartYear int
	CAGR      float64
}

// Bucket is a half-open interval [Lower, Upper) of CAGR values
type Bucket struct {
	Lower float64
	Upper float64
	Count int
}

// Stats summarizes the defined CAGR values of a set of cohorts
type Stats struct {
	Count   int
	Best    Extreme
	Worst   Extreme
	Mean    float64
	Median  float64
	StdDev  float64
	Buckets []Bucket
}

// SkippedCohort is a cohort left out of the run because its inputs were incomplete
type SkippedCohort struct {
	StartYear int
	Reason    string
}

// Table is the ordered list of cohort results with aggregate statistics
type Table struct {
	Rows    []*cohort.Result
	Nominal *Stats
	Real    *Stats
	Skipped []SkippedCohort
}

// Row returns the result for the cohort starting in year
func (t *Table) Row(year int) (*cohort.Result, bool) {
	idx := sort.Search(len(t.Rows), func(i int) bool {
		return t.Rows[i].StartYear >= year
	})
	if idx < len(t.Rows) && t.Rows[idx].StartYear == year {
		return t.Rows[idx], true
	}
	return nil, false
}

// Aggregate orders results by start year and computes nominal and real statistics
// over the cohorts whose CAGR is defined. An empty input yields an empty table.
func Aggregate(results []*cohort.Result, skipped ...SkippedCohort) *Table {
	rows := make([]*cohort.Result, 0, len(results))
	for _, res := range results {
		if res != nil {
			rows = append(rows, res)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].StartYear < rows[j].StartYear
	})

	// start years are unique
	unique := rows[:0]
	for idx, res := range rows {
		if idx > 0 && res.StartYear == rows[idx-1].StartYear {
			log.Warn().Int("StartYear", res.StartYear).Msg("dropping duplicate cohort result")
			continue
		}
		unique = append(unique, res)
	}
	rows = unique

	skippedCopy := make([]SkippedCohort, len(skipped))
	copy(skippedCopy, skipped)
	sort.SliceStable(skippedCopy, func(i, j int) bool {
		return skippedCopy[i].StartYear < skippedCopy[j].StartYear
	})

	nominalYears := make([]int, 0, len(rows))
	nominalVals := make([]float64, 0, len(rows))
	realYears := make([]int, 0, len(rows))
	realVals := make([]float64, 0, len(rows))

	for _, res := range rows {
		if !math.IsNaN(res.NominalCAGR) && !math.IsInf(res.NominalCAGR, 0) {
			nominalYears = append(nominalYears, res.StartYear)
			nominalVals = append(nominalVals, res.NominalCAGR)
		}
		if res.RealCAGR != nil && !math.IsNaN(*res.RealCAGR) && !math.IsInf(*res.RealCAGR, 0) {
			realYears = append(realYears, res.StartYear)
			realVals = append(realVals, *res.RealCAGR)
		}
	}

	return &Table{
		Rows:    rows,
		Nominal: computeStats(nominalYears, nominalVals),
		Real:    computeStats(realYears, realVals),
		Skipped: skippedCopy,
	}
}

// computeStats returns nil when there are no values
func computeStats(years []int, vals []float64) *Stats {
	if len(vals) == 0 {
		return nil
	}

	st := &Stats{
		Count: len(vals),
		Best:  Extreme{StartYear: years[0], CAGR: vals[0]},
		Worst: Extreme{StartYear: years[0], CAGR: vals[0]},
		Mean:  stat.Mean(vals, nil),
	}

	// ties resolve to the earliest cohort
	for idx, v := range vals {
		if v > st.Best.CAGR {
			st.Best = Extreme{StartYear: years[idx], CAGR: v}
		}
		if v < st.Worst.CAGR {
			st.Worst = Extreme{StartYear: years[idx], CAGR: v}
		}
	}

	if len(vals) > 1 {
		st.StdDev = stat.StdDev(vals, nil)
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	st.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	st.Buckets = histogram(sorted)

	return st
}

// histogram bins sorted values into NumBuckets equal width buckets spanning
// [min, max]; the top divider is nudged up so max lands in the last bucket
func histogram(sorted []float64) []Bucket {
	lo := sorted[0]
	hi := sorted[len(sorted)-1]

	nBuckets := NumBuckets
	if lo == hi {
		nBuckets = 1
	}

	dividers := make([]float64, nBuckets+1)
	floats.Span(dividers, lo, hi)
	dividers[nBuckets] = math.Nextafter(hi, math.Inf(1))

	counts := make([]float64, nBuckets)
	stat.Histogram(counts, dividers, sorted, nil)

	buckets := make([]Bucket, nBuckets)
	for idx := range buckets {
		buckets[idx] = Bucket{
			Lower: dividers[idx],
			Upper: dividers[idx+1],
			Count: int(counts[idx]),
		}
	}
	return buckets
}
