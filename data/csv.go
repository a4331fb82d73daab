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
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	imports "github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/rs/zerolog/log"
)

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "01/02/2006"}

// CSVPrices reads daily prices from a CSV file with a date column and a price column
type CSVPrices struct {
	Path        string
	DateColumn  string
	PriceColumn string
}

// CSVCpi reads monthly CPI observations from a CSV file
type CSVCpi struct {
	Path        string
	DateColumn  string
	ValueColumn string
}

type observation struct {
	date  time.Time
	value float64
}

// NewCSVPrices creates a price provider for fn; an empty dateCol auto-detects the date column
func NewCSVPrices(fn, dateCol, priceCol string) *CSVPrices {
	return &CSVPrices{
		Path:        fn,
		DateColumn:  dateCol,
		PriceColumn: priceCol,
	}
}

// NewCSVCpi creates a CPI provider for fn; an empty dateCol auto-detects the date column
func NewCSVCpi(fn, dateCol, valueCol string) *CSVCpi {
	return &CSVCpi{
		Path:        fn,
		DateColumn:  dateCol,
		ValueColumn: valueCol,
	}
}

// Prices implements PriceProvider
func (c *CSVPrices) Prices(ctx context.Context, begin, end time.Time) (*PriceSeries, error) {
	subLog := log.With().Str("Path", c.Path).Str("Column", c.PriceColumn).Logger()

	fh, err := os.Open(c.Path)
	if err != nil {
		subLog.Error().Err(err).Msg("could not open price file")
		return nil, err
	}
	defer fh.Close()

	obs, err := loadObservations(ctx, fh, c.DateColumn, c.PriceColumn)
	if err != nil {
		subLog.Error().Err(err).Msg("could not parse price file")
		return nil, err
	}

	points := make([]PricePoint, 0, len(obs))
	for _, o := range filterObservations(obs, begin, end) {
		points = append(points, PricePoint{Date: o.date, Price: o.value})
	}

	subLog.Debug().Int("NumRows", len(points)).Msg("loaded prices from csv")
	return NewPriceSeries(seriesName(c.PriceColumn, c.Path), points)
}

// Cpi implements CpiProvider
func (c *CSVCpi) Cpi(ctx context.Context, begin, end time.Time) (*CpiSeries, error) {
	subLog := log.With().Str("Path", c.Path).Str("Column", c.ValueColumn).Logger()

	fh, err := os.Open(c.Path)
	if err != nil {
		subLog.Error().Err(err).Msg("could not open cpi file")
		return nil, err
	}
	defer fh.Close()

	obs, err := loadObservations(ctx, fh, c.DateColumn, c.ValueColumn)
	if err != nil {
		subLog.Error().Err(err).Msg("could not parse cpi file")
		return nil, err
	}

	points := monthlyCpi(filterObservations(obs, MonthOf(begin), end))
	subLog.Debug().Int("NumRows", len(points)).Msg("loaded cpi from csv")
	return NewCpiSeries(seriesName(c.ValueColumn, c.Path), points)
}

// seriesName falls back to the file name when the column is auto-detected
func seriesName(column, fn string) string {
	if column != "" {
		return column
	}
	return strings.TrimSuffix(filepath.Base(fn), filepath.Ext(fn))
}

// monthlyCpi collapses observations to one value per month, keeping the last
// observation that falls in each month
func monthlyCpi(obs []observation) []CpiPoint {
	points := make([]CpiPoint, 0, len(obs))
	for _, o := range obs {
		month := MonthOf(o.date)
		if n := len(points); n > 0 && points[n-1].Month.Equal(month) {
			points[n-1].Value = o.value
			continue
		}
		points = append(points, CpiPoint{Month: month, Value: o.value})
	}
	return points
}

func filterObservations(obs []observation, begin, end time.Time) []observation {
	res := make([]observation, 0, len(obs))
	for _, o := range obs {
		if !begin.IsZero() && o.date.Before(begin) {
			continue
		}
		if !end.IsZero() && o.date.After(end) {
			continue
		}
		res = append(res, o)
	}
	return res
}

func parseDate(s string) (time.Time, error) {
	var err error
	var t time.Time
	for _, layout := range dateLayouts {
		t, err = time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, err
}

// readHeader returns the column names of the CSV in r and rewinds it
func readHeader(r io.ReadSeeker) ([]string, error) {
	header, err := csv.NewReader(bufio.NewReader(r)).Read()
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	for idx := range header {
		header[idx] = strings.TrimSpace(strings.TrimPrefix(header[idx], "\ufeff"))
	}
	return header, nil
}

// detectDateColumn picks the first column whose name looks like a date
func detectDateColumn(header []string) (string, error) {
	for _, col := range header {
		switch strings.ToLower(col) {
		case "date", "observation_date", "event_date", "month":
			return col, nil
		}
	}
	return "", fmt.Errorf("%w: no date column in %v", ErrColumnNotFound, header)
}

// detectValueColumn picks the first column that is not the date column
func detectValueColumn(header []string, dateCol string) (string, error) {
	for _, col := range header {
		if col != dateCol {
			return col, nil
		}
	}
	return "", fmt.Errorf("%w: no value column in %v", ErrColumnNotFound, header)
}

// loadObservations parses a date column and a value column out of a CSV. Rows whose
// value is blank or non-numeric (FRED uses ".") are dropped. Results are sorted by date.
func loadObservations(ctx context.Context, r io.ReadSeeker, dateCol, valueCol string) ([]observation, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	if dateCol == "" {
		if dateCol, err = detectDateColumn(header); err != nil {
			return nil, err
		}
	}

	if valueCol == "" {
		if valueCol, err = detectValueColumn(header, dateCol); err != nil {
			return nil, err
		}
	}

	found := 0
	for _, col := range header {
		if col == dateCol || col == valueCol {
			found++
		}
	}
	if found < 2 {
		return nil, fmt.Errorf("%w: need %q and %q, have %v", ErrColumnNotFound, dateCol, valueCol, header)
	}

	df, err := imports.LoadFromCSV(ctx, r, imports.CSVLoadOptions{
		DictateDataType: map[string]interface{}{
			dateCol: imports.Converter{
				ConcreteType: time.Time{},
				ConverterFunc: func(in interface{}) (interface{}, error) {
					s := strings.TrimSpace(in.(string))
					if s == "" {
						return nil, nil
					}
					return parseDate(s)
				},
			},
			valueCol: imports.Converter{
				ConcreteType: float64(0),
				ConverterFunc: func(in interface{}) (interface{}, error) {
					v, err := strconv.ParseFloat(strings.TrimSpace(in.(string)), 64)
					if err != nil {
						return math.NaN(), nil
					}
					return v, nil
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	dateIdx, err := df.NameToColumn(dateCol, dataframe.Options{})
	if err != nil {
		return nil, err
	}
	valueIdx, err := df.NameToColumn(valueCol, dataframe.Options{})
	if err != nil {
		return nil, err
	}

	dates := df.Series[dateIdx]
	values := df.Series[valueIdx]
	nrows := dates.NRows(dataframe.Options{})

	obs := make([]observation, 0, nrows)
	for row := 0; row < nrows; row++ {
		dt, ok := dates.Value(row, dataframe.Options{}).(time.Time)
		if !ok {
			continue
		}
		val, ok := values.Value(row, dataframe.Options{}).(float64)
		if !ok || math.IsNaN(val) {
			continue
		}
		obs = append(obs, observation{date: dt, value: val})
	}

	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].date.Before(obs[j].date)
	})

	return obs, nil
}
