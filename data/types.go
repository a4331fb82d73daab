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
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// PricePoint is the closing value of the index on a single trading day
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// CpiPoint is a single monthly consumer price index observation. Month is always
// the first day of the month at midnight UTC.
type CpiPoint struct {
	Month time.Time `json:"month"`
	Value float64   `json:"value"`
}

// PriceSeries is an immutable, date ordered set of index prices
type PriceSeries struct {
	Name   string
	points []PricePoint
}

// CpiSeries is an immutable, month ordered set of CPI observations
type CpiSeries struct {
	Name   string
	points []CpiPoint
}

func (p PricePoint) MarshalZerologObject(e *zerolog.Event) {
	e.Time("Date", p.Date).Float64("Price", p.Price)
}

func (p CpiPoint) MarshalZerologObject(e *zerolog.Event) {
	e.Time("Month", p.Month).Float64("Value", p.Value)
}

// MonthOf truncates t to the first day of its month in UTC
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func validValue(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// NewPriceSeries validates points and returns a series that owns a copy of them.
// Points must be strictly increasing in date and every price must be positive.
func NewPriceSeries(name string, points []PricePoint) (*PriceSeries, error) {
	cp := make([]PricePoint, len(points))
	copy(cp, points)

	for idx, pt := range cp {
		if !validValue(pt.Price) {
			return nil, fmt.Errorf("%w: %s price %f on %s", ErrInvalidValue, name, pt.Price, pt.Date.Format("2006-01-02"))
		}
		if idx == 0 {
			continue
		}
		prev := cp[idx-1].Date
		switch {
		case pt.Date.Equal(prev):
			return nil, fmt.Errorf("%w: %s on %s", ErrDuplicateDate, name, pt.Date.Format("2006-01-02"))
		case pt.Date.Before(prev):
			return nil, fmt.Errorf("%w: %s at %s", ErrUnsortedSeries, name, pt.Date.Format("2006-01-02"))
		}
	}

	return &PriceSeries{Name: name, points: cp}, nil
}

// Len returns the number of observations in the series
func (s *PriceSeries) Len() int {
	return len(s.points)
}

// Points returns a copy of the observations
func (s *PriceSeries) Points() []PricePoint {
	cp := make([]PricePoint, len(s.points))
	copy(cp, s.points)
	return cp
}

// Start returns the date of the first observation
func (s *PriceSeries) Start() time.Time {
	if len(s.points) == 0 {
		return time.Time{}
	}
	return s.points[0].Date
}

// End returns the date of the last observation
func (s *PriceSeries) End() time.Time {
	if len(s.points) == 0 {
		return time.Time{}
	}
	return s.points[len(s.points)-1].Date
}

// FirstInWindow returns the first observation on or after begin and strictly before end
func (s *PriceSeries) FirstInWindow(begin, end time.Time) (PricePoint, bool) {
	idx := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Date.Before(begin)
	})
	if idx >= len(s.points) || !s.points[idx].Date.Before(end) {
		return PricePoint{}, false
	}
	return s.points[idx], true
}

// AsOf returns the last observation on or before t
func (s *PriceSeries) AsOf(t time.Time) (PricePoint, bool) {
	idx := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Date.After(t)
	})
	if idx == 0 {
		return PricePoint{}, false
	}
	return s.points[idx-1], true
}

// Between returns the observations with begin <= date <= end as a new series
func (s *PriceSeries) Between(begin, end time.Time) *PriceSeries {
	lo := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Date.Before(begin)
	})
	hi := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Date.After(end)
	})
	if hi < lo {
		hi = lo
	}
	cp := make([]PricePoint, hi-lo)
	copy(cp, s.points[lo:hi])
	return &PriceSeries{Name: s.Name, points: cp}
}

// NewCpiSeries validates points and returns a series that owns a copy of them.
// Each Month is normalized to the first of its month before validation.
func NewCpiSeries(name string, points []CpiPoint) (*CpiSeries, error) {
	cp := make([]CpiPoint, len(points))
	for idx, pt := range points {
		cp[idx] = CpiPoint{Month: MonthOf(pt.Month), Value: pt.Value}
	}

	for idx, pt := range cp {
		if !validValue(pt.Value) {
			return nil, fmt.Errorf("%w: %s value %f for %s", ErrInvalidValue, name, pt.Value, pt.Month.Format("2006-01"))
		}
		if idx == 0 {
			continue
		}
		prev := cp[idx-1].Month
		switch {
		case pt.Month.Equal(prev):
			return nil, fmt.Errorf("%w: %s for %s", ErrDuplicateDate, name, pt.Month.Format("2006-01"))
		case pt.Month.Before(prev):
			return nil, fmt.Errorf("%w: %s at %s", ErrUnsortedSeries, name, pt.Month.Format("2006-01"))
		}
	}

	return &CpiSeries{Name: name, points: cp}, nil
}

// Len returns the number of observations in the series
func (s *CpiSeries) Len() int {
	return len(s.points)
}

// Points returns a copy of the observations
func (s *CpiSeries) Points() []CpiPoint {
	cp := make([]CpiPoint, len(s.points))
	copy(cp, s.points)
	return cp
}

// AsOf returns the latest observation whose month is on or before the month containing t
func (s *CpiSeries) AsOf(t time.Time) (CpiPoint, bool) {
	month := MonthOf(t)
	idx := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Month.After(month)
	})
	if idx == 0 {
		return CpiPoint{}, false
	}
	return s.points[idx-1], true
}
