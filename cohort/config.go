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

package cohort

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/penny-vault/pv-dca/tradecron"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MissingDataPolicy controls what a run does with a cohort whose inputs are incomplete
type MissingDataPolicy string

const (
	PolicyFail MissingDataPolicy = "fail"
	PolicySkip MissingDataPolicy = "skip"
)

const (
	DefaultFirstYear    = 1998
	DefaultLastYear     = 2025
	DefaultContribution = 500
	DefaultCurrency     = money.USD
	DefaultMaxCpiLag    = 2
)

// DefaultEndDate is the last day of the default simulation horizon
var DefaultEndDate = time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)

// Config is the immutable configuration of a backtest run
type Config struct {
	StartYears        []int
	Contribution      decimal.Decimal
	EndDate           time.Time
	InflationAdjusted bool
	Schedule          string
	OnMissingData     MissingDataPolicy
	Parallelism       int
	Currency          string

	// MaxCpiLag is how many months old the CPI observation used for a
	// valuation month may be
	MaxCpiLag int
}

// CohortConfig holds the parameters of a single cohort simulation
type CohortConfig struct {
	StartYear         int
	Contribution      decimal.Decimal
	EndDate           time.Time
	InflationAdjusted bool
	Schedule          string
	MaxCpiLag         int
}

// YearRange returns every year from first to last inclusive
func YearRange(first, last int) []int {
	if last < first {
		return []int{}
	}
	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() Config {
	return Config{
		StartYears:        YearRange(DefaultFirstYear, DefaultLastYear),
		Contribution:      decimal.NewFromInt(DefaultContribution),
		EndDate:           DefaultEndDate,
		InflationAdjusted: true,
		Schedule:          tradecron.DefaultSchedule,
		OnMissingData:     PolicyFail,
		Parallelism:       runtime.NumCPU(),
		Currency:          DefaultCurrency,
		MaxCpiLag:         DefaultMaxCpiLag,
	}
}

// ParsePolicy converts s to a MissingDataPolicy
func ParsePolicy(s string) (MissingDataPolicy, error) {
	switch MissingDataPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyFail, "":
		return PolicyFail, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("%w: unknown missing data policy %q", ErrInvalidConfig, s)
	}
}

// StartDate returns January 1st of the cohort's start year
func (c CohortConfig) StartDate() time.Time {
	return time.Date(c.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Validate checks the configuration before any simulation runs
func (c Config) Validate() error {
	if len(c.StartYears) == 0 {
		return fmt.Errorf("%w: no start years", ErrInvalidConfig)
	}

	if !c.Contribution.IsPositive() {
		return fmt.Errorf("%w: contribution must be positive, got %s", ErrInvalidConfig, c.Contribution.String())
	}

	if c.EndDate.IsZero() {
		return fmt.Errorf("%w: end date is required", ErrInvalidConfig)
	}

	seen := make(map[int]bool, len(c.StartYears))
	anyBeforeEnd := false
	for _, year := range c.StartYears {
		if seen[year] {
			return fmt.Errorf("%w: duplicate start year %d", ErrInvalidConfig, year)
		}
		seen[year] = true
		if !time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).After(c.EndDate) {
			anyBeforeEnd = true
		}
	}

	if !anyBeforeEnd {
		return fmt.Errorf("%w: end date %s is before every start year", ErrInvalidConfig, c.EndDate.Format("2006-01-02"))
	}

	if _, err := ParsePolicy(string(c.OnMissingData)); err != nil {
		return err
	}

	if c.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must not be negative", ErrInvalidConfig)
	}

	if c.MaxCpiLag < 0 {
		return fmt.Errorf("%w: max cpi lag must not be negative", ErrInvalidConfig)
	}

	if c.Currency != "" && money.GetCurrency(c.Currency) == nil {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidConfig, c.Currency)
	}

	if _, err := tradecron.New(c.Schedule); err != nil {
		return fmt.Errorf("%w: schedule %q: %s", ErrInvalidConfig, c.Schedule, err.Error())
	}

	return nil
}

// Cohorts expands the configuration into one CohortConfig per start year, ordered by year
func (c Config) Cohorts() []CohortConfig {
	years := make([]int, len(c.StartYears))
	copy(years, c.StartYears)
	sort.Ints(years)

	cohorts := make([]CohortConfig, len(years))
	for idx, year := range years {
		cohorts[idx] = CohortConfig{
			StartYear:         year,
			Contribution:      c.Contribution,
			EndDate:           c.EndDate,
			InflationAdjusted: c.InflationAdjusted,
			Schedule:          c.Schedule,
			MaxCpiLag:         c.MaxCpiLag,
		}
	}
	return cohorts
}

// Policy returns the effective missing data policy
func (c Config) Policy() MissingDataPolicy {
	policy, err := ParsePolicy(string(c.OnMissingData))
	if err != nil {
		return PolicyFail
	}
	return policy
}

func (c Config) MarshalZerologObject(e *zerolog.Event) {
	e.Ints("StartYears", c.StartYears).
		Str("Contribution", c.Contribution.String()).
		Time("EndDate", c.EndDate).
		Bool("InflationAdjusted", c.InflationAdjusted).
		Str("Schedule", c.Schedule).
		Str("OnMissingData", string(c.OnMissingData)).
		Int("Parallelism", c.Parallelism).
		Str("Currency", c.Currency)
}

func (c CohortConfig) MarshalZerologObject(e *zerolog.Event) {
	e.Int("StartYear", c.StartYear).
		Str("Contribution", c.Contribution.String()).
		Time("EndDate", c.EndDate).
		Str("Schedule", c.Schedule)
}
