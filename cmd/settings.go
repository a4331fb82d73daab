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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/penny-vault/pv-dca/cohort"
	"github.com/penny-vault/pv-dca/data"
	"github.com/penny-vault/pv-dca/data/database"
	"github.com/penny-vault/pv-dca/tradecron"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

var ErrUnknownSource = errors.New("unknown data source")

func setDefaults() {
	viper.SetDefault("dca.first_year", cohort.DefaultFirstYear)
	viper.SetDefault("dca.last_year", cohort.DefaultLastYear)
	viper.SetDefault("dca.contribution", fmt.Sprintf("%d", cohort.DefaultContribution))
	viper.SetDefault("dca.end_date", cohort.DefaultEndDate.Format(dateLayout))
	viper.SetDefault("dca.inflation_adjusted", true)
	viper.SetDefault("dca.schedule", tradecron.DefaultSchedule)
	viper.SetDefault("dca.on_missing_data", string(cohort.PolicyFail))
	viper.SetDefault("dca.parallelism", 0)
	viper.SetDefault("dca.currency", cohort.DefaultCurrency)
	viper.SetDefault("dca.max_cpi_lag", cohort.DefaultMaxCpiLag)

	viper.SetDefault("prices.source", "csv")
	viper.SetDefault("prices.path", "data/sp500_data.csv")
	viper.SetDefault("prices.column", "")
	viper.SetDefault("prices.ticker", "SPY")

	viper.SetDefault("cpi.source", "csv")
	viper.SetDefault("cpi.path", "data/cpi_data.csv")
	viper.SetDefault("cpi.column", "")
	viper.SetDefault("cpi.series", data.DefaultCpiSeries)

	viper.SetDefault("output.dir", "output")

	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.refresh_hours", 24)

	viper.SetDefault("cache.local_size", 32)
	viper.SetDefault("cache.redis", false)
	viper.SetDefault("cache.ttl", 86400)

	viper.SetDefault("otlp.sample_ratio", 1.0)
}

// cohortConfig builds the run configuration from the dca.* settings
func cohortConfig() (cohort.Config, error) {
	cfg := cohort.DefaultConfig()

	years := viper.GetIntSlice("dca.start_years")
	if len(years) == 0 {
		years = cohort.YearRange(viper.GetInt("dca.first_year"), viper.GetInt("dca.last_year"))
	}
	sort.Ints(years)
	cfg.StartYears = years

	contribution, err := decimal.NewFromString(strings.TrimSpace(viper.GetString("dca.contribution")))
	if err != nil {
		return cfg, fmt.Errorf("%w: contribution %q: %s", cohort.ErrInvalidConfig, viper.GetString("dca.contribution"), err.Error())
	}
	cfg.Contribution = contribution

	endDate, err := time.Parse(dateLayout, viper.GetString("dca.end_date"))
	if err != nil {
		return cfg, fmt.Errorf("%w: end date %q: %s", cohort.ErrInvalidConfig, viper.GetString("dca.end_date"), err.Error())
	}
	cfg.EndDate = endDate

	policy, err := cohort.ParsePolicy(viper.GetString("dca.on_missing_data"))
	if err != nil {
		return cfg, err
	}
	cfg.OnMissingData = policy

	cfg.InflationAdjusted = viper.GetBool("dca.inflation_adjusted")
	cfg.Schedule = viper.GetString("dca.schedule")
	cfg.Currency = strings.ToUpper(viper.GetString("dca.currency"))
	cfg.MaxCpiLag = viper.GetInt("dca.max_cpi_lag")
	if p := viper.GetInt("dca.parallelism"); p != 0 {
		cfg.Parallelism = p
	}

	return cfg, cfg.Validate()
}

// priceProvider returns the provider selected by prices.source
func priceProvider(ctx context.Context) (data.PriceProvider, error) {
	source := strings.ToLower(viper.GetString("prices.source"))
	switch source {
	case "csv":
		return data.NewCSVPrices(viper.GetString("prices.path"), "", viper.GetString("prices.column")), nil
	case "pvdb":
		if !database.Connected() {
			if err := database.Connect(ctx); err != nil {
				return nil, err
			}
		}
		return data.NewPvDb(viper.GetString("prices.ticker")), nil
	default:
		return nil, fmt.Errorf("%w: prices.source %q", ErrUnknownSource, source)
	}
}

// cpiProvider returns the provider selected by cpi.source
func cpiProvider() (data.CpiProvider, error) {
	source := strings.ToLower(viper.GetString("cpi.source"))
	switch source {
	case "csv":
		return data.NewCSVCpi(viper.GetString("cpi.path"), "", viper.GetString("cpi.column")), nil
	case "fred":
		return data.NewFred(viper.GetString("cpi.series")), nil
	default:
		return nil, fmt.Errorf("%w: cpi.source %q", ErrUnknownSource, source)
	}
}

// seriesRange is the span of data a run over cfg needs. CPI reaches back far
// enough to honour the lag tolerance on the first month.
func seriesRange(cfg cohort.Config) (begin, end, cpiBegin time.Time) {
	first := cfg.StartYears[0]
	for _, y := range cfg.StartYears {
		if y < first {
			first = y
		}
	}
	begin = time.Date(first, time.January, 1, 0, 0, 0, 0, time.UTC)
	end = cfg.EndDate
	cpiBegin = begin.AddDate(0, -cfg.MaxCpiLag, 0)
	return
}

// loadSeries fetches the price series and, when inflation adjustment is on, the CPI series
func loadSeries(ctx context.Context, cfg cohort.Config) (*data.PriceSeries, *data.CpiSeries, error) {
	begin, end, cpiBegin := seriesRange(cfg)

	pp, err := priceProvider(ctx)
	if err != nil {
		return nil, nil, err
	}
	prices, err := pp.Prices(ctx, begin, end)
	if err != nil {
		log.Error().Err(err).Msg("could not load prices")
		return nil, nil, err
	}
	log.Info().Int("NumPrices", prices.Len()).Time("Start", prices.Start()).Time("End", prices.End()).Msg("loaded prices")

	if !cfg.InflationAdjusted {
		return prices, nil, nil
	}

	cp, err := cpiProvider()
	if err != nil {
		return nil, nil, err
	}
	cpi, err := cp.Cpi(ctx, cpiBegin, end)
	if err != nil {
		log.Error().Err(err).Msg("could not load cpi")
		return nil, nil, err
	}
	log.Info().Int("NumMonths", cpi.Len()).Msg("loaded cpi")

	return prices, cpi, nil
}
