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
	"fmt"
	"os"

	"github.com/penny-vault/pv-dca/backtest"
	"github.com/penny-vault/pv-dca/observability/opentelemetry"
	"github.com/penny-vault/pv-dca/report"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	runChart     bool
	runChartYear int
)

func init() {
	flags := runCmd.Flags()

	flags.Int("first-year", 0, "first cohort start year")
	viper.BindPFlag("dca.first_year", flags.Lookup("first-year"))

	flags.Int("last-year", 0, "last cohort start year")
	viper.BindPFlag("dca.last_year", flags.Lookup("last-year"))

	flags.String("contribution", "", "amount invested every month")
	viper.BindPFlag("dca.contribution", flags.Lookup("contribution"))

	flags.String("end-date", "", "last day of the simulation (YYYY-MM-DD)")
	viper.BindPFlag("dca.end_date", flags.Lookup("end-date"))

	flags.Bool("inflation", true, "report inflation adjusted values")
	viper.BindPFlag("dca.inflation_adjusted", flags.Lookup("inflation"))

	flags.String("schedule", "", "contribution schedule as a cron expression")
	viper.BindPFlag("dca.schedule", flags.Lookup("schedule"))

	flags.String("on-missing-data", "", "what to do with cohorts missing data: fail or skip")
	viper.BindPFlag("dca.on_missing_data", flags.Lookup("on-missing-data"))

	flags.Int("parallelism", 0, "number of cohorts simulated concurrently (0 = number of CPUs)")
	viper.BindPFlag("dca.parallelism", flags.Lookup("parallelism"))

	flags.String("prices", "", "price CSV file")
	viper.BindPFlag("prices.path", flags.Lookup("prices"))

	flags.String("cpi", "", "CPI CSV file")
	viper.BindPFlag("cpi.path", flags.Lookup("cpi"))

	flags.StringP("output-dir", "o", "", "directory reports are written to")
	viper.BindPFlag("output.dir", flags.Lookup("output-dir"))

	flags.BoolVar(&runChart, "chart", false, "print ASCII charts after the summary")
	flags.IntVar(&runChartYear, "chart-year", 0, "cohort whose history is charted (default: earliest)")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cohort backtest and write reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer startProfiling()()

		ctx := context.Background()
		shutdown, err := opentelemetry.Setup()
		if err != nil {
			log.Error().Err(err).Msg("could not setup tracing")
			return err
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("tracer shutdown failed")
			}
		}()

		doc, err := execute(ctx)
		if err != nil {
			return err
		}

		written, err := report.WriteAll(ctx, viper.GetString("output.dir"), doc)
		if err != nil {
			return err
		}
		for _, fn := range written {
			log.Info().Str("FileName", fn).Msg("report written")
		}

		out := cmd.OutOrStdout()
		if err := report.WriteSummaryText(out, doc); err != nil {
			return err
		}

		if runChart {
			printCharts(cmd, doc)
		}

		return nil
	},
}

// execute loads the configured series and runs the backtest
func execute(ctx context.Context) (*report.Document, error) {
	cfg, err := cohortConfig()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}

	prices, cpi, err := loadSeries(ctx, cfg)
	if err != nil {
		return nil, err
	}

	outcome, err := backtest.Run(ctx, cfg, prices, cpi)
	if err != nil {
		return nil, err
	}

	return report.NewDocument(outcome), nil
}

func printCharts(cmd *cobra.Command, doc *report.Document) {
	out := cmd.OutOrStdout()

	if chart, err := report.CAGRChart(doc); err == nil {
		fmt.Fprintf(out, "\n%s\n", chart)
	} else {
		log.Warn().Err(err).Msg("could not chart CAGR")
	}

	year := runChartYear
	if year == 0 && len(doc.Cohorts) > 0 {
		year = doc.Cohorts[0].StartYear
	}
	if chart, err := report.HistoryChart(doc, year); err == nil {
		fmt.Fprintf(out, "\n%s\n", chart)
	} else {
		log.Warn().Err(err).Int("StartYear", year).Msg("could not chart history")
	}
}

// writeTo is used by commands that accept "-" for stdout
func writeTo(fn string) (*os.File, func(), error) {
	if fn == "" || fn == "-" {
		return os.Stdout, func() {}, nil
	}
	fh, err := os.Create(fn)
	if err != nil {
		return nil, nil, err
	}
	return fh, func() { fh.Close() }, nil
}
