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
	"time"

	"github.com/penny-vault/pv-dca/data"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	fetchBegin  string
	fetchEnd    string
	fetchOutput string
)

func init() {
	fetchCmd.PersistentFlags().StringVar(&fetchBegin, "begin", "1990-01-01", "first date to fetch (YYYY-MM-DD)")
	fetchCmd.PersistentFlags().StringVar(&fetchEnd, "end", "", "last date to fetch (YYYY-MM-DD, default today)")
	fetchCmd.PersistentFlags().StringVarP(&fetchOutput, "output", "o", "-", "file to write, - for stdout")

	fetchCpiCmd.Flags().String("series", data.DefaultCpiSeries, "FRED series id")
	viper.BindPFlag("cpi.series", fetchCpiCmd.Flags().Lookup("series"))

	fetchPricesCmd.Flags().String("ticker", "", "ticker to export from the database")
	viper.BindPFlag("prices.ticker", fetchPricesCmd.Flags().Lookup("ticker"))

	fetchCmd.AddCommand(fetchCpiCmd)
	fetchCmd.AddCommand(fetchPricesCmd)
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download input series to CSV",
}

var fetchCpiCmd = &cobra.Command{
	Use:   "cpi",
	Short: "Download monthly CPI from FRED",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		begin, end, err := fetchRange()
		if err != nil {
			return err
		}

		ctx := context.Background()
		fred := data.NewFred(viper.GetString("cpi.series"))
		series, err := fred.Cpi(ctx, begin, end)
		if err != nil {
			return err
		}

		fh, done, err := writeTo(fetchOutput)
		if err != nil {
			return err
		}
		defer done()

		if err := data.WriteCpiCSV(ctx, fh, series, fred.Series); err != nil {
			log.Error().Err(err).Str("FileName", fetchOutput).Msg("could not write cpi")
			return err
		}

		log.Info().Str("Series", fred.Series).Int("NumMonths", series.Len()).Msg("fetched cpi")
		return nil
	},
}

var fetchPricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Export adjusted closing prices from the penny vault database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		begin, end, err := fetchRange()
		if err != nil {
			return err
		}

		ctx := context.Background()
		viper.Set("prices.source", "pvdb")
		provider, err := priceProvider(ctx)
		if err != nil {
			return err
		}

		series, err := provider.Prices(ctx, begin, end)
		if err != nil {
			return err
		}

		fh, done, err := writeTo(fetchOutput)
		if err != nil {
			return err
		}
		defer done()

		return data.WritePriceCSV(ctx, fh, series, viper.GetString("prices.ticker"))
	},
}

func fetchRange() (time.Time, time.Time, error) {
	begin, err := time.Parse(dateLayout, fetchBegin)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid begin date %q: %w", fetchBegin, err)
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if fetchEnd != "" {
		end, err = time.Parse(dateLayout, fetchEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", fetchEnd, err)
		}
	}

	if end.Before(begin) {
		return time.Time{}, time.Time{}, data.ErrInvalidTimeRange
	}
	return begin, end, nil
}
