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

	"github.com/penny-vault/pv-dca/data"
	"github.com/penny-vault/pv-dca/dataframe"
	"github.com/spf13/cobra"
)

var (
	inspectFrequency string
	inspectRebase    bool
	inspectLast      bool
)

func init() {
	inspectPricesCmd.Flags().StringVar(&inspectFrequency, "frequency", string(dataframe.MonthBegin), "sampling frequency: Daily, WeekBegin, WeekEnd, MonthBegin, MonthEnd, YearBegin or YearEnd")
	inspectPricesCmd.Flags().BoolVar(&inspectRebase, "rebase", false, "scale prices so the first row is 100")
	inspectCmd.PersistentFlags().BoolVar(&inspectLast, "last", false, "print only the most recent row")

	inspectCmd.AddCommand(inspectPricesCmd)
	inspectCmd.AddCommand(inspectCpiCmd)
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the input series the backtest will use",
}

var inspectPricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Print the price series sampled at the given frequency",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cohortConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		begin, end, _ := seriesRange(cfg)
		provider, err := priceProvider(ctx)
		if err != nil {
			return err
		}
		series, err := provider.Prices(ctx, begin, end)
		if err != nil {
			return err
		}

		freq := dataframe.Frequency(inspectFrequency)
		if !dataframe.ValidFrequency(freq) {
			return fmt.Errorf("%w: %s", dataframe.ErrUnknownFrequency, inspectFrequency)
		}

		df := series.Frame().Frequency(freq)
		if inspectRebase && df.Len() > 0 {
			df = df.MulScalar(100 / df.Vals[0][0])
		}
		printFrame(cmd, df, data.PriceCol)
		return nil
	},
}

var inspectCpiCmd = &cobra.Command{
	Use:   "cpi",
	Short: "Print the monthly CPI series",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cohortConfig()
		if err != nil {
			return err
		}

		_, end, cpiBegin := seriesRange(cfg)
		provider, err := cpiProvider()
		if err != nil {
			return err
		}
		series, err := provider.Cpi(context.Background(), cpiBegin, end)
		if err != nil {
			return err
		}

		printFrame(cmd, series.Frame(), data.CpiCol)
		return nil
	},
}

func printFrame(cmd *cobra.Command, df *dataframe.DataFrame, col string) {
	out := cmd.OutOrStdout()
	if df.Len() > 0 {
		fmt.Fprintf(out, "%s mean over %s to %s: %.4f\n\n", col, df.Start().Format(dateLayout), df.End().Format(dateLayout), df.Mean(col))
	}
	if inspectLast {
		df = df.Last()
	}
	fmt.Fprintln(out, df.Table())
}
