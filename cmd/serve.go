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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/penny-vault/pv-dca/backtest"
	"github.com/penny-vault/pv-dca/common"
	"github.com/penny-vault/pv-dca/data/database"
	"github.com/penny-vault/pv-dca/handler"
	"github.com/penny-vault/pv-dca/middleware"
	"github.com/penny-vault/pv-dca/observability/opentelemetry"
	"github.com/penny-vault/pv-dca/report"
	"github.com/penny-vault/pv-dca/router"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	serveCmd.Flags().Int("refresh-hours", 24, "Hours between recomputing results")
	viper.BindPFlag("server.refresh_hours", serveCmd.Flags().Lookup("refresh-hours"))

	viper.BindEnv("cache.redis_url", "REDIS_URL")
	viper.BindEnv("server.allow_origins", "PVDCA_ALLOW_ORIGINS")
	viper.SetDefault("server.allow_origins", "*")

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pvdca API server",
	Long:  `Run an HTTP server that periodically recomputes cohort results and serves them as JSON`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer startProfiling()()

		shutdownTracer, err := opentelemetry.Setup()
		if err != nil {
			log.Error().Err(err).Msg("could not setup tracing")
			return err
		}
		defer shutdownTracer(context.Background())

		cache, err := common.NewResultCacheFromConfig()
		if err != nil {
			return err
		}
		defer cache.Close()

		results := handler.NewResults(cache)

		app := fiber.New(fiber.Config{
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		})

		// shutdown cleanly on interrupt
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			log.Info().Str("Signal", sig.String()).Msg("shutting down")
			if err := app.Shutdown(); err != nil {
				log.Error().Err(err).Msg("error during shutdown")
			}
		}()

		app.Use(cors.New(cors.Config{
			AllowOrigins: viper.GetString("server.allow_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,HEAD",
		}))
		app.Use(middleware.NewLogger())

		router.SetupRoutes(app, handler.NewCohorts(results))

		refresh := func() {
			if err := refreshResults(context.Background(), results); err != nil {
				log.Error().Err(err).Msg("refresh failed")
			}
		}

		scheduler := gocron.NewScheduler(time.UTC)
		if _, err := scheduler.Every(viper.GetInt("server.refresh_hours")).Hours().Do(refresh); err != nil {
			log.Error().Err(err).Msg("could not schedule refresh")
			return err
		}
		scheduler.StartAsync()
		defer scheduler.Stop()

		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Error().Err(err).Msg("server stopped")
			return err
		}

		if database.Connected() {
			database.LogOpenTransactions()
		}
		return nil
	},
}

// refreshResults recomputes the run unless an identical one is already cached
func refreshResults(ctx context.Context, results *handler.Results) error {
	start := time.Now()

	cfg, err := cohortConfig()
	if err != nil {
		return err
	}

	prices, cpi, err := loadSeries(ctx, cfg)
	if err != nil {
		return err
	}

	key, err := backtest.CacheKey(cfg, prices, cpi)
	if err != nil {
		return err
	}

	if found, err := results.Lookup(ctx, key); err == nil && found {
		log.Info().Str("Key", key).Msg("inputs unchanged; serving cached results")
		return nil
	}

	outcome, err := backtest.Run(ctx, cfg, prices, cpi)
	if err != nil {
		return err
	}

	if err := results.Publish(ctx, key, report.NewDocument(outcome)); err != nil {
		return err
	}

	log.Info().Dur("Dur", time.Since(start).Round(time.Millisecond)).Msg("results refreshed")
	return nil
}
