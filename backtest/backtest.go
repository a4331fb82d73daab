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

package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/penny-vault/pv-dca/cohort"
	"github.com/penny-vault/pv-dca/data"
	"github.com/penny-vault/pv-dca/observability/opentelemetry"
	"github.com/penny-vault/pv-dca/summary"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var ErrNoPrices = errors.New("no price series supplied")

// Outcome is everything produced by a single run. States and Results are
// ordered by start year and exclude skipped cohorts.
type Outcome struct {
	RunID    uuid.UUID
	Config   cohort.Config
	States   []*cohort.State
	Results  []*cohort.Result
	Summary  *summary.Table
	Started  time.Time
	Duration time.Duration
}

// State returns the simulation state of the cohort starting in year
func (o *Outcome) State(year int) (*cohort.State, bool) {
	for _, state := range o.States {
		if state.Config.StartYear == year {
			return state, true
		}
	}
	return nil, false
}

// Run simulates and finalizes every cohort in cfg and aggregates the results.
// Cohorts run concurrently, at most cfg.Parallelism at a time. Under the fail
// policy the first cohort with missing data aborts the run; under the skip
// policy such cohorts are recorded in the summary and left out.
func Run(ctx context.Context, cfg cohort.Config, prices *data.PriceSeries, cpi *data.CpiSeries) (*Outcome, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "backtest.Run")
	defer span.End()

	outcome := &Outcome{
		RunID:   uuid.New(),
		Config:  cfg,
		Started: time.Now(),
	}

	subLog := log.With().Str("RunID", outcome.RunID.String()).Logger()
	span.SetAttributes(attribute.String("backtest.run_id", outcome.RunID.String()))

	if err := cfg.Validate(); err != nil {
		subLog.Error().Err(err).Msg("invalid configuration")
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid configuration")
		return nil, err
	}

	if prices == nil {
		span.SetStatus(codes.Error, ErrNoPrices.Error())
		return nil, ErrNoPrices
	}

	cohorts := cfg.Cohorts()
	policy := cfg.Policy()
	span.SetAttributes(
		attribute.Int("backtest.cohorts", len(cohorts)),
		attribute.String("backtest.policy", string(policy)),
	)

	limit := cfg.Parallelism
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	subLog.Info().Object("Config", cfg).Int("Cohorts", len(cohorts)).Msg("starting backtest")

	states := make([]*cohort.State, len(cohorts))
	results := make([]*cohort.Result, len(cohorts))
	skipped := make([]*summary.SkippedCohort, len(cohorts))
	errs := make([]error, len(cohorts))

	// lowest index of a cohort that failed the run; cohorts after it can
	// not change the outcome and are not started
	var firstFailed atomic.Int64
	firstFailed.Store(math.MaxInt64)

	g := &errgroup.Group{}
	g.SetLimit(limit)

	for idx, cc := range cohorts {
		idx, cc := idx, cc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if firstFailed.Load() < int64(idx) {
				return nil
			}

			state, res, err := runCohort(ctx, cc, prices, cpi)
			if err == nil {
				states[idx] = state
				results[idx] = res
				return nil
			}

			if policy == cohort.PolicySkip && errors.Is(err, data.ErrMissingData) {
				log.Warn().Err(err).Int("StartYear", cc.StartYear).Msg("skipping cohort with incomplete data")
				skipped[idx] = &summary.SkippedCohort{StartYear: cc.StartYear, Reason: err.Error()}
				return nil
			}

			errs[idx] = fmt.Errorf("cohort %d: %w", cc.StartYear, err)
			for {
				cur := firstFailed.Load()
				if cur <= int64(idx) || firstFailed.CompareAndSwap(cur, int64(idx)) {
					break
				}
			}
			return nil
		})
	}

	waitErr := g.Wait()

	// report the earliest failing cohort rather than whichever finished first
	for _, err := range errs {
		if err != nil {
			subLog.Error().Err(err).Msg("backtest aborted")
			span.RecordError(err)
			span.SetStatus(codes.Error, "cohort failed")
			return nil, err
		}
	}
	if waitErr != nil {
		subLog.Warn().Err(waitErr).Msg("backtest cancelled")
		span.SetStatus(codes.Error, "cancelled")
		return nil, waitErr
	}

	outcome.States = make([]*cohort.State, 0, len(cohorts))
	outcome.Results = make([]*cohort.Result, 0, len(cohorts))
	skippedList := make([]summary.SkippedCohort, 0)
	for idx := range cohorts {
		if skipped[idx] != nil {
			skippedList = append(skippedList, *skipped[idx])
			continue
		}
		outcome.States = append(outcome.States, states[idx])
		outcome.Results = append(outcome.Results, results[idx])
	}

	outcome.Summary = summary.Aggregate(outcome.Results, skippedList...)
	outcome.Duration = time.Since(outcome.Started)

	subLog.Info().
		Int("Cohorts", len(outcome.Results)).
		Int("Skipped", len(skippedList)).
		Dur("Dur", outcome.Duration.Round(time.Millisecond)).
		Msg("backtest complete")

	return outcome, nil
}

func runCohort(ctx context.Context, cc cohort.CohortConfig, prices *data.PriceSeries, cpi *data.CpiSeries) (*cohort.State, *cohort.Result, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "backtest.Cohort")
	defer span.End()

	span.SetAttributes(attribute.Int("cohort.start_year", cc.StartYear))

	state, err := cohort.Simulate(cc, prices)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "simulate failed")
		return nil, nil, err
	}

	res, err := cohort.Finalize(state, cpi, cc.InflationAdjusted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalize failed")
		return nil, nil, err
	}

	span.SetAttributes(attribute.Int("cohort.months", res.Months))
	return state, res, nil
}
