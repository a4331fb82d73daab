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
	"context"
	"time"

	"github.com/penny-vault/pv-dca/data/database"
	"github.com/penny-vault/pv-dca/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PvDb loads adjusted closing prices from the penny vault eod table
type PvDb struct {
	Ticker string
}

// NewPvDb Create a new PVDB price provider for ticker
func NewPvDb(ticker string) *PvDb {
	return &PvDb{
		Ticker: ticker,
	}
}

// Prices implements PriceProvider
func (p *PvDb) Prices(ctx context.Context, begin, end time.Time) (*PriceSeries, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.Prices")
	defer span.End()

	span.SetAttributes(attribute.String("pvdb.ticker", p.Ticker))

	subLog := log.With().Str("Ticker", p.Ticker).Time("Begin", begin).Time("End", end).Logger()
	subLog.Debug().Msg("getting prices")

	if end.Before(begin) {
		subLog.Warn().Stack().Msg("end before begin in call to Prices")
		return nil, ErrInvalidTimeRange
	}

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not get transaction when querying prices")
		return nil, err
	}

	rows, err := trx.Query(ctx, "SELECT event_date, adj_close FROM eod WHERE ticker=$1 AND event_date BETWEEN $2 AND $3 ORDER BY event_date", p.Ticker, begin, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		subLog.Error().Stack().Err(err).Msg("could not query prices")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	points := make([]PricePoint, 0, 252)
	for rows.Next() {
		var dt time.Time
		var price float64
		if err = rows.Scan(&dt, &price); err != nil {
			rows.Close()
			subLog.Error().Stack().Err(err).Msg("could not SCAN DB result")
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}
		points = append(points, PricePoint{
			Date:  time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, time.UTC),
			Price: price,
		})
	}
	rows.Close()

	if err := trx.Commit(ctx); err != nil {
		subLog.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	if len(points) == 0 {
		span.SetStatus(codes.Error, "no prices found")
		subLog.Error().Msg("no prices found for ticker")
		return nil, ErrEmptySeries
	}

	return NewPriceSeries(p.Ticker, points)
}
