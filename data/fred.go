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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/penny-vault/pv-dca/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var fredURL = "https://fred.stlouisfed.org"

const (
	// DefaultCpiSeries is the CPI for all urban consumers, seasonally adjusted
	DefaultCpiSeries = "CPIAUCSL"
)

// Fred downloads monthly CPI observations from the St. Louis Fed
type Fred struct {
	Series string
	client *http.Client
}

// NewFred Create a new Fred data provider
func NewFred(series string) *Fred {
	if series == "" {
		series = DefaultCpiSeries
	}
	return &Fred{
		Series: series,
		client: http.DefaultClient,
	}
}

// URL returns the fredgraph download address for the requested range
func (f *Fred) URL(begin, end time.Time) string {
	return fmt.Sprintf("%s/graph/fredgraph.csv?mode=fred&id=%s&cosd=%s&coed=%s&fq=Monthly&fam=avg",
		fredURL, f.Series, begin.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Cpi implements CpiProvider
func (f *Fred) Cpi(ctx context.Context, begin, end time.Time) (*CpiSeries, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "fred.Cpi")
	defer span.End()

	span.SetAttributes(attribute.String("fred.series", f.Series))

	subLog := log.With().Str("Series", f.Series).Time("Begin", begin).Time("End", end).Logger()

	if end.Before(begin) {
		return nil, ErrInvalidTimeRange
	}

	url := f.URL(MonthOf(begin), end)
	subLog.Debug().Str("Url", url).Msg("downloading from FRED")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "http request failed")
		subLog.Error().Err(err).Msg("FRED request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad status code")
		subLog.Error().Int("StatusCode", resp.StatusCode).Msg("FRED returned an error")
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	obs, err := loadObservations(ctx, bytes.NewReader(body), "", f.Series)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not parse FRED csv")
		subLog.Error().Err(err).Msg("could not parse FRED response")
		return nil, err
	}

	points := monthlyCpi(filterObservations(obs, MonthOf(begin), end))
	subLog.Info().Int("NumObservations", len(points)).Msg("downloaded CPI from FRED")

	return NewCpiSeries(f.Series, points)
}
