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

package tradecron

import (
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultSchedule contributes on the first day of every month
	DefaultSchedule = "@monthly"

	maxActivations = 100_000
)

var (
	ErrSubMonthly          = errors.New("schedule activates more than once per calendar month")
	ErrTooManyActivations  = errors.New("schedule produces too many activations")
	ErrNoFutureActivations = errors.New("schedule never activates")
)

// Window is the half-open interval [Begin, End) in which the contribution
// scheduled at Begin may be executed
type Window struct {
	Begin time.Time
	End   time.Time
}

// TradeCron turns a cron specification into contribution activation dates. It supports
// the standard CRON format of: Minutes(Min) Hours(H) DayOfMonth(DoM) Month(M) DayOfWeek(DoW)
// as well as the predefined descriptors (@monthly, @yearly, ...).
// See: https://en.wikipedia.org/wiki/Cron
//
// Activations are evaluated in UTC and may fire at most once per calendar month.
//
// Examples:
//   - first of every month: @monthly or 0 0 1 * *
//   - the 15th of every month: 0 0 15 * *
//   - quarterly: 0 0 1 */3 *
type TradeCron struct {
	Schedule       cron.Schedule
	ScheduleString string
}

func New(cronSpec string) (*TradeCron, error) {
	scheduleStr := strings.TrimSpace(cronSpec)
	if scheduleStr == "" {
		scheduleStr = DefaultSchedule
	}
	scheduleStr = expandBriefFormat(scheduleStr)

	schedule, err := cron.ParseStandard(scheduleStr)
	if err != nil {
		log.Error().Err(err).Str("TradeCronSpec", cronSpec).Msg("robfig/cron could not parse timespec")
		return nil, err
	}

	tc := &TradeCron{
		Schedule:       schedule,
		ScheduleString: scheduleStr,
	}

	if err := tc.checkMonthly(); err != nil {
		log.Error().Err(err).Str("TradeCronSpec", cronSpec).Msg("invalid contribution schedule")
		return nil, err
	}

	return tc, nil
}

// checkMonthly walks two years of activations to verify no month is visited twice
func (tc *TradeCron) checkMonthly() error {
	t := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	stop := t.AddDate(2, 0, 0)
	var prev time.Time
	for ii := 0; ii < 400; ii++ {
		next := tc.Schedule.Next(t)
		if next.IsZero() {
			if ii == 0 {
				return ErrNoFutureActivations
			}
			return nil
		}
		if next.After(stop) {
			return nil
		}
		if !prev.IsZero() && prev.Year() == next.Year() && prev.Month() == next.Month() {
			return ErrSubMonthly
		}
		prev = next
		t = next
	}
	return ErrSubMonthly
}

// Next returns the first activation strictly after forDate
func (tc *TradeCron) Next(forDate time.Time) time.Time {
	return tc.Schedule.Next(forDate.In(time.UTC))
}

// Between returns every activation in the closed interval [begin, end]
func (tc *TradeCron) Between(begin, end time.Time) ([]time.Time, error) {
	res := make([]time.Time, 0, 12)
	if end.Before(begin) {
		return res, nil
	}

	t := tc.Next(begin.Add(-time.Nanosecond))
	for !t.IsZero() && !t.After(end) {
		if len(res) >= maxActivations {
			return nil, ErrTooManyActivations
		}
		res = append(res, t)
		t = tc.Next(t)
	}

	return res, nil
}

// Windows returns the execution window of every activation in [begin, end]. Each
// window closes at the next activation, and the final window closes at the end of
// the day containing end.
func (tc *TradeCron) Windows(begin, end time.Time) ([]Window, error) {
	activations, err := tc.Between(begin, end)
	if err != nil {
		return nil, err
	}

	cutoff := NextDay(end)
	windows := make([]Window, len(activations))
	for idx, activation := range activations {
		var closeAt time.Time
		if idx+1 < len(activations) {
			closeAt = activations[idx+1]
		} else {
			closeAt = tc.Next(activation)
		}
		if closeAt.IsZero() || closeAt.After(cutoff) {
			closeAt = cutoff
		}
		windows[idx] = Window{Begin: activation, End: closeAt}
	}

	return windows, nil
}
