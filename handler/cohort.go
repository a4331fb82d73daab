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

package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/pv-dca/report"
	"github.com/rs/zerolog/log"
)

type SummaryResponse struct {
	RunID       string           `json:"runId"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Settings    report.Settings  `json:"settings"`
	Nominal     *report.Stats    `json:"nominal"`
	Real        *report.Stats    `json:"real"`
	Skipped     []report.Skipped `json:"skipped"`
}

// Cohorts serves the cohort endpoints from the published results
type Cohorts struct {
	results *Results
}

func NewCohorts(results *Results) *Cohorts {
	return &Cohorts{results: results}
}

func (h *Cohorts) document(c *fiber.Ctx) (*report.Document, error) {
	doc, err := h.results.Current(c.UserContext())
	if errors.Is(err, ErrNotReady) {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		log.Error().Err(err).Msg("could not load current results")
		return nil, fiber.ErrInternalServerError
	}
	return doc, nil
}

func yearParam(c *fiber.Ctx) (int, error) {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "year must be an integer")
	}
	return year, nil
}

// Summary returns the aggregate statistics of the current run
func (h *Cohorts) Summary(c *fiber.Ctx) error {
	doc, err := h.document(c)
	if err != nil {
		return err
	}

	return c.JSON(SummaryResponse{
		RunID:       doc.RunID,
		GeneratedAt: doc.GeneratedAt,
		Settings:    doc.Settings,
		Nominal:     doc.Nominal,
		Real:        doc.Real,
		Skipped:     doc.Skipped,
	})
}

// List returns every cohort row ordered by start year
func (h *Cohorts) List(c *fiber.Ctx) error {
	doc, err := h.document(c)
	if err != nil {
		return err
	}
	return c.JSON(doc.Cohorts)
}

// Get returns a single cohort row
func (h *Cohorts) Get(c *fiber.Ctx) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}

	doc, err := h.document(c)
	if err != nil {
		return err
	}

	row, ok := doc.Cohort(year)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no cohort starting in "+strconv.Itoa(year))
	}
	return c.JSON(row)
}

// History returns a cohort's value after each contribution
func (h *Cohorts) History(c *fiber.Ctx) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}

	doc, err := h.document(c)
	if err != nil {
		return err
	}

	history, ok := doc.History[year]
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no cohort starting in "+strconv.Itoa(year))
	}
	return c.JSON(history)
}
