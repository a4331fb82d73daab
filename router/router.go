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

package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/pv-dca/handler"
)

func SetupRoutes(app *fiber.App, cohorts *handler.Cohorts) {
	app.Get("/healthz", handler.Ping)

	api := app.Group("/api/v1")
	api.Get("/summary", cohorts.Summary)

	cohort := api.Group("/cohorts")
	cohort.Get("/", cohorts.List)
	cohort.Get("/:year", cohorts.Get)
	cohort.Get("/:year/history", cohorts.History)
}
