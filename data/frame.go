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
	"github.com/penny-vault/pv-dca/dataframe"
)

const (
	PriceCol = "Price"
	CpiCol   = "CPI"
)

// Frame returns the series as a single column dataframe
func (s *PriceSeries) Frame() *dataframe.DataFrame {
	df := dataframe.New(PriceCol)
	for _, pt := range s.points {
		df.InsertRow(pt.Date, pt.Price)
	}
	return df
}

// Frame returns the series as a single column dataframe indexed by month
func (s *CpiSeries) Frame() *dataframe.DataFrame {
	df := dataframe.New(CpiCol)
	for _, pt := range s.points {
		df.InsertRow(pt.Month, pt.Value)
	}
	return df
}
