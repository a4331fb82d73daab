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

package dataframe

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MulScalar multiplies all columns in dataframe df by the scalar and returns a new dataframe
func (df *DataFrame) MulScalar(scalar float64) *DataFrame {
	df = df.Copy()
	for colIdx := range df.ColNames {
		floats.Scale(scalar, df.Vals[colIdx])
	}
	return df
}

// Diff appends a column named name holding colA - colB for each row
func (df *DataFrame) Diff(name, colA, colB string) (*DataFrame, error) {
	a, err := df.Column(colA)
	if err != nil {
		return nil, err
	}
	b, err := df.Column(colB)
	if err != nil {
		return nil, err
	}

	res := make([]float64, len(a))
	floats.SubTo(res, a, b)
	return df.Insert(name, res), nil
}

// Ratio appends a column named name holding colA / colB for each row
func (df *DataFrame) Ratio(name, colA, colB string) (*DataFrame, error) {
	a, err := df.Column(colA)
	if err != nil {
		return nil, err
	}
	b, err := df.Column(colB)
	if err != nil {
		return nil, err
	}

	res := make([]float64, len(a))
	floats.DivTo(res, a, b)
	return df.Insert(name, res), nil
}

// Mean returns the arithmetic mean of the named column, ignoring NaN values
func (df *DataFrame) Mean(colName string) float64 {
	col, err := df.Column(colName)
	if err != nil {
		return math.NaN()
	}

	vals := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}
