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

package report

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const (
	ResultsFile  = "simulation_results.csv"
	HistoryFile  = "portfolio_history.json"
	SummaryText  = "summary.txt"
	SummaryHTML  = "summary.html"
	DocumentFile = "document.json"
)

// WriteAll writes every report into dir, creating it if needed, and returns
// the paths written
func WriteAll(ctx context.Context, dir string, doc *Document) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error().Err(err).Str("Dir", dir).Msg("could not create output directory")
		return nil, err
	}

	sinks := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ResultsFile, func(w io.Writer) error { return WriteResultsCSV(ctx, w, doc) }},
		{HistoryFile, func(w io.Writer) error { return WriteHistoryJSON(w, doc) }},
		{SummaryText, func(w io.Writer) error { return WriteSummaryText(w, doc) }},
		{SummaryHTML, func(w io.Writer) error { return WriteSummaryHTML(w, doc) }},
		{DocumentFile, func(w io.Writer) error { return WriteDocumentJSON(w, doc) }},
	}

	written := make([]string, 0, len(sinks))
	for _, sink := range sinks {
		fn := filepath.Join(dir, sink.name)
		if err := writeFile(fn, sink.write); err != nil {
			log.Error().Err(err).Str("FileName", fn).Msg("could not write report")
			return written, err
		}
		log.Debug().Str("FileName", fn).Msg("wrote report")
		written = append(written, fn)
	}

	return written, nil
}

func writeFile(fn string, write func(io.Writer) error) error {
	fh, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := write(fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
