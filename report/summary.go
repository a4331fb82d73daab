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
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/olekukonko/tablewriter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>DCA Simulation Summary</title>
<style>
body { font-family: sans-serif; margin: 20px; }
table { width: 100%%; border-collapse: collapse; margin-top: 20px; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
</style>
</head>
<body>
%s</body>
</html>
`

func formatMoney(v float64, currency string) string {
	return money.NewFromFloat(v, currency).Display()
}

func formatPercent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

// table returns the summary table headings and one formatted row per cohort
func table(doc *Document) ([]string, [][]string) {
	inflation := doc.Settings.InflationAdjusted
	currency := doc.Settings.Currency

	headers := []string{"Start Year", "Months", "Invested", "Final Value (Nominal)"}
	if inflation {
		headers = append(headers, "Final Value (Real)")
	}
	headers = append(headers, "Nominal CAGR")
	if inflation {
		headers = append(headers, "Real CAGR")
	}
	headers = append(headers, "Money Weighted")

	rows := make([][]string, 0, len(doc.Cohorts))
	for _, row := range doc.Cohorts {
		contributed, _ := row.Contributed.Float64()
		line := []string{
			strconv.Itoa(row.StartYear),
			strconv.Itoa(row.Months),
			formatMoney(contributed, currency),
			formatMoney(row.NominalValue, currency),
		}
		if inflation {
			if row.RealValue != nil {
				line = append(line, formatMoney(*row.RealValue, currency))
			} else {
				line = append(line, "N/A")
			}
		}
		line = append(line, formatPercent(row.NominalCAGR))
		if inflation {
			line = append(line, formatPercent(row.RealCAGR))
		}
		line = append(line, formatPercent(row.MoneyWeighted))
		rows = append(rows, line)
	}

	return headers, rows
}

func statsLines(doc *Document) []string {
	lines := make([]string, 0, 4)
	if doc.Nominal == nil {
		return append(lines, "Nominal CAGR statistics not available.")
	}
	lines = append(lines,
		fmt.Sprintf("Mean Nominal CAGR: %s", formatPercent(&doc.Nominal.Mean)),
		fmt.Sprintf("Median Nominal CAGR: %s", formatPercent(&doc.Nominal.Median)),
		fmt.Sprintf("Standard Deviation of Nominal CAGRs: %s", formatPercent(&doc.Nominal.StdDev)),
	)

	if doc.Settings.InflationAdjusted {
		if doc.Real == nil {
			return append(lines, "Real CAGR statistics not available due to missing data.")
		}
		lines = append(lines,
			fmt.Sprintf("Mean Real CAGR: %s", formatPercent(&doc.Real.Mean)),
			fmt.Sprintf("Standard Deviation of Real CAGRs: %s", formatPercent(&doc.Real.StdDev)),
		)
	}
	return lines
}

func highlightLines(doc *Document) []string {
	lines := make([]string, 0, 4)
	extreme := func(label, kind string, e Extreme) string {
		return fmt.Sprintf("%s Performing Entry Year (%s CAGR): %d (%s)", label, kind, e.StartYear, formatPercent(&e.CAGR))
	}

	if doc.Nominal != nil {
		lines = append(lines,
			extreme("Best", "Nominal", doc.Nominal.Best),
			extreme("Worst", "Nominal", doc.Nominal.Worst),
		)
	}
	if doc.Settings.InflationAdjusted {
		if doc.Real == nil {
			return append(lines, "Real CAGR performance highlights not available due to missing data.")
		}
		lines = append(lines,
			extreme("Best", "Real", doc.Real.Best),
			extreme("Worst", "Real", doc.Real.Worst),
		)
	}
	return lines
}

const distributionBarWidth = 30

// distribution returns one row per histogram bucket of the nominal and, when
// available, real CAGR distributions
func distribution(doc *Document) ([]string, [][]string) {
	headers := []string{"CAGR", "Range", "Cohorts", ""}
	rows := make([][]string, 0, 2*len(doc.Nominal.Buckets))

	add := func(label string, st *Stats) {
		maxCount := 0
		for _, b := range st.Buckets {
			if b.Count > maxCount {
				maxCount = b.Count
			}
		}
		for _, b := range st.Buckets {
			bar := ""
			if maxCount > 0 {
				bar = strings.Repeat("#", (b.Count*distributionBarWidth+maxCount-1)/maxCount)
			}
			lo, hi := b.Lower, b.Upper
			rows = append(rows, []string{
				label,
				fmt.Sprintf("%s to %s", formatPercent(&lo), formatPercent(&hi)),
				strconv.Itoa(b.Count),
				bar,
			})
		}
	}

	add("Nominal", doc.Nominal)
	if doc.Settings.InflationAdjusted && doc.Real != nil {
		add("Real", doc.Real)
	}
	return headers, rows
}

func skippedLines(doc *Document) []string {
	lines := make([]string, len(doc.Skipped))
	for idx, s := range doc.Skipped {
		lines[idx] = fmt.Sprintf("%d: %s", s.StartYear, s.Reason)
	}
	return lines
}

// WriteSummaryText writes the cohort table followed by statistics and highlights
func WriteSummaryText(w io.Writer, doc *Document) error {
	headers, rows := table(doc)

	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader(headers)
	tbl.SetBorder(false)
	tbl.SetAlignment(tablewriter.ALIGN_RIGHT)
	tbl.AppendBulk(rows)
	tbl.Render()

	var sb strings.Builder
	if doc.Nominal != nil {
		sb.WriteString("\n--- Distribution of CAGRs ---\n")
		headers, rows := distribution(doc)
		dist := tablewriter.NewWriter(&sb)
		dist.SetHeader(headers)
		dist.SetBorder(false)
		dist.SetAutoMergeCellsByColumnIndex([]int{0})
		dist.AppendBulk(rows)
		dist.Render()
	}

	sb.WriteString("\n--- Statistical Summary ---\n")
	for _, line := range statsLines(doc) {
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n--- Performance Highlights ---\n")
	for _, line := range highlightLines(doc) {
		sb.WriteString(line + "\n")
	}
	if len(doc.Skipped) > 0 {
		sb.WriteString("\n--- Skipped Cohorts ---\n")
		for _, line := range skippedLines(doc) {
			sb.WriteString(line + "\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// Markdown renders the summary as GitHub flavored markdown
func Markdown(doc *Document) string {
	var sb strings.Builder
	sb.WriteString("# DCA Simulation Summary\n\n")

	headers, rows := table(doc)
	sb.WriteString("## Summary Table\n\n")
	sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" ---: |", len(headers)) + "\n")
	for _, row := range rows {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}

	sb.WriteString("\n## Statistical Summary\n\n")
	for _, line := range statsLines(doc) {
		sb.WriteString("- " + line + "\n")
	}

	if doc.Nominal != nil {
		headers, rows := distribution(doc)
		sb.WriteString("\n## Distribution of CAGRs\n\n")
		sb.WriteString("| " + strings.Join(headers[:3], " | ") + " |\n")
		sb.WriteString("| --- | --- | ---: |\n")
		for _, row := range rows {
			sb.WriteString("| " + strings.Join(row[:3], " | ") + " |\n")
		}
	}

	sb.WriteString("\n## Performance Highlights\n\n")
	for _, line := range highlightLines(doc) {
		sb.WriteString("- " + line + "\n")
	}

	if len(doc.Skipped) > 0 {
		sb.WriteString("\n## Skipped Cohorts\n\n")
		for _, line := range skippedLines(doc) {
			sb.WriteString("- " + line + "\n")
		}
	}

	return sb.String()
}

// WriteSummaryHTML writes a standalone HTML page rendered from Markdown
func WriteSummaryHTML(w io.Writer, doc *Document) error {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(doc)), &body); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, htmlShell, body.String())
	return err
}
