// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package cliio provides output formatting for CLI commands (table, CSV, JSON).
package cliio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// FormatFlagName is the flag name for the output format.
const FormatFlagName = "format"

// Format represents the output format for CLI commands.
type Format string

const (
	// FormatTable is the default table output format.
	FormatTable Format = "table"
	// FormatCSV is the CSV output format.
	FormatCSV Format = "csv"
	// FormatJSON is the JSON output format.
	FormatJSON Format = "json"
)

// ParseFormat parses a string into a Format, returning an error for unknown formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "table":
		return FormatTable, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: table, csv, json", s)
	}
}

// BindFormatFlag binds the --format flag to format, defaulting to table.
func BindFormatFlag(flagSet *pflag.FlagSet, format *string) {
	flagSet.StringVar(format, FormatFlagName, string(FormatTable), "Output format (table, csv, json)")
}

// Write writes objects in the given format.
//
// Table and CSV output have one row per object built with toRow under the
// headers. JSON output has one object per line.
func Write[O any](writer io.Writer, format Format, headers []string, toRow func(O) []string, objects []O) error {
	return WriteWithTotals(writer, format, headers, toRow, objects, nil)
}

// WriteWithTotals is Write with a totals row appended to table output.
//
// A nil totalsRow writes no totals. CSV and JSON output never carry totals.
func WriteWithTotals[O any](writer io.Writer, format Format, headers []string, toRow func(O) []string, objects []O, totalsRow []string) error {
	switch format {
	case FormatTable:
		rows := make([][]string, 0, len(objects))
		for _, object := range objects {
			rows = append(rows, toRow(object))
		}
		if totalsRow == nil {
			return WriteTable(writer, headers, rows)
		}
		return WriteTableWithTotals(writer, headers, rows, totalsRow)
	case FormatCSV:
		records := make([][]string, 0, len(objects)+1)
		records = append(records, headers)
		for _, object := range objects {
			records = append(records, toRow(object))
		}
		return WriteCSVRecords(writer, records)
	case FormatJSON:
		return WriteJSON(writer, objects...)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteTable writes rows under headers with aligned columns.
func WriteTable(writer io.Writer, headers []string, rows [][]string) error {
	return writeTable(writer, headers, rows, nil)
}

// WriteTableWithTotals writes a table followed by a blank line and totalsRow.
//
// The totals share the column alignment of the data rows.
func WriteTableWithTotals(writer io.Writer, headers []string, rows [][]string, totalsRow []string) error {
	return writeTable(writer, headers, rows, totalsRow)
}

// WriteCSVRecords writes CSV records to the writer.
func WriteCSVRecords(writer io.Writer, records [][]string) error {
	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.WriteAll(records); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteJSON writes objects as JSON with newlines between each object.
func WriteJSON[O any](writer io.Writer, objects ...O) error {
	for _, object := range objects {
		data, err := json.Marshal(object)
		if err != nil {
			return err
		}
		if _, err := writer.Write(data); err != nil {
			return err
		}
		if _, err := writer.Write([]byte("\n")); err != nil {
			return err
		}
	}
	return nil
}

// *** PRIVATE ***

func writeTable(writer io.Writer, headers []string, rows [][]string, totalsRow []string) error {
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	lines := make([][]string, 0, len(rows)+3)
	lines = append(lines, headers)
	lines = append(lines, rows...)
	if totalsRow != nil {
		lines = append(lines, make([]string, len(headers)), totalsRow)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(tw, strings.Join(line, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
