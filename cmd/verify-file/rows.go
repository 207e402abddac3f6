package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"

	"emailscore/internal/bulk/models"
)

var resultColumns = []string{
	"status", "score", "syntax_error", "gibberish", "role",
	"did_you_mean", "disposable", "domain_status", "mx_record",
}

// readRows loads the first sheet of an .xlsx file or a whole .csv file. The
// first row is the header; every later row becomes a map keyed by it.
func readRows(path string) ([]string, []map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		return readCSV(bufio.NewReader(f))
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, nil, fmt.Errorf("unsupported file format %q", filepath.Ext(path))
	}
}

func readCSV(r io.Reader) ([]string, []map[string]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	return toRows(records)
}

func readXLSX(path string) ([]string, []map[string]any, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, nil, errors.New("xlsx has no sheets")
	}

	var records [][]string
	for _, row := range file.Sheets[0].Rows {
		record := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			record = append(record, cell.String())
		}
		records = append(records, record)
	}
	return toRows(records)
}

func toRows(records [][]string) ([]string, []map[string]any, error) {
	if len(records) == 0 {
		return nil, nil, errors.New("file is empty")
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		row := make(map[string]any, len(header))
		for i, h := range header {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			row[h] = value
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// resolveColumn finds want in header, falling back to a case-insensitive match.
func resolveColumn(header []string, want string) (string, error) {
	for _, h := range header {
		if h == want {
			return h, nil
		}
	}
	for _, h := range header {
		if strings.EqualFold(h, want) {
			return h, nil
		}
	}
	return "", fmt.Errorf("column %q not found in header %v", want, header)
}

func outputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + "_verified.csv"
}

// writeResults emits the original columns followed by the verdict columns.
func writeResults(w io.Writer, header []string, records []models.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(append(append([]string{}, header...), resultColumns...)); err != nil {
		return err
	}

	for _, rec := range records {
		line := make([]string, 0, len(header)+len(resultColumns))
		for _, h := range header {
			line = append(line, fieldCell(rec.CustomFields[h]))
		}
		line = append(line,
			rec.Status.String(),
			strconv.Itoa(rec.Score),
			strconv.FormatBool(rec.SyntaxError),
			boolCell(rec.Gibberish),
			boolCell(rec.Role),
			stringCell(rec.DidYouMean),
			boolCell(rec.Disposable),
			stringCell(rec.DomainStatus),
			stringCell(rec.MXRecord),
		)
		if err := writer.Write(line); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func fieldCell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func boolCell(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

func stringCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
