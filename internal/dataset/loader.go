package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/datapeek/datapeek/pkg/models"
)

// Load parses raw upload bytes into a table. ext is the file extension with
// or without the leading dot, case insensitive; anything but csv/xlsx fails
// with ErrUnsupportedFormat. The returned table is rectangular, has unique
// column names, and marks empty cells as nil; every column starts as text
// until the cleaner coerces types.
func Load(data []byte, ext string) (*models.Table, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "csv":
		return loadCSV(data)
	case "xlsx":
		return loadXLSX(data)
	default:
		return nil, &ErrUnsupportedFormat{Ext: ext}
	}
}

func loadCSV(data []byte) (*models.Table, error) {
	// UTF-8 first; a single Latin-1 fallback mirrors how spreadsheet
	// exports from older tooling usually arrive.
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, &ErrParse{Err: err}
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ErrEmptyInput{}
		}
		return nil, &ErrParse{Err: err}
	}

	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ErrParse{Err: err}
		}
		records = append(records, rec)
	}

	return tableFromRecords(header, records)
}

// tableFromRecords builds a column-oriented table from a header row and
// data rows. Short rows are padded with nil; empty cells become nil.
func tableFromRecords(header []string, records [][]string) (*models.Table, error) {
	names := dedupeNames(header)
	if len(names) == 0 || len(records) == 0 {
		return nil, &ErrEmptyInput{}
	}

	t := &models.Table{Columns: make([]models.Column, len(names))}
	for i, name := range names {
		t.Columns[i] = models.Column{
			Name:   name,
			Kind:   models.KindText,
			Values: make([]models.Value, len(records)),
		}
	}
	for ri, rec := range records {
		for ci := range names {
			if ci >= len(rec) {
				continue // padded nil
			}
			cell := strings.TrimSpace(rec[ci])
			if cell == "" {
				continue
			}
			t.Columns[ci].Values[ri] = cell
		}
	}
	return t, nil
}

// dedupeNames makes column names unique by suffixing repeats with ".1",
// ".2", and so on, preserving order. The suffix keeps incrementing until
// the candidate is genuinely free, so a repeat never collides with a
// header that already carried a suffixed name.
func dedupeNames(header []string) []string {
	seen := make(map[string]struct{}, len(header))
	names := make([]string, 0, len(header))
	for _, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", len(names))
		}
		if _, dup := seen[name]; dup {
			base := name
			for n := 1; ; n++ {
				name = fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
