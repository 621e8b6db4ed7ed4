package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"datapipe/internal/etlerr"
)

const utf8BOM = "\uFEFF"

// ReadCSV parses a comma-separated payload with a header row into a Dataset.
// Types are inferred from a full scan of every data row. Empty cells become
// nil. A row whose width differs from the header is a data error, as is a
// payload without a header.
func ReadCSV(data []byte) (*Dataset, error) {
	return ReadCSVFrom(bytes.NewReader(data))
}

// ReadCSVFrom is ReadCSV over an io.Reader.
func ReadCSVFrom(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, etlerr.Errorf(etlerr.KindData, "dataset.read_csv", "payload has no header row")
	}
	if err != nil {
		return nil, etlerr.Data("dataset.read_csv", fmt.Errorf("header: %w", err))
	}
	headers = stripHeaderBOM(headers)

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.ErrFieldCount carries the line number; keep it visible.
			return nil, etlerr.Data("dataset.read_csv", err)
		}
		records = append(records, rec)
	}
	return FromRecords(headers, records)
}

// FromRecords builds a Dataset from a header and raw string records, inferring
// one type per column. Every header cell must name its column.
func FromRecords(headers []string, records [][]string) (*Dataset, error) {
	n := len(headers)
	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			return nil, etlerr.Errorf(etlerr.KindData, "dataset.from_records", "header column %d has no name", i+1)
		}
	}
	raw := make([][]string, n)
	for i := range raw {
		raw[i] = make([]string, 0, len(records))
	}
	for li, rec := range records {
		if len(rec) != n {
			return nil, etlerr.Errorf(etlerr.KindData, "dataset.from_records",
				"row %d has %d fields, header has %d", li+1, len(rec), n)
		}
		for i, v := range rec {
			raw[i] = append(raw[i], v)
		}
	}

	cols := make([]Column, n)
	for i, name := range headers {
		typ, layout := inferColumn(raw[i])
		vals := make([]any, len(raw[i]))
		for r, cell := range raw[i] {
			v, ok := convert(cell, typ, layout)
			if !ok {
				return nil, etlerr.Errorf(etlerr.KindData, "dataset.from_records",
					"row %d column %q: cannot parse %q as %s", r+1, name, cell, typ)
			}
			vals[r] = v
		}
		cols[i] = Column{Descriptor: Descriptor{Name: strings.TrimSpace(name), Type: typ}, Values: vals}
	}
	return New(cols...)
}

// stripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func stripHeaderBOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	return headers
}
