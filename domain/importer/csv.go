package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ReadRecords reads every CSV record from r. Records may have differing
// lengths and leading spaces in fields are dropped.
func ReadRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(records)+1, err)
		}
		records = append(records, record)
	}
}

// ReadCSV reads a headed CSV into one map per record, keyed by header.
func ReadCSV(r io.Reader) ([]map[string]string, error) {
	records, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
