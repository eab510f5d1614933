// Package export writes datasets to files served by the API.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ngx_scraper/internal/models"
)

// WriteCSV writes the header row (the first record's field order) followed by
// one row per record. Values are looked up by column name: a record missing a
// column gets an empty cell. It returns how many records carried fields that
// are not in the header and were therefore dropped.
func WriteCSV(w io.Writer, snapshot *models.Snapshot) (int, error) {
	headers := snapshot.Headers()
	if len(headers) == 0 {
		return 0, errors.New("snapshot has no records")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return 0, err
	}

	mismatched := 0
	row := make([]string, len(headers))
	for _, rec := range snapshot.Records {
		matched := 0
		for i, h := range headers {
			v, ok := rec.Get(h)
			if ok {
				matched++
			}
			row[i] = v
		}
		if matched < rec.Len() {
			mismatched++
		}
		if err := cw.Write(row); err != nil {
			return mismatched, err
		}
	}
	cw.Flush()
	return mismatched, cw.Error()
}

// WriteCSVFile replaces path with the CSV form of snapshot. The file is written
// next to path and renamed over it, so the previous file survives any failure.
func WriteCSVFile(path string, snapshot *models.Snapshot) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("could not create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	mismatched, err := WriteCSV(tmp, snapshot)
	if err != nil {
		tmp.Close()
		return mismatched, fmt.Errorf("could not write CSV: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return mismatched, fmt.Errorf("could not write CSV: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return mismatched, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return mismatched, fmt.Errorf("could not replace %s: %w", path, err)
	}
	return mismatched, nil
}

// ReadCSVFile loads a CSV file written by WriteCSVFile. The snapshot has no run
// ID and takes the file's modification time as its scrape time.
func ReadCSVFile(path string) (*models.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(f)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	if len(rows) < 2 {
		return &models.Snapshot{ScrapedAt: info.ModTime()}, nil
	}

	headers := rows[0]
	records := make([]models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, models.NewRecord(headers, row))
	}
	return &models.Snapshot{
		ScrapedAt: info.ModTime(),
		Records:   records,
	}, nil
}
