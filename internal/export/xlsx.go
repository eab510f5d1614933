package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ngx_scraper/internal/models"
)

const sheetName = "Sheet1"

// WriteXLSX renders snapshot as a single-sheet workbook with the same column
// layout as WriteCSV.
func WriteXLSX(w io.Writer, snapshot *models.Snapshot) error {
	headers := snapshot.Headers()
	if len(headers) == 0 {
		return errors.New("snapshot has no records")
	}

	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, rec := range snapshot.Records {
		row := make([]interface{}, len(headers))
		for j, h := range headers {
			v, _ := rec.Get(h)
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("could not write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}
