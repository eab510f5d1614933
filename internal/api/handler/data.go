package handler

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"ngx_scraper/internal/dataset"
	"ngx_scraper/internal/export"
	"ngx_scraper/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Data returns a handler for GET /api/data: the current records as a JSON array.
func Data(store *dataset.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, store.Records())
	}
}

// CSV returns a handler for GET /api/csv serving the durable CSV file.
func CSV(csvPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := os.Stat(csvPath)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Msg: "CSV file not available yet"})
			return
		}
		if err != nil {
			slog.Error("stat csv file failed", "path", csvPath, "error", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Msg: "Could not read CSV file"})
			return
		}
		c.FileAttachment(csvPath, filepath.Base(csvPath))
	}
}

// XLSX returns a handler for GET /api/xlsx rendering the current dataset as a workbook.
func XLSX(store *dataset.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := store.Current()
		if snap == nil {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Msg: "No data scraped yet"})
			return
		}

		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, snap); err != nil {
			slog.Error("rendering xlsx failed", "run_id", snap.RunID, "error", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Msg: "Could not render workbook"})
			return
		}

		c.Header("Content-Disposition", `attachment; filename="equities_data.xlsx"`)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	}
}
