package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ngx_scraper/internal/dataset"
)

// dashboardRow holds one record's values aligned to the dashboard headers.
type dashboardRow []string

// Dashboard returns a handler for GET / rendering the current dataset as a table.
func Dashboard(store *dataset.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := store.Current()
		headers := snap.Headers()

		var rows []dashboardRow
		var scrapedAt string
		if snap != nil {
			scrapedAt = snap.ScrapedAt.Format("2006-01-02 15:04:05 MST")
			rows = make([]dashboardRow, 0, len(snap.Records))
			for _, rec := range snap.Records {
				row := make(dashboardRow, len(headers))
				for i, h := range headers {
					row[i], _ = rec.Get(h)
				}
				rows = append(rows, row)
			}
		}

		c.HTML(http.StatusOK, "index.html", gin.H{
			"Headers":   headers,
			"Rows":      rows,
			"Count":     len(rows),
			"ScrapedAt": scrapedAt,
		})
	}
}
