package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"ngx_scraper/internal/models"
)

// DefaultContentID is the id of the region expected to hold the price table.
const DefaultContentID = "content"

var spaceRe = regexp.MustCompile(`\s+`)

// TableParser extracts table rows from a rendered page.
type TableParser interface {
	ParseRecords(ctx context.Context, reader io.Reader) ([]models.Record, error)
}

// tableParser locates the first table inside the content region and turns
// its body rows into records keyed by the table's headers.
type tableParser struct {
	contentID string
	logger    *slog.Logger
}

// NewTableParser creates a parser for tables inside the element with contentID.
func NewTableParser(contentID string, logger *slog.Logger) TableParser {
	if contentID == "" {
		contentID = DefaultContentID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &tableParser{
		contentID: contentID,
		logger:    logger.With("component", "parser"),
	}
}

// ParseRecords parses the page HTML and extracts one record per valid body row.
// Missing structure (content region, table, headers) yields an empty result,
// not an error.
func (p *tableParser) ParseRecords(ctx context.Context, reader io.Reader) ([]models.Record, error) {
	doc, err := html.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	content := goquery.NewDocumentFromNode(doc).Find(fmt.Sprintf("[id=%q]", p.contentID)).First()
	if content.Length() == 0 {
		p.logger.Info("content element not found", "id", p.contentID)
		return nil, nil
	}

	table := content.Find("table").First()
	if table.Length() == 0 {
		p.logger.Info("table not found inside the content element", "id", p.contentID)
		return nil, nil
	}

	headers, headerRow := tableHeaders(table)
	if len(headers) == 0 {
		p.logger.Info("could not extract table headers")
		return nil, nil
	}

	var records []models.Record
	bodyRows(table, headerRow).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() == 0 || cells.Length() < len(headers) {
			return
		}
		records = append(records, models.NewRecord(headers, cellTexts(cells)))
	})

	return records, nil
}

// tableHeaders prefers the thead header cells and falls back to the first
// row's cells. When the fallback is used the row is returned so it can be
// left out of the body.
func tableHeaders(table *goquery.Selection) ([]string, *goquery.Selection) {
	if thead := table.Find("thead").First(); thead.Length() > 0 {
		if headers := cellTexts(thead.Find("th")); len(headers) > 0 {
			return headers, nil
		}
	}

	first := table.Find("tr").First()
	if first.Length() == 0 {
		return nil, nil
	}
	cells := first.ChildrenFiltered("td")
	if cells.Length() == 0 {
		cells = first.ChildrenFiltered("th")
	}
	return cellTexts(cells), first
}

// bodyRows prefers tbody rows and otherwise takes every row but the first.
// The fallback header row never counts as a body row, since HTML parsing
// wraps bare rows in an implicit tbody.
func bodyRows(table *goquery.Selection, headerRow *goquery.Selection) *goquery.Selection {
	var rows *goquery.Selection
	if tbody := table.Find("tbody").First(); tbody.Length() > 0 {
		rows = tbody.Find("tr")
	} else if all := table.Find("tr"); all.Length() > 1 {
		rows = all.Slice(1, goquery.ToEnd)
	} else {
		return table.Find("tr").Slice(0, 0)
	}

	if headerRow == nil || headerRow.Length() == 0 {
		return rows
	}
	headerNode := headerRow.Get(0)
	return rows.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Get(0) != headerNode
	})
}

func cellTexts(cells *goquery.Selection) []string {
	texts := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		texts = append(texts, condense(cell.Text()))
	})
	return texts
}

func condense(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
