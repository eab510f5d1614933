// Package testutil holds in-memory doubles shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"time"

	"ngx_scraper/internal/repository"
)

// FakeBrowser serves a fixed list of rendered pages. Page numbers are 1-based.
// A "Next" link exists on every page except the last one and pages listed in
// NoNextOn.
type FakeBrowser struct {
	Pages       []string
	NoNextOn    map[int]bool
	ClickErrs   map[int][]error
	ContentErrs map[int]error
	NavigateErr error

	URL        string
	Page       int
	Clicks     int
	Sleeps     []time.Duration
	CloseCalls int
}

// Launcher returns a launcher that hands out this browser.
func (f *FakeBrowser) Launcher() repository.Launcher {
	return func(ctx context.Context) (repository.Browser, error) {
		return f, nil
	}
}

// FailingLauncher returns a launcher that always fails with err.
func FailingLauncher(err error) repository.Launcher {
	return func(ctx context.Context) (repository.Browser, error) {
		return nil, err
	}
}

func (f *FakeBrowser) Navigate(url string) error {
	if f.NavigateErr != nil {
		return f.NavigateErr
	}
	f.URL = url
	f.Page = 1
	return nil
}

func (f *FakeBrowser) Sleep(d time.Duration) error {
	f.Sleeps = append(f.Sleeps, d)
	return nil
}

func (f *FakeBrowser) DocumentHTML() (string, error) {
	if err := f.ContentErrs[f.Page]; err != nil {
		return "", err
	}
	if f.Page < 1 || f.Page > len(f.Pages) {
		return "", fmt.Errorf("no page %d", f.Page)
	}
	return f.Pages[f.Page-1], nil
}

func (f *FakeBrowser) HasLink(text string) (bool, error) {
	return f.Page < len(f.Pages) && !f.NoNextOn[f.Page], nil
}

func (f *FakeBrowser) ScrollLinkIntoView(text string) error {
	return nil
}

func (f *FakeBrowser) ClickLink(text string) error {
	f.Clicks++
	if errs := f.ClickErrs[f.Page]; len(errs) > 0 {
		f.ClickErrs[f.Page] = errs[1:]
		if errs[0] != nil {
			return errs[0]
		}
	}
	f.Page++
	return nil
}

func (f *FakeBrowser) Close() error {
	f.CloseCalls++
	return nil
}

// PriceTable renders a price list page with a header section and body rows.
func PriceTable(headers []string, rows ...[]string) string {
	page := `<html><body><div id="content"><table><thead><tr>`
	for _, h := range headers {
		page += "<th>" + h + "</th>"
	}
	page += "</tr></thead><tbody>"
	for _, row := range rows {
		page += "<tr>"
		for _, cell := range row {
			page += "<td>" + cell + "</td>"
		}
		page += "</tr>"
	}
	return page + `</tbody></table><a href="#">Next</a></div></body></html>`
}
