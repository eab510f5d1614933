package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"ngx_scraper/pkg/headless"
)

// DefaultNextLinkText is the visible text of the pagination control.
const DefaultNextLinkText = "Next"

var (
	// ErrNoNextPage means the current page has no pagination control. It ends
	// a run normally.
	ErrNoNextPage = errors.New("no next page")
	// ErrNavigation means the pagination control could not be activated.
	ErrNavigation = errors.New("navigation failed")
	// ErrSessionClosed is returned by operations issued without an open session.
	ErrSessionClosed = errors.New("browser session is not open")
)

// Browser is the subset of a headless session the price list needs.
// *headless.Session implements it.
type Browser interface {
	Navigate(url string) error
	Sleep(d time.Duration) error
	DocumentHTML() (string, error)
	HasLink(text string) (bool, error)
	ScrollLinkIntoView(text string) error
	ClickLink(text string) error
	Close() error
}

// Launcher starts a new browser session.
type Launcher func(ctx context.Context) (Browser, error)

// HeadlessLauncher launches Chrome through chromedp with the given options.
func HeadlessLauncher(o headless.Options) Launcher {
	return func(ctx context.Context) (Browser, error) {
		s, err := headless.Launch(ctx, o)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// PriceListRepository drives a browser through the paginated price list.
// It holds at most one session at a time and must not be shared between
// concurrent runs.
type PriceListRepository interface {
	Open(ctx context.Context, url string) error
	WaitForRender(ctx context.Context, d time.Duration) error
	Content(ctx context.Context) (io.Reader, error)
	Advance(ctx context.Context, page int) error
	Close() error
}

// priceListRepositoryImpl is the browser-backed implementation.
type priceListRepositoryImpl struct {
	launch   Launcher
	nextText string
	browser  Browser
	logger   *slog.Logger
}

// NewPriceListRepository creates a repository that opens sessions with launch
// and paginates by clicking the link labelled nextText.
func NewPriceListRepository(launch Launcher, nextText string, logger *slog.Logger) PriceListRepository {
	if nextText == "" {
		nextText = DefaultNextLinkText
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &priceListRepositoryImpl{
		launch:   launch,
		nextText: nextText,
		logger:   logger.With("component", "render"),
	}
}

// Open launches a session and navigates to url. On failure the partially
// opened session stays attached so Close can release it.
func (r *priceListRepositoryImpl) Open(ctx context.Context, url string) error {
	if r.browser != nil {
		return errors.New("browser session already open")
	}
	b, err := r.launch(ctx)
	if err != nil {
		return fmt.Errorf("could not launch browser: %w", err)
	}
	r.browser = b
	return b.Navigate(url)
}

// WaitForRender gives client-side rendering a fixed amount of time.
func (r *priceListRepositoryImpl) WaitForRender(ctx context.Context, d time.Duration) error {
	if r.browser == nil {
		return ErrSessionClosed
	}
	return r.browser.Sleep(d)
}

// Content returns the rendered document of the current page.
func (r *priceListRepositoryImpl) Content(ctx context.Context) (io.Reader, error) {
	if r.browser == nil {
		return nil, ErrSessionClosed
	}
	doc, err := r.browser.DocumentHTML()
	if err != nil {
		return nil, err
	}
	return strings.NewReader(doc), nil
}

// Advance moves from page to page+1 by clicking the pagination link.
// It returns ErrNoNextPage when there is no link and an error wrapping
// ErrNavigation when the click fails twice.
func (r *priceListRepositoryImpl) Advance(ctx context.Context, page int) error {
	if r.browser == nil {
		return ErrSessionClosed
	}

	found, err := r.browser.HasLink(r.nextText)
	if err != nil {
		return fmt.Errorf("%w: page %d: %w", ErrNavigation, page, err)
	}
	if !found {
		return ErrNoNextPage
	}

	if err := r.browser.ScrollLinkIntoView(r.nextText); err != nil {
		if errors.Is(err, headless.ErrLinkNotFound) {
			return ErrNoNextPage
		}
		return fmt.Errorf("%w: page %d: %w", ErrNavigation, page, err)
	}

	err = r.browser.ClickLink(r.nextText)
	if errors.Is(err, headless.ErrClickIntercepted) {
		r.logger.Warn("next link click was intercepted, retrying", "page", page, "error", err)
		err = r.browser.ClickLink(r.nextText)
	}
	if err != nil {
		return fmt.Errorf("%w: page %d: %w", ErrNavigation, page, err)
	}
	return nil
}

// Close releases the session. It is a no-op when no session is open.
func (r *priceListRepositoryImpl) Close() error {
	if r.browser == nil {
		return nil
	}
	b := r.browser
	r.browser = nil
	if err := b.Close(); err != nil {
		return fmt.Errorf("could not close browser: %w", err)
	}
	return nil
}
