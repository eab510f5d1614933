package headless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DataHenHQ/useragent"
	"github.com/chromedp/chromedp"
)

// Default settings for headless browser operation.
const (
	DefaultActionTimeout = 30 * time.Second
)

var (
	// ErrLinkNotFound is returned when no link carries the requested text.
	ErrLinkNotFound = errors.New("link not found")
	// ErrClickIntercepted is returned when the page rejected a click on the link.
	ErrClickIntercepted = errors.New("click intercepted")
)

// Options controls how the browser process is launched.
type Options struct {
	Headless bool
	// ActionTimeout bounds each individual browser operation, not the session.
	ActionTimeout time.Duration
	UserAgent     string
	Logger        *slog.Logger
}

// Session is a single headless Chrome instance with one tab. It is not safe
// for concurrent use.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	timeout time.Duration
	logger  *slog.Logger
}

// Launch starts a browser process. The returned session owns it until Close.
func Launch(parentCtx context.Context, o Options) (*Session, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "headless")

	ua := o.UserAgent
	if ua == "" {
		var err error
		ua, err = useragent.Desktop()
		if err != nil {
			return nil, fmt.Errorf("could not generate random UA: %w", err)
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(ua),
		chromedp.Flag("headless", o.Headless),
		chromedp.WindowSize(1920, 1080),

		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("no-first-run", true),

		// needed in Docker
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parentCtx, opts...)
	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	s := &Session{
		ctx:     chromeCtx,
		cancels: []context.CancelFunc{chromeCancel, cancelAlloc},
		timeout: o.ActionTimeout,
		logger:  logger,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultActionTimeout
	}

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(chromeCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("could not start browser: %w", err)
	}
	return s, nil
}

func (s *Session) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads url in the session's tab.
func (s *Session) Navigate(url string) error {
	if err := s.run(chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("could not navigate to '%s': %w", url, err)
	}
	return nil
}

// Sleep blocks for d. It is a plain delay: no readiness signal is awaited.
func (s *Session) Sleep(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return chromedp.Run(s.ctx, chromedp.Sleep(d))
}

// DocumentHTML returns the outer HTML of the whole rendered document.
func (s *Session) DocumentHTML() (string, error) {
	var doc string
	if err := s.run(chromedp.OuterHTML("html", &doc, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read document HTML: %w", err)
	}
	return doc, nil
}

// HasLink reports whether a link with the exact visible text exists.
func (s *Session) HasLink(text string) (bool, error) {
	var found bool
	if err := s.run(chromedp.Evaluate(linkScript(text, `return el !== null;`), &found)); err != nil {
		return false, fmt.Errorf("failed to look up link %q: %w", text, err)
	}
	return found, nil
}

// ScrollLinkIntoView scrolls the link with the given text into the viewport.
func (s *Session) ScrollLinkIntoView(text string) error {
	var status string
	body := `if (el === null) { return "missing"; } el.scrollIntoView(true); return "ok";`
	if err := s.run(chromedp.Evaluate(linkScript(text, body), &status)); err != nil {
		return fmt.Errorf("failed to scroll to link %q: %w", text, err)
	}
	if status == "missing" {
		return fmt.Errorf("%w: %q", ErrLinkNotFound, text)
	}
	return nil
}

// ClickLink activates the link through the DOM (element.click()) rather than
// a synthesized mouse event, so overlapping elements cannot swallow it.
func (s *Session) ClickLink(text string) error {
	var status string
	body := `if (el === null) { return "missing"; }
		try { el.click(); return "ok"; } catch (e) { return "error: " + e; }`
	if err := s.run(chromedp.Evaluate(linkScript(text, body), &status)); err != nil {
		return fmt.Errorf("failed to click link %q: %w", text, err)
	}
	switch {
	case status == "ok":
		return nil
	case status == "missing":
		return fmt.Errorf("%w: %q", ErrLinkNotFound, text)
	default:
		return fmt.Errorf("%w: %s", ErrClickIntercepted, strings.TrimPrefix(status, "error: "))
	}
}

// Close shuts down the tab and the browser process. It is safe to call more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	return nil
}

// linkScript wraps body in a function where `el` is the first anchor whose
// normalized visible text equals text, or null.
func linkScript(text, body string) string {
	xpath := fmt.Sprintf(`//a[normalize-space(.)=%s]`, xpathLiteral(text))
	quoted, _ := json.Marshal(xpath)
	return fmt.Sprintf(`(() => {
		const el = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		%s
	})()`, quoted, body)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
