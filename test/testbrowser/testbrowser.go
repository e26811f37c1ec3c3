package testbrowser

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/jackc/sessionprobe/driver"
	"github.com/jackc/sessionprobe/driver/roddriver"
	"golang.org/x/sync/semaphore"
	log "gopkg.in/inconshreveable/log15.v2"
)

type Manager struct {
	browser *roddriver.Browser
	sem     *semaphore.Weighted

	Timeout time.Duration
}

type ManagerConfig struct {
	MaxConcurrentTests int64
	Timeout            time.Duration
	Logger             log.Logger
}

func NewManager(config ManagerConfig) (*Manager, error) {
	browser := rod.New()
	err := browser.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to browser failed: %w", err)
	}

	maxConcurrentTests := int64(1)
	if config.MaxConcurrentTests != 0 {
		maxConcurrentTests = config.MaxConcurrentTests
	} else if n, err := strconv.ParseInt(os.Getenv("TESTBROWSER_MAX_CONCURRENT_TESTS"), 10, 32); err == nil {
		maxConcurrentTests = n
	}
	if maxConcurrentTests <= 0 {
		return nil, fmt.Errorf("invalid MaxConcurrentTests: %v", maxConcurrentTests)
	}

	timeout := 2 * time.Second
	if config.Timeout != 0 {
		timeout = config.Timeout
	}

	manager := &Manager{
		browser: roddriver.Wrap(browser, roddriver.Config{Timeout: timeout, Logger: config.Logger}),
		sem:     semaphore.NewWeighted(maxConcurrentTests),
		Timeout: timeout,
	}

	return manager, nil
}

// Acquire returns a Browser. Resources are automatically cleaned up at the end of the test.
func (m *Manager) Acquire(t testing.TB) *Browser {
	err := m.sem.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { m.sem.Release(1) })

	return &Browser{t: t, browser: m.browser}
}

func (m *Manager) Close() error {
	return m.browser.Close()
}

type Browser struct {
	t       testing.TB
	browser *roddriver.Browser
}

// NewPage opens an isolated page the caller must close. It has the shape of scenario.PageFactory.
func (b *Browser) NewPage() (driver.Page, error) {
	return b.browser.NewPage()
}

// Page opens an isolated page that is closed at the end of the test.
func (b *Browser) Page() *Page {
	page, err := b.browser.NewPage()
	if err != nil {
		b.t.Fatal(err)
	}
	b.t.Cleanup(func() { page.Close() })

	return &Page{t: b.t, Page: page}
}

type Page struct {
	t testing.TB
	*roddriver.Page
}

func (p *Page) MustVisit(url string) {
	p.t.Helper()

	_, err := p.Visit(url)
	if err != nil {
		p.t.Fatalf("failed to visit %s: %v", url, err)
	}
}

func (p *Page) ClickOn(selector string) {
	p.t.Helper()

	el, err := p.Find(selector)
	if err != nil {
		p.t.Fatalf("failed to find clickable element: %s", selector)
	}

	err = el.Click()
	if err != nil {
		p.t.Fatalf("failed to click element: %v", err)
	}
}

func (p *Page) FillIn(selector string, content string) {
	p.t.Helper()

	el, err := p.Find(selector)
	if err != nil {
		p.t.Fatalf("failed to find input %q: %v", selector, err)
	}

	err = el.Clear()
	if err != nil {
		p.t.Fatalf("failed to clear %q: %v", selector, err)
	}

	err = el.Type(content)
	if err != nil {
		p.t.Fatalf("failed to input text for %q: %v", selector, err)
	}
}

func (p *Page) HasContent(selector, substr string) {
	p.t.Helper()

	el, err := p.Find(selector)
	if err != nil {
		p.t.Fatalf("failed to find element by selector %q", selector)
	}

	text, err := el.Text()
	if err != nil {
		p.t.Fatalf("failed to read text of %q: %v", selector, err)
	}
	if !strings.Contains(text, substr) {
		p.t.Fatalf("element %q has text %q, expected it to contain %q", selector, text, substr)
	}
}
