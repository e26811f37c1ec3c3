// Package roddriver implements driver.Page on a real Chrome instance through go-rod.
package roddriver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/jackc/sessionprobe/driver"
	log "gopkg.in/inconshreveable/log15.v2"
)

const urlPollInterval = 50 * time.Millisecond

type Config struct {
	// ControlURL is the DevTools websocket of an already running browser. When empty a browser is launched.
	ControlURL string
	Timeout    time.Duration
	Logger     log.Logger
}

type Browser struct {
	browser *rod.Browser
	timeout time.Duration
	logger  log.Logger
}

func Launch(config Config) (*Browser, error) {
	browser := rod.New()
	if config.ControlURL != "" {
		browser = browser.ControlURL(config.ControlURL)
	}
	err := browser.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to browser failed: %w", err)
	}

	return Wrap(browser, config), nil
}

// Wrap adopts an already connected rod browser.
func Wrap(browser *rod.Browser, config Config) *Browser {
	timeout := 2 * time.Second
	if config.Timeout != 0 {
		timeout = config.Timeout
	}

	logger := config.Logger
	if logger == nil {
		logger = log.New()
		logger.SetHandler(log.DiscardHandler())
	}

	return &Browser{browser: browser, timeout: timeout, logger: logger}
}

// NewPage opens a page in its own incognito context so that no two pages share cookies or history.
func (b *Browser) NewPage() (*Page, error) {
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		incognito.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Page{page: page, incognito: incognito, timeout: b.timeout, logger: b.logger}, nil
}

func (b *Browser) Close() error {
	return b.browser.Close()
}

// Page implements driver.Page.
type Page struct {
	page      *rod.Page
	incognito *rod.Browser
	timeout   time.Duration
	logger    log.Logger
}

// NewPage wraps an existing rod page. The caller remains responsible for the page's browser context.
func NewPage(page *rod.Page, timeout time.Duration, logger log.Logger) *Page {
	if logger == nil {
		logger = log.New()
		logger.SetHandler(log.DiscardHandler())
	}
	return &Page{page: page, timeout: timeout, logger: logger}
}

// RodPage exposes the underlying rod page for checks that need raw DevTools access.
func (p *Page) RodPage() *rod.Page {
	return p.page
}

func (p *Page) timed() *rod.Page {
	return p.page.Timeout(p.timeout)
}

func (p *Page) Find(selector string) (driver.Element, error) {
	el, err := p.timed().Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", selector, driver.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find %s: %w", selector, err)
	}
	return &element{el: el, page: p}, nil
}

func (p *Page) FindAll(selector string) ([]driver.Element, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", selector, err)
	}

	result := make([]driver.Element, 0, len(els))
	for _, el := range els {
		result = append(result, &element{el: el, page: p})
	}
	return result, nil
}

func (p *Page) settle(action string) (string, error) {
	err := p.timed().WaitLoad()
	if err != nil {
		return "", fmt.Errorf("%s: failed waiting for load: %w", action, err)
	}

	url, err := p.URL()
	if err != nil {
		return "", err
	}
	p.logger.Debug("navigated", "action", action, "url", url)
	return url, nil
}

func (p *Page) Visit(url string) (string, error) {
	err := p.timed().Navigate(url)
	if err != nil {
		return "", fmt.Errorf("failed to visit %s: %w", url, err)
	}
	return p.settle("visit")
}

func (p *Page) Reload() (string, error) {
	err := p.timed().Reload()
	if err != nil {
		return "", fmt.Errorf("failed to reload: %w", err)
	}
	return p.settle("reload")
}

func (p *Page) GoBack() (string, error) {
	err := p.timed().NavigateBack()
	if err != nil {
		return "", fmt.Errorf("failed to go back: %w", err)
	}
	return p.settle("back")
}

func (p *Page) URL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return info.URL, nil
}

func (p *Page) WaitURL(match func(url string) bool) (string, error) {
	deadline := time.Now().Add(p.timeout)
	for {
		url, err := p.URL()
		if err != nil {
			return "", err
		}
		if match(url) || time.Now().After(deadline) {
			return url, nil
		}
		time.Sleep(urlPollInterval)
	}
}

func (p *Page) Cookie(name string) (*driver.Cookie, error) {
	cookies, err := p.Cookies()
	if err != nil {
		return nil, err
	}
	for i := range cookies {
		if cookies[i].Name == name {
			return &cookies[i], nil
		}
	}
	return nil, nil
}

func (p *Page) Cookies() ([]driver.Cookie, error) {
	cookies, err := p.page.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	result := make([]driver.Cookie, 0, len(cookies))
	for _, c := range cookies {
		dc := driver.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Session: c.Session,
		}
		if !c.Session && c.Expires > 0 {
			dc.Expires = time.Unix(0, int64(float64(c.Expires)*float64(time.Second)))
		}
		result = append(result, dc)
	}
	return result, nil
}

func (p *Page) SetCookies(cookies []driver.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	var currentURL string
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		}
		if c.Domain == "" {
			if currentURL == "" {
				var err error
				currentURL, err = p.URL()
				if err != nil {
					return err
				}
			}
			param.URL = currentURL
		}
		if c.HasExpiry() {
			param.Expires = proto.TimeSinceEpoch(float64(c.Expires.UnixNano()) / float64(time.Second))
		}
		params = append(params, param)
	}

	err := p.page.SetCookies(params)
	if err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

func (p *Page) Close() error {
	err := p.page.Close()
	if p.incognito != nil {
		closeErr := p.incognito.Close()
		if err == nil {
			err = closeErr
		}
	}
	return err
}

type element struct {
	el   *rod.Element
	page *Page
}

func (e *element) timed() *rod.Element {
	return e.el.Timeout(e.page.timeout)
}

func (e *element) Clear() error {
	el := e.timed()
	err := el.Focus()
	if err != nil {
		return fmt.Errorf("failed to focus element: %w", err)
	}
	err = el.SelectAllText()
	if err != nil {
		return fmt.Errorf("failed to select text: %w", err)
	}
	err = e.page.page.Keyboard.Type(input.Backspace)
	if err != nil {
		return fmt.Errorf("failed to clear text: %w", err)
	}
	return nil
}

func (e *element) Type(text string) error {
	if text == "" {
		return nil
	}
	err := e.timed().Input(text)
	if err != nil {
		return fmt.Errorf("failed to input text: %w", err)
	}
	return nil
}

func (e *element) Click() error {
	err := e.timed().Click(proto.InputMouseButtonLeft, 1)
	if err != nil {
		return fmt.Errorf("failed to click element: %w", err)
	}
	return nil
}

func (e *element) Text() (string, error) {
	text, err := e.timed().Text()
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return text, nil
}

func (e *element) Attribute(name string) (string, bool, error) {
	value, err := e.el.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("failed to read attribute %s: %w", name, err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (e *element) HasClass(class string) (bool, error) {
	obj, err := e.el.Eval(`function(c) { return this.classList.contains(c) }`, class)
	if err != nil {
		return false, fmt.Errorf("failed to read class list: %w", err)
	}
	return obj.Value.Bool(), nil
}

func (e *element) Parent() (driver.Element, error) {
	parent, err := e.el.Parent()
	if err != nil {
		return nil, fmt.Errorf("failed to find parent: %w", err)
	}
	return &element{el: parent, page: e.page}, nil
}

func (e *element) Focus() error {
	err := e.timed().Focus()
	if err != nil {
		return fmt.Errorf("failed to focus element: %w", err)
	}
	return nil
}

func (e *element) Focused() (bool, error) {
	obj, err := e.el.Eval(`function() { return this === document.activeElement }`)
	if err != nil {
		return false, fmt.Errorf("failed to read focus: %w", err)
	}
	return obj.Value.Bool(), nil
}

func (e *element) Press(key driver.Key) error {
	var k input.Key
	switch key {
	case driver.KeyTab:
		k = input.Tab
	case driver.KeyEnter:
		k = input.Enter
	default:
		return fmt.Errorf("%v: %w", key, driver.ErrUnsupported)
	}

	err := e.Focus()
	if err != nil {
		return err
	}

	err = e.page.page.Keyboard.Type(k)
	if err != nil {
		return fmt.Errorf("failed to press %v: %w", key, err)
	}
	return nil
}
