// Package htmldriver implements driver.Page over plain HTTP. Documents are parsed but never scripted, so it suits
// server rendered targets. Every action settles before it returns.
package htmldriver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/jackc/sessionprobe/driver"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
	log "gopkg.in/inconshreveable/log15.v2"
)

const blankURL = "about:blank"

var errStaleElement = errors.New("element is no longer attached to the page")

type Config struct {
	Timeout time.Duration
	Logger  log.Logger
	// Transport is used for requests when set. Tests point it at an httptest server.
	Transport http.RoundTripper
}

type Page struct {
	client *http.Client
	jar    *cookiejar.Jar
	meta   *cookieMeta
	logger log.Logger

	doc        *html.Node
	url        *url.URL
	generation int
	history    []string
	values     map[*html.Node]string
	focused    *html.Node
}

func NewPage(config Config) (*Page, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := 10 * time.Second
	if config.Timeout != 0 {
		timeout = config.Timeout
	}

	transport := config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	logger := config.Logger
	if logger == nil {
		logger = log.New()
		logger.SetHandler(log.DiscardHandler())
	}

	meta := newCookieMeta()
	page := &Page{
		client: &http.Client{
			Transport: &recordingTransport{next: transport, meta: meta},
			Jar:       jar,
			Timeout:   timeout,
		},
		jar:    jar,
		meta:   meta,
		logger: logger,
		values: make(map[*html.Node]string),
	}

	return page, nil
}

func (p *Page) load(method, target string, form url.Values) error {
	u, err := p.resolve(target)
	if err != nil {
		return err
	}

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(form.Encode())
	} else if form != nil {
		u.RawQuery = form.Encode()
	}

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return err
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, u, err)
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", resp.Request.URL, err)
	}

	p.doc = doc
	p.url = resp.Request.URL
	p.generation++
	p.values = make(map[*html.Node]string)
	p.focused = nil

	p.logger.Debug("loaded", "method", method, "url", p.url.String(), "status", resp.StatusCode)
	return nil
}

func (p *Page) resolve(target string) (*url.URL, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("bad url %q: %w", target, err)
	}
	if p.url == nil {
		if !ref.IsAbs() {
			return nil, fmt.Errorf("relative url %q with no current page", target)
		}
		return ref, nil
	}
	return p.url.ResolveReference(ref), nil
}

func (p *Page) navigate(method, target string, form url.Values) (string, error) {
	err := p.load(method, target, form)
	if err != nil {
		return "", err
	}
	p.history = append(p.history, p.url.String())
	return p.url.String(), nil
}

func (p *Page) Visit(target string) (string, error) {
	return p.navigate(http.MethodGet, target, nil)
}

func (p *Page) Reload() (string, error) {
	if p.url == nil {
		return blankURL, nil
	}
	err := p.load(http.MethodGet, p.url.String(), nil)
	if err != nil {
		return "", err
	}
	p.history[len(p.history)-1] = p.url.String()
	return p.url.String(), nil
}

func (p *Page) GoBack() (string, error) {
	if len(p.history) < 2 {
		return p.URL()
	}
	p.history = p.history[:len(p.history)-1]
	err := p.load(http.MethodGet, p.history[len(p.history)-1], nil)
	if err != nil {
		return "", err
	}
	p.history[len(p.history)-1] = p.url.String()
	return p.url.String(), nil
}

func (p *Page) URL() (string, error) {
	if p.url == nil {
		return blankURL, nil
	}
	return p.url.String(), nil
}

func (p *Page) WaitURL(match func(url string) bool) (string, error) {
	return p.URL()
}

func (p *Page) Find(selector string) (driver.Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("bad selector %q: %w", selector, err)
	}
	if p.doc == nil {
		return nil, fmt.Errorf("%s: %w", selector, driver.ErrNotFound)
	}

	node := sel.MatchFirst(p.doc)
	if node == nil {
		return nil, fmt.Errorf("%s: %w", selector, driver.ErrNotFound)
	}
	return p.element(node), nil
}

func (p *Page) FindAll(selector string) ([]driver.Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("bad selector %q: %w", selector, err)
	}
	if p.doc == nil {
		return nil, nil
	}

	nodes := sel.MatchAll(p.doc)
	elements := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, p.element(n))
	}
	return elements, nil
}

func (p *Page) element(n *html.Node) *element {
	return &element{node: n, page: p, generation: p.generation}
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

// Cookies returns the cookies the jar would send to the current URL. The jar decides visibility; expiry comes from
// the Set-Cookie headers recorded on the way in.
func (p *Page) Cookies() ([]driver.Cookie, error) {
	if p.url == nil {
		return nil, nil
	}

	visible := p.jar.Cookies(p.url)
	cookies := make([]driver.Cookie, 0, len(visible))
	for _, c := range visible {
		cookies = append(cookies, p.meta.describe(c.Name, c.Value, p.url))
	}
	return cookies, nil
}

func (p *Page) SetCookies(cookies []driver.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	if p.url == nil {
		return errors.New("cannot set cookies before visiting a page")
	}

	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc := &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path}
		if c.Domain != "" && c.Domain != p.url.Hostname() {
			hc.Domain = c.Domain
		}
		if c.HasExpiry() {
			hc.Expires = c.Expires
		}
		httpCookies = append(httpCookies, hc)
	}

	p.jar.SetCookies(p.url, httpCookies)
	p.meta.record(p.url, httpCookies)
	return nil
}

func (p *Page) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// submit sends form the way a browser would for an implicit or explicit submission. submitter is the control that
// triggered it, if any.
func (p *Page) submit(form, submitter *html.Node) error {
	method := strings.ToUpper(attr(form, "method"))
	if method != http.MethodPost {
		method = http.MethodGet
	}

	action := attr(form, "action")
	if action == "" {
		action = p.url.String()
	}

	values := url.Values{}
	walk(form, func(n *html.Node) {
		name := attr(n, "name")
		if name == "" || hasAttr(n, "disabled") {
			return
		}

		switch n.Data {
		case "input":
			switch strings.ToLower(attr(n, "type")) {
			case "submit", "button", "image", "reset":
				if n == submitter {
					values.Add(name, attr(n, "value"))
				}
			case "checkbox", "radio":
				if hasAttr(n, "checked") {
					value := attr(n, "value")
					if value == "" {
						value = "on"
					}
					values.Add(name, value)
				}
			default:
				values.Add(name, p.value(n))
			}
		case "textarea":
			values.Add(name, p.value(n))
		case "button":
			if n == submitter {
				values.Add(name, attr(n, "value"))
			}
		}
	})

	_, err := p.navigate(method, action, values)
	return err
}

func (p *Page) value(n *html.Node) string {
	if v, ok := p.values[n]; ok {
		return v
	}
	if n.Data == "textarea" {
		return textContent(n)
	}
	return attr(n, "value")
}

func (p *Page) focusable() []*html.Node {
	var nodes []*html.Node
	walk(p.doc, func(n *html.Node) {
		if isFocusable(n) {
			nodes = append(nodes, n)
		}
	})
	return nodes
}

type element struct {
	node       *html.Node
	page       *Page
	generation int
}

func (e *element) attached() error {
	if e.generation != e.page.generation {
		return errStaleElement
	}
	return nil
}

func (e *element) editable() error {
	err := e.attached()
	if err != nil {
		return err
	}
	if e.node.Data != "input" && e.node.Data != "textarea" {
		return fmt.Errorf("<%s> is not editable", e.node.Data)
	}
	return nil
}

func (e *element) Clear() error {
	err := e.editable()
	if err != nil {
		return err
	}
	e.page.values[e.node] = ""
	e.page.focused = e.node
	return nil
}

func (e *element) Type(text string) error {
	err := e.editable()
	if err != nil {
		return err
	}
	e.page.values[e.node] = e.page.value(e.node) + text
	e.page.focused = e.node
	return nil
}

func (e *element) Click() error {
	err := e.attached()
	if err != nil {
		return err
	}

	n := e.node
	if isFocusable(n) {
		e.page.focused = n
	}

	switch {
	case isSubmitControl(n):
		form := enclosingForm(n)
		if form == nil {
			return nil
		}
		return e.page.submit(form, n)
	case n.Data == "a" && hasAttr(n, "href"):
		_, err := e.page.navigate(http.MethodGet, attr(n, "href"), nil)
		return err
	}

	e.page.logger.Debug("click without effect", "element", n.Data, "id", attr(n, "id"))
	return nil
}

func (e *element) Text() (string, error) {
	err := e.attached()
	if err != nil {
		return "", err
	}
	return textContent(e.node), nil
}

func (e *element) Attribute(name string) (string, bool, error) {
	err := e.attached()
	if err != nil {
		return "", false, err
	}
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

func (e *element) HasClass(class string) (bool, error) {
	err := e.attached()
	if err != nil {
		return false, err
	}
	for _, c := range strings.Fields(attr(e.node, "class")) {
		if c == class {
			return true, nil
		}
	}
	return false, nil
}

func (e *element) Parent() (driver.Element, error) {
	err := e.attached()
	if err != nil {
		return nil, err
	}
	parent := e.node.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return nil, fmt.Errorf("parent of <%s>: %w", e.node.Data, driver.ErrNotFound)
	}
	return e.page.element(parent), nil
}

func (e *element) Focus() error {
	err := e.attached()
	if err != nil {
		return err
	}
	if !isFocusable(e.node) {
		return fmt.Errorf("<%s> is not focusable", e.node.Data)
	}
	e.page.focused = e.node
	return nil
}

func (e *element) Focused() (bool, error) {
	err := e.attached()
	if err != nil {
		return false, err
	}
	return e.page.focused == e.node, nil
}

func (e *element) Press(key driver.Key) error {
	err := e.Focus()
	if err != nil {
		return err
	}

	switch key {
	case driver.KeyTab:
		nodes := e.page.focusable()
		for i, n := range nodes {
			if n == e.node {
				if i+1 < len(nodes) {
					e.page.focused = nodes[i+1]
				} else {
					e.page.focused = nil
				}
				return nil
			}
		}
		return nil
	case driver.KeyEnter:
		if isSubmitControl(e.node) || e.node.Data == "a" {
			return e.Click()
		}
		if e.node.Data == "input" {
			form := enclosingForm(e.node)
			if form == nil {
				return nil
			}
			return e.page.submit(form, firstSubmitControl(form))
		}
		return nil
	default:
		return fmt.Errorf("%v: %w", key, driver.ErrUnsupported)
	}
}
