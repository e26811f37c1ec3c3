// Package driver defines the capabilities the probe needs from a browser: DOM queries, navigation, and cookie
// inspection. Implementations live in the roddriver and htmldriver subpackages.
package driver

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by DOM.Find when no element matches the selector.
var ErrNotFound = errors.New("element not found")

// ErrUnsupported is returned when a driver cannot perform a requested action.
var ErrUnsupported = errors.New("not supported by driver")

type Key int

const (
	KeyTab Key = iota
	KeyEnter
)

func (k Key) String() string {
	switch k {
	case KeyTab:
		return "Tab"
	case KeyEnter:
		return "Enter"
	default:
		return fmt.Sprintf("Key(%d)", int(k))
	}
}

type Element interface {
	// Clear removes the content of an input.
	Clear() error
	// Type appends text to an input.
	Type(text string) error
	Click() error
	Text() (string, error)
	// Attribute returns the value of the named attribute and whether it is present.
	Attribute(name string) (string, bool, error)
	HasClass(class string) (bool, error)
	Parent() (Element, error)
	Focus() error
	Focused() (bool, error)
	// Press sends key to the element. The element is focused first.
	Press(key Key) error
}

type DOM interface {
	Find(selector string) (Element, error)
	FindAll(selector string) ([]Element, error)
}

// Navigator methods return the URL of the page after the navigation settles.
type Navigator interface {
	Visit(url string) (string, error)
	Reload() (string, error)
	GoBack() (string, error)
	URL() (string, error)
	// WaitURL returns the current URL once match accepts it, or the last URL seen when the driver's wait time runs
	// out. Drivers whose actions settle synchronously return the current URL immediately.
	WaitURL(match func(url string) bool) (string, error)
}

type Cookie struct {
	Name    string
	Value   string
	Domain  string
	Path    string
	Expires time.Time
	Session bool
}

// HasExpiry reports whether the cookie outlives the browser session.
func (c *Cookie) HasExpiry() bool {
	return !c.Session && !c.Expires.IsZero()
}

type CookieJar interface {
	// Cookie returns nil and no error when no cookie with name is visible to the current page.
	Cookie(name string) (*Cookie, error)
	Cookies() ([]Cookie, error)
	SetCookies(cookies []Cookie) error
}

type Page interface {
	DOM
	Navigator
	CookieJar
	Close() error
}

// TestID returns the selector for an element carrying a data-test attribute.
func TestID(id string) string {
	return fmt.Sprintf(`[data-test="%s"]`, id)
}
