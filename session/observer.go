// Package session verifies what authentication does to the browser as seen from outside: which URLs are reachable,
// the lifecycle of the session cookie, and whether navigation preserves the session.
package session

import (
	"fmt"
	"time"

	"github.com/jackc/sessionprobe/driver"
	"github.com/jackc/sessionprobe/fixture"
	"github.com/jackc/sessionprobe/verify"
	log "gopkg.in/inconshreveable/log15.v2"
)

// State is sampled from the browser after an action. It is never modified, only sampled again.
type State struct {
	CookiePresent bool
	CookieValue   string
	CookieExpiry  *time.Time
	URL           string
}

// ErrorConfirmer checks the message shown after an access or login failure. *authpage.LoginPage implements it.
type ErrorConfirmer interface {
	ConfirmError(expected string) error
}

// NavAction is a navigation that must not change authentication state.
type NavAction int

const (
	Back NavAction = iota
	RevisitLogin
	Reload
)

func (a NavAction) String() string {
	switch a {
	case Back:
		return "back"
	case RevisitLogin:
		return "revisit login"
	case Reload:
		return "reload"
	default:
		return fmt.Sprintf("NavAction(%d)", int(a))
	}
}

type Observer struct {
	nav     driver.Navigator
	jar     driver.CookieJar
	fixture *fixture.Fixture
	baseURL string
	logger  log.Logger
}

func NewObserver(nav driver.Navigator, jar driver.CookieJar, f *fixture.Fixture, baseURL string, logger log.Logger) *Observer {
	if logger == nil {
		logger = log.New()
		logger.SetHandler(log.DiscardHandler())
	}
	return &Observer{nav: nav, jar: jar, fixture: f, baseURL: baseURL, logger: logger}
}

func (o *Observer) LoginURL() string {
	return fixture.URL(o.baseURL, o.fixture.Routes.Login)
}

func (o *Observer) ProtectedURL() string {
	return fixture.URL(o.baseURL, o.fixture.Routes.Inventory)
}

func (o *Observer) Sample() (State, error) {
	var state State

	url, err := o.nav.URL()
	if err != nil {
		return state, err
	}
	state.URL = url

	cookie, err := o.jar.Cookie(o.fixture.Constants.SessionCookie)
	if err != nil {
		return state, err
	}
	if cookie != nil {
		state.CookiePresent = true
		state.CookieValue = cookie.Value
		if cookie.HasExpiry() {
			expires := cookie.Expires
			state.CookieExpiry = &expires
		}
	}

	o.logger.Debug("sampled session state", "url", state.URL, "cookie", state.CookiePresent)
	return state, nil
}

// ConfirmAccessDenied requests the protected route and checks that the browser is sent elsewhere with a message
// naming the route that was requested.
func (o *Observer) ConfirmAccessDenied(confirmer ErrorConfirmer) error {
	protected := o.ProtectedURL()

	_, err := o.nav.Visit(protected)
	if err != nil {
		return err
	}

	url, err := o.nav.WaitURL(func(u string) bool { return u != protected })
	if err != nil {
		return err
	}

	expected, err := o.fixture.DeniedMessage(o.fixture.Routes.Inventory)
	if err != nil {
		return err
	}

	urlErr := verify.NotEqual("url after requesting protected route", protected, url)

	msgErr := confirmer.ConfirmError(expected)
	if msgErr != nil && !verify.IsAssertion(msgErr) {
		return msgErr
	}

	return verify.All(urlErr, msgErr)
}

// ConfirmLanded checks the browser is exactly at the protected route.
func (o *Observer) ConfirmLanded() error {
	return o.confirmAt(o.ProtectedURL())
}

// ConfirmOnLogin checks the browser is exactly at the login route.
func (o *Observer) ConfirmOnLogin() error {
	return o.confirmAt(o.LoginURL())
}

func (o *Observer) confirmAt(expected string) error {
	url, err := o.nav.WaitURL(func(u string) bool { return u == expected })
	if err != nil {
		return err
	}
	return verify.Equal("url", expected, url)
}

// ConfirmSessionCookie checks the session cookie identifies username and outlives the browser session.
func (o *Observer) ConfirmSessionCookie(username string) error {
	state, err := o.Sample()
	if err != nil {
		return err
	}

	name := o.fixture.Constants.SessionCookie
	if !state.CookiePresent {
		return verify.True(fmt.Sprintf("cookie %s", name), false, "present", "absent")
	}

	return verify.All(
		verify.Equal(fmt.Sprintf("cookie %s value", name), username, state.CookieValue),
		verify.True(fmt.Sprintf("cookie %s expiry", name), state.CookieExpiry != nil, "set", "a session-only cookie"),
	)
}

// ConfirmCookieExpiry checks only that the session cookie carries an expiry.
func (o *Observer) ConfirmCookieExpiry() error {
	state, err := o.Sample()
	if err != nil {
		return err
	}

	name := o.fixture.Constants.SessionCookie
	if !state.CookiePresent {
		return verify.True(fmt.Sprintf("cookie %s", name), false, "present", "absent")
	}
	return verify.True(fmt.Sprintf("cookie %s expiry", name), state.CookieExpiry != nil, "set", "a session-only cookie")
}

// ConfirmCookieAbsent checks the session cookie is gone entirely. An empty cookie does not count as absent.
func (o *Observer) ConfirmCookieAbsent() error {
	state, err := o.Sample()
	if err != nil {
		return err
	}

	actual := "absent"
	if state.CookiePresent {
		actual = fmt.Sprintf("present with value %q", state.CookieValue)
	}
	return verify.True(fmt.Sprintf("cookie %s", o.fixture.Constants.SessionCookie), !state.CookiePresent, "absent", actual)
}

// Perform executes a navigation action.
func (o *Observer) Perform(action NavAction) error {
	var err error
	switch action {
	case Back:
		_, err = o.nav.GoBack()
	case RevisitLogin:
		_, err = o.nav.Visit(o.LoginURL())
	case Reload:
		_, err = o.nav.Reload()
	default:
		err = fmt.Errorf("unknown navigation action %v", action)
	}
	if err != nil {
		return fmt.Errorf("%v: %w", action, err)
	}
	return nil
}

// ConfirmPersists performs action and then checks the protected route is still reachable without logging in again.
func (o *Observer) ConfirmPersists(action NavAction) error {
	err := o.Perform(action)
	if err != nil {
		return err
	}
	return o.ConfirmReachable()
}

// ConfirmReachable requests the protected route and checks the browser stays there.
func (o *Observer) ConfirmReachable() error {
	_, err := o.nav.Visit(o.ProtectedURL())
	if err != nil {
		return err
	}
	return o.ConfirmLanded()
}
