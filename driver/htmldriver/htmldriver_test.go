package htmldriver_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/sessionprobe/driver"
	"github.com/jackc/sessionprobe/driver/htmldriver"
	"github.com/stretchr/testify/require"
)

const formPage = `<!DOCTYPE html>
<html><body>
<form method="post" action="/submit">
  <input type="text" name="name" data-test="name" value="preset">
  <input type="password" name="secret" data-test="secret">
  <input type="hidden" name="token" value="t1">
  <input type="submit" name="go" value="Go" data-test="go">
</form>
<a id="next" href="/next">Next</a>
<div class="box error"><h3 data-test="msg"> <span>Hello</span> world </h3></div>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, formPage)
	})
	r.Post("/submit", func(w http.ResponseWriter, req *http.Request) {
		req.ParseForm()
		fmt.Fprintf(w, `<p id="result">name=%s secret=%s token=%s go=%s</p>`,
			req.PostFormValue("name"), req.PostFormValue("secret"), req.PostFormValue("token"), req.PostFormValue("go"))
	})
	r.Get("/next", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `<p id="page">next</p>`)
	})
	r.Get("/set", func(w http.ResponseWriter, req *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "persistent", Value: "p", Path: "/", Expires: time.Now().Add(time.Hour)})
		http.SetCookie(w, &http.Cookie{Name: "transient", Value: "t", Path: "/"})
		http.Redirect(w, req, "/next", http.StatusSeeOther)
	})
	r.Get("/clear", func(w http.ResponseWriter, req *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "persistent", Path: "/", MaxAge: -1})
		fmt.Fprint(w, `<p>cleared</p>`)
	})
	r.Get("/count", func(w http.ResponseWriter, req *http.Request) {
		c, _ := req.Cookie("restored")
		value := ""
		if c != nil {
			value = c.Value
		}
		fmt.Fprintf(w, `<p id="restored">%s</p>`, value)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func newPage(t *testing.T, server *httptest.Server) *htmldriver.Page {
	page, err := htmldriver.NewPage(htmldriver.Config{Transport: server.Client().Transport})
	require.NoError(t, err)
	t.Cleanup(func() { page.Close() })
	return page
}

func text(t *testing.T, dom driver.DOM, selector string) string {
	el, err := dom.Find(selector)
	require.NoError(t, err)
	s, err := el.Text()
	require.NoError(t, err)
	return s
}

func TestBlankPage(t *testing.T) {
	page, err := htmldriver.NewPage(htmldriver.Config{})
	require.NoError(t, err)

	url, err := page.URL()
	require.NoError(t, err)
	require.Equal(t, "about:blank", url)

	_, err = page.Find("form")
	require.ErrorIs(t, err, driver.ErrNotFound)

	cookie, err := page.Cookie("anything")
	require.NoError(t, err)
	require.Nil(t, cookie)
}

func TestFindAndText(t *testing.T) {
	server := newServer(t)
	page := newPage(t, server)

	url, err := page.Visit(server.URL + "/")
	require.NoError(t, err)
	require.Equal(t, server.URL+"/", url)

	require.Equal(t, "Hello world", text(t, page, driver.TestID("msg")))

	_, err = page.Find("#missing")
	require.ErrorIs(t, err, driver.ErrNotFound)

	inputs, err := page.FindAll("input")
	require.NoError(t, err)
	require.Len(t, inputs, 4)

	msg, err := page.Find(driver.TestID("msg"))
	require.NoError(t, err)
	parent, err := msg.Parent()
	require.NoError(t, err)
	hasClass, err := parent.HasClass("error")
	require.NoError(t, err)
	require.True(t, hasClass)
	hasClass, err = parent.HasClass("err")
	require.NoError(t, err)
	require.False(t, hasClass)

	secret, err := page.Find(driver.TestID("secret"))
	require.NoError(t, err)
	value, ok, err := secret.Attribute("type")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "password", value)
	_, ok, err = secret.Attribute("aria-label")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFormSubmission(t *testing.T) {
	server := newServer(t)
	page := newPage(t, server)

	_, err := page.Visit(server.URL + "/")
	require.NoError(t, err)

	name, err := page.Find(driver.TestID("name"))
	require.NoError(t, err)
	require.NoError(t, name.Clear())
	require.NoError(t, name.Type("jack"))

	secret, err := page.Find(driver.TestID("secret"))
	require.NoError(t, err)
	require.NoError(t, secret.Type("pw"))

	submit, err := page.Find(driver.TestID("go"))
	require.NoError(t, err)
	require.NoError(t, submit.Click())

	url, err := page.URL()
	require.NoError(t, err)
	require.Equal(t, server.URL+"/submit", url)
	require.Equal(t, "name=jack secret=pw token=t1 go=Go", text(t, page, "#result"))

	// Elements from the previous document are detached.
	require.Error(t, name.Type("x"))
}

func TestEnterSubmitsWithDefaultButton(t *testing.T) {
	server := newServer(t)
	page := newPage(t, server)

	_, err := page.Visit(server.URL + "/")
	require.NoError(t, err)

	secret, err := page.Find(driver.TestID("secret"))
	require.NoError(t, err)
	require.NoError(t, secret.Type("pw"))
	require.NoError(t, secret.Press(driver.KeyEnter))

	require.Equal(t, "name=preset secret=pw token=t1 go=Go", text(t, page, "#result"))
}

func TestTabMovesFocusInDocumentOrder(t *testing.T) {
	server := newServer(t)
	page := newPage(t, server)

	_, err := page.Visit(server.URL + "/")
	require.NoError(t, err)

	name, err := page.Find(driver.TestID("name"))
	require.NoError(t, err)
	secret, err := page.Find(driver.TestID("secret"))
	require.NoError(t, err)
	submit, err := page.Find(driver.TestID("go"))
	require.NoError(t, err)

	require.NoError(t, name.Press(driver.KeyTab))
	focused, err := secret.Focused()
	require.NoError(t, err)
	require.True(t, focused)

	// The hidden input is skipped.
	require.NoError(t, secret.Press(driver.KeyTab))
	focused, err = submit.Focused()
	require.NoError(t, err)
	require.True(t, focused)
}

func TestNavigationHistory(t *testing.T) {
	server := newServer(t)
	page := newPage(t, server)

	_, err := page.Visit(server.URL + "/")
	require.NoError(t, err)

	link, err := page.Find("#next")
	require.NoError(t, err)
	require.NoError(t, link.Click())

	url, err := page.URL()
	require.NoError(t, err)
	require.Equal(t, server.URL+"/next", url)

	url, err = page.Reload()
	require.NoError(t, err)
	require.Equal(t, server.URL+"/next", url)

	url, err = page.GoBack()
	require.NoError(t, err)
	require.Equal(t, server.URL+"/", url)

	url, err = page.WaitURL(func(string) bool { return true })
	require.NoError(t, err)
	require.Equal(t, server.URL+"/", url)
}

func TestCookieExpiryIsRecorded(t *testing.T) {
	server := newServer(t)
	page := newPage(t, server)

	url, err := page.Visit(server.URL + "/set")
	require.NoError(t, err)
	require.Equal(t, server.URL+"/next", url)

	persistent, err := page.Cookie("persistent")
	require.NoError(t, err)
	require.NotNil(t, persistent)
	require.Equal(t, "p", persistent.Value)
	require.True(t, persistent.HasExpiry())
	require.WithinDuration(t, time.Now().Add(time.Hour), persistent.Expires, time.Minute)

	transient, err := page.Cookie("transient")
	require.NoError(t, err)
	require.NotNil(t, transient)
	require.False(t, transient.HasExpiry())

	_, err = page.Visit(server.URL + "/clear")
	require.NoError(t, err)

	persistent, err = page.Cookie("persistent")
	require.NoError(t, err)
	require.Nil(t, persistent)
}

func TestSetCookies(t *testing.T) {
	server := newServer(t)
	page := newPage(t, server)

	require.Error(t, page.SetCookies([]driver.Cookie{{Name: "restored", Value: "r"}}))

	_, err := page.Visit(server.URL + "/count")
	require.NoError(t, err)

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	err = page.SetCookies([]driver.Cookie{{Name: "restored", Value: "r", Path: "/", Expires: expires}})
	require.NoError(t, err)

	_, err = page.Reload()
	require.NoError(t, err)
	require.Equal(t, "r", text(t, page, "#restored"))

	cookie, err := page.Cookie("restored")
	require.NoError(t, err)
	require.NotNil(t, cookie)
	require.True(t, cookie.Expires.Equal(expires))
}

func TestPagesAreIsolated(t *testing.T) {
	server := newServer(t)
	first := newPage(t, server)
	second := newPage(t, server)

	_, err := first.Visit(server.URL + "/set")
	require.NoError(t, err)

	_, err = second.Visit(server.URL + "/next")
	require.NoError(t, err)

	cookies, err := second.Cookies()
	require.NoError(t, err)
	require.Empty(t, cookies)
}
