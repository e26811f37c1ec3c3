package htmldriver

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jackc/sessionprobe/driver"
)

// cookieMeta remembers the attributes net/http/cookiejar keeps to itself.
type cookieMeta struct {
	mutex   sync.Mutex
	entries map[string]cookieEntry
}

type cookieEntry struct {
	domain  string
	path    string
	expires time.Time
}

func newCookieMeta() *cookieMeta {
	return &cookieMeta{entries: make(map[string]cookieEntry)}
}

func metaKey(name, domain string) string {
	return name + "@" + domain
}

func (m *cookieMeta) record(u *url.URL, cookies []*http.Cookie) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	for _, c := range cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			domain = u.Hostname()
		}
		key := metaKey(c.Name, domain)

		switch {
		case c.MaxAge < 0:
			delete(m.entries, key)
		case c.MaxAge > 0:
			m.entries[key] = cookieEntry{domain: domain, path: c.Path, expires: now.Add(time.Duration(c.MaxAge) * time.Second)}
		case !c.Expires.IsZero() && !c.Expires.After(now):
			delete(m.entries, key)
		default:
			m.entries[key] = cookieEntry{domain: domain, path: c.Path, expires: c.Expires}
		}
	}
}

func (m *cookieMeta) describe(name, value string, u *url.URL) driver.Cookie {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cookie := driver.Cookie{Name: name, Value: value, Domain: u.Hostname(), Path: "/", Session: true}

	host := u.Hostname()
	for {
		if entry, ok := m.entries[metaKey(name, host)]; ok {
			cookie.Domain = entry.domain
			if entry.path != "" {
				cookie.Path = entry.path
			}
			if !entry.expires.IsZero() {
				cookie.Expires = entry.expires
				cookie.Session = false
			}
			break
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}

	return cookie
}

type recordingTransport struct {
	next http.RoundTripper
	meta *cookieMeta
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if cookies := resp.Cookies(); len(cookies) > 0 {
		t.meta.record(req.URL, cookies)
	}
	return resp, nil
}
