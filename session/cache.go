package session

import (
	"fmt"
	"sync"

	"github.com/jackc/sessionprobe/driver"
	log "gopkg.in/inconshreveable/log15.v2"
)

// Cache remembers the cookies left behind by named authentication sequences so later pages can skip the UI steps.
// Restoring a cached sequence is equivalent to running it again.
type Cache struct {
	mutex    sync.Mutex
	sessions map[string][]driver.Cookie
	logger   log.Logger
}

func NewCache(logger log.Logger) *Cache {
	if logger == nil {
		logger = log.New()
		logger.SetHandler(log.DiscardHandler())
	}
	return &Cache{sessions: make(map[string][]driver.Cookie), logger: logger}
}

// Establish runs setup the first time name is requested and records the cookies jar holds afterwards. Later calls
// load those cookies into jar instead of running setup. jar must already be at the target's origin.
func (c *Cache) Establish(name string, jar driver.CookieJar, setup func() error) error {
	c.mutex.Lock()
	cookies, ok := c.sessions[name]
	c.mutex.Unlock()

	if ok {
		err := jar.SetCookies(cookies)
		if err != nil {
			return fmt.Errorf("failed to restore session %s: %w", name, err)
		}
		c.logger.Debug("restored session", "session", name, "cookies", len(cookies))
		return nil
	}

	err := setup()
	if err != nil {
		return fmt.Errorf("session %s setup failed: %w", name, err)
	}

	cookies, err = jar.Cookies()
	if err != nil {
		return fmt.Errorf("failed to capture session %s: %w", name, err)
	}

	c.mutex.Lock()
	c.sessions[name] = cookies
	c.mutex.Unlock()

	c.logger.Debug("cached session", "session", name, "cookies", len(cookies))
	return nil
}

func (c *Cache) Has(name string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.sessions[name]
	return ok
}

func (c *Cache) Forget(name string) {
	c.mutex.Lock()
	delete(c.sessions, name)
	c.mutex.Unlock()
}
