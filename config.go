package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/sessionprobe/demoapp"
	"github.com/jackc/sessionprobe/driver"
	"github.com/jackc/sessionprobe/driver/htmldriver"
	"github.com/jackc/sessionprobe/driver/roddriver"
	"github.com/jackc/sessionprobe/fixture"
	"github.com/jackc/sessionprobe/scenario"
	"github.com/urfave/cli"
	"github.com/vaughan0/go-ini"
	log "gopkg.in/inconshreveable/log15.v2"
)

type targetConfig struct {
	baseURL    string
	driver     string
	timeout    time.Duration
	controlURL string
	fixtureDir string
}

type demoConfig struct {
	listenAddress string
	listenPort    string
	database      string
	sessionTTL    time.Duration
	testEndpoints bool
}

func loadConfig(path string) (ini.File, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("Invalid config path: %v", err)
	}

	file, err := ini.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to load config file: %v", err)
	}

	return file, nil
}

func newLogger(conf ini.File) (log.Logger, error) {
	level, _ := conf.Get("log", "level")
	if level == "" {
		level = "warn"
	}

	logger := log.New()
	err := setFilterHandler(level, logger, log.StderrHandler)
	if err != nil {
		return nil, err
	}

	return logger, nil
}

func setFilterHandler(level string, logger log.Logger, handler log.Handler) error {
	if level == "none" {
		logger.SetHandler(log.DiscardHandler())
		return nil
	}

	lvl, err := log.LvlFromString(level)
	if err != nil {
		return fmt.Errorf("Bad log level: %v", err)
	}
	logger.SetHandler(log.LvlFilterHandler(lvl, handler))

	return nil
}

func parseDuration(s, name string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("Bad %s: %v", name, err)
	}
	return d, nil
}

func loadTargetConfig(c *cli.Context, conf ini.File) (targetConfig, error) {
	config := targetConfig{
		baseURL:    c.String("base-url"),
		driver:     c.String("driver"),
		controlURL: c.String("control-url"),
		fixtureDir: c.String("fixture-dir"),
	}

	var ok bool
	if !c.IsSet("base-url") {
		if config.baseURL, ok = conf.Get("target", "base_url"); !ok {
			return config, errors.New("Missing target base_url")
		}
	}

	if !c.IsSet("driver") {
		if d, ok := conf.Get("target", "driver"); ok {
			config.driver = d
		}
	}
	if config.driver != "rod" && config.driver != "html" {
		return config, fmt.Errorf("Unknown driver %q, expected rod or html", config.driver)
	}

	if !c.IsSet("control-url") {
		config.controlURL, _ = conf.Get("target", "control_url")
	}

	timeout := c.String("timeout")
	if !c.IsSet("timeout") {
		if t, ok := conf.Get("target", "timeout"); ok {
			timeout = t
		}
	}
	if timeout != "" {
		var err error
		config.timeout, err = parseDuration(timeout, "timeout")
		if err != nil {
			return config, err
		}
	}

	return config, nil
}

// loadFixture reads the fixture from the Cypress-style directory when one is given and from the config file
// otherwise.
func loadFixture(config targetConfig, conf ini.File) (*fixture.Fixture, error) {
	if config.fixtureDir != "" {
		return fixture.LoadDir(config.fixtureDir)
	}
	return fixture.FromINI(conf)
}

// newPageFactory returns the page factory for the configured driver and a function releasing the driver's resources.
func newPageFactory(config targetConfig, logger log.Logger) (scenario.PageFactory, func() error, error) {
	logger = logger.New("module", "driver", "driver", config.driver)

	switch config.driver {
	case "rod":
		browser, err := roddriver.Launch(roddriver.Config{
			ControlURL: config.controlURL,
			Timeout:    config.timeout,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		factory := func() (driver.Page, error) { return browser.NewPage() }
		return factory, browser.Close, nil
	case "html":
		factory := func() (driver.Page, error) {
			return htmldriver.NewPage(htmldriver.Config{Timeout: config.timeout, Logger: logger})
		}
		return factory, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("Unknown driver %q", config.driver)
	}
}

func loadDemoConfig(c *cli.Context, conf ini.File) (demoConfig, error) {
	config := demoConfig{}
	config.listenAddress = c.String("address")
	config.listenPort = c.String("port")

	if !c.IsSet("address") {
		if address, ok := conf.Get("demo", "address"); ok {
			config.listenAddress = address
		}
	}

	if !c.IsSet("port") {
		if port, ok := conf.Get("demo", "port"); ok {
			config.listenPort = port
		}
	}

	config.database, _ = conf.Get("demo", "database")

	if ttl, ok := conf.Get("demo", "session_ttl"); ok {
		var err error
		config.sessionTTL, err = parseDuration(ttl, "session_ttl")
		if err != nil {
			return config, err
		}
	}

	if s, ok := conf.Get("demo", "test_endpoints"); ok {
		var err error
		config.testEndpoints, err = strconv.ParseBool(s)
		if err != nil {
			return config, fmt.Errorf("Bad test_endpoints: %v", err)
		}
	}

	return config, nil
}

// newUserStore returns the postgres store when the config names a database and an in-memory store otherwise. The
// returned function closes any pool that was opened.
func newUserStore(ctx context.Context, config demoConfig, conf ini.File, logger log.Logger) (demoapp.UserStore, func(), error) {
	if config.database == "" {
		return demoapp.NewMemoryUserStore(), func() {}, nil
	}

	pgxLevel, _ := conf.Get("log", "pgx_level")
	pool, err := demoapp.NewPool(ctx, config.database, logger, pgxLevel)
	if err != nil {
		return nil, nil, err
	}

	store := demoapp.NewPGUserStore(pool)
	err = store.Migrate(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("Failed to migrate database: %v", err)
	}

	return store, pool.Close, nil
}

// openPool is used by commands that only talk to the database.
func openPool(ctx context.Context, conf ini.File, logger log.Logger) (*pgxpool.Pool, error) {
	database, ok := conf.Get("demo", "database")
	if !ok || database == "" {
		return nil, errors.New("Config must contain demo.database but it does not")
	}

	pgxLevel, _ := conf.Get("log", "pgx_level")
	return demoapp.NewPool(ctx, database, logger, pgxLevel)
}
