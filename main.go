package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/jackc/sessionprobe/demoapp"
	"github.com/jackc/sessionprobe/scenario"
	"github.com/jackc/sessionprobe/session"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli"
)

const version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "sessionprobe"
	app.Usage = "Black-box checks of a web application's login, session and logout behavior"
	app.Version = version

	app.Commands = []cli.Command{
		{
			Name:        "check",
			Aliases:     []string{"c"},
			Usage:       "run the checks against a target",
			Description: "run the login, session and logout checks against the target named in the config",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "config, c", Value: "sessionprobe.conf", Usage: "path to config file"},
				cli.StringFlag{Name: "base-url, u", Usage: "base URL of the target"},
				cli.StringFlag{Name: "driver, d", Value: "rod", Usage: "rod (Chrome) or html (plain HTTP)"},
				cli.StringFlag{Name: "control-url", Usage: "DevTools URL of a running browser"},
				cli.StringFlag{Name: "fixture-dir", Usage: "directory of Cypress-style JSON fixtures"},
				cli.StringFlag{Name: "timeout, t", Usage: "how long to wait for elements and navigation"},
				cli.StringFlag{Name: "run, r", Usage: "only run checks whose group/name matches this regexp"},
				cli.BoolFlag{Name: "no-color", Usage: "do not style the report"},
			},
			Action: Check,
		},
		{
			Name:   "scenarios",
			Usage:  "list the checks",
			Flags:  []cli.Flag{cli.StringFlag{Name: "run, r", Usage: "only list checks matching this regexp"}},
			Action: ListScenarios,
		},
		{
			Name:        "demo",
			Usage:       "serve the demo app",
			Description: "serve a small login site the checks pass against",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "address, a", Value: "127.0.0.1", Usage: "address to listen on"},
				cli.StringFlag{Name: "port, p", Value: "3000", Usage: "port to listen on"},
				cli.StringFlag{Name: "config, c", Value: "sessionprobe.conf", Usage: "path to config file"},
			},
			Action: Demo,
		},
		{
			Name:      "add-user",
			Usage:     "add a user to the demo app database",
			ArgsUsage: "username",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "config, c", Value: "sessionprobe.conf", Usage: "path to config file"},
				cli.StringFlag{Name: "password, p", Usage: "password to set"},
				cli.BoolFlag{Name: "locked", Usage: "create the user locked out"},
			},
			Action: AddUser,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func Check(c *cli.Context) error {
	conf, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	logger, err := newLogger(conf)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	targetConfig, err := loadTargetConfig(c, conf)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	f, err := loadFixture(targetConfig, conf)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	scenarios, err := scenario.Filter(scenario.Catalog(), c.String("run"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	newPage, closeDriver, err := newPageFactory(targetConfig, logger)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer closeDriver()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := &scenario.Runner{
		NewPage: newPage,
		Fixture: f,
		BaseURL: targetConfig.baseURL,
		Logger:  logger.New("module", "runner"),
		Cache:   session.NewCache(logger.New("module", "cache")),
	}

	report, runErr := runner.Run(ctx, scenarios)
	if report != nil {
		color := !c.Bool("no-color") && isatty.IsTerminal(os.Stdout.Fd())
		err = report.Write(os.Stdout, color)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
	}
	if runErr != nil {
		return cli.NewExitError(runErr, 1)
	}
	if report.Failed() {
		return cli.NewExitError("", 1)
	}

	return nil
}

func ListScenarios(c *cli.Context) error {
	scenarios, err := scenario.Filter(scenario.Catalog(), c.String("run"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	for _, s := range scenarios {
		if s.NotApplicable != "" {
			fmt.Printf("%s (n/a: %s)\n", s.FullName(), s.NotApplicable)
		} else {
			fmt.Println(s.FullName())
		}
	}

	return nil
}

func Demo(c *cli.Context) error {
	conf, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	logger, err := newLogger(conf)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	demoConfig, err := loadDemoConfig(c, conf)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	ctx := context.Background()
	store, closeStore, err := newUserStore(ctx, demoConfig, conf, logger)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer closeStore()

	err = demoapp.Seed(ctx, store, demoapp.DefaultUsers)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	handler := demoapp.NewServer(demoapp.ServerConfig{
		SessionTTL:    demoConfig.sessionTTL,
		TestEndpoints: demoConfig.testEndpoints,
	}, store, logger.New("module", "http"))

	listenAt := fmt.Sprintf("%s:%s", demoConfig.listenAddress, demoConfig.listenPort)
	fmt.Printf("Starting to listen on: %s\n", listenAt)

	if err := http.ListenAndServe(listenAt, handler); err != nil {
		return cli.NewExitError(fmt.Sprintf("Could not start web server: %v", err), 1)
	}

	return nil
}

func AddUser(c *cli.Context) error {
	if len(c.Args()) != 1 {
		cli.ShowCommandHelp(c, c.Command.Name)
		return cli.NewExitError("", 1)
	}

	name := c.Args()[0]

	conf, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	logger, err := newLogger(conf)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	password := c.String("password")
	if password == "" {
		return cli.NewExitError("--password is required", 1)
	}

	ctx := context.Background()
	pool, err := openPool(ctx, conf, logger)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer pool.Close()

	store := demoapp.NewPGUserStore(pool)
	err = store.Migrate(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	user, err := demoapp.NewUser(name, password, c.Bool("locked"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	err = store.CreateUser(ctx, user)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	fmt.Println("User:", name)

	return nil
}
