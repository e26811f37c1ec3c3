// Package scenario runs the login, session and logout checks against a target one at a time, each in a fresh page.
package scenario

import (
	"fmt"
	"regexp"

	"github.com/jackc/sessionprobe/authpage"
	"github.com/jackc/sessionprobe/driver"
	"github.com/jackc/sessionprobe/fixture"
	"github.com/jackc/sessionprobe/session"
)

// Env is handed to each scenario. Page is fresh for every scenario and already showing the login route.
type Env struct {
	Page      driver.Page
	Login     *authpage.LoginPage
	Inventory *authpage.InventoryPage
	Observer  *session.Observer
	Fixture   *fixture.Fixture
	BaseURL   string
}

func (env *Env) Visit(route string) error {
	_, err := env.Page.Visit(fixture.URL(env.BaseURL, route))
	return err
}

type Scenario struct {
	Group string
	Name  string
	// Session names an authentication sequence from the runner's Sessions that is established before Run.
	Session string
	// NotApplicable explains why the check does not apply to the target. Such scenarios are reported but never run.
	NotApplicable string
	Run           func(env *Env) error
}

func (s Scenario) FullName() string {
	return s.Group + "/" + s.Name
}

// Filter returns the scenarios whose full name matches pattern. An empty pattern matches everything.
func Filter(scenarios []Scenario, pattern string) ([]Scenario, error) {
	if pattern == "" {
		return scenarios, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad scenario pattern: %w", err)
	}

	var matched []Scenario
	for _, s := range scenarios {
		if re.MatchString(s.FullName()) {
			matched = append(matched, s)
		}
	}
	return matched, nil
}
