// Package fixture holds the read-only data a probe run is parameterized by: routes, credentials, expected error
// messages, and constants of the target application.
package fixture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/vaughan0/go-ini"
)

type Routes struct {
	Login     string
	Inventory string
}

type Credentials struct {
	Username string
	Password string
}

type Errors struct {
	// NotLoggedIn must contain the $LOCATION placeholder.
	NotLoggedIn     Template
	InvalidUsername string
	InvalidPassword string
	NoUsername      string
	NoPassword      string
	LockedOut       string
}

type Constants struct {
	SessionCookie string
	ErrorClass    string
}

type Fixture struct {
	Routes      Routes
	Credentials Credentials
	Errors      Errors
	Constants   Constants
}

// URL joins base and route the way the browser reports the resulting location.
func URL(base, route string) string {
	return strings.TrimRight(base, "/") + route
}

// DeniedMessage is the message expected when route is requested without a session.
func (f *Fixture) DeniedMessage(route string) (string, error) {
	return f.Errors.NotLoggedIn.Expand(map[string]string{Location: route})
}

func (f *Fixture) Validate() error {
	var missing []string
	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	check("routes.login", f.Routes.Login)
	check("routes.inventory", f.Routes.Inventory)
	check("credentials.username", f.Credentials.Username)
	check("credentials.password", f.Credentials.Password)
	check("errors.not_logged_in", string(f.Errors.NotLoggedIn))
	check("errors.invalid_username", f.Errors.InvalidUsername)
	check("errors.invalid_password", f.Errors.InvalidPassword)
	check("errors.no_username", f.Errors.NoUsername)
	check("errors.no_password", f.Errors.NoPassword)
	check("constants.session_cookie", f.Constants.SessionCookie)
	check("constants.error_class", f.Constants.ErrorClass)

	if len(missing) > 0 {
		return fmt.Errorf("fixture is missing %s", strings.Join(missing, ", "))
	}

	if !f.Errors.NotLoggedIn.Has(Location) {
		return fmt.Errorf("errors.not_logged_in must contain $%s", Location)
	}
	if names := f.Errors.NotLoggedIn.Placeholders(); len(names) != 1 {
		return fmt.Errorf("errors.not_logged_in may only contain $%s, found %s", Location, strings.Join(names, ", "))
	}

	return nil
}

// FromINI reads the [routes], [credentials], [errors] and [constants] sections.
func FromINI(conf ini.File) (*Fixture, error) {
	get := func(section, key string) string {
		v, _ := conf.Get(section, key)
		return v
	}

	f := &Fixture{
		Routes: Routes{
			Login:     get("routes", "login"),
			Inventory: get("routes", "inventory"),
		},
		Credentials: Credentials{
			Username: get("credentials", "username"),
			Password: get("credentials", "password"),
		},
		Errors: Errors{
			NotLoggedIn:     Template(get("errors", "not_logged_in")),
			InvalidUsername: get("errors", "invalid_username"),
			InvalidPassword: get("errors", "invalid_password"),
			NoUsername:      get("errors", "no_username"),
			NoPassword:      get("errors", "no_password"),
			LockedOut:       get("errors", "locked_out"),
		},
		Constants: Constants{
			SessionCookie: get("constants", "session_cookie"),
			ErrorClass:    get("constants", "error_class"),
		},
	}

	err := f.Validate()
	if err != nil {
		return nil, err
	}
	return f, nil
}

func LoadFile(path string) (*Fixture, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("Invalid fixture path: %v", err)
	}

	conf, err := ini.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to load fixture file: %v", err)
	}

	return FromINI(conf)
}

// LoadDir reads a directory laid out like Cypress fixtures: credentials.json, routes.json, errors.json and
// constants.json, each a flat object of upper case keys.
func LoadDir(dir string) (*Fixture, error) {
	var credentials struct {
		Username string `json:"VALID_USERNAME"`
		Password string `json:"VALID_PASSWORD"`
	}
	var routes struct {
		Login     string `json:"LOGIN"`
		Inventory string `json:"INVENTORY"`
	}
	var messages struct {
		NotLoggedIn     string `json:"NOT_LOGGED_IN"`
		InvalidUsername string `json:"INVALID_USERNAME"`
		InvalidPassword string `json:"INVALID_PASSWORD"`
		NoUsername      string `json:"NO_USERNAME"`
		NoPassword      string `json:"NO_PASSWORD"`
		LockedOut       string `json:"LOCKED_OUT"`
	}
	var constants struct {
		SessionCookie string `json:"SESSION_USERNAME"`
		ErrorClass    string `json:"ERROR_CLASS"`
	}

	files := []struct {
		name string
		dest any
	}{
		{"credentials.json", &credentials},
		{"routes.json", &routes},
		{"errors.json", &messages},
		{"constants.json", &constants},
	}
	for _, file := range files {
		buf, err := os.ReadFile(filepath.Join(dir, file.name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("fixture directory %s has no %s", dir, file.name)
			}
			return nil, err
		}
		err = json.Unmarshal(buf, file.dest)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", file.name, err)
		}
	}

	f := &Fixture{
		Routes:      Routes{Login: routes.Login, Inventory: routes.Inventory},
		Credentials: Credentials{Username: credentials.Username, Password: credentials.Password},
		Errors: Errors{
			NotLoggedIn:     Template(messages.NotLoggedIn),
			InvalidUsername: messages.InvalidUsername,
			InvalidPassword: messages.InvalidPassword,
			NoUsername:      messages.NoUsername,
			NoPassword:      messages.NoPassword,
			LockedOut:       messages.LockedOut,
		},
		Constants: Constants{SessionCookie: constants.SessionCookie, ErrorClass: constants.ErrorClass},
	}

	err := f.Validate()
	if err != nil {
		return nil, err
	}
	return f, nil
}
