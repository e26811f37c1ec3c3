package scenario

import (
	"fmt"

	"github.com/jackc/sessionprobe/driver"
	"github.com/jackc/sessionprobe/session"
	"github.com/jackc/sessionprobe/verify"
)

const (
	LoginSession  = "login"
	LogoutSession = "logout"
)

const (
	invalidUsername = "invalid_username"
	invalidPassword = "invalid_password"
)

// DefaultSessions are the cached authentication sequences the catalog refers to.
func DefaultSessions() map[string]func(env *Env) error {
	return map[string]func(env *Env) error{
		LoginSession: func(env *Env) error {
			err := env.Login.Login(env.Fixture.Credentials.Username, env.Fixture.Credentials.Password)
			if err != nil {
				return err
			}
			return env.Observer.ConfirmLanded()
		},
		LogoutSession: func(env *Env) error {
			err := env.Login.Login(env.Fixture.Credentials.Username, env.Fixture.Credentials.Password)
			if err != nil {
				return err
			}
			err = env.Observer.ConfirmLanded()
			if err != nil {
				return err
			}
			err = env.Inventory.Logout()
			if err != nil {
				return err
			}
			return env.Observer.ConfirmOnLogin()
		},
	}
}

// Catalog returns every check in the order they run.
func Catalog() []Scenario {
	var scenarios []Scenario
	scenarios = append(scenarios, loginPageScenarios()...)
	scenarios = append(scenarios, successfulLoginScenarios()...)
	scenarios = append(scenarios, stayLoggedInScenarios()...)
	scenarios = append(scenarios, failedLoginScenarios()...)
	scenarios = append(scenarios, logoutScenarios()...)
	scenarios = append(scenarios, securityScenarios()...)
	scenarios = append(scenarios, accessibilityScenarios()...)
	return scenarios
}

func loginPageScenarios() []Scenario {
	return []Scenario{
		{
			Group: "login page",
			Name:  "should contain all essential form elements",
			Run: func(env *Env) error {
				return env.Login.ConfirmFormPresent()
			},
		},
		{
			Group: "login page",
			Name:  "should not allow user to access restricted pages before login",
			Run: func(env *Env) error {
				return env.Observer.ConfirmAccessDenied(env.Login)
			},
		},
	}
}

func successfulLoginScenarios() []Scenario {
	return []Scenario{
		{
			Group: "successful login",
			Name:  "should redirect to the restricted page",
			Run: func(env *Env) error {
				err := env.Login.Login(env.Fixture.Credentials.Username, env.Fixture.Credentials.Password)
				if err != nil {
					return err
				}
				return env.Observer.ConfirmLanded()
			},
		},
		{
			Group:   "successful login",
			Name:    "should allow user to access restricted pages after login",
			Session: LoginSession,
			Run: func(env *Env) error {
				return env.Observer.ConfirmReachable()
			},
		},
		{
			Group:   "successful login",
			Name:    "should create a session cookie",
			Session: LoginSession,
			Run: func(env *Env) error {
				return env.Observer.ConfirmSessionCookie(env.Fixture.Credentials.Username)
			},
		},
	}
}

func stayLoggedInScenarios() []Scenario {
	persist := func(action session.NavAction) func(env *Env) error {
		return func(env *Env) error {
			if action == session.Back {
				err := env.Visit(env.Fixture.Routes.Inventory)
				if err != nil {
					return err
				}
			}
			return env.Observer.ConfirmPersists(action)
		}
	}

	return []Scenario{
		{
			Group:   "stay logged in",
			Name:    "should stay logged in if user clicks back",
			Session: LoginSession,
			Run:     persist(session.Back),
		},
		{
			Group:   "stay logged in",
			Name:    "should stay logged in if user enters a different url",
			Session: LoginSession,
			Run:     persist(session.RevisitLogin),
		},
		{
			Group:   "stay logged in",
			Name:    "should stay logged in if user reloads browser",
			Session: LoginSession,
			Run:     persist(session.Reload),
		},
	}
}

func failedLoginScenarios() []Scenario {
	// Every failed attempt leaves the browser on the login route with the form decorated as failed.
	failed := func(attempt func(env *Env) error, message func(env *Env) string) func(env *Env) error {
		return func(env *Env) error {
			err := attempt(env)
			if err != nil {
				return err
			}

			msgErr := env.Login.ConfirmError(message(env))
			if msgErr != nil && !verify.IsAssertion(msgErr) {
				return msgErr
			}

			urlErr := env.Observer.ConfirmOnLogin()
			if urlErr != nil && !verify.IsAssertion(urlErr) {
				return urlErr
			}

			fieldsErr := env.Login.ConfirmFieldsDecorated()
			if fieldsErr != nil && !verify.IsAssertion(fieldsErr) {
				return fieldsErr
			}

			return verify.All(msgErr, urlErr, fieldsErr)
		}
	}

	return []Scenario{
		{
			Group: "failed login",
			Name:  "should not log in with invalid username",
			Run: failed(
				func(env *Env) error {
					return env.Login.Login(invalidUsername, env.Fixture.Credentials.Password)
				},
				func(env *Env) string { return env.Fixture.Errors.InvalidUsername },
			),
		},
		{
			Group: "failed login",
			Name:  "should not log in with blank username",
			Run: failed(
				func(env *Env) error {
					err := env.Login.TypePassword(env.Fixture.Credentials.Password)
					if err != nil {
						return err
					}
					return env.Login.Submit()
				},
				func(env *Env) string { return env.Fixture.Errors.NoUsername },
			),
		},
		{
			Group: "failed login",
			Name:  "should not log in with invalid password",
			Run: failed(
				func(env *Env) error {
					return env.Login.Login(env.Fixture.Credentials.Username, invalidPassword)
				},
				func(env *Env) string { return env.Fixture.Errors.InvalidPassword },
			),
		},
		{
			Group: "failed login",
			Name:  "should not log in with blank password",
			Run: failed(
				func(env *Env) error {
					err := env.Login.TypeUsername(env.Fixture.Credentials.Username)
					if err != nil {
						return err
					}
					return env.Login.Submit()
				},
				func(env *Env) string { return env.Fixture.Errors.NoPassword },
			),
		},
	}
}

func logoutScenarios() []Scenario {
	return []Scenario{
		{
			Group:   "logout",
			Name:    "should remove session cookie",
			Session: LogoutSession,
			Run: func(env *Env) error {
				return env.Observer.ConfirmCookieAbsent()
			},
		},
		{
			Group:   "logout",
			Name:    "should not allow user to access restricted pages",
			Session: LogoutSession,
			Run: func(env *Env) error {
				return env.Observer.ConfirmAccessDenied(env.Login)
			},
		},
		{
			Group: "logout",
			Name:  "should leave nothing behind across repeated login and logout",
			Run: func(env *Env) error {
				for i := 0; i < 3; i++ {
					err := loginLogoutCycle(env)
					if err != nil {
						return fmt.Errorf("cycle %d: %w", i+1, err)
					}
				}
				return nil
			},
		},
	}
}

func loginLogoutCycle(env *Env) error {
	err := env.Visit(env.Fixture.Routes.Login)
	if err != nil {
		return err
	}

	err = env.Login.Login(env.Fixture.Credentials.Username, env.Fixture.Credentials.Password)
	if err != nil {
		return err
	}

	err = env.Observer.ConfirmLanded()
	if err != nil {
		return err
	}

	err = env.Observer.ConfirmSessionCookie(env.Fixture.Credentials.Username)
	if err != nil {
		return err
	}

	err = env.Inventory.Logout()
	if err != nil {
		return err
	}

	err = env.Observer.ConfirmOnLogin()
	if err != nil {
		return err
	}

	err = env.Observer.ConfirmCookieAbsent()
	if err != nil {
		return err
	}

	return env.Observer.ConfirmAccessDenied(env.Login)
}

func securityScenarios() []Scenario {
	return []Scenario{
		{
			Group: "security",
			Name:  "should use password type input to hide chars on screen",
			Run: func(env *Env) error {
				return env.Login.ConfirmPasswordMasked()
			},
		},
		{
			Group:         "security",
			Name:          "should not send api requests with unencrypted passwords",
			NotApplicable: "credentials are checked client side; no authentication request is made to inspect",
		},
		{
			Group: "security",
			Name:  "should assign an expiry date to the session cookie",
			Run: func(env *Env) error {
				err := env.Login.Login(env.Fixture.Credentials.Username, env.Fixture.Credentials.Password)
				if err != nil {
					return err
				}
				return env.Observer.ConfirmCookieExpiry()
			},
		},
		{
			Group:         "security",
			Name:          "should have timed out the session after 1 hour of inactivity",
			NotApplicable: "the session does not time out",
		},
		{
			Group:         "security",
			Name:          "should limit successive failed form submissions",
			NotApplicable: "failed attempts do not lock the account",
		},
	}
}

func accessibilityScenarios() []Scenario {
	return []Scenario{
		{
			Group: "accessibility",
			Name:  "should have alt tags for images or hide them from screen readers",
			Run: func(env *Env) error {
				// A failed login puts the error icons on the page.
				err := env.Login.Login(invalidUsername, invalidPassword)
				if err != nil {
					return err
				}
				_, err = env.Login.ErrorText()
				if err != nil {
					return err
				}
				return confirmImagesDescribed(env.Page)
			},
		},
		{
			Group:         "accessibility",
			Name:          "should provide a <label> or aria-label for each input",
			NotApplicable: "inputs only have placeholders",
		},
		{
			Group: "keyboard input",
			Name:  "should allow user to tab between form elements",
			Run:   confirmTabOrder,
		},
		{
			Group: "keyboard input",
			Name:  "should allow user to use enter key to submit login form",
			Run: func(env *Env) error {
				err := env.Login.TypeUsername(env.Fixture.Credentials.Username)
				if err != nil {
					return err
				}
				err = env.Login.TypePassword(env.Fixture.Credentials.Password)
				if err != nil {
					return err
				}
				password, err := env.Login.Password()
				if err != nil {
					return err
				}
				err = password.Press(driver.KeyEnter)
				if err != nil {
					return err
				}
				return env.Observer.ConfirmLanded()
			},
		},
	}
}

// confirmImagesDescribed requires every image to carry a non-empty alt or aria-hidden attribute.
func confirmImagesDescribed(dom driver.DOM) error {
	images, err := dom.FindAll("img, svg")
	if err != nil {
		return err
	}

	var errs []error
	for i, img := range images {
		described := false
		for _, name := range []string{"alt", "aria-hidden"} {
			value, _, err := img.Attribute(name)
			if err != nil {
				return err
			}
			if value != "" {
				described = true
				break
			}
		}
		if !described {
			errs = append(errs, verify.True(fmt.Sprintf("image %d", i+1), false, "described by alt or aria-hidden", "undescribed"))
		}
	}
	return verify.All(errs...)
}

func confirmTabOrder(env *Env) error {
	username, err := env.Login.Username()
	if err != nil {
		return err
	}
	password, err := env.Login.Password()
	if err != nil {
		return err
	}
	submit, err := env.Login.SubmitButton()
	if err != nil {
		return err
	}

	steps := []struct {
		from, to driver.Element
		name     string
	}{
		{username, password, "password input"},
		{password, submit, "submit button"},
	}

	var errs []error
	for _, step := range steps {
		err = step.from.Press(driver.KeyTab)
		if err != nil {
			return err
		}
		focused, err := step.to.Focused()
		if err != nil {
			return err
		}
		errs = append(errs, verify.True("focus after tab", focused, "on "+step.name, "elsewhere"))
	}
	return verify.All(errs...)
}
