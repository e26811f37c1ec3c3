// Package authpage contains page objects for the target's login form and the page that hosts its logout control.
// They hold no state of their own; every call queries the DOM they were given.
package authpage

import (
	"errors"
	"fmt"

	"github.com/jackc/sessionprobe/driver"
	"github.com/jackc/sessionprobe/verify"
)

var (
	FormSelector     = "form"
	UsernameSelector = driver.TestID("username")
	PasswordSelector = driver.TestID("password")
	SubmitSelector   = driver.TestID("login-button")
	ErrorSelector    = driver.TestID("error")
)

// FormErrorState is what a failed submission leaves visible on the form.
type FormErrorState struct {
	Message            string
	ContainerDecorated bool
	UsernameDecorated  bool
	PasswordDecorated  bool
}

type LoginPage struct {
	dom        driver.DOM
	errorClass string
}

// NewLoginPage returns a LoginPage that reads the page through dom. errorClass is the class the target applies to
// elements in an error state.
func NewLoginPage(dom driver.DOM, errorClass string) *LoginPage {
	return &LoginPage{dom: dom, errorClass: errorClass}
}

func (lp *LoginPage) Form() (driver.Element, error) {
	return lp.dom.Find(FormSelector)
}

func (lp *LoginPage) Username() (driver.Element, error) {
	return lp.dom.Find(UsernameSelector)
}

func (lp *LoginPage) Password() (driver.Element, error) {
	return lp.dom.Find(PasswordSelector)
}

func (lp *LoginPage) SubmitButton() (driver.Element, error) {
	return lp.dom.Find(SubmitSelector)
}

func (lp *LoginPage) ErrorText() (driver.Element, error) {
	return lp.dom.Find(ErrorSelector)
}

func replace(el driver.Element, value string) error {
	err := el.Clear()
	if err != nil {
		return err
	}
	return el.Type(value)
}

func (lp *LoginPage) TypeUsername(value string) error {
	el, err := lp.Username()
	if err != nil {
		return fmt.Errorf("username input: %w", err)
	}
	return replace(el, value)
}

func (lp *LoginPage) TypePassword(value string) error {
	el, err := lp.Password()
	if err != nil {
		return fmt.Errorf("password input: %w", err)
	}
	return replace(el, value)
}

func (lp *LoginPage) Submit() error {
	el, err := lp.SubmitButton()
	if err != nil {
		return fmt.Errorf("submit button: %w", err)
	}
	return el.Click()
}

// Login fills in the username, then the password, then submits. Tests of a single blank field call the steps
// individually instead.
func (lp *LoginPage) Login(username, password string) error {
	err := lp.TypeUsername(username)
	if err != nil {
		return err
	}
	err = lp.TypePassword(password)
	if err != nil {
		return err
	}
	return lp.Submit()
}

// ConfirmError checks that the error message container is decorated with the error class and that the message
// contains expected. Both conditions are always evaluated.
func (lp *LoginPage) ConfirmError(expected string) error {
	text, err := lp.ErrorText()
	if err != nil {
		if errors.Is(err, driver.ErrNotFound) {
			return &verify.AssertionError{What: "error message", Expected: expected, Actual: "<no error element>", Relation: "contain"}
		}
		return err
	}

	container, err := text.Parent()
	if err != nil {
		return fmt.Errorf("error message container: %w", err)
	}

	decorated, err := container.HasClass(lp.errorClass)
	if err != nil {
		return err
	}

	msg, err := text.Text()
	if err != nil {
		return err
	}

	return verify.All(
		decorationCheck("error message container", decorated, lp.errorClass),
		verify.Contains("error message", expected, msg),
	)
}

// ErrorState samples the visible error state of the form.
func (lp *LoginPage) ErrorState() (FormErrorState, error) {
	var state FormErrorState

	text, err := lp.ErrorText()
	switch {
	case errors.Is(err, driver.ErrNotFound):
	case err != nil:
		return state, err
	default:
		state.Message, err = text.Text()
		if err != nil {
			return state, err
		}
		container, err := text.Parent()
		if err != nil {
			return state, err
		}
		state.ContainerDecorated, err = container.HasClass(lp.errorClass)
		if err != nil {
			return state, err
		}
	}

	username, err := lp.Username()
	if err != nil {
		return state, err
	}
	state.UsernameDecorated, err = username.HasClass(lp.errorClass)
	if err != nil {
		return state, err
	}

	password, err := lp.Password()
	if err != nil {
		return state, err
	}
	state.PasswordDecorated, err = password.HasClass(lp.errorClass)
	if err != nil {
		return state, err
	}

	return state, nil
}

// ConfirmFieldsDecorated checks that both inputs and the message container show the error decoration.
func (lp *LoginPage) ConfirmFieldsDecorated() error {
	state, err := lp.ErrorState()
	if err != nil {
		return err
	}
	return verify.All(
		decorationCheck("error message container", state.ContainerDecorated, lp.errorClass),
		decorationCheck("username input", state.UsernameDecorated, lp.errorClass),
		decorationCheck("password input", state.PasswordDecorated, lp.errorClass),
	)
}

// ConfirmFormPresent checks that the form and each of its controls exist.
func (lp *LoginPage) ConfirmFormPresent() error {
	elements := []struct {
		name string
		find func() (driver.Element, error)
	}{
		{"login form", lp.Form},
		{"username input", lp.Username},
		{"password input", lp.Password},
		{"submit button", lp.SubmitButton},
	}

	var errs []error
	for _, e := range elements {
		_, err := e.find()
		if errors.Is(err, driver.ErrNotFound) {
			errs = append(errs, verify.True(e.name, false, "present", "absent"))
		} else if err != nil {
			return err
		}
	}
	return verify.All(errs...)
}

// ConfirmPasswordMasked checks that the password input hides what is typed.
func (lp *LoginPage) ConfirmPasswordMasked() error {
	el, err := lp.Password()
	if err != nil {
		return fmt.Errorf("password input: %w", err)
	}
	inputType, _, err := el.Attribute("type")
	if err != nil {
		return err
	}
	return verify.Equal("password input type", "password", inputType)
}

func decorationCheck(what string, decorated bool, class string) error {
	return verify.True(what, decorated, fmt.Sprintf("decorated with class %q", class), "undecorated")
}
