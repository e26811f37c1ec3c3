// Package verify produces the one kind of failure a probe reports: an observed value that does not match what was
// expected.
package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type AssertionError struct {
	What     string
	Expected string
	Actual   string
	// Relation describes how Actual was compared to Expected, e.g. "equal" or "contain".
	Relation string
}

func (e *AssertionError) Error() string {
	relation := e.Relation
	if relation == "" {
		relation = "equal"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: expected to %s %q, got %q", e.What, relation, e.Expected, e.Actual)
	if relation == "equal" || relation == "contain" {
		if diff := Diff(e.Expected, e.Actual); diff != "" {
			fmt.Fprintf(&sb, "\ndiff (-expected +actual): %s", diff)
		}
	}
	return sb.String()
}

// Diff renders the character level difference between expected and actual. Deletions are wrapped as [-...-] and
// insertions as {+...+}. It returns "" when they are equal.
func Diff(expected, actual string) string {
	if expected == actual {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(expected, actual, false))

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+" + d.Text + "+}")
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}

// IsAssertion reports whether err is, or wraps, an *AssertionError.
func IsAssertion(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}

func Equal(what, expected, actual string) error {
	if expected == actual {
		return nil
	}
	return &AssertionError{What: what, Expected: expected, Actual: actual, Relation: "equal"}
}

func NotEqual(what, unexpected, actual string) error {
	if unexpected != actual {
		return nil
	}
	return &AssertionError{What: what, Expected: unexpected, Actual: actual, Relation: "differ from"}
}

func Contains(what, expected, actual string) error {
	if strings.Contains(actual, expected) {
		return nil
	}
	return &AssertionError{What: what, Expected: expected, Actual: actual, Relation: "contain"}
}

// True fails when ok is false, describing the expected and actual states in words.
func True(what string, ok bool, expected, actual string) error {
	if ok {
		return nil
	}
	return &AssertionError{What: what, Expected: expected, Actual: actual, Relation: "be"}
}

// All combines failures so every one of them is reported. It returns nil when all errs are nil.
func All(errs ...error) error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}

	switch len(failed) {
	case 0:
		return nil
	case 1:
		return failed[0]
	default:
		return multiError(failed)
	}
}

type multiError []error

func (m multiError) Error() string {
	msgs := make([]string, len(m))
	for i, err := range m {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// As lets errors.As find an *AssertionError inside a combined failure.
func (m multiError) As(target any) bool {
	for _, err := range m {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}

func (m multiError) Is(target error) bool {
	for _, err := range m {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
