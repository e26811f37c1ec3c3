package scenario_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/sessionprobe/demoapp"
	"github.com/jackc/sessionprobe/driver"
	"github.com/jackc/sessionprobe/driver/htmldriver"
	"github.com/jackc/sessionprobe/scenario"
	"github.com/jackc/sessionprobe/session"
	"github.com/jackc/sessionprobe/test/testutil"
	"github.com/jackc/sessionprobe/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T) *scenario.Runner {
	server, _ := testutil.StartDemo(t, demoapp.ServerConfig{})

	return &scenario.Runner{
		NewPage: func() (driver.Page, error) {
			return htmldriver.NewPage(htmldriver.Config{Transport: server.Client().Transport})
		},
		Fixture: testutil.DemoFixture(),
		BaseURL: server.URL,
		Logger:  testutil.DiscardLogger(),
	}
}

func TestCatalogPassesAgainstDemoApp(t *testing.T) {
	runner := newRunner(t)

	report, err := runner.Run(context.Background(), scenario.Catalog())
	require.NoError(t, err)
	require.Len(t, report.Results, len(scenario.Catalog()))
	require.NotEmpty(t, report.RunID)

	for _, result := range report.Results {
		if result.Scenario.NotApplicable != "" {
			assert.Equal(t, scenario.NotApplicable, result.Status, result.Scenario.FullName())
			continue
		}
		assert.Equalf(t, scenario.Passed, result.Status, "%s: %v", result.Scenario.FullName(), result.Err)
	}
	require.False(t, report.Failed())
	require.Equal(t, 4, report.Count(scenario.NotApplicable))
}

func TestCatalogDetectsWrongMessages(t *testing.T) {
	runner := newRunner(t)
	runner.Fixture.Errors.InvalidPassword = "Epic sadface: Username and password do not match any user in this service"

	scenarios, err := scenario.Filter(scenario.Catalog(), "invalid password")
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.True(t, report.Failed())

	result, ok := report.Find("failed login/should not log in with invalid password")
	require.True(t, ok)
	require.Equal(t, scenario.Failed, result.Status)
	require.True(t, verify.IsAssertion(result.Err))
	require.Contains(t, result.Err.Error(), "Password does not match this user")
}

func TestCatalogDetectsWrongCookieName(t *testing.T) {
	runner := newRunner(t)
	runner.Fixture.Constants.SessionCookie = "session-id"

	scenarios, err := scenario.Filter(scenario.Catalog(), "session cookie")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	report, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)

	for _, result := range report.Results {
		if result.Scenario.Name == "should remove session cookie" {
			// An absent cookie trivially passes.
			require.Equal(t, scenario.Passed, result.Status)
			continue
		}
		require.Equalf(t, scenario.Failed, result.Status, result.Scenario.FullName())
	}
}

func TestSessionsAreEstablishedOnce(t *testing.T) {
	runner := newRunner(t)
	runner.Cache = session.NewCache(nil)

	logins := 0
	sessions := scenario.DefaultSessions()
	login := sessions[scenario.LoginSession]
	sessions[scenario.LoginSession] = func(env *scenario.Env) error {
		logins++
		return login(env)
	}
	runner.Sessions = sessions

	scenarios, err := scenario.Filter(scenario.Catalog(), "^(successful login|stay logged in)/")
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.False(t, report.Failed())
	require.Equal(t, 1, logins)
	require.True(t, runner.Cache.Has(scenario.LoginSession))
}

func TestRunStopsWhenCanceled(t *testing.T) {
	runner := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	scenarios := []scenario.Scenario{
		{Group: "g", Name: "first", Run: func(env *scenario.Env) error {
			ran++
			cancel()
			return nil
		}},
		{Group: "g", Name: "second", Run: func(env *scenario.Env) error {
			ran++
			return nil
		}},
	}

	report, err := runner.Run(ctx, scenarios)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, ran)
	require.Len(t, report.Results, 1)
	require.Equal(t, scenario.Passed, report.Results[0].Status)
}

func TestRunClassifiesResults(t *testing.T) {
	runner := newRunner(t)

	scenarios := []scenario.Scenario{
		{Group: "g", Name: "assertion", Run: func(env *scenario.Env) error {
			return verify.Equal("x", "1", "2")
		}},
		{Group: "g", Name: "infrastructure", Run: func(env *scenario.Env) error {
			return errors.New("browser crashed")
		}},
		{Group: "g", Name: "skipped", NotApplicable: "not here"},
		{Group: "g", Name: "empty"},
		{Group: "g", Name: "unknown session", Session: "nope", Run: func(env *scenario.Env) error { return nil }},
	}

	report, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)

	statuses := make([]scenario.Status, len(report.Results))
	for i, result := range report.Results {
		statuses[i] = result.Status
	}
	require.Equal(t, []scenario.Status{
		scenario.Failed,
		scenario.Errored,
		scenario.NotApplicable,
		scenario.Errored,
		scenario.Errored,
	}, statuses)
	require.True(t, report.Failed())
}

func TestRunRequiresConfiguration(t *testing.T) {
	runner := &scenario.Runner{}
	_, err := runner.Run(context.Background(), scenario.Catalog())
	require.Error(t, err)
}

func TestEveryScenarioStartsOnLoginPage(t *testing.T) {
	runner := newRunner(t)

	var urls []string
	scenarios := []scenario.Scenario{
		{Group: "g", Name: "plain", Run: func(env *scenario.Env) error {
			url, err := env.Page.URL()
			urls = append(urls, url)
			return err
		}},
		{Group: "g", Name: "with session", Session: scenario.LogoutSession, Run: func(env *scenario.Env) error {
			url, err := env.Page.URL()
			urls = append(urls, url)
			return err
		}},
	}

	report, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.False(t, report.Failed())

	loginURL := runner.BaseURL + demoapp.LoginPath
	require.Equal(t, []string{loginURL, loginURL}, urls)
}
