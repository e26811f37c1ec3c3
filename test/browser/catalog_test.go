package browser_test

import (
	"context"
	"testing"

	"github.com/jackc/sessionprobe/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogPassesAgainstDemoApp(t *testing.T) {
	t.Parallel()

	serverInstance := startServer(t)
	browser := TestBrowserManager.Acquire(t)

	runner := &scenario.Runner{
		NewPage: browser.NewPage,
		Fixture: DemoFixture,
		BaseURL: serverInstance.Server.URL,
	}

	report, err := runner.Run(context.Background(), scenario.Catalog())
	require.NoError(t, err)

	for _, result := range report.Results {
		assert.Containsf(t, []scenario.Status{scenario.Passed, scenario.NotApplicable}, result.Status,
			"%s: %v", result.Scenario.FullName(), result.Err)
	}
	require.False(t, report.Failed())
}

func TestCatalogFailsAgainstWrongMessages(t *testing.T) {
	t.Parallel()

	serverInstance := startServer(t)
	browser := TestBrowserManager.Acquire(t)

	f := *DemoFixture
	f.Errors.NoUsername = "Epic sadface: Username is mandatory"

	scenarios, err := scenario.Filter(scenario.Catalog(), "blank username")
	require.NoError(t, err)
	require.Len(t, scenarios, 1)

	runner := &scenario.Runner{
		NewPage: browser.NewPage,
		Fixture: &f,
		BaseURL: serverInstance.Server.URL,
	}

	report, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	require.Equal(t, scenario.Failed, report.Results[0].Status)
	require.Contains(t, report.Results[0].Err.Error(), "Username is mandatory")
}

func TestCatalogPassesAgainstPGBackedDemoApp(t *testing.T) {
	t.Parallel()

	serverInstance := startPGServer(t)
	browser := TestBrowserManager.Acquire(t)

	scenarios, err := scenario.Filter(scenario.Catalog(), "^(successful login|logout)/")
	require.NoError(t, err)

	runner := &scenario.Runner{
		NewPage: browser.NewPage,
		Fixture: DemoFixture,
		BaseURL: serverInstance.Server.URL,
	}

	report, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)
	for _, result := range report.Results {
		require.Equalf(t, scenario.Passed, result.Status, "%s: %v", result.Scenario.FullName(), result.Err)
	}
}
