package scenario_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/jackc/sessionprobe/scenario"
	"github.com/jackc/sessionprobe/verify"
	"github.com/stretchr/testify/require"
)

func sampleReport() *scenario.Report {
	return &scenario.Report{
		RunID:    "run-1",
		Duration: 1500 * time.Millisecond,
		Results: []scenario.Result{
			{Scenario: scenario.Scenario{Group: "login page", Name: "has a form"}, Status: scenario.Passed, Duration: 12 * time.Millisecond},
			{
				Scenario: scenario.Scenario{Group: "login page", Name: "denies access"},
				Status:   scenario.Failed,
				Err:      verify.Equal("url", "http://x/", "http://x/inventory.html"),
			},
			{Scenario: scenario.Scenario{Group: "security", Name: "times out", NotApplicable: "no timeout"}, Status: scenario.NotApplicable},
			{Scenario: scenario.Scenario{Group: "security", Name: "crashes"}, Status: scenario.Errored, Err: errors.New("browser went away")},
		},
	}
}

func TestReportCounts(t *testing.T) {
	report := sampleReport()
	require.True(t, report.Failed())
	require.Equal(t, 1, report.Count(scenario.Passed))
	require.Equal(t, 1, report.Count(scenario.Failed))
	require.Equal(t, 1, report.Count(scenario.Errored))
	require.Equal(t, 1, report.Count(scenario.NotApplicable))

	result, ok := report.Find("security/crashes")
	require.True(t, ok)
	require.Equal(t, scenario.Errored, result.Status)

	_, ok = report.Find("security/missing")
	require.False(t, ok)

	passing := &scenario.Report{Results: report.Results[:1]}
	require.False(t, passing.Failed())
}

func TestReportWrite(t *testing.T) {
	var buf bytes.Buffer
	err := sampleReport().Write(&buf, false)
	require.NoError(t, err)

	expected := `login page
  pass  has a form (12ms)
  fail  denies access
        url: expected to equal "http://x/", got "http://x/inventory.html"
        diff (-expected +actual): http://x/{+inventory.html+}
security
  n/a   times out (no timeout)
  error crashes
        browser went away

1 passed, 1 failed, 1 errored, 1 not applicable in 1.5s (run run-1)
`
	require.Equal(t, expected, buf.String())
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "pass", scenario.Passed.String())
	require.Equal(t, "n/a", scenario.NotApplicable.String())
	require.Equal(t, "Status(9)", scenario.Status(9).String())
}
