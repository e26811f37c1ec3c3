package scenario

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type Status int

const (
	Passed Status = iota
	// Failed means an observed value did not match the expected one.
	Failed
	// Errored means the scenario could not be carried out, e.g. the browser or the target was unreachable.
	Errored
	// NotApplicable means the check does not apply to the target and was not run.
	NotApplicable
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "pass"
	case Failed:
		return "fail"
	case Errored:
		return "error"
	case NotApplicable:
		return "n/a"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type Result struct {
	Scenario Scenario
	Status   Status
	Err      error
	Duration time.Duration
}

type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Results  []Result
}

// Failed reports whether any scenario failed or errored.
func (r *Report) Failed() bool {
	for _, result := range r.Results {
		if result.Status == Failed || result.Status == Errored {
			return true
		}
	}
	return false
}

func (r *Report) Count(status Status) int {
	n := 0
	for _, result := range r.Results {
		if result.Status == status {
			n++
		}
	}
	return n
}

// Find returns the result for the scenario with fullName.
func (r *Report) Find(fullName string) (Result, bool) {
	for _, result := range r.Results {
		if result.Scenario.FullName() == fullName {
			return result, true
		}
	}
	return Result{}, false
}

var statusStyles = map[Status]lipgloss.Style{
	Passed:        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Failed:        lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	Errored:       lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
	NotApplicable: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

var groupStyle = lipgloss.NewStyle().Bold(true)

// Write prints the results grouped as they ran. color enables terminal styling.
func (r *Report) Write(w io.Writer, color bool) error {
	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	var sb strings.Builder
	group := ""
	for _, result := range r.Results {
		if result.Scenario.Group != group {
			group = result.Scenario.Group
			fmt.Fprintf(&sb, "%s\n", style(groupStyle, group))
		}

		status := fmt.Sprintf("%-5s", result.Status)
		fmt.Fprintf(&sb, "  %s %s", style(statusStyles[result.Status], status), result.Scenario.Name)
		switch result.Status {
		case NotApplicable:
			fmt.Fprintf(&sb, " (%s)", result.Scenario.NotApplicable)
		case Passed:
			fmt.Fprintf(&sb, " (%v)", result.Duration.Round(time.Millisecond))
		}
		sb.WriteString("\n")

		if result.Err != nil {
			for _, line := range strings.Split(result.Err.Error(), "\n") {
				fmt.Fprintf(&sb, "        %s\n", line)
			}
		}
	}

	fmt.Fprintf(&sb, "\n%d passed, %d failed, %d errored, %d not applicable in %v (run %s)\n",
		r.Count(Passed), r.Count(Failed), r.Count(Errored), r.Count(NotApplicable),
		r.Duration.Round(time.Millisecond), r.RunID)

	_, err := io.WriteString(w, sb.String())
	return err
}
