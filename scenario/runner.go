package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/sessionprobe/authpage"
	"github.com/jackc/sessionprobe/driver"
	"github.com/jackc/sessionprobe/fixture"
	"github.com/jackc/sessionprobe/session"
	"github.com/jackc/sessionprobe/verify"
	log "gopkg.in/inconshreveable/log15.v2"
)

// PageFactory opens a page that shares no cookies or history with any page opened before it.
type PageFactory func() (driver.Page, error)

type Runner struct {
	NewPage PageFactory
	Fixture *fixture.Fixture
	BaseURL string
	Logger  log.Logger

	// Cache holds established sessions. It may be shared between runs against the same target.
	Cache *session.Cache
	// Sessions defaults to DefaultSessions.
	Sessions map[string]func(env *Env) error
}

// Run executes scenarios strictly one after another. Cancelling ctx stops the run before the next scenario starts;
// the report then covers the scenarios that ran and ctx's error is returned with it.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (*Report, error) {
	if r.NewPage == nil || r.Fixture == nil || r.BaseURL == "" {
		return nil, fmt.Errorf("runner requires NewPage, Fixture and BaseURL")
	}

	logger := r.Logger
	if logger == nil {
		logger = log.New()
		logger.SetHandler(log.DiscardHandler())
	}

	report := &Report{RunID: uuid.NewString(), Started: time.Now()}
	logger = logger.New("run", report.RunID)

	cache := r.Cache
	if cache == nil {
		cache = session.NewCache(logger.New("module", "cache"))
	}

	sessions := r.Sessions
	if sessions == nil {
		sessions = DefaultSessions()
	}

	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(report.Started)
			return report, err
		}

		result := r.runOne(s, cache, sessions, logger)
		report.Results = append(report.Results, result)

		ctxLogger := logger.New("scenario", s.FullName(), "status", result.Status, "duration", result.Duration)
		switch result.Status {
		case Passed, NotApplicable:
			ctxLogger.Info("scenario finished")
		default:
			ctxLogger.Warn("scenario finished", "error", result.Err)
		}
	}

	report.Duration = time.Since(report.Started)
	return report, nil
}

func (r *Runner) runOne(s Scenario, cache *session.Cache, sessions map[string]func(env *Env) error, logger log.Logger) Result {
	if s.NotApplicable != "" {
		return Result{Scenario: s, Status: NotApplicable}
	}

	started := time.Now()
	err := r.execute(s, cache, sessions, logger)
	result := Result{Scenario: s, Err: err, Duration: time.Since(started)}
	switch {
	case err == nil:
		result.Status = Passed
	case verify.IsAssertion(err):
		result.Status = Failed
	default:
		result.Status = Errored
	}
	return result
}

func (r *Runner) execute(s Scenario, cache *session.Cache, sessions map[string]func(env *Env) error, logger log.Logger) (err error) {
	if s.Run == nil {
		return fmt.Errorf("scenario %s has nothing to run", s.FullName())
	}

	page, err := r.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		closeErr := page.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close page: %w", closeErr)
		}
	}()

	env := r.newEnv(page, logger)

	err = env.Visit(r.Fixture.Routes.Login)
	if err != nil {
		return err
	}

	if s.Session != "" {
		setup, ok := sessions[s.Session]
		if !ok {
			return fmt.Errorf("unknown session %q", s.Session)
		}

		err = cache.Establish(s.Session, page, func() error { return setup(env) })
		if err != nil {
			return err
		}

		// Leave the page in the same place whether the session was replayed or restored.
		err = env.Visit(r.Fixture.Routes.Login)
		if err != nil {
			return err
		}
	}

	return s.Run(env)
}

func (r *Runner) newEnv(page driver.Page, logger log.Logger) *Env {
	return &Env{
		Page:      page,
		Login:     authpage.NewLoginPage(page, r.Fixture.Constants.ErrorClass),
		Inventory: authpage.NewInventoryPage(page),
		Observer:  session.NewObserver(page, page, r.Fixture, r.BaseURL, logger.New("module", "observer")),
		Fixture:   r.Fixture,
		BaseURL:   r.BaseURL,
	}
}
