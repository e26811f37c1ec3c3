// Package demoapp is a small login site that behaves like the public demo store the probe was written against. It
// gives the probe a target that runs offline, in tests and behind the demo command.
package demoapp

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "gopkg.in/inconshreveable/log15.v2"
)

const (
	LoginPath     = "/"
	InventoryPath = "/inventory.html"
	LogoutPath    = "/logout"

	SessionCookie = "session-username"
	ErrorClass    = "error"
)

const messagePrefix = "Epic sadface: "

// Messages shown by the login form. NotLoggedIn is a fixture template; $LOCATION is replaced with the requested
// path.
const (
	NotLoggedInMessage     = messagePrefix + "You can only access '$LOCATION' when you are logged in."
	InvalidUsernameMessage = messagePrefix + "Username is not recognized by this service"
	InvalidPasswordMessage = messagePrefix + "Password does not match this user"
	NoUsernameMessage      = messagePrefix + "Username is required"
	NoPasswordMessage      = messagePrefix + "Password is required"
	LockedOutMessage       = messagePrefix + "Sorry, this user has been locked out."
)

type ServerConfig struct {
	// SessionTTL is how long the session cookie lives. Defaults to 10 minutes.
	SessionTTL time.Duration

	// TestEndpoints adds the /test routes for seeding users.
	TestEndpoints bool
}

type server struct {
	store  UserStore
	logger log.Logger
	ttl    time.Duration
}

func NewServer(config ServerConfig, store UserStore, logger log.Logger) http.Handler {
	if logger == nil {
		logger = log.New()
		logger.SetHandler(log.DiscardHandler())
	}

	s := &server{store: store, logger: logger, ttl: config.SessionTTL}
	if s.ttl == 0 {
		s.ttl = 10 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get(LoginPath, s.getLogin)
	r.Post(LoginPath, s.postLogin)
	r.Get(InventoryPath, s.getInventory)
	r.Get(LogoutPath, s.getLogout)

	if config.TestEndpoints {
		RegisterTestEndpoints(r, store, logger)
	}

	return r
}

func requestLogger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

			next.ServeHTTP(ww, req)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ctx := []interface{}{"method", req.Method, "uri", req.RequestURI, "status", status, "duration", time.Since(started)}
			switch {
			case status >= 500:
				logger.Error("http request", ctx...)
			case status >= 400:
				logger.Warn("http request", ctx...)
			default:
				logger.Debug("http request", ctx...)
			}
		})
	}
}

// DeniedLocation builds the login URL a request for path is redirected to when there is no session.
func DeniedLocation(path string) string {
	return LoginPath + "?denied=" + url.QueryEscape(path)
}

func (s *server) render(w http.ResponseWriter, status int, fn func() error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := fn(); err != nil {
		s.logger.Error("render failed", "error", err)
	}
}

func (s *server) getLogin(w http.ResponseWriter, req *http.Request) {
	var message string
	if denied := req.URL.Query().Get("denied"); denied != "" {
		message = strings.ReplaceAll(NotLoggedInMessage, "$LOCATION", denied)
	}

	s.render(w, http.StatusOK, func() error { return RenderLogin(w, "", message) })
}

func (s *server) postLogin(w http.ResponseWriter, req *http.Request) {
	username := req.PostFormValue("user-name")
	password := req.PostFormValue("password")

	fail := func(message string) {
		s.logger.Info("login failed", "name", username, "reason", message)
		s.render(w, http.StatusOK, func() error { return RenderLogin(w, username, message) })
	}

	if username == "" {
		fail(NoUsernameMessage)
		return
	}
	if password == "" {
		fail(NoPasswordMessage)
		return
	}

	user, err := Authenticate(req.Context(), s.store, username, password)
	switch {
	case errors.Is(err, ErrUnknownUser):
		fail(InvalidUsernameMessage)
		return
	case errors.Is(err, ErrBadPassword):
		fail(InvalidPasswordMessage)
		return
	case errors.Is(err, ErrLockedOut):
		fail(LockedOutMessage)
		return
	case err != nil:
		s.logger.Error("authenticate failed", "name", username, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:    SessionCookie,
		Value:   user.Name,
		Path:    "/",
		Expires: time.Now().Add(s.ttl),
	})
	s.logger.Info("login", "name", user.Name)
	http.Redirect(w, req, InventoryPath, http.StatusSeeOther)
}

// sessionUser returns the user named by the session cookie or nil when there is no valid session.
func (s *server) sessionUser(ctx context.Context, req *http.Request) (*User, error) {
	cookie, err := req.Cookie(SessionCookie)
	if errors.Is(err, http.ErrNoCookie) || cookie.Value == "" {
		return nil, nil
	}

	user, err := s.store.UserByName(ctx, cookie.Value)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	if user.Locked {
		return nil, nil
	}

	return user, nil
}

func (s *server) getInventory(w http.ResponseWriter, req *http.Request) {
	user, err := s.sessionUser(req.Context(), req)
	if err != nil {
		s.logger.Error("session lookup failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Redirect(w, req, DeniedLocation(InventoryPath), http.StatusSeeOther)
		return
	}

	s.render(w, http.StatusOK, func() error { return RenderInventory(w, user.Name) })
}

func (s *server) getLogout(w http.ResponseWriter, req *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, req, LoginPath, http.StatusSeeOther)
}
