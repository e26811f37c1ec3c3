package testutil

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/jackc/sessionprobe/demoapp"
	"github.com/jackc/sessionprobe/driver/htmldriver"
	"github.com/jackc/sessionprobe/fixture"
	"github.com/stretchr/testify/require"
	log "gopkg.in/inconshreveable/log15.v2"
)

const (
	DemoUsername = "user1"
	DemoPassword = "password1"
	LockedUser   = "locked_out_user"
)

// DemoFixture describes the demo app. It matches testdata/demo.conf.
func DemoFixture() *fixture.Fixture {
	return &fixture.Fixture{
		Routes:      fixture.Routes{Login: demoapp.LoginPath, Inventory: demoapp.InventoryPath},
		Credentials: fixture.Credentials{Username: DemoUsername, Password: DemoPassword},
		Errors: fixture.Errors{
			NotLoggedIn:     fixture.Template(demoapp.NotLoggedInMessage),
			InvalidUsername: demoapp.InvalidUsernameMessage,
			InvalidPassword: demoapp.InvalidPasswordMessage,
			NoUsername:      demoapp.NoUsernameMessage,
			NoPassword:      demoapp.NoPasswordMessage,
			LockedOut:       demoapp.LockedOutMessage,
		},
		Constants: fixture.Constants{SessionCookie: demoapp.SessionCookie, ErrorClass: demoapp.ErrorClass},
	}
}

func DiscardLogger() log.Logger {
	logger := log.New()
	logger.SetHandler(log.DiscardHandler())
	return logger
}

// StartDemo serves the demo app from memory with the demo user and a locked user. The server is closed at the end of
// the test.
func StartDemo(t testing.TB, config demoapp.ServerConfig) (*httptest.Server, *demoapp.MemoryUserStore) {
	t.Helper()

	store := demoapp.NewMemoryUserStore()
	err := demoapp.Seed(context.Background(), store, []demoapp.SeedUser{
		{Name: DemoUsername, Password: DemoPassword},
		{Name: LockedUser, Password: DemoPassword, Locked: true},
	})
	require.NoError(t, err)

	server := httptest.NewServer(demoapp.NewServer(config, store, DiscardLogger()))
	t.Cleanup(server.Close)

	return server, store
}

// NewHTMLPage opens an htmldriver page routed through server's client.
func NewHTMLPage(t testing.TB, server *httptest.Server) *htmldriver.Page {
	t.Helper()

	page, err := htmldriver.NewPage(htmldriver.Config{Transport: server.Client().Transport, Logger: DiscardLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { page.Close() })

	return page
}
