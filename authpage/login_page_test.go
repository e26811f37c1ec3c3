package authpage_test

import (
	"testing"

	"github.com/jackc/sessionprobe/authpage"
	"github.com/jackc/sessionprobe/demoapp"
	"github.com/jackc/sessionprobe/driver"
	"github.com/jackc/sessionprobe/driver/htmldriver"
	"github.com/jackc/sessionprobe/fixture"
	"github.com/jackc/sessionprobe/test/testutil"
	"github.com/jackc/sessionprobe/verify"
	"github.com/stretchr/testify/require"
)

func openLogin(t *testing.T) (*htmldriver.Page, *authpage.LoginPage, string) {
	server, _ := testutil.StartDemo(t, demoapp.ServerConfig{})
	page := testutil.NewHTMLPage(t, server)

	_, err := page.Visit(fixture.URL(server.URL, demoapp.LoginPath))
	require.NoError(t, err)

	return page, authpage.NewLoginPage(page, demoapp.ErrorClass), server.URL
}

func TestConfirmFormPresent(t *testing.T) {
	_, lp, _ := openLogin(t)
	require.NoError(t, lp.ConfirmFormPresent())
	require.NoError(t, lp.ConfirmPasswordMasked())
}

func TestConfirmFormPresentOnOtherPage(t *testing.T) {
	page, lp, baseURL := openLogin(t)

	_, err := page.Visit(fixture.URL(baseURL, "/logout"))
	require.NoError(t, err)
	_, err = page.Visit(fixture.URL(baseURL, demoapp.InventoryPath))
	require.NoError(t, err)

	// Redirected back to the login form.
	require.NoError(t, lp.ConfirmFormPresent())
}

func TestLoginWithBlankUsername(t *testing.T) {
	_, lp, _ := openLogin(t)

	require.NoError(t, lp.TypePassword(testutil.DemoPassword))
	require.NoError(t, lp.Submit())

	require.NoError(t, lp.ConfirmError(demoapp.NoUsernameMessage))
	require.NoError(t, lp.ConfirmFieldsDecorated())

	state, err := lp.ErrorState()
	require.NoError(t, err)
	require.Equal(t, authpage.FormErrorState{
		Message:            demoapp.NoUsernameMessage,
		ContainerDecorated: true,
		UsernameDecorated:  true,
		PasswordDecorated:  true,
	}, state)
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		message  string
	}{
		{"blank password", testutil.DemoUsername, "", demoapp.NoPasswordMessage},
		{"unknown username", "invalid_username", testutil.DemoPassword, demoapp.InvalidUsernameMessage},
		{"wrong password", testutil.DemoUsername, "invalid_password", demoapp.InvalidPasswordMessage},
		{"locked out", testutil.LockedUser, testutil.DemoPassword, demoapp.LockedOutMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, lp, _ := openLogin(t)

			require.NoError(t, lp.Login(tt.username, tt.password))
			require.NoError(t, lp.ConfirmError(tt.message))
			require.NoError(t, lp.ConfirmFieldsDecorated())
		})
	}
}

func TestConfirmErrorReportsWrongMessage(t *testing.T) {
	_, lp, _ := openLogin(t)

	require.NoError(t, lp.Login("invalid_username", "x"))

	err := lp.ConfirmError(demoapp.NoPasswordMessage)
	require.True(t, verify.IsAssertion(err))
	require.Contains(t, err.Error(), "Username is not recognized")
}

func TestConfirmErrorWithoutError(t *testing.T) {
	_, lp, _ := openLogin(t)

	err := lp.ConfirmError(demoapp.NoUsernameMessage)
	require.True(t, verify.IsAssertion(err))
	require.Contains(t, err.Error(), "<no error element>")

	err = lp.ConfirmFieldsDecorated()
	require.True(t, verify.IsAssertion(err))

	state, err := lp.ErrorState()
	require.NoError(t, err)
	require.Equal(t, authpage.FormErrorState{}, state)
}

func TestTypeReplacesExistingValue(t *testing.T) {
	page, lp, _ := openLogin(t)

	require.NoError(t, lp.TypeUsername("someone"))
	require.NoError(t, lp.TypeUsername(testutil.DemoUsername))
	require.NoError(t, lp.TypePassword(testutil.DemoPassword))
	require.NoError(t, lp.Submit())

	url, err := page.URL()
	require.NoError(t, err)
	require.Contains(t, url, demoapp.InventoryPath)
}

func TestLogout(t *testing.T) {
	page, lp, baseURL := openLogin(t)

	require.NoError(t, lp.Login(testutil.DemoUsername, testutil.DemoPassword))
	require.NoError(t, authpage.NewInventoryPage(page).Logout())

	url, err := page.URL()
	require.NoError(t, err)
	require.Equal(t, fixture.URL(baseURL, demoapp.LoginPath), url)
}

func TestLogoutWithoutMenu(t *testing.T) {
	page, _, _ := openLogin(t)

	err := authpage.NewInventoryPage(page).Logout()
	require.ErrorIs(t, err, driver.ErrNotFound)
	require.ErrorContains(t, err, "menu button")
}
