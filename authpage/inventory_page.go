package authpage

import (
	"fmt"

	"github.com/jackc/sessionprobe/driver"
)

const (
	MenuButtonSelector = `button[id="react-burger-menu-btn"]`
	LogoutLinkSelector = `a[id="logout_sidebar_link"]`
)

// InventoryPage is the protected landing page. Only its logout control matters here.
type InventoryPage struct {
	dom driver.DOM
}

func NewInventoryPage(dom driver.DOM) *InventoryPage {
	return &InventoryPage{dom: dom}
}

// Logout opens the side menu and follows its logout link.
func (ip *InventoryPage) Logout() error {
	menu, err := ip.dom.Find(MenuButtonSelector)
	if err != nil {
		return fmt.Errorf("menu button: %w", err)
	}
	err = menu.Click()
	if err != nil {
		return err
	}

	link, err := ip.dom.Find(LogoutLinkSelector)
	if err != nil {
		return fmt.Errorf("logout link: %w", err)
	}
	return link.Click()
}
