package demoapp

import (
	"html/template"
	"io"
)

var layout = `{{define "header"}}<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Swag Labs</title>
</head>
<body>
{{end}}
{{define "footer"}}</body>
</html>
{{end}}
`

var loginTemplate = template.Must(template.New("login").Parse(layout + `{{template "header"}}
<div class="login_logo">Swag Labs</div>
<div class="login_wrapper">
  <img class="bot_column" alt="Login bot">
  <form method="post" action="/">
    <div class="form_group">
      <input class="input_error form_input{{if .Message}} error{{end}}" placeholder="Username" type="text" data-test="username" id="user-name" name="user-name" autocorrect="off" autocapitalize="none" value="{{.Username}}">
      {{if .Message}}<svg class="error_icon" aria-hidden="true" viewBox="0 0 16 16"><circle cx="8" cy="8" r="7"></circle></svg>{{end}}
    </div>
    <div class="form_group">
      <input class="input_error form_input{{if .Message}} error{{end}}" placeholder="Password" type="password" data-test="password" id="password" name="password" autocorrect="off" autocapitalize="none" value="">
      {{if .Message}}<svg class="error_icon" aria-hidden="true" viewBox="0 0 16 16"><circle cx="8" cy="8" r="7"></circle></svg>{{end}}
    </div>
    <div class="error-message-container{{if .Message}} error{{end}}">
      {{if .Message}}<h3 data-test="error"><span class="error-button"><svg aria-hidden="true" viewBox="0 0 16 16"><path d="M4 4l8 8M12 4l-8 8"></path></svg></span>{{.Message}}</h3>{{end}}
    </div>
    <input type="submit" class="submit-button btn_action" data-test="login-button" id="login-button" name="login-button" value="Login">
  </form>
</div>
{{template "footer"}}`))

var inventoryTemplate = template.Must(template.New("inventory").Parse(layout + `{{template "header"}}
<div id="page_wrapper">
  <div class="bm-burger-button">
    <button type="button" id="react-burger-menu-btn" onclick="document.getElementById('menu').hidden = false">Open Menu</button>
  </div>
  <nav id="menu" class="bm-item-list" hidden>
    <a id="inventory_sidebar_link" class="bm-item menu-item" href="/inventory.html">All Items</a>
    <a id="logout_sidebar_link" class="bm-item menu-item" href="/logout">Logout</a>
  </nav>
  <div class="app_logo">Swag Labs</div>
  <span class="title">Products</span>
  <div class="inventory_list">
    <p>Signed in as <span data-test="username-display">{{.Username}}</span></p>
  </div>
</div>
{{template "footer"}}`))

type loginView struct {
	Username string
	Message  string
}

type inventoryView struct {
	Username string
}

func RenderLogin(w io.Writer, username, message string) error {
	return loginTemplate.Execute(w, loginView{Username: username, Message: message})
}

func RenderInventory(w io.Writer, username string) error {
	return inventoryTemplate.Execute(w, inventoryView{Username: username})
}
