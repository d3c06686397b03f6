package views

import (
	"github.com/a-h/templ"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
)

func LoginPage(data viewmodels.LoginViewData) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw("<!doctype html>")
		h.raw(`<html lang="en"><head><meta charset="utf-8"><title>Sign in · Open CBOM</title><link rel="stylesheet" href="/static/app.css"></head><body><main class="login">`)
		h.elem("h1", "Sign in to Open CBOM")
		if data.Toast != nil {
			toast(h, *data.Toast)
		}
		if data.SetupRequired {
			h.raw(`<div class="toast toast-warning" role="status">`)
			h.elem("strong", "No users yet")
			h.elem("p", "Create the first admin with: open-cbom users bootstrap-admin --email you@example.com")
			h.raw("</div>")
		}
		if data.ErrorMessage != "" {
			h.elem("div", data.ErrorMessage, "class", "toast toast-error", "role", "alert")
		}
		h.raw(`<form method="post" action="/login">`)
		h.open("input", "type", "hidden", "name", "csrf", "value", data.CSRFToken)
		h.open("input", "type", "hidden", "name", "next", "value", data.Next)
		h.raw(`<label>Email `)
		h.open("input", "type", "email", "name", "email", "autocomplete", "username", "required", "", "value", data.Email)
		h.raw(`</label><label>Password <input type="password" name="password" autocomplete="current-password" required></label>`)
		h.raw(`<button type="submit">Sign in</button></form></main></body></html>`)
	})
}
