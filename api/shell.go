package api

import (
	_ "embed"
	"net/http"
)

//go:embed assets/index.html
var appShell []byte

// getShell serves the single-page app shell. Everything dynamic arrives
// later as fragments; the shell itself is static and cacheable.
func (a *API) getShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(appShell); err != nil {
		a.logger.Debugw("Failed to write app shell", "error", err)
	}
}
