package api

import (
	"net/http"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"rulescope/metrics"
	"rulescope/view"
)

const sessionCookie = "rulescope_session"

// sessionStore maps session cookies to view state. Capacity is bounded:
// evicting a session only costs that visitor their filter and selection,
// the next request starts them on a fresh default view.
type sessionStore struct {
	controller *view.Controller
	states     *lru.Cache[string, *view.State]
}

func newSessionStore(controller *view.Controller, max int) (*sessionStore, error) {
	states, err := lru.NewWithEvict(max, func(string, *view.State) {
		metrics.ActiveSessions.Dec()
	})
	if err != nil {
		return nil, err
	}
	return &sessionStore{controller: controller, states: states}, nil
}

// state resolves the request's session, creating one (and setting the
// cookie) when the request carries none or references an evicted id.
func (s *sessionStore) state(w http.ResponseWriter, r *http.Request) *view.State {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if st, ok := s.states.Get(cookie.Value); ok {
			return st
		}
	}

	id := uuid.New().String()
	st := s.controller.NewState()
	s.states.Add(id, st)
	metrics.ActiveSessions.Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return st
}
