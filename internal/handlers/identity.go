package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/folio/internal/models"
)

// Headers set by the identity proxy in front of the server
const (
	HeaderAuthUser      = "X-Auth-Request-User"
	HeaderAuthEmail     = "X-Auth-Request-Email"
	HeaderAuthRequestID = "X-Auth-Request-Id"
)

// UserFromRequest returns the authenticated user, or nil when the proxy sent no identity
func UserFromRequest(r *http.Request) *models.EventUser {
	name := strings.TrimSpace(r.Header.Get(HeaderAuthUser))
	email := strings.TrimSpace(r.Header.Get(HeaderAuthEmail))
	if name == "" && email == "" {
		return nil
	}
	id := name
	if id == "" {
		id = email
	}
	return &models.EventUser{ID: id, Name: name, Email: email}
}

// RequireUser writes 401 and returns nil when the request is unauthenticated
func RequireUser(w http.ResponseWriter, r *http.Request) *models.EventUser {
	user := UserFromRequest(r)
	if user == nil {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return user
}
