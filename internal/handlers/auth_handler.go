package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/services/audit"
)

// AuthHandler exposes the proxy-supplied identity and records sign-in/out
type AuthHandler struct {
	audit  interfaces.AuditService
	logger arbor.ILogger
}

func NewAuthHandler(auditService interfaces.AuditService, logger arbor.ILogger) *AuthHandler {
	return &AuthHandler{
		audit:  auditService,
		logger: logger,
	}
}

// MeHandler handles GET /api/auth/me
func (h *AuthHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// LoginHandler handles POST /api/auth/login, called once the proxy has authenticated the session
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	h.audit.LogEvent(r.Context(), audit.UserLogin(user, audit.MetaFromRequest(r)))
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// LogoutHandler handles POST /api/auth/logout
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	h.audit.LogEvent(r.Context(), audit.UserLogout(user, audit.MetaFromRequest(r)))
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
