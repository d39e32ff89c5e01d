package handlers

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/google/go-github/v57/github"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/audit"
)

var blogSlugPattern = regexp.MustCompile(`/blog/([^/\s]+)`)

// commentPostSlug finds the blog post a discussion belongs to, from its body or title
func commentPostSlug(discussion *github.Discussion) string {
	for _, text := range []string{discussion.GetBody(), discussion.GetTitle()} {
		if m := blogSlugPattern.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return "unknown"
}

// WebhookHandler receives comment notifications from GitHub Discussions (giscus)
type WebhookHandler struct {
	secret []byte
	audit  interfaces.AuditService
	events interfaces.ServerEventLogger
	logger arbor.ILogger
}

// NewWebhookHandler creates the handler. An empty secret disables signature checks.
func NewWebhookHandler(secret string, auditService interfaces.AuditService, events interfaces.ServerEventLogger, logger arbor.ILogger) *WebhookHandler {
	return &WebhookHandler{
		secret: []byte(secret),
		audit:  auditService,
		events: events,
		logger: logger,
	}
}

// GiscusHandler handles POST /api/webhooks/giscus
func (h *WebhookHandler) GiscusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	body, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		h.events.Log(models.SourceAPIRouter, models.LevelWarn, "Rejected giscus webhook", map[string]interface{}{
			"reason": err.Error(),
		})
		WriteError(w, http.StatusUnauthorized, "Invalid webhook request")
		return
	}

	eventType := github.WebHookType(r)
	if eventType == "ping" {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "pong"})
		return
	}

	parsed, err := github.ParseWebHook(eventType, body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	event, ok := parsed.(*github.DiscussionCommentEvent)
	if !ok || event.Discussion == nil || event.Comment == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Not a comment event"})
		return
	}

	switch event.GetAction() {
	case "created", "edited":
		commenter := event.GetComment().GetUser()
		user := &models.EventUser{
			Name:  commenter.GetLogin(),
			Email: commenter.GetEmail(),
		}
		h.audit.LogEvent(r.Context(), audit.CommentAdded(
			commentPostSlug(event.GetDiscussion()),
			event.GetDiscussion().GetTitle(),
			strconv.FormatInt(event.GetComment().GetID(), 10),
			user,
			audit.MetaFromRequest(r),
		))
	default:
		h.logger.Debug().
			Str("event", eventType).
			Str("action", event.GetAction()).
			Msg("Ignoring discussion comment action")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Webhook processed",
	})
}
