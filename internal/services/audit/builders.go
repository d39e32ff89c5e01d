package audit

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/folio/internal/models"
)

// RequestMeta is the client information attached to audit events
type RequestMeta struct {
	IPAddress string
	UserAgent string
	SessionID string
}

// MetaFromRequest extracts the client address and user agent from r.
// The first X-Forwarded-For hop wins over X-Real-IP.
func MetaFromRequest(r *http.Request) RequestMeta {
	if r == nil {
		return RequestMeta{}
	}
	ip := ""
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	return RequestMeta{
		IPAddress: ip,
		UserAgent: r.Header.Get("User-Agent"),
		SessionID: r.Header.Get("X-Auth-Request-Id"),
	}
}

func (m RequestMeta) apply(event models.AuditEvent) models.AuditEvent {
	event.IPAddress = m.IPAddress
	event.UserAgent = m.UserAgent
	event.SessionID = m.SessionID
	return event
}

func userLabel(user *models.EventUser) string {
	if name := user.DisplayName(); name != "" {
		return name
	}
	return "unknown"
}

// UserLogin builds a user_login event
func UserLogin(user *models.EventUser, meta RequestMeta) models.AuditEvent {
	return meta.apply(models.AuditEvent{
		EventType:   models.AuditUserLogin,
		Title:       "User logged in: " + userLabel(user),
		Description: "User successfully authenticated",
		User:        user,
		Tags:        []string{"authentication", "login"},
		Severity:    models.SeverityInfo,
	})
}

// UserLogout builds a user_logout event
func UserLogout(user *models.EventUser, meta RequestMeta) models.AuditEvent {
	return meta.apply(models.AuditEvent{
		EventType:   models.AuditUserLogout,
		Title:       "User logged out: " + userLabel(user),
		Description: "User signed out",
		User:        user,
		Tags:        []string{"authentication", "logout"},
		Severity:    models.SeverityInfo,
	})
}

// PostCreated builds a post_created event
func PostCreated(postID, title string, user *models.EventUser, meta RequestMeta) models.AuditEvent {
	return meta.apply(models.AuditEvent{
		EventType:      models.AuditPostCreated,
		Title:          "New blog post created: " + title,
		Description:    fmt.Sprintf("Blog post %q was created", title),
		User:           user,
		RelatedContent: blogContent(postID, title),
		Tags:           []string{"blog", "content", "create"},
		Severity:       models.SeverityInfo,
	})
}

// MindIdeaCreated builds a mind_idea_created event
func MindIdeaCreated(ideaID, title string, user *models.EventUser, meta RequestMeta) models.AuditEvent {
	return meta.apply(models.AuditEvent{
		EventType:      models.AuditMindIdeaCreated,
		Title:          "New mind idea created: " + title,
		Description:    fmt.Sprintf("Mind idea %q was created", title),
		User:           user,
		RelatedContent: mindContent(ideaID, title),
		Tags:           []string{"mind", "content", "create"},
		Severity:       models.SeverityInfo,
	})
}

// MindThoughtAdded builds a mind_thought_added event
func MindThoughtAdded(ideaID, title, thoughtID string, user *models.EventUser, meta RequestMeta) models.AuditEvent {
	return meta.apply(models.AuditEvent{
		EventType:      models.AuditMindThoughtAdded,
		Title:          "New thought added to: " + title,
		Description:    fmt.Sprintf("A new thought was added to mind idea %q", title),
		User:           user,
		RelatedContent: mindContent(ideaID, title),
		Metadata:       map[string]interface{}{"thoughtId": thoughtID},
		Tags:           []string{"mind", "thought", "create"},
		Severity:       models.SeverityInfo,
	})
}

// CommentAdded builds a comment_added event
func CommentAdded(postID, postTitle, commentID string, user *models.EventUser, meta RequestMeta) models.AuditEvent {
	return meta.apply(models.AuditEvent{
		EventType:      models.AuditCommentAdded,
		Title:          "New comment on: " + postTitle,
		Description:    fmt.Sprintf("A comment was added to %q", postTitle),
		User:           user,
		RelatedContent: blogContent(postID, postTitle),
		Metadata:       map[string]interface{}{"commentId": commentID},
		Tags:           []string{"comment", "engagement", "create"},
		Severity:       models.SeverityInfo,
	})
}

// MediaUploaded builds a media_uploaded event
func MediaUploaded(image models.StoredImage, user *models.EventUser, meta RequestMeta) models.AuditEvent {
	return meta.apply(models.AuditEvent{
		EventType:   models.AuditMediaUploaded,
		Title:       "Image uploaded: " + image.Filename,
		Description: fmt.Sprintf("Image %s (%d bytes) was uploaded", image.Filename, image.Size),
		User:        user,
		RelatedContent: &models.RelatedContent{
			Type:  "media",
			ID:    image.Filename,
			Title: image.Filename,
			URL:   image.RelativePath,
		},
		Metadata: map[string]interface{}{"contentType": image.ContentType, "size": image.Size},
		Tags:     []string{"media", "upload"},
		Severity: models.SeverityInfo,
	})
}

func blogContent(postID, title string) *models.RelatedContent {
	return &models.RelatedContent{Type: "blog", ID: postID, Title: title, URL: "/blog/" + postID}
}

func mindContent(ideaID, title string) *models.RelatedContent {
	return &models.RelatedContent{Type: "mind", ID: ideaID, Title: title, URL: "/mind/" + ideaID}
}
