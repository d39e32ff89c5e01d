package models

// AuditEventType classifies an audit event
type AuditEventType string

const (
	AuditPostCreated       AuditEventType = "post_created"
	AuditPostUpdated       AuditEventType = "post_updated"
	AuditPostDeleted       AuditEventType = "post_deleted"
	AuditCommentAdded      AuditEventType = "comment_added"
	AuditCommentEdited     AuditEventType = "comment_edited"
	AuditCommentDeleted    AuditEventType = "comment_deleted"
	AuditMindIdeaCreated   AuditEventType = "mind_idea_created"
	AuditMindIdeaUpdated   AuditEventType = "mind_idea_updated"
	AuditMindThoughtAdded  AuditEventType = "mind_thought_added"
	AuditMindThoughtEdited AuditEventType = "mind_thought_edited"
	AuditUserLogin         AuditEventType = "user_login"
	AuditUserLogout        AuditEventType = "user_logout"
	AuditMediaUploaded     AuditEventType = "media_uploaded"
	AuditMediaDeleted      AuditEventType = "media_deleted"
	AuditSystemUpdate      AuditEventType = "system_update"
	AuditOther             AuditEventType = "other"
)

// Severity of an audit event
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// EventUser identifies the actor behind an audit event
type EventUser struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// DisplayName returns the name, falling back to the email
func (u *EventUser) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// RelatedContent points at the content item an audit event concerns
type RelatedContent struct {
	Type  string `json:"type,omitempty"` // blog, mind, comment, media, other
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// ChangeDetails records a before/after diff
type ChangeDetails struct {
	Before  map[string]interface{} `json:"before,omitempty"`
	After   map[string]interface{} `json:"after,omitempty"`
	Summary string                 `json:"summary,omitempty"`
}

// AuditEvent is one entry of the audit trail. Field names match the
// camelCase JSON written by earlier versions of the site.
type AuditEvent struct {
	Timestamp      string                 `json:"timestamp"`
	EventType      AuditEventType         `json:"eventType"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description,omitempty"`
	User           *EventUser             `json:"user,omitempty"`
	RelatedContent *RelatedContent        `json:"relatedContent,omitempty"`
	Changes        *ChangeDetails         `json:"changes,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Tags           []string               `json:"tags,omitempty"`
	Severity       Severity               `json:"severity,omitempty"`
	IPAddress      string                 `json:"ipAddress,omitempty"`
	UserAgent      string                 `json:"userAgent,omitempty"`
	SessionID      string                 `json:"sessionId,omitempty"`
}
