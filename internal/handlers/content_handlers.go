package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/audit"
	"github.com/ternarybob/folio/internal/services/content"
)

// maxPostUpload caps blog post uploads
const maxPostUpload = 5 << 20

// ContentService is the content operations used by the blog, mind and image handlers
type ContentService interface {
	UploadPost(ctx context.Context, filename string, data []byte) (*models.BlogPost, error)
	CreatePost(ctx context.Context, input content.CreatePostInput) (*models.BlogPost, error)
	RenderPost(ctx context.Context, slug string) (string, *models.BlogPost, error)
	CreateIdea(ctx context.Context, input content.CreateIdeaInput) (*models.MindIdea, error)
	AddThought(ctx context.Context, input content.AddThoughtInput) (*models.MindIdea, *models.Thought, error)
	SaveImage(ctx context.Context, slug, filename, contentType string, data []byte) (*models.StoredImage, error)
}

// ContentHandler serves the blog, mind and image upload routes
type ContentHandler struct {
	content      ContentService
	audit        interfaces.AuditService
	events       interfaces.ServerEventLogger
	maxImageSize int64
	logger       arbor.ILogger
}

func NewContentHandler(contentService ContentService, auditService interfaces.AuditService, events interfaces.ServerEventLogger, maxImageSize int64, logger arbor.ILogger) *ContentHandler {
	return &ContentHandler{
		content:      contentService,
		audit:        auditService,
		events:       events,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

// readFormFile reads one multipart file field, bounded by limit bytes
func readFormFile(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]byte, string, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", "", fmt.Errorf("file too large: %w", tooLarge)
		}
		return nil, "", "", fmt.Errorf("%w: invalid multipart form: %v", content.ErrInvalid, err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: no %s file provided", content.ErrInvalid, field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read upload: %w", err)
	}
	return data, header.Filename, header.Header.Get("Content-Type"), nil
}

// CreatePostHandler handles POST /api/blog/create
func (h *ContentHandler) CreatePostHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	var input content.CreatePostInput
	if err := DecodeJSON(w, r, &input); err != nil {
		WriteError(w, decodeStatus(err), err.Error())
		return
	}

	post, err := h.content.CreatePost(r.Context(), input)
	if err != nil {
		failRoute(w, r, h.events, models.SourceAPIRouter, "Failed to create blog post", err)
		return
	}

	h.audit.LogEvent(r.Context(), audit.PostCreated(post.Slug, post.Frontmatter.Title, user, audit.MetaFromRequest(r)))

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Blog post created successfully",
		"slug":    post.Slug,
	})
}

// UploadPostHandler handles POST /api/blog/upload (multipart field "file")
func (h *ContentHandler) UploadPostHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	data, filename, _, err := readFormFile(w, r, "file", maxPostUpload)
	if err != nil {
		failRoute(w, r, h.events, models.SourceAPIRouter, "Failed to read blog upload", err)
		return
	}

	post, err := h.content.UploadPost(r.Context(), filename, data)
	if err != nil {
		failRoute(w, r, h.events, models.SourceAPIRouter, "Failed to upload blog post", err)
		return
	}

	h.audit.LogEvent(r.Context(), audit.PostCreated(post.Slug, post.Frontmatter.Title, user, audit.MetaFromRequest(r)))

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Blog post uploaded successfully",
		"slug":    post.Slug,
		"title":   post.Frontmatter.Title,
	})
}

// PostHTMLHandler handles GET /api/blog/{slug}/html
func (h *ContentHandler) PostHTMLHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	slug := r.PathValue("slug")
	rendered, _, err := h.content.RenderPost(r.Context(), slug)
	if err != nil {
		failRoute(w, r, h.events, models.SourceAPIRouter, "Failed to render blog post", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, rendered)
}

// CreateIdeaHandler handles POST /api/mind/create
func (h *ContentHandler) CreateIdeaHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	var input content.CreateIdeaInput
	if err := DecodeJSON(w, r, &input); err != nil {
		WriteError(w, decodeStatus(err), err.Error())
		return
	}

	idea, err := h.content.CreateIdea(r.Context(), input)
	if err != nil {
		failRoute(w, r, h.events, models.SourceAPIRouter, "Failed to create idea", err)
		return
	}

	h.audit.LogEvent(r.Context(), audit.MindIdeaCreated(idea.ID, idea.Title, user, audit.MetaFromRequest(r)))

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"id":      idea.ID,
		"idea":    idea,
	})
}

// AddThoughtHandler handles POST /api/mind/thought
func (h *ContentHandler) AddThoughtHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	var input content.AddThoughtInput
	if err := DecodeJSON(w, r, &input); err != nil {
		WriteError(w, decodeStatus(err), err.Error())
		return
	}

	idea, thought, err := h.content.AddThought(r.Context(), input)
	if err != nil {
		failRoute(w, r, h.events, models.SourceAPIRouter, "Failed to add thought", err)
		return
	}

	h.audit.LogEvent(r.Context(), audit.MindThoughtAdded(idea.ID, idea.Title, thought.ID, user, audit.MetaFromRequest(r)))

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"thought": thought,
	})
}

// UploadImageHandler handles POST /api/upload-image (multipart fields "image" and "slug")
func (h *ContentHandler) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	user := RequireUser(w, r)
	if user == nil {
		return
	}

	data, filename, contentType, err := readFormFile(w, r, "image", h.maxImageSize)
	if err != nil {
		failRoute(w, r, h.events, models.SourceImageProcessor, "Failed to read image upload", err)
		return
	}

	image, err := h.content.SaveImage(r.Context(), r.FormValue("slug"), filename, contentType, data)
	if err != nil {
		failRoute(w, r, h.events, models.SourceImageProcessor, "Failed to upload image", err)
		return
	}

	h.audit.LogEvent(r.Context(), audit.MediaUploaded(*image, user, audit.MetaFromRequest(r)))

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"filename": image.Filename,
		"path":     image.RelativePath,
		"message":  "Image uploaded successfully",
	})
}
